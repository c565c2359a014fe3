package config

import (
	"fmt"
	"strings"

	"uptone/internal/musicapi"
)

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	if err := c.Paths.validate(); err != nil {
		return err
	}
	if err := c.API.validate(); err != nil {
		return err
	}
	if err := c.Download.validate(); err != nil {
		return err
	}
	return c.Logging.validate()
}

func (p *Paths) validate() error {
	if p.OutputDir == "" {
		return fmt.Errorf("paths.output_dir must not be empty")
	}
	if p.StateDir == "" {
		return fmt.Errorf("paths.state_dir must not be empty")
	}
	if p.LogDir == "" {
		return fmt.Errorf("paths.log_dir must not be empty")
	}
	return nil
}

func (a *API) validate() error {
	if a.BaseURL == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	if !strings.HasPrefix(a.BaseURL, "http://") && !strings.HasPrefix(a.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must start with http:// or https://")
	}
	if !musicapi.ValidSource(a.Source) {
		return fmt.Errorf("api.source %q is not supported (choose from %s)",
			a.Source, strings.Join(musicapi.Sources(), ", "))
	}
	if a.MaxRequests <= 0 {
		return fmt.Errorf("api.max_requests must be positive")
	}
	if a.RateWindowSeconds <= 0 {
		return fmt.Errorf("api.rate_window_seconds must be positive")
	}
	if a.Retries < 0 {
		return fmt.Errorf("api.retries must not be negative")
	}
	if a.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be positive")
	}
	if a.InteractiveTimeoutSeconds <= 0 {
		return fmt.Errorf("api.interactive_timeout_seconds must be positive")
	}
	return nil
}

func (d *Download) validate() error {
	if !musicapi.ValidBitrate(d.Quality) {
		return fmt.Errorf("download.quality %d is not supported (choose from 128, 192, 320, 740, 999)", d.Quality)
	}
	if !musicapi.ValidPicSize(d.PicSize) {
		return fmt.Errorf("download.pic_size %d is not supported (choose 300 or 500)", d.PicSize)
	}
	return nil
}

func (l *Logging) validate() error {
	switch l.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (choose console or json)", l.Format)
	}
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported (choose debug, info, warn, or error)", l.Level)
	}
	return nil
}
