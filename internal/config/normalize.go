package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.Paths.normalize(); err != nil {
		return err
	}
	c.API.normalize()
	c.Download.normalize()
	c.Logging.normalize()
	return nil
}

func (p *Paths) normalize() error {
	var err error
	if p.OutputDir, err = expandPath(p.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if p.StateDir, err = expandPath(p.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if p.LogDir, err = expandPath(p.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (a *API) normalize() {
	a.BaseURL = strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
	a.Source = strings.ToLower(strings.TrimSpace(a.Source))
	if a.SearchCount <= 0 {
		a.SearchCount = defaultSearchCount
	}
}

func (d *Download) normalize() {
	if d.PicSize == 0 {
		d.PicSize = defaultPicSize
	}
}

func (l *Logging) normalize() {
	l.Format = strings.ToLower(strings.TrimSpace(l.Format))
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
}
