package musicapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"uptone/internal/logging"
	"uptone/internal/services"
)

const (
	defaultBaseURL      = "https://music-api.gdstudio.xyz/api.php"
	defaultHTTPTimeout  = 30 * time.Second
	defaultRetryCount   = 3
	defaultSearchCount  = 5
	maxResponseBytes    = 4 << 20
)

var validSources = map[string]struct{}{
	"netease":  {},
	"tencent":  {},
	"tidal":    {},
	"spotify":  {},
	"ytmusic":  {},
	"qobuz":    {},
	"joox":     {},
	"deezer":   {},
	"migu":     {},
	"kugou":    {},
	"kuwo":     {},
	"ximalaya": {},
	"apple":    {},
}

var validBitrates = map[int]struct{}{
	128: {},
	192: {},
	320: {},
	740: {},
	999: {},
}

var validPicSizes = map[int]struct{}{
	300: {},
	500: {},
}

// Sources returns the accepted source identifiers in sorted order.
func Sources() []string {
	names := make([]string, 0, len(validSources))
	for name := range validSources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidSource reports whether name is an accepted source identifier,
// including the "_album" album-search form.
func ValidSource(name string) bool {
	_, ok := validSources[strings.TrimSuffix(name, "_album")]
	return ok
}

// ValidBitrate reports whether br is an accepted quality tier.
func ValidBitrate(br int) bool {
	_, ok := validBitrates[br]
	return ok
}

// ValidPicSize reports whether size is an accepted cover art size.
func ValidPicSize(size int) bool {
	_, ok := validPicSizes[size]
	return ok
}

// Limiter gates outgoing requests. Admit blocks until a request slot
// is available or ctx is done.
type Limiter interface {
	Admit(ctx context.Context) error
}

// Config captures the runtime settings for the music API client.
type Config struct {
	BaseURL        string
	Retries        int
	SearchCount    int
	TimeoutSeconds int
}

// Client issues the four remote operations against the music API,
// gated by a rate limiter and retried with exponential backoff.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    Limiter
	logger     *slog.Logger
	sleeper    func(ctx context.Context, d time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger to the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSleeper overrides how retry backoff sleeps are performed (useful
// for tests).
func WithSleeper(sleeper func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// NewClient constructs a music API client. limiter may be nil, in which
// case requests are not rate limited.
func NewClient(cfg Config, limiter Limiter, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Retries < 0 {
		cfg.Retries = defaultRetryCount
	}
	if cfg.SearchCount <= 0 {
		cfg.SearchCount = defaultSearchCount
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		logger:     logging.NewNop(),
		sleeper:    sleepContext,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Search queries the service for tracks matching name on the given
// source. An empty result list is a successful call; it means the
// service found nothing.
func (c *Client) Search(ctx context.Context, name, source string) ([]Track, error) {
	if strings.TrimSpace(name) == "" {
		return nil, services.Wrap(services.ErrValidation, "musicapi", "search", "search name required", nil)
	}
	if !ValidSource(source) {
		return nil, services.Wrap(services.ErrValidation, "musicapi", "search",
			fmt.Sprintf("unsupported source %q", source), nil)
	}

	params := url.Values{}
	params.Set("types", "search")
	params.Set("source", source)
	params.Set("name", name)
	params.Set("count", strconv.Itoa(c.cfg.SearchCount))
	params.Set("pages", "1")

	body, err := c.requestWithRetry(ctx, "search", params)
	if err != nil {
		return nil, err
	}

	var payloads []trackPayload
	if err := json.Unmarshal(body, &payloads); err != nil {
		// The service answers with an object instead of an array when
		// it has nothing useful to say. Treat that as no results.
		c.logger.Debug("unexpected search payload shape",
			logging.String(logging.FieldComponent, "musicapi"),
			logging.Error(err))
		return nil, nil
	}
	tracks := make([]Track, 0, len(payloads))
	for _, p := range payloads {
		tracks = append(tracks, p.track())
	}
	return tracks, nil
}

// SongURL resolves the download URL for a track at the requested
// bitrate. An empty URL in the result means the tier is unavailable.
func (c *Client) SongURL(ctx context.Context, trackID, source string, bitrate int) (SongURL, error) {
	var empty SongURL
	if strings.TrimSpace(trackID) == "" {
		return empty, services.Wrap(services.ErrValidation, "musicapi", "song_url", "track id required", nil)
	}
	if !ValidSource(source) {
		return empty, services.Wrap(services.ErrValidation, "musicapi", "song_url",
			fmt.Sprintf("unsupported source %q", source), nil)
	}
	if !ValidBitrate(bitrate) {
		return empty, services.Wrap(services.ErrValidation, "musicapi", "song_url",
			fmt.Sprintf("unsupported bitrate %d", bitrate), nil)
	}

	params := url.Values{}
	params.Set("types", "url")
	params.Set("source", strings.TrimSuffix(source, "_album"))
	params.Set("id", trackID)
	params.Set("br", strconv.Itoa(bitrate))

	body, err := c.requestWithRetry(ctx, "song_url", params)
	if err != nil {
		return empty, err
	}

	var payload songURLPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return empty, nil
	}
	return payload.songURL(), nil
}

// Lyrics fetches LRC lyrics by the track's lyric id.
func (c *Client) Lyrics(ctx context.Context, lyricID, source string) (Lyrics, error) {
	var empty Lyrics
	if strings.TrimSpace(lyricID) == "" {
		return empty, services.Wrap(services.ErrValidation, "musicapi", "lyrics", "lyric id required", nil)
	}
	if !ValidSource(source) {
		return empty, services.Wrap(services.ErrValidation, "musicapi", "lyrics",
			fmt.Sprintf("unsupported source %q", source), nil)
	}

	params := url.Values{}
	params.Set("types", "lyric")
	params.Set("source", strings.TrimSuffix(source, "_album"))
	params.Set("id", lyricID)

	body, err := c.requestWithRetry(ctx, "lyrics", params)
	if err != nil {
		return empty, err
	}

	var payload lyricsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return empty, nil
	}
	return Lyrics{Lyric: string(payload.Lyric), Translated: string(payload.TLyric)}, nil
}

// AlbumArt resolves the cover art URL for a track's pic id at the
// requested size.
func (c *Client) AlbumArt(ctx context.Context, picID, source string, size int) (CoverArt, error) {
	var empty CoverArt
	if strings.TrimSpace(picID) == "" {
		return empty, services.Wrap(services.ErrValidation, "musicapi", "album_art", "pic id required", nil)
	}
	if !ValidSource(source) {
		return empty, services.Wrap(services.ErrValidation, "musicapi", "album_art",
			fmt.Sprintf("unsupported source %q", source), nil)
	}
	if !ValidPicSize(size) {
		return empty, services.Wrap(services.ErrValidation, "musicapi", "album_art",
			fmt.Sprintf("unsupported pic size %d", size), nil)
	}

	params := url.Values{}
	params.Set("types", "pic")
	params.Set("source", strings.TrimSuffix(source, "_album"))
	params.Set("id", picID)
	params.Set("size", strconv.Itoa(size))

	body, err := c.requestWithRetry(ctx, "album_art", params)
	if err != nil {
		return empty, err
	}

	var payload coverArtPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return empty, nil
	}
	return CoverArt{URL: string(payload.URL)}, nil
}

// Fetch streams an arbitrary URL resolved by this service, subject to
// the rate limiter but not retried: the downloader owns its own tier
// fallback policy.
func (c *Client) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, services.Wrap(services.ErrValidation, "musicapi", "fetch", "url required", nil)
	}
	if c.limiter != nil {
		if err := c.limiter.Admit(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "musicapi", "fetch", "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "musicapi", "fetch", "request failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, services.Wrap(services.ErrTransient, "musicapi", "fetch",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
	return resp.Body, nil
}

// requestWithRetry issues one GET with the supplied parameters, retrying
// transient failures with exponential backoff. The original error from
// the final attempt is preserved in the returned error chain.
func (c *Client) requestWithRetry(ctx context.Context, operation string, params url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<(attempt-1)) * time.Second
			c.logger.Warn("retrying request",
				logging.String(logging.FieldComponent, "musicapi"),
				logging.String(logging.FieldOperation, operation),
				logging.Int("attempt", attempt+1),
				logging.Duration("backoff", delay),
				logging.Error(lastErr))
			if err := c.sleeper(ctx, delay); err != nil {
				return nil, err
			}
		}

		body, err := c.requestOnce(ctx, params)
		if err == nil {
			return body, nil
		}
		if !services.IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, services.Wrap(services.ErrTransient, "musicapi", operation,
		fmt.Sprintf("failed after %d attempts", c.cfg.Retries+1), lastErr)
}

func (c *Client) requestOnce(ctx context.Context, params url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Admit(ctx); err != nil {
			return nil, err
		}
	}

	requestURL := c.cfg.BaseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "musicapi", "request", "build request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrTransient, "musicapi", "request", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "musicapi", "request", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTransient, "musicapi", "request",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
	return body, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
