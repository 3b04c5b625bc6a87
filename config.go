package browserkit

import (
	"fmt"
	"log"
	"os"

	"browserkit/env"
)

// ------------------------------------------------------------------------

// UserAgentCallback returns the User-Agent string sent with every request.
type UserAgentCallback func() string

// EnvConfigSetter applies one environment value onto a BrowserConfig.
type EnvConfigSetter func(c *BrowserConfig, val string)

// ------------------------------------------------------------------------

// BrowserConfig holds a Browser's ambient settings: the default server
// parameters merged into every request, redirect/meta-refresh policy, and
// the pluggable services (logger, response filter, user-agent). Grounded
// on colly's config.go CollectorConfig.
type BrowserConfig struct {
	// Server holds the default CGI-style server parameters (custom HTTP_*
	// headers, PHP_AUTH_*, ...) merged into every request. HTTP_HOST and
	// HTTPS are recomputed from the target URI on each dispatch, replacing
	// any value stored here.
	Server map[string]string

	MaxBodySize      int
	DetectCharset    bool
	FollowRedirects  bool
	FollowMetaRefresh bool
	MaxRedirects     int // -1 means unbounded

	UserAgentCallback UserAgentCallback
	ResponseFilter    ResponseFilter
	Logger            Logger
}

// ------------------------------------------------------------------------

// EnvMap is the default set of BROWSERKIT_* environment keys understood
// by ProcessEnv.
var EnvMap = map[string]EnvConfigSetter{
	"USER_AGENT": func(c *BrowserConfig, val string) {
		c.UserAgentCallback = func() string { return val }
	},
	"DETECT_CHARSET": func(c *BrowserConfig, val string) {
		if b, err := StrToBool(val); err != nil {
			c.logError(fmt.Errorf("DETECT_CHARSET: %w", err))
		} else {
			c.DetectCharset = b
		}
	},
	"FOLLOW_REDIRECTS": func(c *BrowserConfig, val string) {
		if b, err := StrToBool(val); err != nil {
			c.logError(fmt.Errorf("FOLLOW_REDIRECTS: %w", err))
		} else {
			c.FollowRedirects = b
		}
	},
	"FOLLOW_META_REFRESH": func(c *BrowserConfig, val string) {
		if b, err := StrToBool(val); err != nil {
			c.logError(fmt.Errorf("FOLLOW_META_REFRESH: %w", err))
		} else {
			c.FollowMetaRefresh = b
		}
	},
	"MAX_REDIRECTS": func(c *BrowserConfig, val string) {
		if n, err := StrToUInt(val); err != nil {
			c.logError(fmt.Errorf("MAX_REDIRECTS: %w", err))
		} else {
			c.MaxRedirects = int(n)
		}
	},
	"MAX_BODY_SIZE": func(c *BrowserConfig, val string) {
		if n, err := StrToUInt(val); err != nil {
			c.logError(fmt.Errorf("MAX_BODY_SIZE: %w", err))
		} else {
			c.MaxBodySize = int(n)
		}
	},
}

// ------------------------------------------------------------------------

// NewConfig returns a pointer to a newly created BrowserConfig with the
// spec's defaults: redirects and meta-refresh followed, unbounded
// redirects, charset detection on.
func NewConfig() *BrowserConfig {
	return &BrowserConfig{
		Server:            map[string]string{},
		MaxBodySize:       10 * 1024 * 1024,
		DetectCharset:     true,
		FollowRedirects:   true,
		FollowMetaRefresh: true,
		MaxRedirects:      -1,
		UserAgentCallback: func() string { return "browserkit" },
	}
}

// ------------------------------------------------------------------------

// ProcessEnv applies every BROWSERKIT_* value in e onto c, using envMap
// (or EnvMap when nil) to look up the setter for each key.
func (c *BrowserConfig) ProcessEnv(e *env.Environment, envMap map[string]EnvConfigSetter) {
	if envMap == nil {
		envMap = EnvMap
	}

	for k, v := range e.Values() {
		fn, present := envMap[k]
		if !present {
			c.logError(fmt.Errorf("ProcessEnv: unknown environment variable %q", k))

			continue
		}

		fn(c, v)
	}
}

// ------------------------------------------------------------------------

// SetUserAgent sets a constant User-Agent string.
func (c *BrowserConfig) SetUserAgent(ua string) {
	c.UserAgentCallback = func() string { return ua }
}

// SetLogger sets the logger. A standard logger writing to stderr is used
// if no logger is given.
func (c *BrowserConfig) SetLogger(loggers ...Logger) {
	if len(loggers) > 0 {
		c.Logger = loggers[0]

		return
	}

	c.Logger = NewStdLogger(os.Stderr, "", log.LstdFlags)
}

// ------------------------------------------------------------------------

func (c *BrowserConfig) hasLogger() bool {
	return c.Logger != nil
}

func (c *BrowserConfig) logError(err error) {
	if c.hasLogger() {
		c.Logger.LogError(LOG_WARN_LEVEL, err)
	}
}
