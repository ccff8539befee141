package conn

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/shapestone/shape-wire/pkg/http"
)

// Config holds the settings a connection consumes. Zero numeric fields take
// the DefaultConfig value; a negative timeout disables it.
type Config struct {
	MaxStartLine   int
	MaxHeaderBytes int
	MaxHeaderCount int
	MaxBodySize    int64

	// MaxPipeline bounds the requests accepted but not yet answered. At
	// the limit reading pauses and handlers are not started for queued
	// requests.
	MaxPipeline int

	KeepAliveTimeout time.Duration // idle wait for the next request
	ReadTimeout      time.Duration // stall allowed inside a message

	// NoContinue disables the automatic "100 Continue" interim response.
	NoContinue bool

	Logger zerolog.Logger
	Now    func() time.Time

	// OnClose is called once when the connection reaches Closed. err is nil
	// for an orderly close and an *Error otherwise.
	OnClose func(c *Conn, err error)
}

const (
	DefaultMaxPipeline      = 16
	DefaultKeepAliveTimeout = 75 * time.Second
	DefaultReadTimeout      = 30 * time.Second
)

// DefaultConfig returns the settings used for zero fields.
func DefaultConfig() Config {
	l := http.DefaultLimits()
	return Config{
		MaxStartLine:     l.MaxStartLine,
		MaxHeaderBytes:   l.MaxHeaderBytes,
		MaxHeaderCount:   l.MaxHeaderCount,
		MaxBodySize:      l.MaxBodySize,
		MaxPipeline:      DefaultMaxPipeline,
		KeepAliveTimeout: DefaultKeepAliveTimeout,
		ReadTimeout:      DefaultReadTimeout,
		Logger:           zerolog.Nop(),
		Now:              time.Now,
	}
}

// Validate reports settings that can never work.
func (c Config) Validate() error {
	switch {
	case c.MaxStartLine < 0 || c.MaxHeaderBytes < 0 || c.MaxHeaderCount < 0:
		return errors.New("conn: negative parser limit")
	case c.MaxBodySize < 0:
		return errors.New("conn: negative MaxBodySize")
	case c.MaxPipeline < 0:
		return errors.New("conn: negative MaxPipeline")
	case c.MaxHeaderBytes > 0 && c.MaxStartLine > c.MaxHeaderBytes:
		return errors.New("conn: MaxStartLine exceeds MaxHeaderBytes")
	}
	return nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxStartLine == 0 {
		c.MaxStartLine = d.MaxStartLine
	}
	if c.MaxHeaderBytes == 0 {
		c.MaxHeaderBytes = d.MaxHeaderBytes
	}
	if c.MaxHeaderCount == 0 {
		c.MaxHeaderCount = d.MaxHeaderCount
	}
	if c.MaxBodySize == 0 {
		c.MaxBodySize = d.MaxBodySize
	}
	if c.MaxPipeline == 0 {
		c.MaxPipeline = d.MaxPipeline
	}
	if c.KeepAliveTimeout == 0 {
		c.KeepAliveTimeout = d.KeepAliveTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.Now == nil {
		c.Now = d.Now
	}
	return c
}

func (c Config) limits() http.Limits {
	return http.Limits{
		MaxStartLine:   c.MaxStartLine,
		MaxHeaderBytes: c.MaxHeaderBytes,
		MaxHeaderCount: c.MaxHeaderCount,
		MaxBodySize:    c.MaxBodySize,
	}
}
