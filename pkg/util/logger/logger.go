package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EncodingConsole = "console"
	EncodingJSON    = "json"
)

// Prm groups Logger's parameters.
// Successful passing non-nil parameters to the NewLogger (if returned
// error is nil) leads to a valid Logger.
type Prm struct {
	level    zapcore.Level
	encoding string
	output   []string
}

// SetLevelString sets the minimum logging level. Default is "info".
//
// Returns an error if s is not a string representation of a
// supporting logging level.
func (p *Prm) SetLevelString(s string) error {
	if s == "" {
		p.level = zapcore.InfoLevel
		return nil
	}
	if err := p.level.UnmarshalText([]byte(s)); err != nil {
		return fmt.Errorf("invalid logger level %q: %w", s, err)
	}
	return nil
}

// SetEncoding sets the log record format, "console" (default) or "json".
func (p *Prm) SetEncoding(s string) error {
	switch strings.ToLower(s) {
	case "", EncodingConsole:
		p.encoding = EncodingConsole
	case EncodingJSON:
		p.encoding = EncodingJSON
	default:
		return fmt.Errorf("invalid logger encoding %q", s)
	}
	return nil
}

// SetOutput sets paths or URLs to write log records to. Default is stderr,
// standard output is left for command results.
func (p *Prm) SetOutput(paths ...string) {
	p.output = paths
}

// NewLogger constructs a new zap logger instance.
//
// Logger is built from production logging configuration with:
//   - parameterized level;
//   - console or JSON encoding;
//   - ISO8601 time encoding;
//   - stack traces for fatal records only.
func NewLogger(prm Prm) (*zap.Logger, error) {
	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(prm.level)
	c.Encoding = prm.encoding
	if c.Encoding == "" {
		c.Encoding = EncodingConsole
	}
	c.Sampling = nil
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if c.Encoding == EncodingConsole {
		c.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	c.OutputPaths = []string{"stderr"}
	c.ErrorOutputPaths = []string{"stderr"}
	if len(prm.output) > 0 {
		c.OutputPaths = prm.output
	}

	l, err := c.Build(
		zap.AddStacktrace(zap.NewAtomicLevelAt(zap.FatalLevel)),
	)
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return l, nil
}
