package manifest

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServerFile is the optional server configuration at the root of the bundle directory.
const ServerFile = "luarest.toml"

// Config is the server configuration. Every key is optional.
type Config struct {
	Server Server `toml:"server"`
	Admin  Admin  `toml:"admin"`
}

type Server struct {
	Listen            string `toml:"listen"`
	KeepAliveBudgetMS int    `toml:"keepalive_budget_ms"`
	SweepPeriodMS     int    `toml:"sweep_period_ms"`
	InvokeTimeoutMS   int    `toml:"invoke_timeout_ms"` // -1 disables
	WriteTimeoutMS    int    `toml:"write_timeout_ms"`
	MaxRequestBytes   int    `toml:"max_request_bytes"`
}

type Admin struct {
	Listen    string `toml:"listen"`     // empty disables the admin surface
	JWTSecret string `toml:"jwt_secret"` // HS256; empty disables the guard
	JWTIssuer string `toml:"jwt_issuer"`
}

const (
	DefaultListen            = "0.0.0.0:8000"
	DefaultKeepAliveBudgetMS = 75_000
	DefaultSweepPeriodMS     = 5_000
	DefaultInvokeTimeoutMS   = 10_000
	DefaultWriteTimeoutMS    = 30_000
	DefaultMaxRequestBytes   = 1 << 20
)

// Default returns the configuration used when no luarest.toml is present.
func Default() Config {
	c := Config{}
	_ = c.Validate()
	return c
}

func (s Server) KeepAliveBudget() time.Duration {
	return time.Duration(s.KeepAliveBudgetMS) * time.Millisecond
}

func (s Server) SweepPeriod() time.Duration { return time.Duration(s.SweepPeriodMS) * time.Millisecond }

// InvokeTimeout bounds one handler invocation; zero means unbounded.
func (s Server) InvokeTimeout() time.Duration {
	if s.InvokeTimeoutMS < 0 {
		return 0
	}
	return time.Duration(s.InvokeTimeoutMS) * time.Millisecond
}

func (s Server) WriteTimeout() time.Duration { return time.Duration(s.WriteTimeoutMS) * time.Millisecond }

// Validate fills defaults and rejects impossible values.
func (c *Config) Validate() error {
	if err := c.Server.normalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	c.Admin.Listen = strings.TrimSpace(c.Admin.Listen)
	c.Admin.JWTIssuer = strings.TrimSpace(c.Admin.JWTIssuer)
	if c.Admin.JWTSecret != "" && c.Admin.Listen == "" {
		return errors.New("admin: jwt_secret set but admin.listen is empty")
	}
	return nil
}

func (s *Server) normalize() error {
	s.Listen = strings.TrimSpace(s.Listen)
	if s.Listen == "" {
		s.Listen = DefaultListen
	}
	if s.KeepAliveBudgetMS < 0 || s.SweepPeriodMS < 0 || s.WriteTimeoutMS < 0 || s.MaxRequestBytes < 0 {
		return errors.New("durations and sizes must be >= 0")
	}
	switch {
	case s.InvokeTimeoutMS == 0:
		s.InvokeTimeoutMS = DefaultInvokeTimeoutMS
	case s.InvokeTimeoutMS < -1:
		return errors.New("invoke_timeout_ms must be >= 0, or -1 to disable")
	}
	if s.KeepAliveBudgetMS == 0 {
		s.KeepAliveBudgetMS = DefaultKeepAliveBudgetMS
	}
	if s.SweepPeriodMS == 0 {
		s.SweepPeriodMS = DefaultSweepPeriodMS
	}
	if s.SweepPeriodMS > s.KeepAliveBudgetMS {
		return fmt.Errorf("sweep_period_ms (%d) must not exceed keepalive_budget_ms (%d)",
			s.SweepPeriodMS, s.KeepAliveBudgetMS)
	}
	if s.WriteTimeoutMS == 0 {
		s.WriteTimeoutMS = DefaultWriteTimeoutMS
	}
	if s.MaxRequestBytes == 0 {
		s.MaxRequestBytes = DefaultMaxRequestBytes
	}
	return nil
}
