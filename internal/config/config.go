// Package config loads OakScript's process-wide configuration: the
// optional debug-trace log path and the VM's bounded-resource limits. It is
// the one place in the repository that reads the environment, so the rest
// of the tree can take a plain Config value instead of calling os.Getenv
// directly.
package config

import "github.com/caarlos0/env/v6"

// Config holds every environment-tunable setting the command layer and
// the VM need at startup.
type Config struct {
	// TraceLogPath names a file to receive one line per executed
	// instruction.
	TraceLogPath string `env:"OAKSCRIPT_TRACE_LOG"`

	// MaxStack bounds the operand stack depth.
	MaxStack int `env:"OAKSCRIPT_MAX_STACK" envDefault:"1024"`

	// MaxCallStack bounds the call-stack depth.
	MaxCallStack int `env:"OAKSCRIPT_MAX_CALL_STACK" envDefault:"256"`
}

// Load reads Config from the process environment, applying the defaults
// above for anything unset.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
