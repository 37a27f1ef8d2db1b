package bridge

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// Environment variables understood by the bridge.
const (
	// EnvCLIName overrides the agent executable: a bare name or an absolute
	// path. Relative paths are rejected.
	EnvCLIName = "AGENT_CLI_NAME"
	// EnvDebug enables verbose logging when set to a truthy value.
	EnvDebug = "AGENT_MCP_DEBUG"
	// EnvExecTimeout sets the per-call execution timeout in seconds.
	EnvExecTimeout = "AGENT_MCP_EXEC_TIMEOUT"
)

const defaultTimeoutSeconds = 3600

// Options configures the bridge. Flags take precedence over environment
// variables, which take precedence over the config file.
type Options struct {
	ConfigURL  string `short:"c" long:"config" description:"TOML config file"`
	CLIName    string `short:"n" long:"name" description:"agent CLI name or absolute path"`
	HTTPAddr   string `long:"http" description:"serve MCP over HTTP/SSE on this address instead of stdio"`
	TimeoutSec int    `short:"t" long:"timeout" description:"per-call execution timeout in seconds"`
	Debug      bool   `long:"debug" description:"verbose logging"`
	TestMode   bool   `long:"test-mode" description:"stay alive on interrupt signals"`
}

type fileConfig struct {
	CLIName    string `toml:"cli_name"`
	HTTPAddr   string `toml:"http_addr"`
	TimeoutSec int    `toml:"timeout_seconds"`
	Debug      bool   `toml:"debug"`
	TestMode   bool   `toml:"test_mode"`
}

// Init fills unset options from the environment, then the config file, then
// defaults. An invalid timeout value is logged and replaced with the default
// rather than failing startup.
func (o *Options) Init(logger zerolog.Logger) error {
	var file fileConfig
	var meta toml.MetaData
	if o.ConfigURL != "" {
		m, err := toml.DecodeFile(o.ConfigURL, &file)
		if err != nil {
			return fmt.Errorf("load config %v: %w", o.ConfigURL, err)
		}
		meta = m
	}
	if o.CLIName == "" {
		o.CLIName = os.Getenv(EnvCLIName)
	}
	if o.CLIName == "" && meta.IsDefined("cli_name") {
		o.CLIName = file.CLIName
	}
	if o.HTTPAddr == "" && meta.IsDefined("http_addr") {
		o.HTTPAddr = file.HTTPAddr
	}
	if !o.Debug {
		o.Debug = isTruthy(os.Getenv(EnvDebug))
	}
	if !o.Debug && meta.IsDefined("debug") {
		o.Debug = file.Debug
	}
	if !o.TestMode && meta.IsDefined("test_mode") {
		o.TestMode = file.TestMode
	}
	if o.TimeoutSec == 0 {
		o.TimeoutSec = timeoutFromEnv(logger)
	}
	if o.TimeoutSec == 0 && meta.IsDefined("timeout_seconds") && file.TimeoutSec > 0 {
		o.TimeoutSec = file.TimeoutSec
	}
	if o.TimeoutSec <= 0 {
		o.TimeoutSec = defaultTimeoutSeconds
	}
	return nil
}

// Timeout returns the per-call execution deadline.
func (o *Options) Timeout() time.Duration {
	return time.Duration(o.TimeoutSec) * time.Second
}

// timeoutFromEnv returns 0 when the variable is unset; an unparseable or
// non-positive value yields the default, with a warning.
func timeoutFromEnv(logger zerolog.Logger) int {
	raw := os.Getenv(EnvExecTimeout)
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		logger.Warn().Str("value", raw).Int("default", defaultTimeoutSeconds).Msg("invalid " + EnvExecTimeout + ", using default")
		return defaultTimeoutSeconds
	}
	return seconds
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
