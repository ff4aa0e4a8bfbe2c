package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/marcelocantos/pipesh/internal/guard"
)

// Config holds the global pipesh configuration.
type Config struct {
	Shell  ShellConfig  `yaml:"shell" toml:"shell"`
	Server ServerConfig `yaml:"server" toml:"server"`
	Audit  AuditConfig  `yaml:"audit" toml:"audit"`
	Guard  GuardConfig  `yaml:"guard" toml:"guard"`
	Log    LogConfig    `yaml:"log" toml:"log"`
}

// ShellConfig controls the interactive loop.
type ShellConfig struct {
	Prompt      string `yaml:"prompt" toml:"prompt" validate:"required"`
	ExitKeyword string `yaml:"exit_keyword" toml:"exit_keyword" validate:"required,excludesall=0x7C<>"`
}

// ServerConfig controls the remote shell server.
type ServerConfig struct {
	Network        string `yaml:"network" toml:"network" validate:"oneof=tcp tcp4 tcp6 unix"`
	Address        string `yaml:"address" toml:"address" validate:"required"`
	MaxBytesPerSec int64  `yaml:"max_bytes_per_sec" toml:"max_bytes_per_sec" validate:"gte=0"`
	// Workdir is the directory commands run in; empty means the server's own.
	Workdir string `yaml:"workdir" toml:"workdir"`
	// IdleTimeout stops the server after this long without a session.
	// Empty or "0" disables it.
	IdleTimeout string `yaml:"idle_timeout" toml:"idle_timeout"`
}

// IdleTimeoutDuration parses the configured idle timeout. Unparseable values
// are caught by Validate; here they mean "disabled".
func (s *ServerConfig) IdleTimeoutDuration() time.Duration {
	if s.IdleTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(s.IdleTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// AuditConfig controls the audit log.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path" validate:"required_if=Enabled true"`
}

// GuardConfig controls admission rules.
type GuardConfig struct {
	Enabled bool                         `yaml:"enabled" toml:"enabled"`
	Script  string                       `yaml:"script" toml:"script"`
	Rules   map[string]guard.ProgramRule `yaml:"rules" toml:"rules"`
}

// LogConfig controls operational logging.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format string `yaml:"format" toml:"format" validate:"omitempty,oneof=console json"`
}

// Defaults used by DefaultConfig.
const (
	DefaultPrompt      = "pipesh> "
	DefaultExitKeyword = "exit"
	DefaultAddress     = ":8080"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Shell: ShellConfig{
			Prompt:      DefaultPrompt,
			ExitKeyword: DefaultExitKeyword,
		},
		Server: ServerConfig{
			Network: "tcp",
			Address: DefaultAddress,
		},
		Audit: AuditConfig{
			Enabled: true,
			Path:    filepath.Join(home, ".local", "share", "pipesh", "audit.jsonl"),
		},
		Guard: GuardConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the config from the standard location
// (~/.config/pipesh/config.yaml). If the file doesn't exist, returns the
// default config.
func Load() (*Config, error) {
	return LoadFrom(afero.NewOsFs(), ConfigPath())
}

// LoadFrom reads the config at path on fs. Files ending in .toml are decoded
// as TOML, anything else as YAML. A missing file yields the defaults.
func LoadFrom(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Audit.Path = expandHome(cfg.Audit.Path)
	cfg.Guard.Script = expandHome(cfg.Guard.Script)
	cfg.Server.Workdir = expandHome(cfg.Server.Workdir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate the configuration for basic semantic errors.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	})
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Server.IdleTimeout != "" {
		if _, err := time.ParseDuration(c.Server.IdleTimeout); err != nil {
			return fmt.Errorf("server.idle_timeout: %w", err)
		}
	}
	return nil
}

// DefaultRules returns the argument-level rules used when the config names
// none.
func DefaultRules() map[string]guard.ProgramRule {
	return map[string]guard.ProgramRule{
		"git": {
			Subcommands: map[string]guard.SubRule{
				"push":  {RejectFlags: []string{"--force", "-f", "--force-with-lease"}},
				"reset": {RejectFlags: []string{"--hard"}},
			},
		},
	}
}

// BuildGuard assembles the guard described by the config. Hard-coded rules
// are always present; config rules and the script only when the guard is
// enabled.
func (c *Config) BuildGuard(fs afero.Fs) (*guard.RuleSet, error) {
	rs := guard.NewRuleSet(guard.Hardcoded()...)
	if !c.Guard.Enabled {
		return rs, nil
	}

	cfgRules := c.Guard.Rules
	if cfgRules == nil {
		cfgRules = DefaultRules()
	}
	for name, rule := range cfgRules {
		for _, fn := range guard.CompileProgramRule(name, rule) {
			rs.AddConfig(fn)
		}
	}
	// Not expressible as reject_flags.
	rs.AddConfig(guard.GitDiscardAll)

	if c.Guard.Script != "" {
		src, err := afero.ReadFile(fs, c.Guard.Script)
		if err != nil {
			return nil, fmt.Errorf("read guard script: %w", err)
		}
		fn, err := guard.CompileScript(c.Guard.Script, src)
		if err != nil {
			return nil, err
		}
		rs.AddConfig(fn)
	}
	return rs, nil
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "pipesh", "config.yaml")
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, path[1:])
}
