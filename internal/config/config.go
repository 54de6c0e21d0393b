package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by Load,
// e.g. VOCABOX_PERSON_NAME sets person.name.
const EnvPrefix = "VOCABOX_"

// Config holds all configuration for the application.
type Config struct {
	DB     string       `koanf:"db" validate:"required"`
	Addr   string       `koanf:"addr" validate:"required,hostname_port"`
	Repos  string       `koanf:"repos" validate:"required"`
	Person PersonConfig `koanf:"person"`
	Log    LogConfig    `koanf:"log"`
}

// PersonConfig names the learner whose deck is used.
type PersonConfig struct {
	Name  string `koanf:"name" validate:"required"`
	Speak string `koanf:"speak" validate:"required,oneof=en fr es de it,nefield=Learn"`
	Learn string `koanf:"learn" validate:"required,oneof=en fr es de it"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

var defaults = map[string]any{
	"db":           "vocabox.db",
	"addr":         "localhost:8080",
	"repos":        "repos",
	"person.name":  "learner",
	"person.speak": "fr",
	"person.learn": "en",
	"log.level":    "info",
	"log.format":   "text",
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"db":         "db",
	"addr":       "addr",
	"repos":      "repos",
	"name":       "person.name",
	"speak":      "person.speak",
	"learn":      "person.learn",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// RegisterFlags adds the configuration flags to flags. Flag defaults are
// empty; defaults live in Load so a config file is not overridden by them.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to a YAML config file")
	flags.String("db", "", "Path to the SQLite database file")
	flags.String("addr", "", "Address the web server listens on")
	flags.String("repos", "", "Directory where git sources are cloned")
	flags.String("name", "", "Name of the learner")
	flags.String("speak", "", "Language the learner speaks (en, fr, es, de, it)")
	flags.String("learn", "", "Language the learner studies (en, fr, es, de, it)")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
}

// Load builds the configuration from defaults, the YAML file named by the
// --config flag, VOCABOX_* environment variables and finally explicitly set
// flags, then validates it.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("error loading default %s: %w", key, err)
		}
	}

	if path, _ := flags.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagValue), nil); err != nil {
		return nil, fmt.Errorf("error loading flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags of cfg.
func Validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// envKey turns VOCABOX_PERSON_NAME into person.name.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
}

// flagValue keeps only flags the user actually set, so unset flags never
// override the file or the environment.
func flagValue(f *pflag.Flag) (string, any) {
	key, ok := flagKeys[f.Name]
	if !ok || !f.Changed {
		return "", nil
	}
	return key, f.Value.String()
}

// NewLogger builds a slog logger from the log configuration.
func NewLogger(cfg LogConfig, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
