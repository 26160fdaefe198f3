package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/studyplan/internal/domain"
	"github.com/conorfennell/studyplan/internal/gemini"
)

// DefaultConfigFile is read when --config is not given. It may be absent.
const DefaultConfigFile = "studyplan.yaml"

const envPrefix = "STUDYPLAN_"

// Config is the application configuration.
type Config struct {
	DBPath   string        `koanf:"db_path" validate:"required"`
	ReposDir string        `koanf:"repos_dir" validate:"required"`
	Server   ServerConfig  `koanf:"server"`
	Gemini   gemini.Config `koanf:"gemini"`
	Redis    RedisConfig   `koanf:"redis"`
	Exams    []ExamConfig  `koanf:"exams" validate:"dive"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	RequestTimeout  time.Duration `koanf:"request_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
}

// RedisConfig selects the Redis answer cache. An empty Addr keeps answers in SQLite.
type RedisConfig struct {
	Addr     string        `koanf:"addr" validate:"omitempty,hostname_port"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db" validate:"gte=0"`
	TTL      time.Duration `koanf:"ttl" validate:"gte=0"`
}

// ExamConfig is one entry of the exam timetable.
type ExamConfig struct {
	Date   string `koanf:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Time   string `koanf:"time" json:"time" validate:"required,timerange"`
	Course string `koanf:"course" json:"course" validate:"required"`
	Venue  string `koanf:"venue" json:"venue"`
}

var defaults = map[string]interface{}{
	"db_path":                 "studyplan.db",
	"repos_dir":               "repos",
	"server.addr":             ":8080",
	"server.request_timeout":  "120s",
	"server.shutdown_timeout": "10s",
	"server.allowed_origins":  []string{"*"},
	"gemini.base_url":         gemini.DefaultBaseURL,
	"gemini.model":            gemini.DefaultModel,
	"gemini.timeout":          gemini.DefaultTimeout.String(),
	"redis.db":                0,
	"redis.ttl":               "168h",
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"db":           "db_path",
	"repos":        "repos_dir",
	"addr":         "server.addr",
	"gemini-model": "gemini.model",
	"redis":        "redis.addr",
}

// RegisterFlags adds the configuration flags to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", DefaultConfigFile, "Path to the YAML configuration file")
	flags.String("db", "", "Path to the SQLite database file")
	flags.String("repos", "", "Directory git sources are cloned into")
	flags.String("addr", "", "HTTP listen address")
	flags.String("gemini-model", "", "Gemini model name")
	flags.String("redis", "", "Redis address for the answer cache")
}

// Load builds the configuration from defaults, the YAML file, the environment
// and flags, in increasing order of precedence.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := DefaultConfigFile
	explicit := false
	if flags != nil {
		if f := flags.Lookup("config"); f != nil {
			path = f.Value.String()
			explicit = f.Changed
		}
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// The bare GEMINI_API_KEY is honoured below any STUDYPLAN_ setting.
	if err := k.Load(env.Provider("GEMINI_", ".", func(s string) string {
		if s == "GEMINI_API_KEY" {
			return "gemini.api_key"
		}
		return ""
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagValue), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns STUDYPLAN_SERVER__ADDR into server.addr.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// flagValue maps explicitly set flags onto config keys and drops the rest.
func flagValue(f *pflag.Flag) (string, interface{}) {
	key, ok := flagKeys[f.Name]
	if !ok || !f.Changed {
		return "", nil
	}
	return key, f.Value.String()
}

// Validate checks the configuration and the exam timetable.
func (c *Config) Validate() error {
	if err := NewValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// NewValidator returns a validator that also understands the "timerange" tag.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("timerange", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseTimeRange(fl.Field().String())
		return err == nil
	})
	return v
}

// ExamEvents converts the configured timetable into exam events, sorted by date.
func (c *Config) ExamEvents() ([]domain.ExamEvent, error) {
	return ToExamEvents(c.Exams)
}

// ToExamEvents converts timetable entries into exam events, sorted by date.
func ToExamEvents(exams []ExamConfig) ([]domain.ExamEvent, error) {
	events := make([]domain.ExamEvent, 0, len(exams))
	for i, e := range exams {
		date, err := time.Parse(time.DateOnly, e.Date)
		if err != nil {
			return nil, fmt.Errorf("exam %d: invalid date %q: %w", i, e.Date, err)
		}
		tr, err := domain.ParseTimeRange(e.Time)
		if err != nil {
			return nil, fmt.Errorf("exam %d: %w", i, err)
		}
		events = append(events, domain.ExamEvent{
			Date:   date,
			Time:   tr,
			Course: e.Course,
			Venue:  e.Venue,
		})
	}
	domain.SortExams(events)
	return events, nil
}
