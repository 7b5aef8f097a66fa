package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the environment-driven defaults of every command. Flags
// override them per invocation.
type Config struct {
	LogLevel  string `env:"FORMSTATE_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"FORMSTATE_LOG_FORMAT" envDefault:"console"`

	Forms    string        `env:"FORMSTATE_FORMS" envDefault:"forms"`
	Addr     string        `env:"FORMSTATE_ADDR" envDefault:":8080"`
	MaxBody  int64         `env:"FORMSTATE_MAX_BODY" envDefault:"1048576"`
	Endpoint string        `env:"FORMSTATE_ENDPOINT"`
	Encoding string        `env:"FORMSTATE_ENCODING" envDefault:"json"`
	Timeout  time.Duration `env:"FORMSTATE_TIMEOUT" envDefault:"10s"`

	Theme        string `env:"FORMSTATE_THEME"`
	ThemeVariant string `env:"FORMSTATE_THEME_VARIANT"`
}

// loadConfig reads dotenv files into the process environment and parses it.
// Without files a missing ./.env is ignored.
func loadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("formstate: load env files: %w", err)
	}
	return parseConfig(env.Options{Environment: env.ToMap(os.Environ())})
}

func parseConfig(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("formstate: parse environment: %w", err)
	}
	return cfg, nil
}

// newLogger builds a console logger for humans or a JSON logger for
// collectors.
func newLogger(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("formstate: log level: %w", err)
	}

	var zcfg zap.Config
	switch strings.ToLower(cfg.LogFormat) {
	case "json":
		zcfg = zap.NewProductionConfig()
	case "console", "":
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("formstate: unknown log format %q", cfg.LogFormat)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}
