// Package config loads volt-data settings from a .env file and the process
// environment.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Environment names understood by the logger.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all environment-based configuration.
type Config struct {
	// Environment selects logger presets.
	// Env: VOLT_ENV (default: development)
	Environment string `envconfig:"VOLT_ENV" default:"development"`

	// LogLevel is the minimum zap level (debug, info, warn, error).
	// Env: LOG_LEVEL (default: info)
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Port is the catalog API listen port.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// Nested structs take their field name as prefix (POSTGRES_HOST, S3_BUCKET_NAME).
	// Inner fields carry no envconfig tag: a tag would make
	// envconfig fall back to the bare name (USER, PORT) when the prefixed
	// variable is unset.
	Postgres Postgres
	AWS      AWS
	S3       S3
	Pipeline Pipeline
}

// Postgres holds the connection settings shared by every database command.
type Postgres struct {
	Host     string `default:"localhost"`
	Port     int    `default:"5432"`
	DB       string `default:"postgres"`
	User     string `default:"postgres"`
	Password string
	// SSLMode is passed through to lib/pq.
	// Env: POSTGRES_SSL_MODE (default: disable)
	SSLMode string `split_words:"true" default:"disable"`
}

// AWS holds credentials for the S3 client. Empty keys fall back to the
// default AWS credential chain.
type AWS struct {
	AccessKeyID     string `split_words:"true"`
	SecretAccessKey string `split_words:"true"`
	DefaultRegion   string `split_words:"true" default:"eu-central-1"`
}

// S3 configures the data lake bucket.
type S3 struct {
	BucketName string `split_words:"true" default:"volt-data-lake"`
	// Endpoint overrides the S3 endpoint for S3-compatible stores (MinIO, LocalStack).
	Endpoint string
}

// Pipeline tunes the daily pipeline run.
type Pipeline struct {
	Retries    int           `default:"2"`
	RetryDelay time.Duration `split_words:"true" default:"5m"`
	// URLExpiry is how long generated image URLs stay valid.
	URLExpiry time.Duration `split_words:"true" default:"168h"`
}

// LoadFromEnv processes the environment into a Config.
func LoadFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the optional .env file at envPath, then the environment.
func Load(envPath string) (Config, error) {
	if err := LoadDotEnv(envPath); err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := LoadFromEnv()
	if err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	return cfg, nil
}

// DSN returns a lib/pq key/value connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, quoteDSNValue(p.Password), p.DB, p.SSLMode)
}

// URL returns the same settings as a postgres:// URL.
func (p Postgres) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     "/" + p.DB,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

// Target is the db@host label printed after connecting.
func (p Postgres) Target() string {
	return p.DB + "@" + p.Host
}

// HasStaticCredentials reports whether both AWS keys are set.
func (a AWS) HasStaticCredentials() bool {
	return a.AccessKeyID != "" && a.SecretAccessKey != ""
}

func quoteDSNValue(v string) string {
	if v == "" {
		return "''"
	}
	out := make([]byte, 0, len(v)+2)
	out = append(out, '\'')
	for i := 0; i < len(v); i++ {
		if v[i] == '\'' || v[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, v[i])
	}
	out = append(out, '\'')
	return string(out)
}
