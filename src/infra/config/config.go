// Package config handles application configuration via environment variables.
// It uses kelseyhightower/envconfig for parsing and provides sensible defaults.
// A .env file in the working directory, when present, is loaded first.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
// Values are loaded from environment variables with the prefix "APP".
// Example: APP_PORT=8080, APP_LOG_LEVEL=debug
type Config struct {
	// Server configuration (embedded to flatten env vars)
	Server ServerConfig

	// Database configuration (embedded to flatten env vars)
	Database DatabaseConfig

	// Logging configuration (embedded to flatten env vars)
	Log LogConfig

	// Seq log sink configuration
	Seq SeqConfig

	// Sentry error reporting configuration
	Sentry SentryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port is the HTTP server port (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// Host is the HTTP server host (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// ReadTimeout is the maximum duration for reading the entire request (default: 10s)
	ReadTimeout time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`

	// WriteTimeout is the maximum duration before timing out writes of the response (default: 30s)
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`

	// ShutdownTimeout is the maximum duration to wait for active connections to finish (default: 30s)
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds the set of logical databases the service can reach.
type DatabaseConfig struct {
	// Databases maps a logical name to its connection parameters, given as a
	// JSON object: APP_DATABASES={"basket":{"host":"db","dbname":"basket"}}
	Databases Databases `envconfig:"DATABASES"`

	// Default is the database used when neither the caller nor the route
	// names one. Falls back to the only configured database.
	Default string `envconfig:"DEFAULT_DATABASE"`

	// LogQueryArgs enables logging of query parameter values.
	LogQueryArgs bool `envconfig:"LOG_QUERY_ARGS" default:"false"`
}

// Databases is the logical name → connection parameters map.
type Databases map[string]DatabaseParams

// DatabaseParams are the connection settings of one logical database.
// The JSON keys follow libpq/psycopg naming so existing settings carry over.
type DatabaseParams struct {
	DSN             string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MinConns        int32
	MaxConns        int32
	MaxConnLifetime time.Duration
	ConnectTimeout  time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is the log level: debug, info, warn, error (default: info)
	Level string `envconfig:"LOG_LEVEL" default:"info"`

	// Format is the console log format: json, text, plain (default: plain)
	Format string `envconfig:"LOG_FORMAT" default:"plain"`

	// ServiceName is attached to every shipped log entry as AssemblyName.
	ServiceName string `envconfig:"SERVICE_NAME" default:"statapi"`
}

// SeqConfig holds settings of the Seq log collector.
type SeqConfig struct {
	// ServerURL is the Seq base URL; shipping is disabled when empty.
	ServerURL string `envconfig:"SEQ_SERVER_URL"`

	APIKey string `envconfig:"SEQ_API_KEY"`

	// Level is the minimum level shipped to Seq (default: info)
	Level string `envconfig:"SEQ_LEVEL" default:"info"`

	// BatchSize triggers a flush once this many events are buffered (default: 10)
	BatchSize int `envconfig:"SEQ_BATCH_SIZE" default:"10"`

	// AutoFlushTimeout flushes buffered events on this interval (default: 10s)
	AutoFlushTimeout time.Duration `envconfig:"SEQ_AUTO_FLUSH_TIMEOUT" default:"10s"`

	// OverrideRootLogger installs the application logger as slog's default.
	OverrideRootLogger bool `envconfig:"SEQ_OVERRIDE_ROOT_LOGGER" default:"true"`
}

// SentryConfig holds Sentry integration configuration.
type SentryConfig struct {
	DSN         string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Enabled reports whether events should be shipped to Seq.
func (c *SeqConfig) Enabled() bool {
	return c.ServerURL != ""
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Names returns the configured database names in sorted order.
func (d Databases) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var databaseNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// databaseParamsJSON is the wire form of DatabaseParams.
type databaseParamsJSON struct {
	DSN             string `json:"dsn"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	User            string `json:"user"`
	Password        string `json:"password"`
	DBName          string `json:"dbname"`
	Database        string `json:"database"`
	SSLMode         string `json:"sslmode"`
	MinConns        *int32 `json:"minconn"`
	MaxConns        int32  `json:"maxconn"`
	MaxConnLifetime string `json:"max_conn_lifetime"`
	ConnectTimeout  string `json:"connect_timeout"`
}

// Decode implements envconfig.Decoder for the JSON database map.
func (d *Databases) Decode(value string) error {
	var raw map[string]databaseParamsJSON
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return fmt.Errorf("databases must be a JSON object: %w", err)
	}

	out := make(Databases, len(raw))
	for name, r := range raw {
		if !databaseNamePattern.MatchString(name) {
			return fmt.Errorf("invalid database name %q", name)
		}
		p, err := r.params()
		if err != nil {
			return fmt.Errorf("database %q: %w", name, err)
		}
		out[name] = p
	}
	*d = out
	return nil
}

func (r databaseParamsJSON) params() (DatabaseParams, error) {
	p := DatabaseParams{
		DSN:             r.DSN,
		Host:            r.Host,
		Port:            r.Port,
		User:            r.User,
		Password:        r.Password,
		DBName:          r.DBName,
		SSLMode:         r.SSLMode,
		MaxConns:        r.MaxConns,
		MaxConnLifetime: 30 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
	if p.DBName == "" {
		p.DBName = r.Database
	}
	if p.Host == "" {
		p.Host = "localhost"
	}
	if p.Port == 0 {
		p.Port = 5432
	}
	if p.SSLMode == "" {
		p.SSLMode = "disable"
	}
	if p.MaxConns == 0 {
		p.MaxConns = 10
	}
	// An explicit "minconn": 0 keeps no idle connections.
	p.MinConns = 1
	if r.MinConns != nil {
		p.MinConns = *r.MinConns
	}
	if p.MinConns < 0 || p.MaxConns < 0 || p.MinConns > p.MaxConns {
		return p, fmt.Errorf("minconn %d must be between 0 and maxconn %d", p.MinConns, p.MaxConns)
	}
	if r.MaxConnLifetime != "" {
		d, err := time.ParseDuration(r.MaxConnLifetime)
		if err != nil {
			return p, fmt.Errorf("max_conn_lifetime: %w", err)
		}
		p.MaxConnLifetime = d
	}
	if r.ConnectTimeout != "" {
		d, err := time.ParseDuration(r.ConnectTimeout)
		if err != nil {
			return p, fmt.Errorf("connect_timeout: %w", err)
		}
		p.ConnectTimeout = d
	}
	if p.DSN == "" && p.DBName == "" {
		return p, errors.New("either dsn or dbname is required")
	}
	return p, nil
}

// ConnString returns the PostgreSQL connection URL.
func (p *DatabaseParams) ConnString() string {
	if p.DSN != "" {
		return p.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:   "/" + p.DBName,
	}
	switch {
	case p.User != "" && p.Password != "":
		u.User = url.UserPassword(p.User, p.Password)
	case p.User != "":
		u.User = url.User(p.User)
	}
	q := url.Values{}
	q.Set("sslmode", p.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Load reads configuration from environment variables.
// It returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	// Load each config section separately to flatten env var names
	// This allows env vars like APP_PORT instead of APP_SERVER_PORT
	if err := envconfig.Process("APP", &cfg.Server); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}
	if err := envconfig.Process("APP", &cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}
	if err := envconfig.Process("APP", &cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to load log config: %w", err)
	}
	if err := envconfig.Process("APP", &cfg.Seq); err != nil {
		return nil, fmt.Errorf("failed to load seq config: %w", err)
	}
	if err := envconfig.Process("APP", &cfg.Sentry); err != nil {
		return nil, fmt.Errorf("failed to load sentry config: %w", err)
	}

	if err := cfg.Database.resolveDefault(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *DatabaseConfig) resolveDefault() error {
	if c.Default == "" {
		if len(c.Databases) == 1 {
			c.Default = c.Databases.Names()[0]
		}
		return nil
	}
	if _, ok := c.Databases[c.Default]; !ok {
		return fmt.Errorf("default database %q is not configured", c.Default)
	}
	return nil
}
