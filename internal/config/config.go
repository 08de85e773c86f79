package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/vadimbarashkov/link-shortener/internal/slug"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

type Config struct {
	Env          string `yaml:"env"`
	BaseURL      string `yaml:"base_url"`
	Slug         `yaml:"slug"`
	HTTPServer   `yaml:"http_server"`
	Postgres     `yaml:"postgres"`
	Redis        `yaml:"redis"`
	SafeBrowsing `yaml:"safe_browsing"`
	Notifier     `yaml:"notifier"`
	Recaptcha    `yaml:"recaptcha"`
	RateLimit    `yaml:"rate_limit"`
	Log          `yaml:"log"`
}

type Slug struct {
	Length     int `yaml:"length"`
	MaxRetries int `yaml:"max_retries"`
}

var defaultSlug = Slug{
	Length:     8,
	MaxRetries: 5,
}

// validate checks that every slug the retry loop can produce fits the urls table.
func (s *Slug) validate() error {
	if s.Length < slug.DefaultLength {
		return fmt.Errorf("slug length must be at least %d", slug.DefaultLength)
	}
	if s.MaxRetries < 1 {
		return errors.New("slug max retries must be positive")
	}
	if longest := slug.LengthForAttempt(s.Length, s.MaxRetries-1); longest > slug.MaxLength {
		return fmt.Errorf("slug length %d with %d retries can reach %d characters, more than %d",
			s.Length, s.MaxRetries, longest, slug.MaxLength)
	}
	return nil
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`

	// TrustProxyHeaders takes the client IP from X-Forwarded-For and
	// X-Real-IP. Enable it only behind a proxy that sets them.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   15 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Postgres struct {
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MigrationsPath  string        `yaml:"migrations_path"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
	MigrationsPath:  "file://migrations",
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

type Redis struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	TTL     time.Duration `yaml:"ttl"`
}

var defaultRedis = Redis{
	URL: "redis://localhost:6379/0",
	TTL: time.Hour,
}

type SafeBrowsing struct {
	APIKey        string        `yaml:"api_key"`
	Endpoint      string        `yaml:"endpoint"`
	ClientID      string        `yaml:"client_id"`
	ClientVersion string        `yaml:"client_version"`
	Timeout       time.Duration `yaml:"timeout"`
}

var defaultSafeBrowsing = SafeBrowsing{
	Endpoint:      "https://safebrowsing.googleapis.com/v4/threatMatches:find",
	ClientID:      "link-shortener",
	ClientVersion: "1.0.0",
	Timeout:       5 * time.Second,
}

type Notifier struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	Host           string `yaml:"host"`
	From           string `yaml:"from"`
	AdminEmail     string `yaml:"admin_email"`
	SiteName       string `yaml:"site_name"`
}

var defaultNotifier = Notifier{
	Host:     "https://api.sendgrid.com",
	SiteName: "Link Shortener",
}

type Recaptcha struct {
	SecretKey string        `yaml:"secret_key"`
	Endpoint  string        `yaml:"endpoint"`
	Timeout   time.Duration `yaml:"timeout"`
}

var defaultRecaptcha = Recaptcha{
	Endpoint: "https://www.google.com/recaptcha/api/siteverify",
	Timeout:  5 * time.Second,
}

// Enabled reports whether captcha tokens are checked.
func (r *Recaptcha) Enabled() bool {
	return r.SecretKey != ""
}

type RateLimit struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

var defaultRateLimit = RateLimit{
	Enabled: true,
	RPS:     1,
	Burst:   5,
}

type Log struct {
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

var defaultLog = Log{
	Level:      "info",
	MaxSizeMB:  100,
	MaxBackups: 3,
	MaxAgeDays: 28,
}

// Load reads the YAML config at path. ${VAR} references are expanded from
// the environment before decoding.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read config file: %w", op, err)
	}

	var cfg Config
	setDefaults(&cfg)

	data = []byte(os.ExpandEnv(string(data)))

	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
	}

	if err := cfg.Slug.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.Slug = defaultSlug
	cfg.HTTPServer = defaultHTTPServer
	cfg.Postgres = defaultPostgres
	cfg.Redis = defaultRedis
	cfg.SafeBrowsing = defaultSafeBrowsing
	cfg.Notifier = defaultNotifier
	cfg.Recaptcha = defaultRecaptcha
	cfg.RateLimit = defaultRateLimit
	cfg.Log = defaultLog
}
