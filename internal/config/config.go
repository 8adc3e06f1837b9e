package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// All values must come from env (or an optional .env file in the working directory).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Vapi     VapiConfig
	Dispatch DispatchConfig
	Webhook  WebhookConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	SessionTTL  time.Duration
}

// VapiConfig configures the voice-calling platform client.
type VapiConfig struct {
	BaseURL        string
	RequestTimeout time.Duration

	// ProfilePath optionally points at a YAML call profile replacing the embedded default.
	ProfilePath string

	// ServerURL, when set, replaces the profile's server.url so call events
	// reach this service's webhook.
	ServerURL string
}

type DispatchConfig struct {
	DefaultConcurrentLimit int
	MaxConcurrentLimit     int
	WaveCooldown           time.Duration

	// Policy is "wave" (barrier between waves) or "pool" (semaphore, continuous).
	Policy string

	DefaultCountryCode string

	// MaxActivePerUser caps simultaneously running batch dispatches per user across instances.
	MaxActivePerUser int

	// MaxRun bounds the estimated duration of one batch. The HTTP write
	// timeout and the active-dispatch slot TTL are derived from it.
	MaxRun time.Duration
}

type WebhookConfig struct {
	// Secret enables HMAC-SHA256 body verification when non-empty.
	Secret string
}

func Load() (Config, error) {
	// Missing .env is fine; real deployments inject env directly.
	_ = godotenv.Load()

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.SessionTTL = mustDuration("SESSION_TTL")

	c.Vapi.BaseURL = strings.TrimSpace(os.Getenv("VAPI_BASE_URL"))
	c.Vapi.RequestTimeout = mustDuration("VAPI_REQUEST_TIMEOUT")
	c.Vapi.ProfilePath = strings.TrimSpace(os.Getenv("VAPI_PROFILE_PATH"))
	c.Vapi.ServerURL = strings.TrimSpace(os.Getenv("VAPI_SERVER_URL"))

	c.Dispatch.DefaultConcurrentLimit = optionalInt("DISPATCH_DEFAULT_CONCURRENT_LIMIT")
	c.Dispatch.MaxConcurrentLimit = optionalInt("DISPATCH_MAX_CONCURRENT_LIMIT")
	c.Dispatch.WaveCooldown = mustDuration("DISPATCH_WAVE_COOLDOWN")
	c.Dispatch.Policy = strings.TrimSpace(os.Getenv("DISPATCH_POLICY"))
	c.Dispatch.DefaultCountryCode = strings.TrimSpace(os.Getenv("DEFAULT_COUNTRY_CODE"))
	c.Dispatch.MaxActivePerUser = optionalInt("MAX_ACTIVE_DISPATCHES_PER_USER")
	c.Dispatch.MaxRun = mustDuration("DISPATCH_MAX_RUN")

	c.Webhook.Secret = os.Getenv("WEBHOOK_SECRET")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Webhook.Secret == "" {
			errs = append(errs, errors.New("WEBHOOK_SECRET is required in production"))
		}
	}
	if c.Auth.SessionTTL <= 0 {
		c.Auth.SessionTTL = 7 * 24 * time.Hour
	}

	if c.Vapi.BaseURL == "" {
		c.Vapi.BaseURL = "https://api.vapi.ai"
	}
	if c.Vapi.RequestTimeout <= 0 {
		c.Vapi.RequestTimeout = 30 * time.Second
	}
	if c.Vapi.ServerURL != "" {
		if u, err := url.Parse(c.Vapi.ServerURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			errs = append(errs, fmt.Errorf("VAPI_SERVER_URL must be an absolute http(s) URL, got %q", c.Vapi.ServerURL))
		}
	}

	if c.Dispatch.MaxConcurrentLimit <= 0 {
		c.Dispatch.MaxConcurrentLimit = 50
	}
	if c.Dispatch.DefaultConcurrentLimit <= 0 {
		c.Dispatch.DefaultConcurrentLimit = 10
	}
	if c.Dispatch.DefaultConcurrentLimit > c.Dispatch.MaxConcurrentLimit {
		errs = append(errs, fmt.Errorf("DISPATCH_DEFAULT_CONCURRENT_LIMIT must not exceed DISPATCH_MAX_CONCURRENT_LIMIT (%d)", c.Dispatch.MaxConcurrentLimit))
	}
	if c.Dispatch.WaveCooldown <= 0 {
		c.Dispatch.WaveCooldown = 3 * time.Second
	}
	if c.Dispatch.Policy == "" {
		c.Dispatch.Policy = "wave"
	}
	if c.Dispatch.Policy != "wave" && c.Dispatch.Policy != "pool" {
		errs = append(errs, fmt.Errorf("DISPATCH_POLICY must be one of wave, pool, got %q", c.Dispatch.Policy))
	}
	if c.Dispatch.DefaultCountryCode == "" {
		c.Dispatch.DefaultCountryCode = "60"
	}
	c.Dispatch.DefaultCountryCode = strings.TrimPrefix(c.Dispatch.DefaultCountryCode, "+")
	if _, err := strconv.Atoi(c.Dispatch.DefaultCountryCode); err != nil {
		errs = append(errs, fmt.Errorf("DEFAULT_COUNTRY_CODE must be digits, got %q", c.Dispatch.DefaultCountryCode))
	}
	if c.Dispatch.MaxActivePerUser <= 0 {
		c.Dispatch.MaxActivePerUser = 2
	}
	if c.Dispatch.MaxRun <= 0 {
		c.Dispatch.MaxRun = 15 * time.Minute
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

// HTTPWriteTimeout covers the longest batch call plus slack for the
// per-wave provider requests the estimate cannot see.
func (c Config) HTTPWriteTimeout() time.Duration {
	return c.Dispatch.MaxRun + 5*time.Minute
}

// ActiveSlotTTL outlives any request the server will keep open, so a running
// batch never loses its slot. It only reclaims slots of crashed instances.
func (c Config) ActiveSlotTTL() time.Duration {
	return c.HTTPWriteTimeout() + 5*time.Minute
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

// optionalInt returns 0 for unset or malformed values; Validate applies defaults.
func optionalInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
