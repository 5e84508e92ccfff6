package config // package config loads application configuration from environment variables

import (
	"log"     // log reports configuration errors and halts execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses duration tunables
)

// Config holds all runtime configuration values. Required values (database
// coordinates, signing secrets) are enforced with must() and abort startup
// when missing; tunables fall back to the documented defaults.
type Config struct {
	Env  string // application environment ("dev", "test", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	AccessSecret  string // secret signing access tokens
	RefreshSecret string // secret signing refresh tokens; independent of AccessSecret

	BcryptCost        int           // bcrypt cost for password hashing
	AccessTTL         time.Duration // access token lifetime (default 4h)
	RefreshTTLSignup  time.Duration // session-row lifetime issued at signup (default 30d)
	RefreshTTLLogin   time.Duration // session-row lifetime issued at login (default 7d)
	RefreshSigningTTL time.Duration // signature lifetime of refresh tokens (default 30d)

	APIKeyLimit  int64         // requests per window allowed per API key
	APIKeyWindow time.Duration // fixed-window size for API-key limiting

	LoginLimit  int64         // login/signup attempts per window per client IP
	LoginWindow time.Duration // fixed-window size for the IP limiter

	SMTPHost string // SMTP relay host for outbound mail
	SMTPPort string // SMTP relay port
	SMTPFrom string // From address on transactional mail
}

// Load reads configuration values from environment variables and returns a
// Config. Missing required variables cause a fatal log message.
func Load() Config {
	return Config{
		Env:  must("APP_ENV"),
		Port: must("APP_PORT"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"), // empty allowed
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		AccessSecret:  must("ACCESS_TOKEN_SECRET"),
		RefreshSecret: must("REFRESH_TOKEN_SECRET"),

		BcryptCost:        envInt("BCRYPT_COST", 10),
		AccessTTL:         envDur("ACCESS_TOKEN_TTL", 4*time.Hour),
		RefreshTTLSignup:  envDur("REFRESH_TTL_SIGNUP", 30*24*time.Hour),
		RefreshTTLLogin:   envDur("REFRESH_TTL_LOGIN", 7*24*time.Hour),
		RefreshSigningTTL: envDur("REFRESH_SIGNING_TTL", 30*24*time.Hour),

		APIKeyLimit:  int64(envInt("API_KEY_RATE_LIMIT", 1000)),
		APIKeyWindow: envDur("API_KEY_RATE_WINDOW", time.Hour),

		LoginLimit:  int64(envInt("LOGIN_RATE_LIMIT", 10)),
		LoginWindow: envDur("LOGIN_RATE_WINDOW", time.Hour),

		SMTPHost: envStr("SMTP_HOST", "localhost"),
		SMTPPort: envStr("SMTP_PORT", "25"),
		SMTPFrom: envStr("SMTP_FROM", "no-reply@inkhouse.io"),
	}
}

// Production reports whether the service runs in the prod environment;
// cookies are marked Secure only then.
func (c Config) Production() bool { return c.Env == "prod" }

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
