package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. The struct is built once in main and passed by
// injection into every constructor; nothing reads the environment after
// startup.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	SessionTTLDays int    // session retention window in days
	BcryptCost     int    // bcrypt cost for password hashing

	AccessCookieName  string // cookie carrying the access token
	RefreshCookieName string // cookie carrying the refresh token

	TOTPIssuer string // issuer shown in authenticator apps

	OAuthClientID     string // Google OAuth client id
	OAuthClientSecret string // Google OAuth client secret
	OAuthRedirectURL  string // Google OAuth callback URL
	FrontendURL       string // where successful OAuth logins are redirected
}

// Prod reports whether the app runs in production; cookie Secure flags and
// similar hardening key off this.
func (c Config) Prod() bool { return c.Env == "prod" }

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		SessionTTLDays: envInt("SESSION_TTL_DAYS", 30),
		BcryptCost:     mustInt("BCRYPT_COST"),

		AccessCookieName:  envStr("ACCESS_TOKEN_NAME", "accessToken"),
		RefreshCookieName: envStr("REFRESH_TOKEN_NAME", "refreshToken"),

		TOTPIssuer: envStr("TOTP_ISSUER", "Chronos"),

		OAuthClientID:     must("OAUTH_CLIENT_ID"),
		OAuthClientSecret: must("OAUTH_CLIENT_SECRET"),
		OAuthRedirectURL:  must("OAUTH_CALLBACK_URL"),
		FrontendURL:       must("FRONT_URL"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
