package app

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AuthorizeURL string // Required: public URL of /authorize, the expected aud of request objects
	TokenURL     string // Required: public URL of /token, the expected aud of client assertions

	RegistryFile string // Optional: path to the client registry JSON file (default: ./clients.json)
	DatabaseFile string // Optional: path to SQLite database file (default: ./accounts.db)

	EncryptionKeyFile string // Optional: path to the encrypted request-object decryption key (default: ./jwe.key)
	MasterKeyPath     string // Optional: path to master encryption key file
	RSABits           int    // Optional: RSA key size when generating the decryption key (default: 2048)

	StartSessionURL string // Optional: where the api authorize variant sends the browser (default: /frontend/start-session)
	ErrorPageURL    string // Optional: fallback error page for pre-trust failures (default: /frontend/error)
	CookieDomain    string // Optional: Domain attribute on the session cookies

	NonceTTL       time.Duration // Optional: jti replay window (default: 1h)
	APISessionTTL  time.Duration // Optional: single-use api session lifetime (default: 5m)
	OutcomeTTL     time.Duration // Optional: journey outcome retention (default: 30m)
	AuthCodeTTL    time.Duration // Optional: authorization code lifetime (default: 5m)
	AccessTokenTTL time.Duration // Optional: access token lifetime (default: 10m)

	JWKSFetchTimeout time.Duration // Optional: per-request JWKS fetch timeout (default: 5s)
	JWKSMaxAge       time.Duration // Optional: longest a cached JWKS is served before refresh (default: 15m)
	JWKSMaxClients   int           // Optional: JWKS cache size before LRU eviction (default: 0 = library default)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 10m)
}

func LoadConfig() Config {
	return Config{
		AuthorizeURL: os.Getenv("ACCOUNTS_AUTHORIZE_URL"),
		TokenURL:     os.Getenv("ACCOUNTS_TOKEN_URL"),

		RegistryFile: getEnvOrDefault("ACCOUNTS_REGISTRY_FILE", "clients.json"),
		DatabaseFile: getEnvOrDefault("ACCOUNTS_DATABASE_FILE", "accounts.db"),

		EncryptionKeyFile: getEnvOrDefault("ACCOUNTS_ENCRYPTION_KEY_FILE", "jwe.key"),
		MasterKeyPath:     os.Getenv("ACCOUNTS_MASTER_KEY_PATH"),
		RSABits:           getEnvIntOrDefault("ACCOUNTS_RSA_BITS", 2048),

		StartSessionURL: getEnvOrDefault("ACCOUNTS_START_SESSION_URL", "/frontend/start-session"),
		ErrorPageURL:    getEnvOrDefault("ACCOUNTS_ERROR_PAGE_URL", "/frontend/error"),
		CookieDomain:    os.Getenv("ACCOUNTS_COOKIE_DOMAIN"),

		NonceTTL:       getEnvDurationOrDefault("ACCOUNTS_NONCE_TTL", time.Hour),
		APISessionTTL:  getEnvDurationOrDefault("ACCOUNTS_API_SESSION_TTL", 5*time.Minute),
		OutcomeTTL:     getEnvDurationOrDefault("ACCOUNTS_OUTCOME_TTL", 30*time.Minute),
		AuthCodeTTL:    getEnvDurationOrDefault("ACCOUNTS_AUTH_CODE_TTL", 5*time.Minute),
		AccessTokenTTL: getEnvDurationOrDefault("ACCOUNTS_ACCESS_TOKEN_TTL", 10*time.Minute),

		JWKSFetchTimeout: getEnvDurationOrDefault("ACCOUNTS_JWKS_FETCH_TIMEOUT", 5*time.Second),
		JWKSMaxAge:       getEnvDurationOrDefault("ACCOUNTS_JWKS_MAX_AGE", 15*time.Minute),
		JWKSMaxClients:   getEnvIntOrDefault("ACCOUNTS_JWKS_MAX_CLIENTS", 0),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 10*time.Minute),
	}
}

// Validate refuses misconfiguration that would otherwise surface as
// per-request verification failures. There is no fallback audience: a
// missing authorize URL means no request object can ever validate.
func (cfg Config) Validate() error {
	if cfg.AuthorizeURL == "" {
		return errors.New("ACCOUNTS_AUTHORIZE_URL is required")
	}
	if cfg.TokenURL == "" {
		return errors.New("ACCOUNTS_TOKEN_URL is required")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Either a duration string ("1h", "30m", "90s") or plain minutes
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
