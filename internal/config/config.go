package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opinahq/opina/internal/domain"
)

// GetString retrieves an environment variable or returns a fallback when unset.
func GetString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetInt retrieves an environment variable as integer or returns fallback.
func GetInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("invalid value for %s: %v", key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}

// GetBool retrieves an environment variable as bool or returns fallback.
func GetBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			log.Printf("invalid value for %s: %v", key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}

// AllowedAccount is one entry of the login allow-list.
type AllowedAccount struct {
	Username string
	Password string
	Role     domain.Role
}

// Config holds runtime configuration for the service.
type Config struct {
	Environment        string
	Addr               string
	DatabaseURL        string
	MigrationsDir      string
	JWTSecret          string
	TokenTTL           time.Duration
	Accounts           []AllowedAccount
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
}

// Load constructs a Config from environment variables.
func Load() Config {
	return Config{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":4000"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://opina:opina@db:5432/opina?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		JWTSecret:          GetString("JWT_SECRET", "supersecuresecret"),
		TokenTTL:           time.Duration(GetInt("TOKEN_TTL_HOURS", 24)) * time.Hour,
		Accounts:           ParseAccounts(GetString("AUTH_ACCOUNTS", "")),
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
}

// ParseAccounts parses the login allow-list from its environment encoding:
// comma-separated "username:password:role" triples. Malformed entries and
// unknown roles are skipped.
func ParseAccounts(raw string) []AllowedAccount {
	entries := strings.Split(raw, ",")
	accounts := make([]AllowedAccount, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			log.Printf("skipping malformed allow-list entry for %q", parts[0])
			continue
		}
		role := domain.Role(parts[2])
		if !role.Valid() {
			log.Printf("skipping allow-list entry %q: unknown role %q", parts[0], parts[2])
			continue
		}
		accounts = append(accounts, AllowedAccount{
			Username: parts[0],
			Password: parts[1],
			Role:     role,
		})
	}
	return accounts
}
