package cfg

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"

	maxIDSize = 64
)

type Secret struct {
	value []byte
}

func NewSecret(s string) Secret {
	return Secret{value: []byte(s)}
}
func (s Secret) Value() string {
	return string(s.value)
}
func (s Secret) Wipe() {
	for i := range s.value {
		s.value[i] = 0
	}
}
func (s Secret) String() string {
	return "***REDACTED***"
}

type Cfg struct {
	Port            string
	AdminPort       string
	Environment     string
	LogLevel        string
	PublicURL       string
	StorageBackend  string
	StorageDir      string
	DatabasePath    string
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	DBQueryTimeout  time.Duration
	RedisURL        string
	RedisPassword   Secret
	RedisTimeout    time.Duration
	MemoryCapacity  int
	IDSize          int
	SecretSize      int
	CreateRetries   int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LoadEnvFile reads ENV_FILE (default .env) into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile() error {
	path := getEnv("ENV_FILE", ".env")
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return errors.Wrapf(godotenv.Load(path), "load %s", path)
}

func Load() (*Cfg, error) {
	c := &Cfg{}
	c.Port = getEnv("PORT", "8080")
	c.AdminPort = getEnv("ADMIN_PORT", "6060")
	c.Environment = getEnv("ENVIRONMENT", "development")
	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.PublicURL = strings.TrimRight(getEnv("PUBLIC_URL", ""), "/")
	c.StorageBackend = strings.ToLower(getEnv("STORAGE_BACKEND", BackendFS))
	c.StorageDir = getEnv("STORAGE_DIR", "upload")
	c.DatabasePath = getEnv("DATABASE_PATH", "pastabin.db")
	c.RedisURL = getEnv("REDIS_URL", "")
	c.RedisPassword = NewSecret(getEnv("REDIS_PASSWORD", ""))
	var err error
	if c.DBMaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 100); err != nil {
		return nil, err
	}
	if c.DBMaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", 10); err != nil {
		return nil, err
	}
	if c.DBQueryTimeout, err = getDuration("DB_QUERY_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if c.RedisTimeout, err = getDuration("REDIS_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if c.MemoryCapacity, err = getInt("MEMORY_CAPACITY", 10000); err != nil {
		return nil, err
	}
	if c.IDSize, err = getInt("ID_SIZE", 8); err != nil {
		return nil, err
	}
	if c.SecretSize, err = getInt("SECRET_SIZE", 12); err != nil {
		return nil, err
	}
	if c.CreateRetries, err = getInt("CREATE_RETRIES", 3); err != nil {
		return nil, err
	}
	if c.ReadTimeout, err = getDuration("READ_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if c.WriteTimeout, err = getDuration("WRITE_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if c.IdleTimeout, err = getDuration("IDLE_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if c.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	return c, nil
}
func Validate(c *Cfg) error {
	if err := validPort("PORT", c.Port); err != nil {
		return err
	}
	if c.AdminPort != "" {
		if err := validPort("ADMIN_PORT", c.AdminPort); err != nil {
			return err
		}
		if c.AdminPort == c.Port {
			return errors.New("ADMIN_PORT must differ from PORT")
		}
	}
	if c.PublicURL != "" {
		u, err := url.Parse(c.PublicURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("PUBLIC_URL must be an absolute http(s) URL, got %q", c.PublicURL)
		}
	}
	switch c.StorageBackend {
	case BackendFS:
		if c.StorageDir == "" {
			return errors.New("STORAGE_DIR is required for the fs backend")
		}
	case BackendSQLite:
		if c.DatabasePath == "" {
			return errors.New("DATABASE_PATH is required for the sqlite backend")
		}
		if c.DBMaxOpenConns <= 0 {
			return errors.New("DB_MAX_OPEN_CONNS must be positive")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis backend")
		}
		if !strings.HasPrefix(c.RedisURL, "redis://") && !strings.HasPrefix(c.RedisURL, "rediss://") {
			return errors.New("REDIS_URL must start with redis:// or rediss://")
		}
	case BackendMemory:
		if c.MemoryCapacity <= 0 {
			return errors.New("MEMORY_CAPACITY must be positive")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of fs, sqlite, redis, memory, got %q", c.StorageBackend)
	}
	if c.IDSize < 1 || c.IDSize > maxIDSize {
		return fmt.Errorf("ID_SIZE must be between 1 and %d", maxIDSize)
	}
	if c.SecretSize < 1 {
		return errors.New("SECRET_SIZE must be positive")
	}
	if c.CreateRetries < 0 {
		return errors.New("CREATE_RETRIES cannot be negative")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}
func (c *Cfg) Wipe() {
	c.RedisPassword.Wipe()
}
func (c *Cfg) Dev() bool {
	return c.Environment != "production"
}
func validPort(key, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("%s must be a port number", key)
	}
	return nil
}
func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
func getInt(key string, fallback int) (int, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return v, nil
}
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return v, nil
}
