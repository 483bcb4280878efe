package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	CredentialModePlain  = "plain"
	CredentialModeBcrypt = "bcrypt"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	DBDriver         string // postgres / sqlite
	DatabaseURL      string // あれば最優先
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string
	SQLitePath       string

	JWTSecret  string        // セッショントークン署名シークレット
	SessionTTL time.Duration // セッショントークンの有効期限

	AdminUsername   string // 管理者は固定の1組
	AdminCredential string
	CredentialMode  string // plain / bcrypt
	BcryptCost      int

	RedisAddr    string // 空なら通知はプロセス内だけ
	RedisChannel string

	NotifyBuffer      int   // 通知ストリームのバッファ
	LowStockThreshold int64 // 統計の在庫少ライン
}

func (c Config) IsProduction() bool {
	switch strings.ToLower(c.GoEnv) {
	case "prod", "production":
		return true
	}
	return false
}

// Loadは.env（あれば）と環境変数
func Load() (Config, error) {
	// .envは無くてもよい
	_ = godotenv.Load()

	pgPort, err := atoiDefault("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	bcryptCost, err := atoiDefault("BCRYPT_COST", 12)
	if err != nil {
		return Config{}, err
	}
	notifyBuffer, err := atoiDefault("NOTIFY_BUFFER", 16)
	if err != nil {
		return Config{}, err
	}
	lowStock, err := atoiDefault("LOW_STOCK_THRESHOLD", 5)
	if err != nil {
		return Config{}, err
	}
	ttl, err := durationDefault("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:  getenv("PORT", "8080"),
		GoEnv: getenv("GO_ENV", "dev"),

		DBDriver:         strings.ToLower(getenv("DB_DRIVER", DriverPostgres)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "storefront"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
		SQLitePath:       getenv("SQLITE_PATH", "storefront.db"),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		SessionTTL: ttl,

		AdminUsername:   getenv("ADMIN_USERNAME", "admin"),
		AdminCredential: getenv("ADMIN_CREDENTIAL", "admin"),
		CredentialMode:  strings.ToLower(getenv("CREDENTIAL_MODE", CredentialModePlain)),
		BcryptCost:      bcryptCost,

		RedisAddr:    strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisChannel: getenv("REDIS_CHANNEL", "storefront:notify"),

		NotifyBuffer:      notifyBuffer,
		LowStockThreshold: int64(lowStock),
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return Config{}, fmt.Errorf("JWT_SECRET is required")
		}
		cfg.JWTSecret = "dev_secret_change_me"
	}
	switch cfg.CredentialMode {
	case CredentialModePlain, CredentialModeBcrypt:
	default:
		return Config{}, fmt.Errorf("CREDENTIAL_MODE must be %q or %q", CredentialModePlain, CredentialModeBcrypt)
	}
	switch cfg.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return Config{}, fmt.Errorf("DB_DRIVER must be %q or %q", DriverPostgres, DriverSQLite)
	}
	if cfg.AdminUsername == "" || cfg.AdminCredential == "" {
		return Config{}, fmt.Errorf("ADMIN_USERNAME and ADMIN_CREDENTIAL must not be empty")
	}
	if cfg.NotifyBuffer < 1 {
		return Config{}, fmt.Errorf("NOTIFY_BUFFER must be positive")
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL must be positive")
	}

	return cfg, nil
}

// postgresのDSN（DATABASE_URL優先）
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func getenv(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationDefault(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}
