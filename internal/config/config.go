package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Admin    AdminConfig
	Contract ContractConfig
	Notify   NotifyConfig
}

type ServerConfig struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
	RateLimit   RateLimitConfig
}

func (s ServerConfig) IsProduction() bool {
	return strings.EqualFold(s.Environment, EnvProduction)
}

type DatabaseConfig struct {
	Driver   string `envconfig:"DB_DRIVER" default:"sqlite"`
	Path     string `envconfig:"DB_PATH" default:"ejare.db"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD"`
	DBName   string `envconfig:"DB_NAME" default:"ejare"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`

	// SlowQuery is the duration above which a query is logged at warn level.
	SlowQuery time.Duration `envconfig:"DB_SLOW_QUERY" default:"200ms"`
}

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == DriverPostgres {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			d.Host,
			d.Port,
			d.User,
			d.Password,
			d.DBName,
			d.SSLMode,
		)
	}
	return d.Path + "?_foreign_keys=on&_busy_timeout=5000"
}

type RedisConfig struct {
	// URL empty means the in-memory key-value store is used.
	URL          string        `envconfig:"REDIS_URL"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

type JWTConfig struct {
	Secret    string        `envconfig:"JWT_SECRET" required:"true"`
	Issuer    string        `envconfig:"JWT_ISSUER" default:"ejare"`
	AdminTTL  time.Duration `envconfig:"ADMIN_TOKEN_TTL" default:"24h"`
	TenantTTL time.Duration `envconfig:"TENANT_TOKEN_TTL" default:"168h"`
}

type AdminConfig struct {
	Username string `envconfig:"ADMIN_USERNAME"`
	Password string `envconfig:"ADMIN_PASSWORD"`
}

type RateLimitConfig struct {
	Enabled bool          `envconfig:"LOGIN_RATE_LIMIT_ENABLED" default:"true"`
	Limit   int           `envconfig:"LOGIN_RATE_LIMIT" default:"30"`
	Window  time.Duration `envconfig:"LOGIN_RATE_WINDOW" default:"1m"`
}

type ContractConfig struct {
	SoftDelete         bool          `envconfig:"CONTRACT_SOFT_DELETE" default:"true"`
	MaxFailedAttempts  int           `envconfig:"TENANT_MAX_FAILED_ATTEMPTS" default:"5"`
	LockoutWindow      time.Duration `envconfig:"TENANT_LOCKOUT_WINDOW" default:"1h"`
	CacheTTL           time.Duration `envconfig:"CONTRACT_CACHE_TTL" default:"10m"`
	MaxSignatureBytes  int           `envconfig:"MAX_SIGNATURE_BYTES" default:"2097152"`
	MaxIDImageBytes    int           `envconfig:"MAX_ID_IMAGE_BYTES" default:"5242880"`
	MinSignatureWidth  int           `envconfig:"MIN_SIGNATURE_WIDTH" default:"50"`
	MinSignatureHeight int           `envconfig:"MIN_SIGNATURE_HEIGHT" default:"20"`
}

type NotifyConfig struct {
	HTTPTimeout time.Duration `envconfig:"NOTIFY_HTTP_TIMEOUT" default:"10s"`
	Email       EmailConfig
	Telegram    TelegramConfig
	WhatsApp    WhatsAppConfig
}

type EmailConfig struct {
	Enabled bool   `envconfig:"EMAIL_ENABLED" default:"false"`
	Host    string `envconfig:"EMAIL_HOST"`
	Port    int    `envconfig:"EMAIL_PORT" default:"587"`
	User    string `envconfig:"EMAIL_USER"`
	Pass    string `envconfig:"EMAIL_PASS"`
	From    string `envconfig:"EMAIL_FROM"`
}

type TelegramConfig struct {
	Enabled  bool   `envconfig:"TELEGRAM_ENABLED" default:"false"`
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID   string `envconfig:"TELEGRAM_CHAT_ID"`
	APIURL   string `envconfig:"TELEGRAM_API_URL" default:"https://api.telegram.org"`
}

type WhatsAppConfig struct {
	Enabled    bool   `envconfig:"WHATSAPP_ENABLED" default:"false"`
	AccountSID string `envconfig:"WHATSAPP_ACCOUNT_SID"`
	AuthToken  string `envconfig:"WHATSAPP_AUTH_TOKEN"`
	Number     string `envconfig:"WHATSAPP_NUMBER"`
	To         string `envconfig:"WHATSAPP_TO"`
	APIURL     string `envconfig:"WHATSAPP_API_URL" default:"https://api.twilio.com"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Server.IsProduction() && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if c.Contract.MaxFailedAttempts <= 0 {
		return fmt.Errorf("TENANT_MAX_FAILED_ATTEMPTS must be positive")
	}
	return nil
}

// LoadDatabase reads only the database settings, for tooling that never
// serves requests.
func LoadDatabase() (DatabaseConfig, error) {
	_ = godotenv.Load()

	var db DatabaseConfig
	if err := envconfig.Process("", &db); err != nil {
		return db, fmt.Errorf("parsing database config: %w", err)
	}
	switch db.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return db, fmt.Errorf("unsupported DB_DRIVER %q", db.Driver)
	}
	return db, nil
}
