package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SPOTIX_DB_DSN"
	EnvDBHost = "SPOTIX_DB_HOST"
	EnvDBUser = "SPOTIX_DB_USER"
	EnvDBName = "SPOTIX_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Storage       StorageConfig
	PubSub        PubSubConfig
	Stripe        StripeConfig
	OpenAI        OpenAIConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SPOTIX_APP_ENV" required:"true"`
	Port         string `envconfig:"SPOTIX_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SPOTIX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SPOTIX_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SPOTIX_DB_DSN"`
	Driver string `envconfig:"SPOTIX_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SPOTIX_DB_HOST"`
	LegacyPort     int    `envconfig:"SPOTIX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SPOTIX_DB_USER"`
	LegacyPassword string `envconfig:"SPOTIX_DB_PASSWORD"`
	LegacyName     string `envconfig:"SPOTIX_DB_NAME"`
	LegacySSLMode  string `envconfig:"SPOTIX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SPOTIX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SPOTIX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SPOTIX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SPOTIX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SPOTIX_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SPOTIX_REDIS_ADDR"`
	Password     string        `envconfig:"SPOTIX_REDIS_PASSWORD"`
	DB           int           `envconfig:"SPOTIX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SPOTIX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SPOTIX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SPOTIX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SPOTIX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SPOTIX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SPOTIX_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SPOTIX_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SPOTIX_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SPOTIX_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SPOTIX_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SPOTIX_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SPOTIX_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SPOTIX_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SPOTIX_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SPOTIX_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"SPOTIX_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SPOTIX_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"SPOTIX_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"SPOTIX_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SPOTIX_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SPOTIX_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SPOTIX_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SPOTIX_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SPOTIX_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName      string        `envconfig:"SPOTIX_GCS_BUCKET_NAME"`
	UploadURLExpiry time.Duration `envconfig:"SPOTIX_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
}

// StorageConfig tunes the tiered document-storage uploader.
type StorageConfig struct {
	LocalDir       string        `envconfig:"SPOTIX_STORAGE_LOCAL_DIR" default:"/var/spotix/uploads"`
	LocalBaseURL   string        `envconfig:"SPOTIX_STORAGE_LOCAL_BASE_URL" default:"http://localhost:8080/uploads"`
	UploadAttempts int           `envconfig:"SPOTIX_STORAGE_UPLOAD_ATTEMPTS" default:"3"`
	UploadBackoff  time.Duration `envconfig:"SPOTIX_STORAGE_UPLOAD_BACKOFF" default:"250ms"`
	MaxUploadMB    int           `envconfig:"SPOTIX_STORAGE_MAX_UPLOAD_MB" default:"10"`
}

type PubSubConfig struct {
	SettlementTopic          string `envconfig:"SPOTIX_PUBSUB_SETTLEMENT_TOPIC" default:"spotix-settlement-events"`
	NotificationSubscription string `envconfig:"SPOTIX_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"spotix-notification-worker"`
}

type StripeConfig struct {
	APIKey string `envconfig:"SPOTIX_STRIPE_API_KEY"`
	Secret string `envconfig:"SPOTIX_STRIPE_SECRET"`
	Env    string `envconfig:"SPOTIX_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type OpenAIConfig struct {
	APIKey  string        `envconfig:"SPOTIX_OPENAI_API_KEY"`
	BaseURL string        `envconfig:"SPOTIX_OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	Model   string        `envconfig:"SPOTIX_OPENAI_MODEL" default:"gpt-4o-mini"`
	Timeout time.Duration `envconfig:"SPOTIX_OPENAI_TIMEOUT" default:"20s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SPOTIX_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SPOTIX_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SPOTIX_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
