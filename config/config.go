package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	Timezone          string `mapstructure:"TIMEZONE"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	CORSOrigins       string `mapstructure:"CORS_ORIGINS"`
	// Proxies whose X-Forwarded-For is believed; empty trusts none.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`

	// Store selection: firestore, mongo, postgres (appointments only) or memory.
	AppointmentStore string `mapstructure:"APPOINTMENT_STORE"`
	ProfileStore     string `mapstructure:"PROFILE_STORE"`

	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`
	PostgresURL   string `mapstructure:"POSTGRES_URL"`

	// Firebase project.
	IdentityProvider        string `mapstructure:"IDENTITY_PROVIDER"`
	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseWebAPIKey       string `mapstructure:"FIREBASE_WEB_API_KEY"`
	PushEnabled             bool   `mapstructure:"PUSH_ENABLED"`

	// Redis configuration.
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB   int           `mapstructure:"REDIS_CACHE_DB"`
	RedisSessionDB int           `mapstructure:"REDIS_SESSION_DB"`
	RedisQueueDB   int           `mapstructure:"REDIS_QUEUE_DB"`
	NameCacheTTL   time.Duration `mapstructure:"NAME_CACHE_TTL"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`

	// Background work.
	WorkerEnabled     bool          `mapstructure:"WORKER_ENABLED"`
	WorkerConcurrency int           `mapstructure:"WORKER_CONCURRENCY"`
	ReminderLeadTime  time.Duration `mapstructure:"REMINDER_LEAD_TIME"`

	// Kafka lifecycle events; empty brokers disables publishing.
	KafkaBrokers     string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopicPrefix string `mapstructure:"KAFKA_TOPIC_PREFIX"`

	ViaCEPBaseURL string `mapstructure:"VIACEP_BASE_URL"`

	// Tracing.
	OTelEnabled     bool    `mapstructure:"OTEL_ENABLED"`
	OTelEndpoint    string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelSampleRatio float64 `mapstructure:"OTEL_SAMPLING_RATIO"`
}

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("APPOINTMENT_STORE", "firestore")
	v.SetDefault("PROFILE_STORE", "firestore")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "nahio")
	v.SetDefault("POSTGRES_URL", "postgres://localhost:5432/nahio?sslmode=disable")
	v.SetDefault("IDENTITY_PROVIDER", "firebase")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("FIREBASE_WEB_API_KEY", "")
	v.SetDefault("PUSH_ENABLED", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_CACHE_DB", 0)
	v.SetDefault("REDIS_SESSION_DB", 1)
	v.SetDefault("REDIS_QUEUE_DB", 2)
	v.SetDefault("NAME_CACHE_TTL", "10m")
	v.SetDefault("SESSION_TTL", "1h")
	v.SetDefault("WORKER_ENABLED", true)
	v.SetDefault("WORKER_CONCURRENCY", 10)
	v.SetDefault("REMINDER_LEAD_TIME", "24h")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC_PREFIX", "nahio")
	v.SetDefault("VIACEP_BASE_URL", "https://viacep.com.br/ws")
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_SAMPLING_RATIO", 1.0)
}

// Load builds a Config from defaults, an optional config.yaml and the environment.
func Load() (Config, error) {
	v := viper.New()
	// Look for a config file named "config.yaml" in the current and "config" directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	// AutomaticEnv only applies to keys viper already knows about, so every
	// key gets a default above; Unmarshal then sees env overrides.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
		log.Println("No config file found, using environment variables only")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.AppointmentStore = strings.ToLower(strings.TrimSpace(cfg.AppointmentStore))
	cfg.ProfileStore = strings.ToLower(strings.TrimSpace(cfg.ProfileStore))
	cfg.IdentityProvider = strings.ToLower(strings.TrimSpace(cfg.IdentityProvider))
	return cfg, nil
}

// LoadConfig fills AppConfig, exiting on malformed configuration.
func LoadConfig() {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// Location resolves the configured timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CORSOriginList splits CORS_ORIGINS on commas.
func (c Config) CORSOriginList() []string {
	return splitList(c.CORSOrigins)
}

// TrustedProxyList splits TRUSTED_PROXIES (IPs or CIDRs) on commas.
func (c Config) TrustedProxyList() []string {
	return splitList(c.TrustedProxies)
}

func splitList(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
