package config

import (
	"strings"
	"time"

	"github.com/atollstay/service-reservation/internal/platform/database"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServiceConfig holds all configuration for the reservation service.
type ServiceConfig struct {
	Port            string
	AppEnv          string
	DBConfig        database.PostgresConfig
	JWTSecret       string
	KafkaConfig     KafkaConfig
	RedisURL        string
	TxTimeout       time.Duration
	PendingTTL      time.Duration
	ExpiryInterval  time.Duration
	DefaultCurrency string
}

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// Load reads configuration from an optional .env file and RESERVATION_*
// environment variables.
func Load() (*ServiceConfig, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("RESERVATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "reservations")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "atollstay-")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("TX_TIMEOUT", "15s")
	v.SetDefault("PENDING_TTL", "45m")
	v.SetDefault("EXPIRY_INTERVAL", "5m")
	v.SetDefault("DEFAULT_CURRENCY", "USD")
}

func fromViper(v *viper.Viper) *ServiceConfig {
	port := v.GetString("SERVICE_PORT")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	return &ServiceConfig{
		Port:   port,
		AppEnv: v.GetString("APP_ENV"),
		DBConfig: database.PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWTSecret: v.GetString("JWT_SECRET"),
		KafkaConfig: KafkaConfig{
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		RedisURL:        v.GetString("REDIS_URL"),
		TxTimeout:       v.GetDuration("TX_TIMEOUT"),
		PendingTTL:      v.GetDuration("PENDING_TTL"),
		ExpiryInterval:  v.GetDuration("EXPIRY_INTERVAL"),
		DefaultCurrency: strings.ToUpper(v.GetString("DEFAULT_CURRENCY")),
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
