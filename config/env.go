package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	HTTP       HTTPConfig
	GRPC       GRPCConfig
	DB         DBConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Restaurant RestaurantConfig
	Cart       CartConfig
	Log        LogConfig
}

type HTTPConfig struct {
	Addr           string        `envconfig:"ADDR" default:":8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	OrderRateLimit string        `envconfig:"ORDER_RATE_LIMIT" default:"30-M"`
	AllowedOrigins string        `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

type GRPCConfig struct {
	Addr string `envconfig:"ADDR" default:":50053"`
}

type DBConfig struct {
	DSN          string `envconfig:"DSN" default:"host=localhost user=postgres password=postgres dbname=restaurant port=5432 sslmode=disable"`
	MaxOpenConns int    `envconfig:"MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns int    `envconfig:"MAX_IDLE_CONNS" default:"5"`
}

type AuthConfig struct {
	AdminPassword string        `envconfig:"ADMIN_PASSWORD" default:"admin123"`
	JWTSecret     string        `envconfig:"JWT_SECRET" default:"change-me"`
	TokenTTL      time.Duration `envconfig:"TOKEN_TTL" default:"12h"`
}

type RestaurantConfig struct {
	TimeZone            string  `envconfig:"TIME_ZONE" default:"Asia/Kolkata"`
	Name                string  `envconfig:"NAME" default:"FZ Restaurant"`
	TotalTables         int     `envconfig:"TOTAL_TABLES" default:"20"`
	Latitude            float64 `envconfig:"LATITUDE" default:"12.9716"`
	Longitude           float64 `envconfig:"LONGITUDE" default:"77.5946"`
	OrderNumberAttempts int     `envconfig:"ORDER_NUMBER_ATTEMPTS" default:"5"`
}

type CartConfig struct {
	Backend       string        `envconfig:"BACKEND" default:"memory"`
	TTL           time.Duration `envconfig:"TTL" default:"2h"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

// Location resolves the restaurant time zone used for order-number dates and
// history day boundaries.
func (c RestaurantConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.TimeZone)
}

func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := envconfig.Process("FZ", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}

	if cfg.Restaurant.OrderNumberAttempts < 1 {
		cfg.Restaurant.OrderNumberAttempts = 1
	}
	if _, err := cfg.Restaurant.Location(); err != nil {
		return Config{}, fmt.Errorf("invalid FZ_RESTAURANT_TIME_ZONE %q: %w", cfg.Restaurant.TimeZone, err)
	}

	return cfg, nil
}
