package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type MongoConfig struct {
	URI      string
	Database string
}

type AuthConfig struct {
	AccessSecret string
}

type ExternalServicesConfig struct {
	RoutingServiceURL string
	RoutingTimeout    time.Duration
}

type TrackingConfig struct {
	MovingSpeedThresholdKmh float64
	AssumedAvgSpeedKmh      float64
	StaleConnectionTimeout  time.Duration
	StaleSweepInterval      time.Duration
	AllowPreTripSamples     bool
}

type Config struct {
	Environment      string
	HTTP             HTTPConfig
	DB               DBConfig
	Mongo            MongoConfig
	Auth             AuthConfig
	ExternalServices ExternalServicesConfig
	Tracking         TrackingConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("MONGO_URI"),
			Database: v.GetString("MONGO_DATABASE"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		ExternalServices: ExternalServicesConfig{
			RoutingServiceURL: v.GetString("ROUTING_SERVICE_URL"),
			RoutingTimeout:    v.GetDuration("ROUTING_TIMEOUT"),
		},
		Tracking: TrackingConfig{
			MovingSpeedThresholdKmh: v.GetFloat64("TRACKING_MOVING_SPEED_THRESHOLD_KMH"),
			AssumedAvgSpeedKmh:      v.GetFloat64("TRACKING_ASSUMED_AVG_SPEED_KMH"),
			StaleConnectionTimeout:  v.GetDuration("TRACKING_STALE_CONNECTION_TIMEOUT"),
			StaleSweepInterval:      v.GetDuration("TRACKING_STALE_SWEEP_INTERVAL"),
			AllowPreTripSamples:     v.GetBool("TRACKING_ALLOW_PRE_TRIP_SAMPLES"),
		},
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "sumajflow_tracking"
	}
	if cfg.ExternalServices.RoutingTimeout == 0 {
		cfg.ExternalServices.RoutingTimeout = 5 * time.Second
	}
	if cfg.Tracking.MovingSpeedThresholdKmh == 0 {
		cfg.Tracking.MovingSpeedThresholdKmh = 3
	}
	if cfg.Tracking.AssumedAvgSpeedKmh == 0 {
		cfg.Tracking.AssumedAvgSpeedKmh = 35
	}
	if cfg.Tracking.StaleConnectionTimeout == 0 {
		cfg.Tracking.StaleConnectionTimeout = 5 * time.Minute
	}
	if cfg.Tracking.StaleSweepInterval == 0 {
		cfg.Tracking.StaleSweepInterval = time.Minute
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Mongo.URI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	return nil
}
