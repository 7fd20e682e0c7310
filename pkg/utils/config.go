package utils

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Booking   BookingConfig
	Proof     ProofConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type SessionConfig struct {
	ExpiryHours int
}

type BookingConfig struct {
	RequestExpiryHours   int
	PaymentDeadlineHours int
	AttendanceGraceHours int
	PlatformFeeRate      float64
	HalfDayHours         int
	FullDayHours         int
	SweepInterval        time.Duration
}

type ProofConfig struct {
	Secret       string
	TTLMinutes   int
	RadiusMeters float64
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("SESSION_EXPIRY_HOURS", 24)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("REQUEST_EXPIRY_HOURS", 72)
	viper.SetDefault("PAYMENT_DEADLINE_HOURS", 24)
	viper.SetDefault("ATTENDANCE_GRACE_HOURS", 72)
	viper.SetDefault("PLATFORM_FEE_RATE", 0.10)
	viper.SetDefault("HALF_DAY_HOURS", 4)
	viper.SetDefault("FULL_DAY_HOURS", 8)
	viper.SetDefault("SWEEP_INTERVAL_SECONDS", 60)
	viper.SetDefault("PROOF_TTL_MINUTES", 5)
	viper.SetDefault("PROOF_RADIUS_METERS", 150)
	viper.SetDefault("RATE_LIMIT_RPS", 5)
	viper.SetDefault("RATE_LIMIT_BURST", 10)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Session: SessionConfig{
			ExpiryHours: viper.GetInt("SESSION_EXPIRY_HOURS"),
		},
		Booking: BookingConfig{
			RequestExpiryHours:   viper.GetInt("REQUEST_EXPIRY_HOURS"),
			PaymentDeadlineHours: viper.GetInt("PAYMENT_DEADLINE_HOURS"),
			AttendanceGraceHours: viper.GetInt("ATTENDANCE_GRACE_HOURS"),
			PlatformFeeRate:      viper.GetFloat64("PLATFORM_FEE_RATE"),
			HalfDayHours:         viper.GetInt("HALF_DAY_HOURS"),
			FullDayHours:         viper.GetInt("FULL_DAY_HOURS"),
			SweepInterval:        time.Duration(viper.GetInt("SWEEP_INTERVAL_SECONDS")) * time.Second,
		},
		Proof: ProofConfig{
			Secret:       viper.GetString("PROOF_SECRET"),
			TTLMinutes:   viper.GetInt("PROOF_TTL_MINUTES"),
			RadiusMeters: viper.GetFloat64("PROOF_RADIUS_METERS"),
		},
		RateLimit: RateLimitConfig{
			RPS:   viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst: viper.GetInt("RATE_LIMIT_BURST"),
		},
	}

	return config, nil
}
