package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the runtime settings for the coordination server. All values
// come from the environment or an optional .env file.
type Config struct {
	Port            string  `mapstructure:"PORT"`
	Env             string  `mapstructure:"ENV"`
	DatabaseURL     string  `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32   `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32   `mapstructure:"DB_MIN_CONNS"`
	JWTSecret       string  `mapstructure:"JWT_SECRET"`
	TokenTTLMinutes int     `mapstructure:"TOKEN_TTL_MINUTES"`
	UploadDir       string  `mapstructure:"UPLOAD_DIR"`
	RateLimitRPS    float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int     `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL_MINUTES", 60)
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("TOKEN_TTL_MINUTES")
	v.BindEnv("UPLOAD_DIR")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// MirrorEnabled reports whether a backing database was configured. The server
// runs memory-only when DATABASE_URL is empty.
func (c *Config) MirrorEnabled() bool {
	return c.DatabaseURL != ""
}

// Validate checks that the configuration is safe to run. The database is
// optional, but a production deployment must carry a real JWT secret and sane
// pool and rate limiter settings.
func (c *Config) Validate() error {
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.TokenTTLMinutes <= 0 {
		return fmt.Errorf("TOKEN_TTL_MINUTES must be positive, got %d", c.TokenTTLMinutes)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit settings must be positive (RPS=%v, burst=%d)", c.RateLimitRPS, c.RateLimitBurst)
	}
	if c.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR must not be empty")
	}
	return nil
}
