package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string        `mapstructure:"PORT"`
	Env                   string        `mapstructure:"ENV"`
	DatabaseURL           string        `mapstructure:"DATABASE_URL"`
	DBMaxConns            int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32         `mapstructure:"DB_MIN_CONNS"`
	DBConnMaxLifetime     time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	DBConnMaxIdleTime     time.Duration `mapstructure:"DB_CONN_MAX_IDLE_TIME"`
	JWTSecret             string        `mapstructure:"JWT_SECRET"`
	CORSOrigins           []string      `mapstructure:"CORS_ORIGINS"`
	EmergencyAccessWindow time.Duration `mapstructure:"EMERGENCY_ACCESS_WINDOW"`
	AuditRetentionDays    int           `mapstructure:"AUDIT_RETENTION_DAYS"`
	NoteKeyDoctor         string        `mapstructure:"NOTE_KEY_DOCTOR"`
	NoteKeyPatient        string        `mapstructure:"NOTE_KEY_PATIENT"`
	NoteKeyAdmin          string        `mapstructure:"NOTE_KEY_ADMIN"`
	NotifyWebhookURL      string        `mapstructure:"NOTIFY_WEBHOOK_URL"`
	NotifyTimeout         time.Duration `mapstructure:"NOTIFY_TIMEOUT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("EMERGENCY_ACCESS_WINDOW", "2h")
	v.SetDefault("AUDIT_RETENTION_DAYS", 2555) // 7 years
	v.SetDefault("NOTIFY_TIMEOUT", "5s")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("DB_CONN_MAX_LIFETIME")
	v.BindEnv("DB_CONN_MAX_IDLE_TIME")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("EMERGENCY_ACCESS_WINDOW")
	v.BindEnv("AUDIT_RETENTION_DAYS")
	v.BindEnv("NOTE_KEY_DOCTOR")
	v.BindEnv("NOTE_KEY_PATIENT")
	v.BindEnv("NOTE_KEY_ADMIN")
	v.BindEnv("NOTIFY_WEBHOOK_URL")
	v.BindEnv("NOTIFY_TIMEOUT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get admin access.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure JWT_SECRET for production.")
		log.Println("WARNING: ============================================================")
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

// Validate checks that the configuration is safe to run. Outside development
// mode JWT_SECRET and all three role-scoped note encryption keys must be set.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when ENV=%q. "+
				"Refusing to start without authentication configuration", c.Env)
		}
		if c.NoteKeyDoctor == "" || c.NoteKeyPatient == "" || c.NoteKeyAdmin == "" {
			return fmt.Errorf("NOTE_KEY_DOCTOR, NOTE_KEY_PATIENT and NOTE_KEY_ADMIN are required when ENV=%q", c.Env)
		}
	}

	if c.EmergencyAccessWindow <= 0 {
		return fmt.Errorf("EMERGENCY_ACCESS_WINDOW must be positive, got %s", c.EmergencyAccessWindow)
	}

	if c.AuditRetentionDays <= 0 {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must be positive, got %d", c.AuditRetentionDays)
	}

	return nil
}
