package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name      string `envconfig:"APP_NAME" default:"Invoices"`
		Port      int    `envconfig:"PORT" default:"8080"`
		LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
		LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
		// Comma separated origins allowed to call the API from the browser.
		AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"invoices"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Auth struct {
		JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
		TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"12h"`
	}

	Files struct {
		Root string `envconfig:"FILES_ROOT" default:"./storage/private"`
	}

	SMTP struct {
		Host     string `envconfig:"SMTP_HOST" default:"localhost"`
		Port     int    `envconfig:"SMTP_PORT" default:"587"`
		Username string `envconfig:"SMTP_USERNAME"`
		Password string `envconfig:"SMTP_PASSWORD"`
		From     string `envconfig:"SMTP_FROM" default:"invoices@localhost"`
		// TLS is one of "mandatory", "opportunistic" or "none".
		TLS string `envconfig:"SMTP_TLS" default:"opportunistic"`
	}

	OpenAI struct {
		APIKey      string  `envconfig:"OPENAI_API_KEY"`
		Model       string  `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
		Temperature float32 `envconfig:"OPENAI_TEMPERATURE" default:"0.1"`
		MaxRetries  int     `envconfig:"OPENAI_MAX_RETRIES" default:"3"`
	}

	Vision struct {
		Enabled         bool   `envconfig:"VISION_ENABLED" default:"false"`
		CredentialsFile string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	}

	Ingest struct {
		LookbackDays    int           `envconfig:"INGEST_LOOKBACK_DAYS" default:"30"`
		Concurrency     int           `envconfig:"INGEST_CONCURRENCY" default:"1"`
		ConnectTimeout  time.Duration `envconfig:"INGEST_CONNECT_TIMEOUT" default:"15s"`
		ConnectAttempts int           `envconfig:"INGEST_CONNECT_ATTEMPTS" default:"3"`
	}

	Matching struct {
		ToleranceCents int64 `envconfig:"MATCHING_TOLERANCE_CENTS" default:"1"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Ingest.Concurrency < 1 {
		cfg.Ingest.Concurrency = 1
	}

	return &cfg, nil
}
