package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName      string `env:"XDULIST_APP_NAME" envDefault:"xdulist"`
	AppEnv       string `env:"XDULIST_APP_ENV" envDefault:"local"`
	HTTPHost     string `env:"XDULIST_HTTP_HOST" envDefault:"0.0.0.0"`
	HTTPPort     string `env:"XDULIST_HTTP_PORT" envDefault:"8080"`
	HTTPBasePath string `env:"XDULIST_HTTP_BASE_PATH" envDefault:"/api/v1"`
	FrontendURL  string `env:"XDULIST_FRONTEND_URL" envDefault:"http://localhost:3000"`

	DBHost     string `env:"XDULIST_DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"XDULIST_DB_PORT" envDefault:"5432"`
	DBUser     string `env:"XDULIST_DB_USER" envDefault:"app"`
	DBPassword string `env:"XDULIST_DB_PASSWORD" envDefault:"app_password"`
	DBName     string `env:"XDULIST_DB_NAME" envDefault:"xdulist"`
	DBSSLMode  string `env:"XDULIST_DB_SSLMODE" envDefault:"disable"`

	JWTSecret       string        `env:"XDULIST_JWT_SECRET"`
	JWTIssuer       string        `env:"XDULIST_JWT_ISSUER" envDefault:"xdulist"`
	AccessTTL       time.Duration `env:"XDULIST_JWT_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL      time.Duration `env:"XDULIST_JWT_REFRESH_TTL" envDefault:"168h"`
	VerificationTTL time.Duration `env:"XDULIST_VERIFICATION_TTL" envDefault:"1h"`

	NATSURL             string `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	NATSVerifySubject   string `env:"NATS_SUBJECT_VERIFY_JWT" envDefault:"auth.verifyJWT"`
	NATSReminderSubject string `env:"NATS_SUBJECT_TODO_REMINDER" envDefault:"todo.reminder"`

	GeminiAPIURL string `env:"XDULIST_GEMINI_API_URL"`
	GeminiAPIKey string `env:"XDULIST_GEMINI_API_KEY"`

	CloudinaryUploadURL string `env:"XDULIST_CLOUDINARY_UPLOAD_URL"`
	CloudinaryPreset    string `env:"XDULIST_CLOUDINARY_PRESET" envDefault:"xdulist_receipts"`

	MailAPIURL    string `env:"XDULIST_MAIL_API_URL" envDefault:"https://send.api.mailtrap.io/api/send"`
	MailAPIKey    string `env:"XDULIST_MAIL_API_KEY"`
	MailFromEmail string `env:"XDULIST_MAIL_FROM_EMAIL" envDefault:"noreply@xdulist.app"`
	MailFromName  string `env:"XDULIST_MAIL_FROM_NAME" envDefault:"xdulist"`

	FreeScanLimit int `env:"XDULIST_FREE_SCAN_LIMIT" envDefault:"5"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}
