package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Port          string `env:"PORT" envDefault:"8080"`
	AppURL        string `env:"APP_URL" envDefault:"http://localhost:8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	SessionSecret string `env:"SESSION_SECRET,required"`
	NodeID        uint16 `env:"NODE_ID" envDefault:"1"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	AutoMigrate   bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminFullName string `env:"ADMIN_FULL_NAME" envDefault:"Platform Admin"`

	Flutterwave Flutterwave
	Stripe      Stripe
	SMTP        SMTP
	Kafka       Kafka
	Jobs        Jobs
	Limits      Limits
}

type Flutterwave struct {
	SecretKey   string        `env:"FLUTTERWAVE_SECRET_KEY"`
	WebhookHash string        `env:"FLUTTERWAVE_WEBHOOK_HASH"`
	BaseURL     string        `env:"FLUTTERWAVE_BASE_URL" envDefault:"https://api.flutterwave.com/v3"`
	Timeout     time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"15s"`
}

type Stripe struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

type SMTP struct {
	Host     string `env:"SMTP_HOST"`
	Port     string `env:"SMTP_PORT" envDefault:"587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"MAIL_FROM"`
}

type Kafka struct {
	BootstrapServers string `env:"KAFKA_BOOTSTRAP_SERVERS"`
	LedgerTopic      string `env:"KAFKA_LEDGER_TOPIC" envDefault:"ledger_events"`
}

type Jobs struct {
	WithdrawalExpiryCron   string        `env:"WITHDRAWAL_EXPIRY_CRON" envDefault:"0 * * * *"`
	SubscriptionExpiryCron string        `env:"SUBSCRIPTION_EXPIRY_CRON" envDefault:"*/15 * * * *"`
	WithdrawalStaleAfter   time.Duration `env:"WITHDRAWAL_STALE_AFTER" envDefault:"336h"`
}

// Limits bound a single withdrawal per earner role.
type Limits struct {
	TutorMin      decimal.Decimal `env:"WITHDRAWAL_TUTOR_MIN" envDefault:"10"`
	TutorMax      decimal.Decimal `env:"WITHDRAWAL_TUTOR_MAX" envDefault:"5000"`
	MentorMin     decimal.Decimal `env:"WITHDRAWAL_MENTOR_MIN" envDefault:"10"`
	MentorMax     decimal.Decimal `env:"WITHDRAWAL_MENTOR_MAX" envDefault:"5000"`
	ResearcherMin decimal.Decimal `env:"WITHDRAWAL_RESEARCHER_MIN" envDefault:"20"`
	ResearcherMax decimal.Decimal `env:"WITHDRAWAL_RESEARCHER_MAX" envDefault:"10000"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn(".env file not found, reading from system environment variables")
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) validate() error {
	var errs []error
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case StorageDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	l := c.Limits
	for role, pair := range map[string][2]decimal.Decimal{
		"tutor":      {l.TutorMin, l.TutorMax},
		"mentor":     {l.MentorMin, l.MentorMax},
		"researcher": {l.ResearcherMin, l.ResearcherMax},
	} {
		if !pair[0].IsPositive() || pair[0].GreaterThan(pair[1]) {
			errs = append(errs, fmt.Errorf("%s withdrawal limits must satisfy 0 < min <= max", role))
		}
	}
	return errors.Join(errs...)
}

func (c Config) LogrusLevel() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
