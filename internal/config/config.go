// Package config loads client and server settings. Values come from defaults,
// then an optional YAML file, then the environment. A .env file in the
// working directory is read into the environment first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Log struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

type Client struct {
	DashboardURL    string        `yaml:"dashboard_url" validate:"required,url"`
	InventoryURL    string        `yaml:"inventory_url" validate:"required,url"`
	RequestsURL     string        `yaml:"requests_url" validate:"required,url"`
	AuthURL         string        `yaml:"auth_url" validate:"required,url"`
	HealthAddr      string        `yaml:"health_addr" validate:"required"`
	Timeout         time.Duration `yaml:"timeout" validate:"gt=0"`
	CredentialStore string        `yaml:"credential_store" validate:"oneof=file redis memory"`
	CredentialFile  string        `yaml:"credential_file" validate:"required_if=CredentialStore file"`
	RedisAddr       string        `yaml:"redis_addr" validate:"required_if=CredentialStore redis"`
	Profile         string        `yaml:"profile" validate:"required"`
	FreshnessWindow time.Duration `yaml:"freshness_window" validate:"gt=0"`
	Log             Log           `yaml:"log"`
}

type Admin struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Email    string `yaml:"email"`
}

type Server struct {
	HTTPAddr     string        `yaml:"http_addr" validate:"required"`
	GRPCAddr     string        `yaml:"grpc_addr" validate:"required"`
	DBDriver     string        `yaml:"db_driver" validate:"oneof=mysql sqlite"`
	DSN          string        `yaml:"dsn" validate:"required"`
	JWTSecret    string        `yaml:"jwt_secret" validate:"required,min=16"`
	TokenTTL     time.Duration `yaml:"token_ttl" validate:"gt=0"`
	CORSOrigins  []string      `yaml:"cors_origins"`
	RabbitURL    string        `yaml:"rabbitmq_url"`
	Exchange     string        `yaml:"exchange" validate:"required_with=RabbitURL"`
	EventWorkers int           `yaml:"event_workers" validate:"gte=1"`
	EventQueue   int           `yaml:"event_queue" validate:"gte=1"`
	Admin        Admin         `yaml:"admin"`
	Log          Log           `yaml:"log"`
}

const defaultBaseURL = "http://localhost:8000"

func DefaultClient() Client {
	credFile := filepath.Join(".stockdesk", "credential")
	if home, err := os.UserHomeDir(); err == nil {
		credFile = filepath.Join(home, ".stockdesk", "credential")
	}
	return Client{
		DashboardURL:    defaultBaseURL,
		InventoryURL:    defaultBaseURL,
		RequestsURL:     defaultBaseURL,
		AuthURL:         defaultBaseURL,
		HealthAddr:      "localhost:50051",
		Timeout:         10 * time.Second,
		CredentialStore: "file",
		CredentialFile:  credFile,
		RedisAddr:       "localhost:6379",
		Profile:         "default",
		FreshnessWindow: 15 * time.Minute,
		Log:             Log{Level: "warn", Format: "console"},
	}
}

func DefaultServer() Server {
	return Server{
		HTTPAddr:     ":8000",
		GRPCAddr:     ":50051",
		DBDriver:     "sqlite",
		DSN:          "stockdesk.db",
		TokenTTL:     20 * time.Minute,
		CORSOrigins:  []string{"http://localhost:3000"},
		Exchange:     "stockdesk.events",
		EventWorkers: 4,
		EventQueue:   1024,
		Log:          Log{Level: "info", Format: "console"},
	}
}

// LoadClient reads the client configuration. path may be empty.
func LoadClient(path string) (Client, error) {
	cfg := DefaultClient()
	if err := load(path, &cfg); err != nil {
		return Client{}, err
	}

	var errs []error
	if base := os.Getenv("STOCKDESK_BASE_URL"); base != "" {
		cfg.DashboardURL, cfg.InventoryURL, cfg.RequestsURL, cfg.AuthURL = base, base, base, base
	}
	envString(&cfg.DashboardURL, "STOCKDESK_DASHBOARD_URL")
	envString(&cfg.InventoryURL, "STOCKDESK_INVENTORY_URL")
	envString(&cfg.RequestsURL, "STOCKDESK_REQUESTS_URL")
	envString(&cfg.AuthURL, "STOCKDESK_AUTH_URL")
	envString(&cfg.HealthAddr, "STOCKDESK_HEALTH_ADDR")
	errs = append(errs, envDuration(&cfg.Timeout, "STOCKDESK_TIMEOUT"))
	envString(&cfg.CredentialStore, "STOCKDESK_CREDENTIAL_STORE")
	envString(&cfg.CredentialFile, "STOCKDESK_CREDENTIAL_FILE")
	envString(&cfg.RedisAddr, "REDIS_ADDR")
	envString(&cfg.Profile, "STOCKDESK_PROFILE")
	errs = append(errs, envDuration(&cfg.FreshnessWindow, "STOCKDESK_FRESHNESS_WINDOW"))
	envLog(&cfg.Log)

	if err := errors.Join(errs...); err != nil {
		return Client{}, err
	}
	return cfg, validate(cfg)
}

// LoadServer reads the reference server configuration. path may be empty.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()
	if err := load(path, &cfg); err != nil {
		return Server{}, err
	}

	var errs []error
	envString(&cfg.HTTPAddr, "HTTP_ADDR")
	envString(&cfg.GRPCAddr, "GRPC_ADDR")
	envString(&cfg.DBDriver, "DB_DRIVER")
	envString(&cfg.DSN, "DB_DSN")
	envString(&cfg.JWTSecret, "JWT_SECRET")
	errs = append(errs, envDuration(&cfg.TokenTTL, "TOKEN_TTL"))
	envList(&cfg.CORSOrigins, "CORS_ORIGINS")
	envString(&cfg.RabbitURL, "RABBITMQ_URL")
	envString(&cfg.Exchange, "RABBITMQ_EXCHANGE")
	errs = append(errs, envInt(&cfg.EventWorkers, "EVENT_WORKERS"))
	errs = append(errs, envInt(&cfg.EventQueue, "EVENT_QUEUE"))
	envString(&cfg.Admin.Username, "ADMIN_USERNAME")
	envString(&cfg.Admin.Password, "ADMIN_PASSWORD")
	envString(&cfg.Admin.Email, "ADMIN_EMAIL")
	envLog(&cfg.Log)

	if err := errors.Join(errs...); err != nil {
		return Server{}, err
	}
	return cfg, validate(cfg)
}

func load(path string, dst any) error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
	}
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func validate(cfg any) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func envInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func envLog(l *Log) {
	envString(&l.Level, "LOG_LEVEL")
	envString(&l.Format, "LOG_FORMAT")
}
