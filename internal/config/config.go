package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// Config contains runtime configuration required by the service.
type Config struct {
	Port string `yaml:"port"`

	// GCP identifiers for Firestore and Cloud Tasks.
	ProjectID     string `yaml:"project_id"`
	QueueLocation string `yaml:"queue_location"`
	QueueID       string `yaml:"queue_id"`

	StoreBackend string `yaml:"store_backend"`
	Collection   string `yaml:"collection"`
	DBURL        string `yaml:"db_url"`
	SQLitePath   string `yaml:"sqlite_path"`
	RedisURL     string `yaml:"redis_url"`

	QueueBackend          string `yaml:"queue_backend"`
	LocalQueueWorkers     int    `yaml:"local_queue_workers"`
	LocalQueueMaxAttempts int    `yaml:"local_queue_max_attempts"`

	// SendSMSURL is the public URL of POST /send-sms that queued tasks target.
	SendSMSURL    string `yaml:"send_sms_url"`
	DispatchToken string `yaml:"dispatch_token"`

	SolapiAPIKey      string `yaml:"solapi_api_key"`
	SolapiAPISecret   string `yaml:"solapi_api_secret"`
	SolapiSender      string `yaml:"solapi_sender"`
	SolapiBaseURL     string `yaml:"solapi_base_url"`
	GatewayRatePerSec int    `yaml:"gateway_rate_per_sec"`
	MessageTemplate   string `yaml:"message_template"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Defaults returns the values used when neither file nor environment sets them.
func Defaults() Config {
	return Config{
		Port:                  "8080",
		ProjectID:             "prism-fin",
		QueueLocation:         "us-central1",
		QueueID:               "sms-queue",
		StoreBackend:          "firestore",
		Collection:            "submissions",
		SQLitePath:            "data/submissions.db",
		QueueBackend:          "cloudtasks",
		LocalQueueWorkers:     4,
		LocalQueueMaxAttempts: 5,
		GatewayRatePerSec:     10,
		LogLevel:              "info",
		LogFormat:             "json",
	}
}

// Load reads defaults, then CONFIG_FILE (YAML) if set, then environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("yaml unmarshal: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.StoreBackend = strings.ToLower(cfg.StoreBackend)
	cfg.QueueBackend = strings.ToLower(cfg.QueueBackend)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"PORT":                 &cfg.Port,
		"GCP_PROJECT":          &cfg.ProjectID,
		"QUEUE_LOCATION":       &cfg.QueueLocation,
		"QUEUE_ID":             &cfg.QueueID,
		"STORE_BACKEND":        &cfg.StoreBackend,
		"FIRESTORE_COLLECTION": &cfg.Collection,
		"DB_URL":               &cfg.DBURL,
		"SQLITE_PATH":          &cfg.SQLitePath,
		"REDIS_URL":            &cfg.RedisURL,
		"QUEUE_BACKEND":        &cfg.QueueBackend,
		"SEND_SMS_URL":         &cfg.SendSMSURL,
		"DISPATCH_TOKEN":       &cfg.DispatchToken,
		"SOLAPI_API_KEY":       &cfg.SolapiAPIKey,
		"SOLAPI_API_SECRET":    &cfg.SolapiAPISecret,
		"SOLAPI_SENDER":        &cfg.SolapiSender,
		"SOLAPI_BASE_URL":      &cfg.SolapiBaseURL,
		"MESSAGE_TEMPLATE":     &cfg.MessageTemplate,
		"LOG_LEVEL":            &cfg.LogLevel,
		"LOG_FORMAT":           &cfg.LogFormat,
	}
	for env, dst := range str {
		if v, ok := os.LookupEnv(env); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"GATEWAY_RATE_PER_SEC":     &cfg.GatewayRatePerSec,
		"LOCAL_QUEUE_WORKERS":      &cfg.LocalQueueWorkers,
		"LOCAL_QUEUE_MAX_ATTEMPTS": &cfg.LocalQueueMaxAttempts,
	}
	for env, dst := range ints {
		v := strings.TrimSpace(os.Getenv(env))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer", env)
		}
		*dst = n
	}
	return nil
}

// Validate checks the values each selected backend needs.
func (c Config) Validate() error {
	c.StoreBackend = strings.ToLower(c.StoreBackend)
	c.QueueBackend = strings.ToLower(c.QueueBackend)

	switch c.StoreBackend {
	case "firestore":
		if c.ProjectID == "" {
			return errors.New("GCP_PROJECT required")
		}
	case "postgres":
		if c.DBURL == "" {
			return errors.New("DB_URL required")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH required")
		}
	case "redis":
		if c.RedisURL == "" {
			return errors.New("REDIS_URL required")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be one of firestore, postgres, sqlite, redis, memory")
	}

	switch c.QueueBackend {
	case "cloudtasks":
		if c.ProjectID == "" || c.QueueLocation == "" || c.QueueID == "" {
			return errors.New("GCP_PROJECT, QUEUE_LOCATION and QUEUE_ID required")
		}
	case "local":
	default:
		return errors.New("QUEUE_BACKEND must be cloudtasks or local")
	}

	// SEND_SMS_URL is set after the first deploy; the local queue can target itself.
	if c.SendSMSURL == "" && c.QueueBackend == "cloudtasks" {
		return errors.New("SEND_SMS_URL required")
	}
	return nil
}

// DispatchURL returns the URL queued tasks target.
func (c Config) DispatchURL() string {
	if c.SendSMSURL != "" {
		return c.SendSMSURL
	}
	return "http://127.0.0.1:" + c.Port + "/send-sms"
}
