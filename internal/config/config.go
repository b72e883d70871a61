// Package config loads server settings from an optional YAML file and
// ROUTINER_* environment variables. Environment values win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration.
type Config struct {
	Port        string        `yaml:"port"`
	DBPath      string        `yaml:"db_path"`
	LogLevel    string        `yaml:"log_level"`
	LogFormat   string        `yaml:"log_format"`
	SyncTimeout time.Duration `yaml:"sync_timeout"`

	Push   PushConfig   `yaml:"push"`
	Backup BackupConfig `yaml:"backup"`
}

type PushConfig struct {
	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
	Subject         string `yaml:"subject"`
	// ReminderHour is the local hour from which the daily reminder may go out.
	ReminderHour int `yaml:"reminder_hour"`
}

type BackupConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	Bucket        string        `yaml:"bucket"`
	Region        string        `yaml:"region"`
	AccessKey     string        `yaml:"access_key"`
	SecretKey     string        `yaml:"secret_key"`
	Prefix        string        `yaml:"prefix"`
	Passphrase    string        `yaml:"passphrase"`
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retention_days"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:        "8080",
		DBPath:      "routiner.db",
		LogLevel:    "info",
		LogFormat:   "text",
		SyncTimeout: 8 * time.Second,
		Push: PushConfig{
			ReminderHour: 20,
		},
		Backup: BackupConfig{
			Region:        "us-east-1",
			Prefix:        "routiner",
			RetentionDays: 30,
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("ROUTINER_PORT", &cfg.Port)
	str("ROUTINER_DB_PATH", &cfg.DBPath)
	str("ROUTINER_LOG_LEVEL", &cfg.LogLevel)
	str("ROUTINER_LOG_FORMAT", &cfg.LogFormat)
	dur("ROUTINER_SYNC_TIMEOUT", &cfg.SyncTimeout)

	str("ROUTINER_VAPID_PUBLIC_KEY", &cfg.Push.VAPIDPublicKey)
	str("ROUTINER_VAPID_PRIVATE_KEY", &cfg.Push.VAPIDPrivateKey)
	str("ROUTINER_VAPID_SUBJECT", &cfg.Push.Subject)
	num("ROUTINER_REMINDER_HOUR", &cfg.Push.ReminderHour)

	str("ROUTINER_S3_ENDPOINT", &cfg.Backup.Endpoint)
	str("ROUTINER_S3_BUCKET", &cfg.Backup.Bucket)
	str("ROUTINER_S3_REGION", &cfg.Backup.Region)
	str("ROUTINER_S3_ACCESS_KEY", &cfg.Backup.AccessKey)
	str("ROUTINER_S3_SECRET_KEY", &cfg.Backup.SecretKey)
	str("ROUTINER_S3_PREFIX", &cfg.Backup.Prefix)
	str("ROUTINER_BACKUP_PASSPHRASE", &cfg.Backup.Passphrase)
	dur("ROUTINER_BACKUP_INTERVAL", &cfg.Backup.Interval)
	num("ROUTINER_BACKUP_RETENTION_DAYS", &cfg.Backup.RetentionDays)

	return errors.Join(errs...)
}

// Validate rejects out-of-range values.
func (c Config) Validate() error {
	var errs []error
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		errs = append(errs, fmt.Errorf("port %q is not a valid TCP port", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.SyncTimeout <= 0 {
		errs = append(errs, fmt.Errorf("sync_timeout must be positive, got %s", c.SyncTimeout))
	}
	if c.Push.ReminderHour < 0 || c.Push.ReminderHour > 23 {
		errs = append(errs, fmt.Errorf("reminder_hour must be 0-23, got %d", c.Push.ReminderHour))
	}
	if (c.Push.VAPIDPublicKey == "") != (c.Push.VAPIDPrivateKey == "") {
		errs = append(errs, errors.New("vapid public and private keys must be set together"))
	}
	if c.Backup.Interval < 0 {
		errs = append(errs, fmt.Errorf("backup interval must not be negative, got %s", c.Backup.Interval))
	}
	if c.Backup.Interval > 0 && c.Backup.Interval < time.Minute {
		errs = append(errs, fmt.Errorf("backup interval must be at least 1m, got %s", c.Backup.Interval))
	}
	if c.Backup.RetentionDays < 1 {
		errs = append(errs, fmt.Errorf("backup retention_days must be at least 1, got %d", c.Backup.RetentionDays))
	}
	return errors.Join(errs...)
}
