package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Config holds every deployment setting the server needs. It is parsed once
// in main and passed into the services; business logic never reads the
// environment directly.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	AWSRegion string `env:"AWS_REGION" envDefault:"us-east-1"`

	TableName   string `env:"DYNAMODB_TABLE" envDefault:"VibeApp"`
	MediaBucket string `env:"MEDIA_S3_BUCKET"`

	CloudFrontDomain string `env:"CLOUDFRONT_DOMAIN"`

	UUIDNamespaceSecretARN    string `env:"UUID_NAMESPACE_SECRET_ARN"`
	TelegramBotTokenSecretARN string `env:"TELEGRAM_BOT_TOKEN_SECRET_ARN"`
	JWTSecretARN              string `env:"JWT_SECRET_ARN"`

	RecordIDLength     int `env:"RECORD_ID_LENGTH" envDefault:"8"`
	MaxProfilesPerUser int `env:"MAX_PROFILES_PER_USER" envDefault:"5"`
	MaxMediaPerProfile int `env:"MAX_MEDIA_PER_PROFILE" envDefault:"5"`

	MaxMediaFileSize  int64    `env:"MAX_MEDIA_FILE_SIZE" envDefault:"10485760"`
	AllowedFormats    []string `env:"MEDIA_ALLOWED_FORMATS" envSeparator:"," envDefault:"jpeg,jpg,png,webp"`
	UploadExpiryHours int      `env:"MEDIA_UPLOAD_EXPIRY_HOURS" envDefault:"1"`

	JWTExpiryDays int `env:"JWT_EXPIRY_DAYS" envDefault:"7"`
}

// Load parses the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the allocation scheme depends on.
func (c *Config) Validate() error {
	if c.TableName == "" {
		return fmt.Errorf("DYNAMODB_TABLE must not be empty")
	}
	if c.RecordIDLength <= 0 || c.RecordIDLength > 22 {
		return fmt.Errorf("record ID length must be between 1 and 22, got %d", c.RecordIDLength)
	}
	if c.MaxProfilesPerUser <= 0 {
		return fmt.Errorf("max profiles per user must be positive, got %d", c.MaxProfilesPerUser)
	}
	if c.MaxMediaPerProfile <= 0 {
		return fmt.Errorf("max media per profile must be positive, got %d", c.MaxMediaPerProfile)
	}
	if c.MaxMediaFileSize <= 0 {
		return fmt.Errorf("max media file size must be positive, got %d", c.MaxMediaFileSize)
	}
	if c.UploadExpiryHours <= 0 {
		return fmt.Errorf("upload expiry must be positive, got %d", c.UploadExpiryHours)
	}
	return nil
}
