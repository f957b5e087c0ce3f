// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	TargetDrive = "drive"
	TargetS3    = "s3"
)

type Config struct {
	Kaggle   KaggleConfig
	Drive    DriveConfig
	S3       S3Config
	Upload   UploadConfig
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Log      LogConfig
}

// KaggleConfig points the fetcher at the dataset host.
type KaggleConfig struct {
	Username    string
	Key         string
	BaseURL     string
	Competition string
	// Timeout of zero leaves the HTTP client without a deadline.
	Timeout time.Duration
}

// DriveConfig controls the Google Drive uploader.
type DriveConfig struct {
	CredentialsFile string
	FolderID        string
	FolderPath      string
	Endpoint        string
}

// S3Config holds the connection info for an S3-compatible bucket.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
}

type UploadConfig struct {
	Target string
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

// DefaultAllowedOrigins lists the browser origins the API accepts when
// SERVER_ALLOWED_ORIGINS is unset. "*" has to be opted into explicitly.
func DefaultAllowedOrigins() []string {
	return []string{"http://localhost:3000", "http://127.0.0.1:3000"}
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns a libpq style connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// URL returns a postgres:// connection URL.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	TransferTTLSeconds int
}

type LogConfig struct {
	Level string
}

// SetDefaults registers every documented default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("KAGGLE_USERNAME", "")
	v.SetDefault("KAGGLE_KEY", "")
	v.SetDefault("KAGGLE_BASE_URL", "https://www.kaggle.com/api/v1/competitions/data/download-all")
	v.SetDefault("KAGGLE_COMPETITION", "m5-forecasting-accuracy")
	v.SetDefault("KAGGLE_TIMEOUT_SECONDS", 0)
	v.SetDefault("DRIVE_CREDENTIALS_FILE", "credentials/service_account.json")
	v.SetDefault("DRIVE_FOLDER_ID", "")
	v.SetDefault("DRIVE_FOLDER_PATH", "")
	v.SetDefault("DRIVE_ENDPOINT", "")
	v.SetDefault("UPLOAD_TARGET", TargetDrive)
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_PREFIX", "datasets")
	v.SetDefault("S3_USE_SSL", true)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 0)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", DefaultAllowedOrigins())
	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "relay")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TRANSFER_TTL_SECONDS", 3600)
	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads .env (if present) and the process environment into a Config.
func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Kaggle: KaggleConfig{
			Username:    v.GetString("KAGGLE_USERNAME"),
			Key:         v.GetString("KAGGLE_KEY"),
			BaseURL:     strings.TrimSuffix(v.GetString("KAGGLE_BASE_URL"), "/"),
			Competition: v.GetString("KAGGLE_COMPETITION"),
			Timeout:     time.Duration(v.GetInt("KAGGLE_TIMEOUT_SECONDS")) * time.Second,
		},
		Drive: DriveConfig{
			CredentialsFile: v.GetString("DRIVE_CREDENTIALS_FILE"),
			FolderID:        v.GetString("DRIVE_FOLDER_ID"),
			FolderPath:      v.GetString("DRIVE_FOLDER_PATH"),
			Endpoint:        v.GetString("DRIVE_ENDPOINT"),
		},
		S3: S3Config{
			Endpoint:  v.GetString("S3_ENDPOINT"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			Bucket:    v.GetString("S3_BUCKET"),
			Region:    v.GetString("S3_REGION"),
			Prefix:    v.GetString("S3_PREFIX"),
			UseSSL:    v.GetBool("S3_USE_SSL"),
		},
		Upload: UploadConfig{
			Target: strings.ToLower(strings.TrimSpace(v.GetString("UPLOAD_TARGET"))),
		},
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Enabled:  v.GetBool("DB_ENABLED"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			Enabled:            v.GetBool("CACHE_ENABLED"),
			RedisURL:           v.GetString("REDIS_URL"),
			RedisHost:          v.GetString("REDIS_HOST"),
			RedisPort:          v.GetString("REDIS_PORT"),
			RedisPassword:      v.GetString("REDIS_PASSWORD"),
			RedisDB:            v.GetInt("REDIS_DB"),
			TransferTTLSeconds: v.GetInt("CACHE_TRANSFER_TTL_SECONDS"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}
}

// Validate reports every required value missing for the selected upload target.
func (c *Config) Validate() error {
	var errs []error

	if c.Kaggle.Username == "" || c.Kaggle.Key == "" {
		errs = append(errs, errors.New("KAGGLE_USERNAME and KAGGLE_KEY must be set"))
	}
	if c.Kaggle.BaseURL == "" {
		errs = append(errs, errors.New("KAGGLE_BASE_URL must not be empty"))
	}

	switch c.Upload.Target {
	case TargetDrive:
		if c.Drive.CredentialsFile == "" {
			errs = append(errs, errors.New("DRIVE_CREDENTIALS_FILE must be set"))
		}
	case TargetS3:
		if c.S3.Endpoint == "" || c.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_ENDPOINT and S3_BUCKET must be set"))
		}
		if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			errs = append(errs, errors.New("S3_ACCESS_KEY and S3_SECRET_KEY must be set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown UPLOAD_TARGET %q", c.Upload.Target))
	}

	return errors.Join(errs...)
}
