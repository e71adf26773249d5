package internal

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prappser/prappser_upload/internal/storage"
	"github.com/prappser/prappser_upload/internal/upload"
	"github.com/spf13/viper"
)

const (
	DefaultConfigPath = "files/config.yaml"
	envPrefix         = "PRAPPSER_UPLOAD"
)

type Config struct {
	Server   ServerConfig          `mapstructure:"server"`
	Storage  storage.BackendConfig `mapstructure:"storage"`
	Upload   upload.Config         `mapstructure:"upload"`
	Database DatabaseConfig        `mapstructure:"database"`
	Log      LogConfig             `mapstructure:"log"`
}

type ServerConfig struct {
	Addr               string        `mapstructure:"addr"`
	AllowedOrigins     []string      `mapstructure:"allowedOrigins"`
	MaxRequestBodySize int           `mapstructure:"maxRequestBodySize"`
	ReadTimeout        time.Duration `mapstructure:"readTimeout"`
	WriteTimeout       time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout        time.Duration `mapstructure:"idleTimeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdownTimeout"`
}

type DatabaseConfig struct {
	// Driver is "sqlite3", "postgres" or "none".
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Pretty     bool   `mapstructure:"pretty"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"maxSizeMb"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("server.maxRequestBodySize", 64*1024*1024)
	v.SetDefault("server.readTimeout", 60*time.Second)
	v.SetDefault("server.writeTimeout", 5*time.Minute)
	v.SetDefault("server.idleTimeout", 2*time.Minute)
	v.SetDefault("server.shutdownTimeout", 30*time.Second)

	v.SetDefault("storage.type", string(storage.StorageTypeLocal))
	v.SetDefault("storage.localPath", "files/uploads")
	v.SetDefault("storage.s3Endpoint", "")
	v.SetDefault("storage.s3Bucket", "prappser-upload")
	v.SetDefault("storage.s3AccessKey", "")
	v.SetDefault("storage.s3SecretKey", "")
	v.SetDefault("storage.s3Region", "")
	v.SetDefault("storage.s3UseSSL", true)
	v.SetDefault("storage.s3TempDir", "")

	v.SetDefault("upload.verifyFingerprint", true)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "files/prappser_upload.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.maxSizeMb", 100)
	v.SetDefault("log.maxBackups", 3)
	v.SetDefault("log.maxAgeDays", 28)
}

// LoadConfig reads path when it exists and applies PRAPPSER_UPLOAD_*
// environment overrides, e.g. PRAPPSER_UPLOAD_STORAGE_LOCALPATH.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}
