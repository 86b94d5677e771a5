package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	OCR        OCRConfig
	Classifier ClassifierConfig
	Atlas      AtlasConfig
	DSS        DSSConfig
	Storage    StorageConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type OCRConfig struct {
	BaseURL    string
	APIKey     string
	Mode       string
	OutputMode string
	TimeoutSec int
}

type ClassifierConfig struct {
	BackendURL     string
	ProjectID      string
	ModelAssetID   string
	ImagerySource  string
	DateStart      string
	DateEnd        string
	ScaleMeters    int
	TimeoutSec     int
}

type AtlasConfig struct {
	PilotState string
	Version    string
}

type DSSConfig struct {
	Enabled     bool
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

type StorageConfig struct {
	UploadDir string
	BaseURL   string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/fra-atlas")

	viper.SetEnvPrefix("FRA_ATLAS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 52428800)

	viper.SetDefault("sqlite.path", "./data/fra_atlas.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("ocr.baseURL", "https://llmwhisperer-api.us-central.unstract.com/api/v2")
	viper.SetDefault("ocr.mode", "form")
	viper.SetDefault("ocr.outputMode", "layout_preserving")
	viper.SetDefault("ocr.timeoutSec", 300)

	viper.SetDefault("classifier.backendURL", "http://localhost:9090")
	viper.SetDefault("classifier.projectID", "fra-atlas-472812")
	viper.SetDefault("classifier.modelAssetID", "projects/fra-atlas-472812/assets/rf_model_odisha_multiclass_v1")
	viper.SetDefault("classifier.imagerySource", "Sentinel-2 SR Harmonized")
	viper.SetDefault("classifier.dateStart", "2022-01-01")
	viper.SetDefault("classifier.dateEnd", "2022-12-31")
	viper.SetDefault("classifier.scaleMeters", 30)
	viper.SetDefault("classifier.timeoutSec", 60)

	viper.SetDefault("atlas.pilotState", "Odisha")
	viper.SetDefault("atlas.version", "1.0.0")

	viper.SetDefault("dss.enabled", false)
	viper.SetDefault("dss.model", "gpt-4")
	viper.SetDefault("dss.temperature", 0.2)
	viper.SetDefault("dss.maxTokens", 1024)

	viper.SetDefault("storage.uploadDir", "./uploads")
	viper.SetDefault("storage.baseURL", "http://localhost:8000/files")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
