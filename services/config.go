package services

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	AI       AIConfig
	Pipeline PipelineConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Driver       string // postgres or sqlite
	URL          string
	Seed         bool
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

type AIConfig struct {
	GeminiAPIKey string
	Model        string
}

type PipelineConfig struct {
	SweepInterval       time.Duration
	SweepBatchSize      int
	MaxConcurrentRuns   int
	MinTranscriptLength int
}

// LoadConfig loads configuration from environment variables and config files
func LoadConfig() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("gemini.model", "gemini-2.5-flash")
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.url", "")
	viper.SetDefault("database.seed", "true")
	viper.SetDefault("database.log_level", "silent")
	viper.SetDefault("database.max_idle_conns", "10")
	viper.SetDefault("database.max_open_conns", "100")
	viper.SetDefault("pipeline.sweep_interval", "30s")
	viper.SetDefault("pipeline.sweep_batch_size", "20")
	viper.SetDefault("pipeline.max_concurrent_runs", "4")
	viper.SetDefault("pipeline.min_transcript_length", "200")

	// Map environment variables to config keys
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("gemini.model", "GEMINI_MODEL")
	viper.BindEnv("database.driver", "DATABASE_DRIVER")
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("database.seed", "DATABASE_SEED")
	viper.BindEnv("database.log_level", "DATABASE_LOG_LEVEL")
	viper.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	viper.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")
	viper.BindEnv("pipeline.sweep_interval", "PIPELINE_SWEEP_INTERVAL")
	viper.BindEnv("pipeline.sweep_batch_size", "PIPELINE_SWEEP_BATCH_SIZE")
	viper.BindEnv("pipeline.max_concurrent_runs", "PIPELINE_MAX_CONCURRENT_RUNS")
	viper.BindEnv("pipeline.min_transcript_length", "PIPELINE_MIN_TRANSCRIPT_LENGTH")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("Config file not found, using defaults and environment variables")
		} else {
			slog.Error("Error reading config file", "error", err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
		},
		Database: DatabaseConfig{
			Driver:       viper.GetString("database.driver"),
			URL:          viper.GetString("database.url"),
			Seed:         viper.GetBool("database.seed"),
			LogLevel:     viper.GetString("database.log_level"),
			MaxIdleConns: viper.GetInt("database.max_idle_conns"),
			MaxOpenConns: viper.GetInt("database.max_open_conns"),
		},
		AI: AIConfig{
			GeminiAPIKey: viper.GetString("gemini.api_key"),
			Model:        viper.GetString("gemini.model"),
		},
		Pipeline: PipelineConfig{
			SweepInterval:       viper.GetDuration("pipeline.sweep_interval"),
			SweepBatchSize:      viper.GetInt("pipeline.sweep_batch_size"),
			MaxConcurrentRuns:   viper.GetInt("pipeline.max_concurrent_runs"),
			MinTranscriptLength: viper.GetInt("pipeline.min_transcript_length"),
		},
	}
}
