package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ModelConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	APIKey         string        `mapstructure:"api_key"`
	JudgeModel     string        `mapstructure:"judge_model"`
	ResponderModel string        `mapstructure:"responder_model"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type Config struct {
	Mode           string   `mapstructure:"mode"`
	Port           int      `mapstructure:"port"`
	PostgresURL    string   `mapstructure:"postgres_url"`
	JWTKey         string   `mapstructure:"jwt_key"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	ResponseTimeout   time.Duration `mapstructure:"response_timeout"`
	VotingTimeout     time.Duration `mapstructure:"voting_timeout"`
	MinPlayers        int           `mapstructure:"min_players"`
	MaxPlayers        int           `mapstructure:"max_players"`
	MaxResponseLength int           `mapstructure:"max_response_length"`
	TrainingBatchSize int           `mapstructure:"training_batch_size"`

	Model ModelConfig `mapstructure:"model"`
}

// Load reads config.yaml if present and lets environment variables
// (RTG_POSTGRES_URL, RTG_MODEL_ENDPOINT, ...) override everything.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("rtg")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 5000)
	// Empty defaults so AutomaticEnv can populate these during
	// Unmarshal even when no config file sets them.
	v.SetDefault("postgres_url", "")
	v.SetDefault("jwt_key", "")
	v.SetDefault("model.endpoint", "")
	v.SetDefault("model.api_key", "")
	v.SetDefault("allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("response_timeout", "90s")
	v.SetDefault("voting_timeout", "30s")
	v.SetDefault("min_players", 1)
	v.SetDefault("max_players", 10)
	v.SetDefault("max_response_length", 500)
	v.SetDefault("training_batch_size", 10)
	v.SetDefault("model.judge_model", "microsoft/Phi-3.5-mini-instruct")
	v.SetDefault("model.responder_model", "Qwen/Qwen2.5-1.5B-Instruct")
	v.SetDefault("model.timeout", "60s")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
