package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Raindrop RaindropConfig `mapstructure:"raindrop"`
	Export   ExportConfig   `mapstructure:"export"`
	Task     TaskConfig     `mapstructure:"task"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains authentication settings. The API key is never stored
// in configuration; only its bcrypt hash is (generate one with cmd/keygen).
type AuthConfig struct {
	APIKeyHash                  string `mapstructure:"api_key_hash" validate:"required"`
	JWTSecret                   string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
}

// LLMConfig contains settings for the flashcard generation backend.
// An empty API key disables card generation.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"`
	ModelName         string `mapstructure:"model_name" validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"omitempty,gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"omitempty,gt=0"`
}

// RaindropConfig contains settings for the Raindrop.io highlight import.
// An empty token disables the integration.
type RaindropConfig struct {
	Token               string `mapstructure:"token"`
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds" validate:"omitempty,gt=0"`
}

// ExportConfig contains settings for the Obsidian markdown export.
// An empty vault path disables the export endpoints.
type ExportConfig struct {
	VaultPath       string `mapstructure:"vault_path"`
	LearningsFolder string `mapstructure:"learnings_folder"`
}

// TaskConfig contains settings for the background task runner.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count" validate:"omitempty,gt=0"`
	QueueSize           int `mapstructure:"queue_size" validate:"omitempty,gt=0"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"omitempty,gt=0"`
}
