package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	LogFile     string `env:"LOG_FILE"`

	LLMProvider          string `env:"LLM_PROVIDER" envDefault:"gemini"`
	GeminiAPIKey         string `env:"GEMINI_API_KEY"`
	LLMAPIKey            string `env:"LLM_API_KEY"`
	LLMBaseURL           string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	// Vacios: llm.NewClients elige el modelo por proveedor.
	LLMModel             string `env:"LLM_MODEL"`
	TitleModel           string `env:"TITLE_MODEL"`
	SystemPrompt         string `env:"SYSTEM_PROMPT" envDefault:"You are a helpful AI assistant."`
	ChatNameSystemPrompt string `env:"CHAT_NAME_SYSTEM_PROMPT" envDefault:"Generate a concise, descriptive title for this chat based on the user's message. Keep it 3-6 words maximum."`
	ChatContextWindow    int    `env:"CHAT_CONTEXT_WINDOW" envDefault:"20"`
	MaxOutputTokens      int    `env:"LLM_MAX_OUTPUT_TOKENS" envDefault:"1000"`

	AIRateLimit         int `env:"AI_RATE_LIMIT" envDefault:"30"`
	AIRateWindowSeconds int `env:"AI_RATE_WINDOW_SECONDS" envDefault:"60"`

	RedisAddr       string `env:"REDIS_ADDR"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
	RealtimeChannel string `env:"REALTIME_CHANNEL" envDefault:"chat_changes"`

	JWTSecret string `env:"JWT_SECRET"`

	// Solo para cmd/cli_chat.
	OwnerID string `env:"OWNER_ID" envDefault:"cli-user"`
}

// IsProduction indica si el servicio corre en modo produccion.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
