package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort   string `env:"HTTP_PORT" envDefault:"8080"`
	UILanguage string `env:"UI_LANGUAGE" envDefault:"fr"`
	ChatPage   string `env:"CHAT_PAGE" envDefault:"ai-chat.html"`
	HomePage   string `env:"HOME_PAGE" envDefault:"/"`

	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"memory"`
	KVPrefix       string `env:"KV_PREFIX" envDefault:"chatshell:"`
	PebblePath     string `env:"PEBBLE_PATH" envDefault:"data/kv"`
	DatabaseURL    string `env:"DATABASE_URL"`
	RedisAddr      string `env:"REDIS_ADDR"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`

	LLMProvider  string        `env:"LLM_PROVIDER" envDefault:"placeholder"`
	LLMAPIKey    string        `env:"LLM_API_KEY"`
	LLMBaseURL   string        `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel     string        `env:"LLM_MODEL" envDefault:"gpt-3.5-turbo"`
	ReplyDelay   time.Duration `env:"REPLY_DELAY" envDefault:"1s"`
	ReplyTimeout time.Duration `env:"REPLY_TIMEOUT" envDefault:"0s"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID" envDefault:"your_github_client_id"`
	GitHubRedirectURI  string `env:"GITHUB_REDIRECT_URI" envDefault:"http://localhost:3000/callback"`
	GitHubAuthorizeURL string `env:"GITHUB_AUTHORIZE_URL" envDefault:"https://github.com/login/oauth/authorize"`
	GitHubScope        string `env:"GITHUB_SCOPE" envDefault:"user"`
	AuthExchangeURL    string `env:"AUTH_EXCHANGE_URL" envDefault:"http://localhost:3000/api/auth/github/callback"`
	ProfileURL         string `env:"PROFILE_URL" envDefault:"https://api.github.com/user"`

	AuthLocalEnabled    bool          `env:"AUTH_LOCAL_ENABLED" envDefault:"false"`
	JWTSecret           string        `env:"JWT_SECRET"`
	JWTAccessTTLMinutes int           `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"60"`
	LoginMaxAttempts    int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginWindow         time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
