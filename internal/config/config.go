package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by CHATRELAY_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CHATRELAY_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// AIProvider returns the configured AI chat provider.
// Valid values: openrouter, openai, mock. Defaults to "openrouter".
func AIProvider() string {
	p := os.Getenv("AI_PROVIDER")
	if p == "" {
		return "openrouter"
	}
	return p
}

func OpenRouterServiceURL() string {
	return os.Getenv("OPENROUTER_SERVICE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// AIAPIKey returns the API key for the configured AI provider.
func AIAPIKey() string {
	switch AIProvider() {
	case "openai":
		return OpenAIAPIKey()
	case "mock":
		return ""
	default:
		return os.Getenv("OPENROUTER_API_KEY")
	}
}

// AITimeoutSeconds returns the per-request timeout for the upstream AI call.
// Defaults to 60 if not set.
func AITimeoutSeconds() int {
	t, err := strconv.Atoi(os.Getenv("AI_TIMEOUT_SECONDS"))
	if err != nil || t <= 0 {
		return 60
	}
	return t
}

// Base platform configuration. Public platforms serve anonymous end users
// through a shared bot; private platforms are dedicated tenant integrations.

func PublicDefaultModel() string {
	m := os.Getenv("PUBLIC_DEFAULT_MODEL")
	if m == "" {
		return "google/gemini-2.0-flash-001"
	}
	return m
}

func PublicModels() []string {
	return splitList(os.Getenv("PUBLIC_MODELS"), PublicDefaultModel())
}

// PublicRateLimit returns the public platform rate limit in requests per
// minute. Defaults to 20.
func PublicRateLimit() int {
	return intEnv("PUBLIC_RATE_LIMIT", 20)
}

func PublicMaxHistory() int {
	return intEnv("PUBLIC_MAX_HISTORY", 10)
}

func PrivateDefaultModel() string {
	m := os.Getenv("PRIVATE_DEFAULT_MODEL")
	if m == "" {
		return "openai/gpt-4o"
	}
	return m
}

func PrivateModels() []string {
	return splitList(os.Getenv("PRIVATE_MODELS"), PrivateDefaultModel())
}

// PrivateRateLimit returns the private platform rate limit in requests per
// minute. Defaults to 60.
func PrivateRateLimit() int {
	return intEnv("PRIVATE_RATE_LIMIT", 60)
}

func PrivateMaxHistory() int {
	return intEnv("PRIVATE_MAX_HISTORY", 30)
}

// PublicPlatforms returns the platform identifiers mapped to the public base
// config for anonymous traffic. Defaults to "telegram".
func PublicPlatforms() []string {
	return splitList(os.Getenv("PUBLIC_PLATFORMS"), "telegram")
}

// PrivatePlatforms returns the platform identifiers mapped to the private
// base config. Defaults to "internal".
func PrivatePlatforms() []string {
	return splitList(os.Getenv("PRIVATE_PLATFORMS"), "internal")
}

// UnknownPlatformPolicy controls what happens when a platform identifier has
// no mapping and no tenant record: "fallback" uses the private base config
// and logs a warning, "strict" rejects the request.
// Defaults to "fallback".
func UnknownPlatformPolicy() string {
	p := os.Getenv("UNKNOWN_PLATFORM_POLICY")
	if p != "strict" {
		return "fallback"
	}
	return p
}

// SessionTimeoutMinutes returns the idle timeout after which the sweeper
// removes a session. Defaults to 30.
func SessionTimeoutMinutes() int {
	return intEnv("SESSION_TIMEOUT_MINUTES", 30)
}

// SweepIntervalMinutes returns how often the idle sweeper runs. Defaults to 5.
func SweepIntervalMinutes() int {
	return intEnv("SWEEP_INTERVAL_MINUTES", 5)
}

// RateLimitRPS returns requests per second limit for the per-IP HTTP
// middleware. Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for the per-IP HTTP middleware.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	return intEnv("RATE_LIMIT_BURST", 20)
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

func intEnv(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func splitList(raw, def string) []string {
	if raw == "" {
		raw = def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
