// Package config loads server and loop settings from flags, env vars and
// an optional .env file.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	LLM     LLMConfig
	Loop    LoopConfig
	Sandbox SandboxConfig
	Archive ArchiveConfig

	StatePath string // file backend; STATE_PG_DSN switches to Postgres
}

type LLMConfig struct {
	Provider string // groq | gemini | scripted
	Model    string
	APIKey   string
	RPS      float64
	Retries  int
}

type LoopConfig struct {
	MaxRounds   int
	Threshold   float64
	RetainCap   int
	MaxRepairs  int
	InitRetries int
	Window      int
	PromptDir   string // optional role template overrides
}

type SandboxConfig struct {
	Command []string
	Timeout time.Duration
}

type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func lookup(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8082", "server port")
	flag.Parse()

	if envPort := lookup("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := lookup("APP_ENV")
	if env == "" {
		env = "local"
	}

	return &Config{
		Port:      *port,
		Env:       env,
		LLM:       loadLLM(),
		Loop:      loadLoop(),
		Sandbox:   loadSandbox(),
		Archive:   loadArchive(env),
		StatePath: firstNonEmpty(lookup("STATE_PATH"), "data/runs.json"),
	}, nil
}

// Exported *FromEnv variants let binaries with their own flag sets reuse
// the env resolution without config.Load's flag.Parse.

func LLMFromEnv() LLMConfig         { return loadLLM() }
func LoopFromEnv() LoopConfig       { return loadLoop() }
func SandboxFromEnv() SandboxConfig { return loadSandbox() }
func StatePathFromEnv() string      { return firstNonEmpty(lookup("STATE_PATH"), "data/runs.json") }

func loadLLM() LLMConfig {
	return LLMConfig{
		Provider: firstNonEmpty(strings.ToLower(lookup("LLM_PROVIDER")), "groq"),
		Model:    lookup("LLM_MODEL"),
		APIKey:   firstNonEmpty(lookup("LLM_API_KEY"), lookup("GROQ_API_KEY"), lookup("GEMINI_API_KEY")),
		RPS:      envFloat("LLM_RPS", 1),
		Retries:  envInt("LLM_RETRIES", 3),
	}
}

func loadLoop() LoopConfig {
	return LoopConfig{
		MaxRounds:   envInt("LOOP_MAX_ROUNDS", 10),
		Threshold:   envFloat("LOOP_THRESHOLD", 0),
		RetainCap:   envInt("LOOP_RETAIN", 5),
		MaxRepairs:  envInt("LOOP_REPAIRS", 3),
		InitRetries: envInt("LOOP_INIT_RETRIES", 3),
		Window:      envInt("LOOP_WINDOW", 3),
		PromptDir:   lookup("PROMPT_DIR"),
	}
}

func loadSandbox() SandboxConfig {
	raw := firstNonEmpty(lookup("SANDBOX_CMD"), "python3")
	return SandboxConfig{
		Command: strings.Fields(raw),
		Timeout: envDuration("SANDBOX_TIMEOUT", 30*time.Second),
	}
}

func loadArchive(env string) ArchiveConfig {
	endpoint := resolveArchiveEndpoint(env)
	return ArchiveConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(lookup("ARCHIVE_S3_REGION"), "us-east-1"),
		AccessKey: firstNonEmpty(lookup("ARCHIVE_S3_ACCESS_KEY"), lookup("MINIO_ROOT_USER")),
		SecretKey: firstNonEmpty(lookup("ARCHIVE_S3_SECRET_KEY"), lookup("MINIO_ROOT_PASSWORD")),
		Bucket:    firstNonEmpty(lookup("ARCHIVE_S3_BUCKET"), "autoforge-artifacts"),
		UseSSL:    resolveArchiveUseSSL(env),
	}
}

func resolveArchiveEndpoint(env string) string {
	if strings.EqualFold(env, "local") {
		return lookup("ARCHIVE_MINIO_ENDPOINT")
	}
	return lookup("ARCHIVE_S3_ENDPOINT")
}

func resolveArchiveUseSSL(env string) bool {
	if strings.EqualFold(env, "local") {
		return false
	}
	raw := lookup("ARCHIVE_S3_USE_SSL")
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func envInt(key string, def int) int {
	raw := lookup(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	raw := lookup(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := lookup(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
