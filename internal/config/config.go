package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all prepvoice environment variables.
const EnvPrefix = "PREPVOICE_"

// Config holds all application configuration. Secrets (API keys, auth
// tokens) are loaded exclusively from environment variables and never
// appear in the config file.
type Config struct {
	ListenAddr      string `yaml:"listen_addr"`
	DBPath          string `yaml:"db_path"`
	QuestionModel   string `yaml:"question_model"`
	SummaryModel    string `yaml:"summary_model"`
	LLMBaseURL      string `yaml:"llm_base_url"`
	STTModel        string `yaml:"stt_model"`
	STTLanguage     string `yaml:"stt_language"`
	TTSModel        string `yaml:"tts_model"`
	ProviderTimeout string `yaml:"provider_timeout"`
	RatePerMinute   int    `yaml:"rate_per_minute"`
	RateBurst       int    `yaml:"rate_burst"`
	BackupInterval  string `yaml:"backup_interval"`
	GDriveFolderID  string `yaml:"gdrive_folder_id"`
	CredentialsFile string `yaml:"google_credentials_file"`

	// Secrets come from env vars only, never the YAML file.
	DeepgramAPIKey string            `yaml:"-"`
	OpenAIAPIKey   string            `yaml:"-"`
	GeminiAPIKey   string            `yaml:"-"`
	AuthTokens     map[string]string `yaml:"-"`
}

func defaults() Config {
	return Config{
		ListenAddr:      ":8080",
		DBPath:          "data/prepvoice.db",
		QuestionModel:   "gemini/gemini-2.5-flash",
		SummaryModel:    "gemini/gemini-2.5-flash",
		STTModel:        "nova-2",
		STTLanguage:     "en",
		TTSModel:        "aura-asteria-en",
		ProviderTimeout: "25s",
		RatePerMinute:   120,
		RateBurst:       20,
		BackupInterval:  "1h",
		CredentialsFile: "./service-account.json",
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, loads secrets, and validates the
// result. It returns the config, any validation warnings, and an error
// if the file exists but cannot be read or parsed.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// ParsedProviderTimeout returns ProviderTimeout as a time.Duration,
// falling back to 25s if the value is invalid.
func (c *Config) ParsedProviderTimeout() time.Duration {
	d, err := time.ParseDuration(c.ProviderTimeout)
	if err != nil || d <= 0 {
		return 25 * time.Second
	}
	return d
}

// ParsedBackupInterval returns BackupInterval as a time.Duration,
// falling back to 1h if the value is invalid.
func (c *Config) ParsedBackupInterval() time.Duration {
	d, err := time.ParseDuration(c.BackupInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvPrefix + "DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvPrefix + "QUESTION_MODEL"); v != "" {
		cfg.QuestionModel = v
	}
	if v := os.Getenv(EnvPrefix + "SUMMARY_MODEL"); v != "" {
		cfg.SummaryModel = v
	}
	if v := os.Getenv(EnvPrefix + "LLM_BASE_URL"); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv(EnvPrefix + "STT_MODEL"); v != "" {
		cfg.STTModel = v
	}
	if v := os.Getenv(EnvPrefix + "STT_LANGUAGE"); v != "" {
		cfg.STTLanguage = v
	}
	if v := os.Getenv(EnvPrefix + "TTS_MODEL"); v != "" {
		cfg.TTSModel = v
	}
	if v := os.Getenv(EnvPrefix + "PROVIDER_TIMEOUT"); v != "" {
		cfg.ProviderTimeout = v
	}
	if v := os.Getenv(EnvPrefix + "RATE_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.RatePerMinute = n
		}
	}
	if v := os.Getenv(EnvPrefix + "RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.RateBurst = n
		}
	}
	if v := os.Getenv(EnvPrefix + "BACKUP_INTERVAL"); v != "" {
		cfg.BackupInterval = v
	}
	if v := os.Getenv(EnvPrefix + "GDRIVE_FOLDER_ID"); v != "" {
		cfg.GDriveFolderID = v
	}
	if v := os.Getenv(EnvPrefix + "GOOGLE_CREDENTIALS_FILE"); v != "" {
		cfg.CredentialsFile = v
	}
}

func loadSecrets(cfg *Config) {
	cfg.DeepgramAPIKey = os.Getenv(EnvPrefix + "DEEPGRAM_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv(EnvPrefix + "OPENAI_API_KEY")
	cfg.GeminiAPIKey = os.Getenv(EnvPrefix + "GEMINI_API_KEY")
	cfg.AuthTokens = parseAuthTokens(os.Getenv(EnvPrefix + "AUTH_TOKENS"))
}

func validate(cfg *Config) []string {
	var warnings []string

	if cfg.DeepgramAPIKey == "" {
		warnings = append(warnings, "Deepgram API key not configured: answers will record as silence and questions ship without audio. Set "+EnvPrefix+"DEEPGRAM_API_KEY.")
	}
	if cfg.OpenAIAPIKey == "" && cfg.GeminiAPIKey == "" {
		warnings = append(warnings, "No language-model API key configured: every question and summary will use the fallback text. Set "+EnvPrefix+"OPENAI_API_KEY or "+EnvPrefix+"GEMINI_API_KEY.")
	}
	if len(cfg.AuthTokens) == 0 {
		warnings = append(warnings, "No auth tokens configured: all API requests will be rejected. Set "+EnvPrefix+"AUTH_TOKENS.")
	}
	if _, err := time.ParseDuration(cfg.ProviderTimeout); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid provider_timeout %q, using default 25s.", cfg.ProviderTimeout))
	}
	if _, err := time.ParseDuration(cfg.BackupInterval); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid backup_interval %q, using default 1h.", cfg.BackupInterval))
	}

	return warnings
}

// parseAuthTokens parses "token:owner,token:owner" pairs. Malformed
// pairs are dropped.
func parseAuthTokens(raw string) map[string]string {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		tokens[parts[0]] = parts[1]
	}
	return tokens
}
