package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"coursecoach/internal/domain"
)

// RankingConfig holds the relevance floor used by ranking and the scope gate.
type RankingConfig struct {
	MinOverlap int     `yaml:"min_overlap"`
	MinRatio   float64 `yaml:"min_ratio"`
}

// CourseConfig locates course data and sets the unlock bar.
type CourseConfig struct {
	UnlockThreshold int    `yaml:"unlock_threshold"`
	SourceName      string `yaml:"source_name"`
	UnitsPath       string `yaml:"units_path"`
	ChunksPath      string `yaml:"chunks_path"`
	LessonCachePath   string `yaml:"lesson_cache_path"`
	ExerciseCachePath string `yaml:"exercise_cache_path"`
	ChunkChars        int    `yaml:"chunk_chars"`
}

// ProfileConfig tunes generation for one draft-length tier.
type ProfileConfig struct {
	MaxChars        int      `yaml:"max_chars"`
	Temperature     *float64 `yaml:"temperature,omitempty"`
	MaxOutputTokens int      `yaml:"max_output_tokens"`
	ReasoningEffort string   `yaml:"reasoning_effort,omitempty"`
}

// ProfilesConfig groups the fast, standard and deep tiers.
type ProfilesConfig struct {
	Fast     ProfileConfig `yaml:"fast"`
	Standard ProfileConfig `yaml:"standard"`
	Deep     ProfileConfig `yaml:"deep"`
}

// GeneratorConfig selects and configures the text generation backend.
type GeneratorConfig struct {
	Type        string         `yaml:"type"`
	BaseURL     string         `yaml:"base_url"`
	APIKeyEnv   string         `yaml:"api_key_env"`
	Model       string         `yaml:"model"`
	TimeoutSecs int            `yaml:"timeout_secs"`
	Profiles    ProfilesConfig `yaml:"profiles"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Mode  string `yaml:"mode"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Ranking   RankingConfig   `yaml:"ranking"`
	Course    CourseConfig    `yaml:"course"`
	Generator GeneratorConfig `yaml:"generator"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Thresholds projects the config onto the gating values used by the engines.
func (c *AppConfig) Thresholds() domain.Thresholds {
	return domain.Thresholds{
		MinOverlap:      c.Ranking.MinOverlap,
		MinRatio:        c.Ranking.MinRatio,
		UnlockThreshold: c.Course.UnlockThreshold,
	}
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/coursecoach/config.yaml.
// If neither exists, it writes defaults to ~/.config/coursecoach/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "coursecoach", "config.yaml"), nil
}

func temperature(t float64) *float64 { return &t }

func defaultProfiles() ProfilesConfig {
	return ProfilesConfig{
		Fast:     ProfileConfig{MaxChars: 900, Temperature: temperature(0.2), MaxOutputTokens: 900, ReasoningEffort: "low"},
		Standard: ProfileConfig{MaxChars: 2200, Temperature: temperature(0.2), MaxOutputTokens: 1400, ReasoningEffort: "medium"},
		Deep:     ProfileConfig{Temperature: temperature(0.15), MaxOutputTokens: 2200, ReasoningEffort: "high"},
	}
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Ranking: RankingConfig{MinOverlap: 1, MinRatio: 0.15},
		Course: CourseConfig{
			UnlockThreshold: 85,
			SourceName:      "course.pdf",
			UnitsPath:       filepath.Join("data", "units.yaml"),
			ChunksPath:      filepath.Join("data", "chunks.json"),
			LessonCachePath:   filepath.Join("data", "lesson_packs.json"),
			ExerciseCachePath: filepath.Join("data", "exercises.json"),
			ChunkChars:        1200,
		},
		Generator: GeneratorConfig{Type: "none", Profiles: defaultProfiles()},
		Storage:   StorageConfig{Type: "sqlite", Path: "coursecoach.db"},
		Logging:   LoggingConfig{Level: "info", Mode: "development"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Ranking.MinOverlap <= 0 {
		cfg.Ranking.MinOverlap = def.Ranking.MinOverlap
	}
	if cfg.Ranking.MinRatio <= 0 {
		cfg.Ranking.MinRatio = def.Ranking.MinRatio
	}
	if cfg.Course.UnlockThreshold <= 0 {
		cfg.Course.UnlockThreshold = def.Course.UnlockThreshold
	}
	if cfg.Course.SourceName == "" {
		cfg.Course.SourceName = def.Course.SourceName
	}
	if cfg.Course.ChunksPath == "" {
		cfg.Course.ChunksPath = def.Course.ChunksPath
	}
	if cfg.Course.LessonCachePath == "" {
		cfg.Course.LessonCachePath = def.Course.LessonCachePath
	}
	if cfg.Course.ExerciseCachePath == "" {
		cfg.Course.ExerciseCachePath = def.Course.ExerciseCachePath
	}
	if cfg.Course.ChunkChars == 0 {
		cfg.Course.ChunkChars = def.Course.ChunkChars
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "none"
	}
	if cfg.Generator.Type == "openai" {
		if cfg.Generator.BaseURL == "" {
			cfg.Generator.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Generator.APIKeyEnv == "" {
			cfg.Generator.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Generator.Model == "" {
			cfg.Generator.Model = "gpt-5.2"
		}
		if cfg.Generator.TimeoutSecs == 0 {
			cfg.Generator.TimeoutSecs = 30
		}
	}
	if cfg.Generator.Profiles == (ProfilesConfig{}) {
		cfg.Generator.Profiles = defaultProfiles()
	}
	if cfg.Storage.Type == "" {
		cfg.Storage = def.Storage
	}
	if cfg.Storage.Type == "sqlite" && cfg.Storage.Path == "" {
		cfg.Storage.Path = def.Storage.Path
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("COURSECOACH_UNLOCK_THRESHOLD")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Course.UnlockThreshold = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("COURSECOACH_DB_PATH")); v != "" {
		cfg.Storage.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_MODEL")); v != "" && cfg.Generator.Type == "openai" {
		cfg.Generator.Model = v
	}
}
