package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/prathish132002/Live-Interview-App-sub000/pkg/audio"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"live":       {"gemini", "openai"},
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"embeddings": {"openai", "ollama"},
	"platform":   {"pcmfile"},
}

// blockSizeWarnThreshold is the block size above which Validate warns that
// mute and envelope release will lag audibly.
const blockSizeWarnThreshold = 1024

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expands ${VAR} environment
// references, applies defaults, and validates the result. Useful in tests
// where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(strings.NewReader(expandEnv(string(data))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnv replaces ${VAR} references with the value of the environment
// variable VAR. Unset variables expand to the empty string. The bare $VAR
// form is left untouched so DSN passwords containing a dollar sign survive.
func expandEnv(s string) string {
	var sb strings.Builder
	for {
		i := strings.Index(s, "${")
		if i < 0 {
			break
		}
		j := strings.Index(s[i:], "}")
		if j < 0 {
			break
		}
		sb.WriteString(s[:i])
		sb.WriteString(os.Getenv(s[i+2 : i+j]))
		s = s[i+j+1:]
	}
	sb.WriteString(s)
	return sb.String()
}

// applyDefaults fills zero values that have fixed defaults. Runs before
// [Validate] so validation sees the effective configuration.
func applyDefaults(cfg *Config) {
	if cfg.Audio.Platform == "" {
		cfg.Audio.Platform = "pcmfile"
	}
	if cfg.Audio.BlockSize == 0 {
		cfg.Audio.BlockSize = audio.DefaultBlockSize
	}
}

// Validate checks that cfg contains a coherent set of values. Fatal problems
// are returned as a joined error listing every failure found; conditions the
// engine can run degraded under are logged as warnings instead.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Live provider. The engine has nothing to do without one.
	if cfg.Live.Kind == "" {
		errs = append(errs, errors.New("live.kind is required"))
	} else {
		validateProviderName("live", cfg.Live.Kind)
		if cfg.Live.APIKey == "" {
			slog.Warn("live.api_key is empty; most live providers reject unauthenticated sessions")
		}
	}

	// Report chain.
	if len(cfg.Report.Chain) == 0 {
		slog.Warn("report.chain is empty; the final report will be a placeholder")
	}
	for i, entry := range cfg.Report.Chain {
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("report.chain[%d].name is required", i))
			continue
		}
		validateProviderName("llm", entry.Name)
	}

	// Embeddings ↔ archive coupling.
	validateProviderName("embeddings", cfg.Embeddings.Name)
	if cfg.Embeddings.Name != "" && cfg.Archive.PostgresDSN == "" {
		slog.Warn("embeddings are configured but archive.postgres_dsn is empty; the semantic index will not be populated")
	}
	if cfg.Archive.PostgresDSN == "" {
		slog.Warn("archive.postgres_dsn is empty; sessions will not be archived")
	}

	// Audio.
	validateProviderName("platform", cfg.Audio.Platform)
	if cfg.Audio.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("audio.block_size %d must be positive", cfg.Audio.BlockSize))
	} else if cfg.Audio.BlockSize > blockSizeWarnThreshold {
		slog.Warn("audio.block_size is large; mute and envelope release will lag audibly",
			"block_size", cfg.Audio.BlockSize)
	}
	if cfg.Audio.Platform == "pcmfile" {
		if cfg.Audio.CaptureFile == "" {
			errs = append(errs, errors.New("audio.capture_file is required when audio.platform is pcmfile"))
		}
		if cfg.Audio.PlaybackFile == "" {
			errs = append(errs, errors.New("audio.playback_file is required when audio.platform is pcmfile"))
		}
	}

	// Reconnect policy.
	if cfg.Reconnect.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("reconnect.max_attempts %d must not be negative", cfg.Reconnect.MaxAttempts))
	}
	if cfg.Reconnect.InitialBackoffMS < 0 {
		errs = append(errs, fmt.Errorf("reconnect.initial_backoff_ms %d must not be negative", cfg.Reconnect.InitialBackoffMS))
	}
	if cfg.Reconnect.MaxBackoffMS < 0 {
		errs = append(errs, fmt.Errorf("reconnect.max_backoff_ms %d must not be negative", cfg.Reconnect.MaxBackoffMS))
	}
	if cfg.Reconnect.InitialBackoffMS > 0 && cfg.Reconnect.MaxBackoffMS > 0 &&
		cfg.Reconnect.MaxBackoffMS < cfg.Reconnect.InitialBackoffMS {
		errs = append(errs, fmt.Errorf("reconnect.max_backoff_ms %d is below initial_backoff_ms %d",
			cfg.Reconnect.MaxBackoffMS, cfg.Reconnect.InitialBackoffMS))
	}

	// Personas.
	if cfg.Personas.Dir == "" {
		slog.Warn("personas.dir is empty; only the built-in default persona is available")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
