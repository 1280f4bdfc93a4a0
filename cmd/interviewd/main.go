// Command interviewd runs a headless live voice interview: it connects the
// configured realtime speech provider to the local audio devices, drives the
// interview through disconnects, and ends with a scored report on stdout.
//
// Usage:
//
//	interviewd -config config.yaml
//	interviewd -config config.yaml -persona backend-go
//	interviewd -list-personas
//	interviewd -print-config > config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/prathish132002/Live-Interview-App-sub000/internal/app"
	"github.com/prathish132002/Live-Interview-App-sub000/internal/config"
	"github.com/prathish132002/Live-Interview-App-sub000/internal/observe"
	"github.com/prathish132002/Live-Interview-App-sub000/internal/persona"
	"github.com/prathish132002/Live-Interview-App-sub000/internal/report"
	"github.com/prathish132002/Live-Interview-App-sub000/internal/resilience"
	"github.com/prathish132002/Live-Interview-App-sub000/pkg/audio"
	"github.com/prathish132002/Live-Interview-App-sub000/pkg/audio/pcmfile"
	"github.com/prathish132002/Live-Interview-App-sub000/pkg/provider/embeddings"
	ollamaembed "github.com/prathish132002/Live-Interview-App-sub000/pkg/provider/embeddings/ollama"
	oaiembed "github.com/prathish132002/Live-Interview-App-sub000/pkg/provider/embeddings/openai"
	"github.com/prathish132002/Live-Interview-App-sub000/pkg/provider/live"
	geminilive "github.com/prathish132002/Live-Interview-App-sub000/pkg/provider/live/gemini"
	oailive "github.com/prathish132002/Live-Interview-App-sub000/pkg/provider/live/openai"
	"github.com/prathish132002/Live-Interview-App-sub000/pkg/provider/llm"
	"github.com/prathish132002/Live-Interview-App-sub000/pkg/provider/llm/anyllm"
	oaillm "github.com/prathish132002/Live-Interview-App-sub000/pkg/provider/llm/openai"
)

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	personaID := flag.String("persona", "", "persona ID to interview with (overrides personas.id)")
	listPersonas := flag.Bool("list-personas", false, "list available personas and exit")
	printConfig := flag.Bool("print-config", false, "print a sample configuration and exit")
	flag.Parse()

	if *printConfig {
		fmt.Print(sampleConfig)
		return 0
	}

	if *listPersonas {
		// Listing works without a complete config: fall back to the
		// built-in persona when the config cannot be loaded.
		dir := ""
		if cfg, err := config.Load(*configPath); err == nil {
			dir = cfg.Personas.Dir
		}
		return listPersonasCmd(os.Stdout, dir)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "interviewd: config file %q not found — copy configs/example.yaml or run 'interviewd -print-config' to get started\n", *configPath)
			return 1
		}
		fmt.Fprintf(os.Stderr, "interviewd: %v\n", err)
		return 1
	}

	slog.SetDefault(newLogger(cfg.LogLevel))

	if *personaID != "" {
		cfg.Personas.ID = *personaID
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry must be up before any subsystem binds its instruments.
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "interviewd"})
	if err != nil {
		slog.Error("init telemetry", "error", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	for kind, names := range config.ValidProviderNames {
		slog.Debug("providers available", "kind", kind, "names", names)
	}

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("provider setup failed", "error", err)
		return 1
	}

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("startup failed", "error", err)
		return 1
	}

	printStartupSummary(cfg)
	slog.Info("engine ready — press Ctrl+C to end the interview")

	runErr := application.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("interview failed", "error", runErr)
	}

	if rep := application.Report(); rep != nil {
		printReport(os.Stdout, application.SessionID(), rep)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
		return 1
	}

	slog.Info("goodbye")
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return 1
	}
	return 0
}

// newLogger builds the process logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// ─── Provider wiring ─────────────────────────────────────────────────────────

// registerBuiltinProviders wires every provider implementation this binary
// ships with into the registry. The names here match
// [config.ValidProviderNames].
func registerBuiltinProviders(reg *config.Registry) {
	// Live session providers.
	reg.RegisterLive("gemini", func(cfg config.LiveConfig) (live.Provider, error) {
		var opts []geminilive.Option
		if cfg.Model != "" {
			opts = append(opts, geminilive.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, geminilive.WithBaseURL(cfg.BaseURL))
		}
		return geminilive.New(cfg.APIKey, opts...), nil
	})
	reg.RegisterLive("openai", func(cfg config.LiveConfig) (live.Provider, error) {
		var opts []oailive.Option
		if cfg.Model != "" {
			opts = append(opts, oailive.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, oailive.WithBaseURL(cfg.BaseURL))
		}
		return oailive.New(cfg.APIKey, opts...), nil
	})

	// Report chain providers. OpenAI uses the native client; the other
	// backends go through any-llm, which shares one wire format for all of
	// them.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	})
	for _, name := range []string{"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"} {
		reg.RegisterLLM(name, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(name, entry.Model, opts...)
		})
	}
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// Embeddings providers.
	reg.RegisterEmbeddings("openai", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []oaiembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaiembed.WithBaseURL(entry.BaseURL))
		}
		return oaiembed.New(entry.APIKey, entry.Model, opts...)
	})
	reg.RegisterEmbeddings("ollama", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		return ollamaembed.New(entry.BaseURL, entry.Model)
	})

	// Device platforms.
	reg.RegisterPlatform("pcmfile", func(cfg config.AudioConfig) (audio.Platform, error) {
		return &pcmfile.Platform{
			CapturePath:  cfg.CaptureFile,
			PlaybackPath: cfg.PlaybackFile,
			RealTime:     cfg.RealTime,
		}, nil
	})
}

// buildProviders instantiates the configured providers. The live provider and
// the audio platform are mandatory; the report chain and embeddings degrade
// to disabled when absent.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	providers := &app.Providers{}

	lp, err := reg.CreateLive(cfg.Live)
	if err != nil {
		return nil, fmt.Errorf("create live provider %q: %w", cfg.Live.Kind, err)
	}
	providers.Live = lp
	slog.Info("live provider created", "kind", cfg.Live.Kind, "model", cfg.Live.Model)

	var chain *resilience.LLMFallback
	for _, entry := range cfg.Report.Chain {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			if errors.Is(err, config.ErrProviderNotRegistered) {
				slog.Warn("unknown report provider — skipping", "name", entry.Name)
				continue
			}
			return nil, fmt.Errorf("create report provider %q: %w", entry.Name, err)
		}
		if chain == nil {
			chain = resilience.NewLLMFallback(p, entry.Name)
		} else {
			chain.AddFallback(entry.Name, p)
		}
		slog.Info("report provider created", "name", entry.Name, "model", entry.Model)
	}
	if chain != nil {
		providers.ReportLLM = chain
	}

	if cfg.Embeddings.Name != "" {
		p, err := reg.CreateEmbeddings(cfg.Embeddings)
		switch {
		case errors.Is(err, config.ErrProviderNotRegistered):
			slog.Warn("unknown embeddings provider — skipping", "name", cfg.Embeddings.Name)
		case err != nil:
			return nil, fmt.Errorf("create embeddings provider %q: %w", cfg.Embeddings.Name, err)
		default:
			providers.Embeddings = p
			slog.Info("embeddings provider created", "name", cfg.Embeddings.Name, "model", cfg.Embeddings.Model)
		}
	}

	platform, err := reg.CreatePlatform(cfg.Audio)
	if err != nil {
		return nil, fmt.Errorf("create audio platform %q: %w", cfg.Audio.Platform, err)
	}
	providers.Platform = platform

	return providers, nil
}

// ─── Console output ──────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔════════════════════════════════════════╗")
	fmt.Println("║      interviewd — startup summary      ║")
	fmt.Println("╠════════════════════════════════════════╣")
	printSummaryRow("Live", cfg.Live.Kind)
	printSummaryRow("Report chain", chainSummary(cfg.Report.Chain))
	printSummaryRow("Embeddings", cfg.Embeddings.Name)
	printSummaryRow("Platform", cfg.Audio.Platform)
	printSummaryRow("Persona", activePersonaID(cfg))
	printSummaryRow("Archive", archiveSummary(cfg))
	printSummaryRow("Recorder", cfg.Recorder.Dir)
	printSummaryRow("Ops listener", cfg.Ops.ListenAddr)
	fmt.Println("╚════════════════════════════════════════╝")
}

func printSummaryRow(label, value string) {
	if value == "" {
		value = "(disabled)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", label, value)
}

// chainSummary condenses the report chain to its primary plus a fallback
// count.
func chainSummary(chain []config.ProviderEntry) string {
	switch len(chain) {
	case 0:
		return ""
	case 1:
		return chain[0].Name
	default:
		return fmt.Sprintf("%s +%d", chain[0].Name, len(chain)-1)
	}
}

func activePersonaID(cfg *config.Config) string {
	if cfg.Personas.ID != "" {
		return cfg.Personas.ID
	}
	return persona.Default().ID
}

func archiveSummary(cfg *config.Config) string {
	if cfg.Archive.PostgresDSN == "" {
		return ""
	}
	return "postgres"
}

// printReport renders the final report for the operator.
func printReport(w io.Writer, sessionID string, rep *report.Report) {
	fmt.Fprintf(w, "\nInterview report — %s\n", sessionID)
	fmt.Fprintf(w, "Score: %d/100\n", rep.Score)
	if rep.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", rep.Summary)
	}
	if len(rep.Strengths) > 0 {
		fmt.Fprintln(w, "\nStrengths:")
		for _, s := range rep.Strengths {
			fmt.Fprintf(w, "  + %s\n", s)
		}
	}
	if len(rep.Improvements) > 0 {
		fmt.Fprintln(w, "\nImprovements:")
		for _, s := range rep.Improvements {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
}

// listPersonasCmd prints every available persona: the built-in default plus
// the contents of the persona directory, when one is configured.
func listPersonasCmd(w io.Writer, dir string) int {
	def := persona.Default()
	printPersonaLine(w, def)

	if dir == "" {
		return 0
	}
	set, err := persona.LoadDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list personas: %v\n", err)
		return 1
	}
	for _, id := range set.IDs() {
		if id == def.ID {
			continue
		}
		if p, ok := set.Get(id); ok {
			printPersonaLine(w, p)
		}
	}
	return 0
}

func printPersonaLine(w io.Writer, p *persona.Persona) {
	voice := p.Voice
	if voice == "" {
		voice = "provider default"
	}
	fmt.Fprintf(w, "%-20s %s (voice: %s)\n", p.ID, p.Name, voice)
}

// sampleConfig is emitted by -print-config as a working starting point.
const sampleConfig = `# interviewd configuration.
#
# Secret-bearing fields support ${VAR} environment expansion.

log_level: info

session:
  candidate: "Ada Lovelace"
  position: "Senior Backend Engineer"

# Realtime voice backend that conducts the interview.
live:
  kind: gemini
  model: models/gemini-2.0-flash-live-001
  voice: Puck
  api_key: ${GEMINI_API_KEY}

# Report generation chain. The first entry is the primary; later entries are
# fallbacks. An empty chain disables generated reports.
report:
  chain:
    - name: openai
      model: gpt-4o-mini
      api_key: ${OPENAI_API_KEY}
    - name: ollama
      model: llama3.1
      base_url: http://localhost:11434

# Transcript embeddings for the archive's semantic index.
embeddings:
  name: openai
  model: text-embedding-3-small
  api_key: ${OPENAI_API_KEY}

# PostgreSQL session archive; needs the pgvector extension for the semantic
# index. Empty disables archiving.
archive:
  postgres_dsn: ""

audio:
  platform: pcmfile
  capture_file: capture.pcm
  playback_file: playback.pcm
  real_time: true

# Per-session Opus recordings of both audio directions. Empty disables
# recording.
recorder:
  dir: ""

reconnect:
  max_attempts: 10
  initial_backoff_ms: 1000
  max_backoff_ms: 30000

personas:
  dir: ""
  id: ""

# Optional operational HTTP listener (/healthz, /readyz, /metrics).
ops:
  listen_addr: ""
`
