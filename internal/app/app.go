// Package app wires all interviewd subsystems into a running engine.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes one interview from first connect to archived
// report, and Shutdown tears everything down in order.
//
// Run applies the caller-side reconnect policy: the session controller never
// retries on its own, so the app drives a [session.Rejoiner] that replaces
// interrupted controllers with the transcript carried forward. Post-session
// work (report generation, archiving, semantic indexing) runs on its own
// bounded context so a shutdown signal still yields a finished report.
//
// For testing, inject mock implementations via functional options
// (WithArchive, WithGenerator, etc.). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/prathish132002/Live-Interview-App-sub000/internal/config"
	"github.com/prathish132002/Live-Interview-App-sub000/internal/health"
	"github.com/prathish132002/Live-Interview-App-sub000/internal/observe"
	"github.com/prathish132002/Live-Interview-App-sub000/internal/persona"
	"github.com/prathish132002/Live-Interview-App-sub000/internal/recorder"
	"github.com/prathish132002/Live-Interview-App-sub000/internal/report"
	"github.com/prathish132002/Live-Interview-App-sub000/internal/session"
	"github.com/prathish132002/Live-Interview-App-sub000/internal/transcript"
	"github.com/prathish132002/Live-Interview-App-sub000/internal/turn"
	"github.com/prathish132002/Live-Interview-App-sub000/pkg/archive"
	archivepg "github.com/prathish132002/Live-Interview-App-sub000/pkg/archive/postgres"
	"github.com/prathish132002/Live-Interview-App-sub000/pkg/audio"
	"github.com/prathish132002/Live-Interview-App-sub000/pkg/provider/embeddings"
	"github.com/prathish132002/Live-Interview-App-sub000/pkg/provider/live"
	"github.com/prathish132002/Live-Interview-App-sub000/pkg/provider/llm"
)

const (
	// defaultEmbeddingDims sizes the archive's vector column when no
	// embeddings provider is configured to report its own dimensionality.
	defaultEmbeddingDims = 1536

	// finalizeTimeout bounds the post-session phase: report generation plus
	// archive writes. A hung model call must not keep the process alive.
	finalizeTimeout = 2 * time.Minute

	// opsShutdownTimeout bounds draining the ops listener once the
	// interview has ended.
	opsShutdownTimeout = 5 * time.Second
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	// Live opens realtime voice sessions. Required.
	Live live.Provider

	// ReportLLM backs the report generator, typically already wrapped in
	// the configured fallback chain. Nil disables generated reports; the
	// session then ends with the placeholder.
	ReportLLM llm.Provider

	// Embeddings produces vectors for the semantic index. Nil skips
	// indexing.
	Embeddings embeddings.Provider

	// Platform supplies the capture and playback devices. Required.
	Platform audio.Platform
}

// App owns all subsystem lifetimes and drives one interview per process.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems — initialised in New, torn down in Shutdown.
	persona   *persona.Persona
	corrector *transcript.Corrector
	generator report.Generator
	store     archive.Store
	index     archive.SemanticIndex
	metrics   *observe.Metrics
	ops       *health.Server

	// ping probes the archive database for the readiness check.
	ping func(ctx context.Context) error

	// sessionID and report are written by Run and read after it returns.
	sessionID string
	report    *report.Report

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithArchive injects an archive store instead of connecting PostgreSQL from
// config. The store is still wrapped in the best-effort guard.
func WithArchive(s archive.Store) Option {
	return func(a *App) { a.store = s }
}

// WithSemanticIndex injects a semantic index instead of using the PostgreSQL
// archive's.
func WithSemanticIndex(idx archive.SemanticIndex) Option {
	return func(a *App) { a.index = idx }
}

// WithGenerator injects a report generator instead of building one from the
// configured LLM chain.
func WithGenerator(g report.Generator) Option {
	return func(a *App) { a.generator = g }
}

// WithPersona injects the active persona instead of loading it from the
// persona directory.
func WithPersona(p *persona.Persona) Option {
	return func(a *App) { a.persona = p }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option functions
// to inject test doubles for any subsystem.
//
// New performs all initialisation synchronously: persona selection, corrector
// construction, archive connection and migration, report generator assembly,
// and the optional ops listener.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.Live == nil {
		return nil, errors.New("app: live provider is required")
	}
	if providers.Platform == nil {
		return nil, errors.New("app: audio platform is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
		metrics:   observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(a)
	}

	// ── 1. Persona ───────────────────────────────────────────────────────
	if err := a.initPersona(); err != nil {
		return nil, fmt.Errorf("app: select persona: %w", err)
	}

	// ── 2. Transcript corrector ──────────────────────────────────────────
	if terms := a.persona.Terms; len(terms) > 0 {
		a.corrector = transcript.NewCorrector(terms)
	}

	// ── 3. Archive ───────────────────────────────────────────────────────
	if err := a.initArchive(ctx); err != nil {
		return nil, fmt.Errorf("app: init archive: %w", err)
	}

	// ── 4. Report generator ──────────────────────────────────────────────
	a.initGenerator()

	// ── 5. Ops listener ──────────────────────────────────────────────────
	a.initOps()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initPersona resolves the active persona from the directory and selection in
// config. No directory means only the built-in default is available.
func (a *App) initPersona() error {
	if a.persona != nil {
		return nil // injected
	}

	id := a.cfg.Personas.ID
	def := persona.Default()

	if a.cfg.Personas.Dir == "" {
		if id != "" && id != def.ID {
			return fmt.Errorf("persona %q requested but personas.dir is not set", id)
		}
		a.persona = def
		return nil
	}

	set, err := persona.LoadDir(a.cfg.Personas.Dir)
	if err != nil {
		return err
	}
	if id == "" {
		a.persona = def
		return nil
	}
	p, ok := set.Get(id)
	if !ok {
		if id == def.ID {
			a.persona = def
			return nil
		}
		return fmt.Errorf("persona %q not found in %q; available: %s",
			id, a.cfg.Personas.Dir, strings.Join(set.IDs(), ", "))
	}
	a.persona = p
	slog.Info("persona loaded", "id", p.ID, "name", p.Name, "terms", len(p.Terms))
	return nil
}

// initArchive connects the PostgreSQL archive or uses an injected store, then
// wraps it in the guard so archive failures degrade instead of propagating.
func (a *App) initArchive(ctx context.Context) error {
	if a.store == nil {
		dsn := a.cfg.Archive.PostgresDSN
		if dsn == "" {
			slog.Info("archiving disabled", "reason", "archive.postgres_dsn is empty")
			return nil
		}

		dims := defaultEmbeddingDims
		model := ""
		if a.providers.Embeddings != nil {
			if d := a.providers.Embeddings.Dimensions(); d > 0 {
				dims = d
			}
			model = a.providers.Embeddings.ModelID()
		}

		pg, err := archivepg.New(ctx, dsn, dims, model)
		if err != nil {
			return err
		}
		a.store = pg
		if a.index == nil {
			a.index = pg
		}
		a.ping = pg.Ping
		a.closers = append(a.closers, func() error {
			pg.Close()
			return nil
		})
		slog.Info("archive connected", "embedding_dims", dims, "embedding_model", model)
	}

	a.store = archive.NewGuard(a.store)
	return nil
}

// initGenerator builds the LLM report generator with the persona's rubric
// hints, unless one was injected or no LLM chain is configured.
func (a *App) initGenerator() {
	if a.generator != nil {
		return
	}
	if a.providers.ReportLLM == nil {
		slog.Info("report generation disabled; sessions end with the placeholder report")
		return
	}
	a.generator = report.NewLLMGenerator(
		a.providers.ReportLLM,
		report.WithRubricHints(a.persona.RubricHints),
	)
}

// initOps builds the optional ops listener with a readiness check for the
// archive database when one is connected.
func (a *App) initOps() {
	if a.cfg.Ops.ListenAddr == "" {
		return
	}
	var checkers []health.Checker
	if a.ping != nil {
		checkers = append(checkers, health.Checker{Name: "archive", Check: a.ping})
	}
	a.ops = health.NewServer(a.cfg.Ops.ListenAddr, a.metrics, checkers...)
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run executes one interview and blocks until it has been finalized. The
// interview ends when the remote closes the session, when rejoining is
// exhausted, or when ctx is cancelled; in every case the transcript collected
// so far is turned into a report and archived before Run returns.
//
// After a cancellation Run returns ctx.Err(); a natural end returns nil.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)

	if a.ops != nil {
		g.Go(a.ops.Start)
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), opsShutdownTimeout)
			defer scancel()
			return a.ops.Shutdown(sctx)
		})
		slog.Info("ops listener started", "addr", a.cfg.Ops.ListenAddr)
	}

	g.Go(func() error {
		// Interview over: release the ops goroutines as well.
		defer cancel()
		return a.runInterview(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// runInterview drives one interview through the rejoiner and finalizes it.
func (a *App) runInterview(ctx context.Context) error {
	startedAt := time.Now().UTC()
	a.sessionID = newSessionID(a.cfg.Session.Candidate, a.persona.ID, startedAt)

	rec := a.openRecorder()
	defer func() {
		if err := rec.Close(); err != nil {
			slog.Warn("app: close recorder", "err", err)
		}
	}()

	rejoiner := session.NewRejoiner(session.RejoinerConfig{
		Factory:     a.controllerFactory(rec),
		MaxAttempts: a.cfg.Reconnect.MaxAttempts,
		Backoff:     time.Duration(a.cfg.Reconnect.InitialBackoffMS) * time.Millisecond,
		MaxBackoff:  time.Duration(a.cfg.Reconnect.MaxBackoffMS) * time.Millisecond,
	})

	slog.Info("interview starting",
		"session_id", a.sessionID,
		"persona", a.persona.ID,
		"candidate", a.cfg.Session.Candidate,
		"position", a.cfg.Session.Position,
	)

	ctl, err := rejoiner.Run(ctx)
	if ctl == nil {
		return fmt.Errorf("app: start session: %w", err)
	}
	if err != nil {
		slog.Warn("interview ended early", "session_id", a.sessionID, "err", err)
	}

	a.finalize(ctl, startedAt, time.Now().UTC())
	return nil
}

// finalize produces the report and archives the session. It runs on its own
// bounded context so the work survives cancellation of the run context.
func (a *App) finalize(ctl *session.Controller, startedAt, endedAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	rep, err := ctl.FinalReport(ctx)
	if err != nil {
		slog.Error("app: generate report", "session_id", a.sessionID, "err", err)
	} else {
		a.report = rep
		slog.Info("interview report ready", "session_id", a.sessionID, "score", rep.Score)
	}

	a.archiveSession(ctx, ctl.Transcript(), rep, startedAt, endedAt)
}

// archiveSession persists the finished session, its transcript, and the
// report. Store failures are absorbed by the guard; archiving never fails the
// run.
func (a *App) archiveSession(ctx context.Context, entries []turn.Entry, rep *report.Report, startedAt, endedAt time.Time) {
	if a.store == nil {
		return
	}

	_ = a.store.SaveSession(ctx, archive.Session{
		ID:        a.sessionID,
		PersonaID: a.persona.ID,
		Candidate: a.cfg.Session.Candidate,
		Model:     a.cfg.Live.Model,
		StartedAt: startedAt,
		EndedAt:   endedAt,
	})
	_ = a.store.SaveEntries(ctx, a.sessionID, archiveEntries(entries))
	if rep != nil {
		_ = a.store.SaveReport(ctx, a.sessionID, archive.ReportRecord{
			Score:        rep.Score,
			Summary:      rep.Summary,
			Strengths:    rep.Strengths,
			Improvements: rep.Improvements,
			GeneratedAt:  time.Now().UTC(),
		})
	}
	slog.Info("session archived", "session_id", a.sessionID, "entries", len(entries))

	a.indexEntries(ctx, entries)
}

// indexEntries embeds every transcript line in one batch and upserts the
// vectors into the semantic index. Best-effort like the rest of archiving.
func (a *App) indexEntries(ctx context.Context, entries []turn.Entry) {
	if a.index == nil || a.providers.Embeddings == nil || len(entries) == 0 {
		return
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}
	vectors, err := a.providers.Embeddings.EmbedBatch(ctx, texts)
	if err != nil {
		slog.Warn("app: embed transcript failed, skipping semantic index",
			"session_id", a.sessionID, "err", err)
		return
	}
	if len(vectors) != len(entries) {
		slog.Warn("app: embedding count mismatch, skipping semantic index",
			"session_id", a.sessionID, "want", len(entries), "got", len(vectors))
		return
	}

	indexed := 0
	for i, e := range entries {
		err := a.index.IndexEntry(ctx, archive.IndexedEntry{
			SessionID: a.sessionID,
			Position:  i,
			Speaker:   archiveSpeaker(e.Speaker),
			Text:      e.Text,
			Embedding: vectors[i],
		})
		if err != nil {
			slog.Warn("app: index entry failed",
				"session_id", a.sessionID, "position", i, "err", err)
			continue
		}
		indexed++
	}
	slog.Info("transcript indexed", "session_id", a.sessionID, "entries", indexed)
}

// controllerFactory builds a fresh controller per join attempt. All attempts
// share the session recorder and the app's collaborators; only the seeded
// transcript differs.
func (a *App) controllerFactory(rec *recorder.Recorder) session.Factory {
	return func(seed []turn.Entry) *session.Controller {
		return session.New(session.Config{
			Provider:   a.providers.Live,
			Platform:   a.providers.Platform,
			Session:    a.liveConfig(),
			Generator:  a.generator,
			Corrector:  a.corrector,
			Recorder:   rec,
			Metrics:    a.metrics,
			Transcript: seed,
			BlockSize:  a.cfg.Audio.BlockSize,
		})
	}
}

// liveConfig renders the provider session settings from the persona and the
// interview details. The persona's voice takes precedence over the config
// voice.
func (a *App) liveConfig() live.SessionConfig {
	voice := a.persona.Voice
	if voice == "" {
		voice = a.cfg.Live.Voice
	}
	return live.SessionConfig{
		Voice: voice,
		Instructions: a.persona.SystemPrompt(persona.Vars{
			Candidate: a.cfg.Session.Candidate,
			Position:  a.cfg.Session.Position,
		}),
	}
}

// openRecorder creates the per-session recorder under the configured
// directory. A nil recorder (disabled or failed) is a valid no-op.
func (a *App) openRecorder() *recorder.Recorder {
	if a.cfg.Recorder.Dir == "" {
		return nil
	}

	playbackRate := a.providers.Live.Capabilities().OutputSampleRate
	if playbackRate <= 0 {
		playbackRate = audio.DefaultPlaybackRate
	}

	dir := filepath.Join(a.cfg.Recorder.Dir, a.sessionID)
	rec, err := recorder.New(dir, audio.DefaultCaptureRate, playbackRate)
	if err != nil {
		slog.Warn("app: recorder unavailable, session will not be recorded",
			"dir", dir, "err", err)
		return nil
	}
	slog.Info("session recording enabled", "dir", dir)
	return rec
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Report returns the final interview report, or nil before Run has finished.
func (a *App) Report() *report.Report {
	return a.report
}

// SessionID returns the identifier assigned to the interview run. Empty
// before Run starts.
func (a *App) SessionID() string {
	return a.sessionID
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in init order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// newSessionID derives a readable, unique identifier such as
// "itv-ada-lovelace-20260825T091242Z".
func newSessionID(candidate, personaID string, now time.Time) string {
	name := sanitizeName(candidate)
	if name == "" {
		name = sanitizeName(personaID)
	}
	if name == "" {
		name = "interview"
	}
	return fmt.Sprintf("itv-%s-%s", name, now.Format("20060102T150405Z"))
}

// sanitizeName lowercases a display name and replaces spaces with hyphens
// for use in session IDs.
func sanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, " ", "-")
}

// archiveSpeaker maps a transcript speaker onto the archive's label.
func archiveSpeaker(s turn.Speaker) string {
	if s == turn.User {
		return archive.SpeakerUser
	}
	return archive.SpeakerAgent
}

// archiveEntries converts committed turns into archive rows in order.
func archiveEntries(entries []turn.Entry) []archive.Entry {
	out := make([]archive.Entry, len(entries))
	for i, e := range entries {
		out[i] = archive.Entry{
			Position: i,
			Speaker:  archiveSpeaker(e.Speaker),
			Text:     e.Text,
		}
	}
	return out
}
