package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/sortie/internal/campaign"
	"github.com/roach88/sortie/internal/ir"
	"github.com/roach88/sortie/internal/metrics"
	"github.com/roach88/sortie/internal/store"
	"github.com/roach88/sortie/internal/unlock"
)

// Engine is the progression state machine for one player session.
//
// Thread-safety model:
//   - every exported method is safe from any goroutine
//   - transitions are serialized by one mutex and never interleave
//   - store writes happen on the writer goroutine, never under the mutex
//
// INVARIANTS:
//   - CompletedPath is a valid chain from the entry mission with no duplicates
//   - SelectedSquad is empty or exactly TeamSize known, distinct members
//   - CumulativeScore and CompletedRuns never decrease within a run
//     (CompletedRuns never decreases at all)
type Engine struct {
	mu sync.Mutex

	graph    *campaign.Graph
	roster   []ir.Member
	members  map[string]bool
	policy   *unlock.Policy
	teamSize int

	logger   *slog.Logger
	session  string
	launcher Launcher
	metrics  *metrics.Metrics
	clock    *Clock
	writer   *snapshotWriter

	phase    Phase
	record   ir.PersistedProgress
	lastHash string
	attempt  uint64 // bumped by every launch and run reset
	closed   bool
}

// Option configures an Engine.
type Option func(*config)

type config struct {
	logger         *slog.Logger
	teamSize       int
	sessionGen     SessionGenerator
	launcher       Launcher
	metrics        *metrics.Metrics
	clock          *Clock
	onPersistError func(error)
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithTeamSize sets the exact squad size. Default: ir.DefaultTeamSize.
func WithTeamSize(n int) Option {
	return func(c *config) { c.teamSize = n }
}

// WithSessionGenerator sets the session id source. Default: UUIDv7Generator.
func WithSessionGenerator(g SessionGenerator) Option {
	return func(c *config) { c.sessionGen = g }
}

// WithLauncher sets the gameplay engine port used by LaunchMission.
// Without one, LaunchMission only enters InMission and the caller reports
// the outcome itself.
func WithLauncher(l Launcher) Option {
	return func(c *config) { c.launcher = l }
}

// WithMetrics records transitions and writes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithClock sets the revision clock. ResumeRun and Continue still advance it
// past the loaded revision.
func WithClock(clock *Clock) Option {
	return func(c *config) { c.clock = clock }
}

// WithPersistErrorHandler registers fn to receive every failed store write.
// fn runs on the writer goroutine and must not call back into the engine.
func WithPersistErrorHandler(fn func(error)) Option {
	return func(c *config) { c.onPersistError = fn }
}

// New creates an engine over graph and roster, persisting to ps.
// The engine starts in AwaitingSquad with a fresh run; call Continue to pick
// up a saved run. Close must be called to drain pending writes.
func New(graph *campaign.Graph, roster []ir.Member, policy *unlock.Policy, ps store.ProgressStore, opts ...Option) (*Engine, error) {
	if graph == nil {
		return nil, errors.New("engine: campaign graph required")
	}
	if ps == nil {
		return nil, errors.New("engine: progress store required")
	}

	cfg := config{teamSize: ir.DefaultTeamSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.sessionGen == nil {
		cfg.sessionGen = UUIDv7Generator{}
	}
	if cfg.clock == nil {
		cfg.clock = NewClock()
	}
	if policy == nil {
		policy, _ = unlock.NewPolicy(nil)
	}
	if cfg.teamSize < 1 {
		return nil, fmt.Errorf("engine: team size must be positive, got %d", cfg.teamSize)
	}

	members := make(map[string]bool, len(roster))
	for _, m := range roster {
		if members[m.ID] {
			return nil, fmt.Errorf("engine: duplicate roster member %q", m.ID)
		}
		members[m.ID] = true
	}
	if len(members) < cfg.teamSize {
		return nil, fmt.Errorf("engine: roster has %d members, team size is %d", len(members), cfg.teamSize)
	}

	session := cfg.sessionGen.Generate()
	logger := cfg.logger.With("session", session)

	e := &Engine{
		graph:    graph,
		roster:   slices.Clone(roster),
		members:  members,
		policy:   policy,
		teamSize: cfg.teamSize,
		logger:   logger,
		session:  session,
		launcher: cfg.launcher,
		metrics:  cfg.metrics,
		clock:    cfg.clock,
		writer:   newSnapshotWriter(ps, logger, cfg.metrics, cfg.onPersistError),
		phase:    PhaseAwaitingSquad,
		record:   freshRecord(graph.Entry()),
	}
	go e.writer.run()
	return e, nil
}

func freshRecord(entry string) ir.PersistedProgress {
	return ir.PersistedProgress{
		SchemaVersion: ir.SchemaVersion,
		RunState:      ir.NewRunState(entry),
		Options:       ir.DefaultOptions(),
	}
}

// Session returns the session id that tags this engine's logs.
func (e *Engine) Session() string {
	return e.session
}

// Graph returns the campaign graph.
func (e *Engine) Graph() *campaign.Graph {
	return e.graph
}

// Roster returns the squadron roster in declaration order.
func (e *Engine) Roster() []ir.Member {
	return slices.Clone(e.roster)
}

// TeamSize returns the exact squad size.
func (e *Engine) TeamSize() int {
	return e.teamSize
}

// Phase returns the current phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// State returns a copy of the current run.
func (e *Engine) State() ir.RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record.RunState.Clone()
}

// Progress returns a copy of the full record as it would be persisted.
func (e *Engine) Progress() ir.PersistedProgress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record.Clone()
}

// AvailableChoices returns the missions the player may pick next.
func (e *Engine) AvailableChoices() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return AvailableChoices(e.graph, e.record.RunState)
}

// UnlocksEarned returns every unlock earned by the lifetime completed runs.
func (e *Engine) UnlocksEarned() []unlock.Unlock {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policy.UnlocksThrough(e.record.CompletedRuns)
}

// NewlyUnlocked returns the unlock earned by the most recent completion.
// Only RunComplete highlights a fresh unlock.
func (e *Engine) NewlyUnlocked() (unlock.Unlock, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseRunComplete {
		return unlock.Unlock{}, false
	}
	return e.policy.NewlyUnlocked(e.record.CompletedRuns)
}

// Flush blocks until every snapshot issued so far has been written (or has
// failed). Returns ErrClosed after Close.
func (e *Engine) Flush(ctx context.Context) error {
	return e.writer.flush(ctx)
}

// Close drains pending writes and stops the writer. Transitions after Close
// still update the in-memory run but are no longer persisted.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return e.writer.close(ctx)
}

// setPhase moves to p, logging real changes.
func (e *Engine) setPhase(p Phase) {
	if e.phase != p {
		e.logger.Info("phase changed", "from", e.phase, "to", p)
	}
	e.phase = p
}

// persist issues a snapshot write when the record differs from the last
// issued snapshot. Caller holds e.mu.
func (e *Engine) persist() {
	hash, err := ir.SnapshotHash(e.record)
	if err != nil {
		e.logger.Error("snapshot hash failed", "error", err)
		return
	}
	if hash == e.lastHash {
		return
	}
	e.issue(jobSave, hash)
}

// reset issues a clear-then-save job unconditionally. Caller holds e.mu.
func (e *Engine) reset() {
	hash, err := ir.SnapshotHash(e.record)
	if err != nil {
		e.logger.Error("snapshot hash failed", "error", err)
		return
	}
	e.issue(jobReset, hash)
}

func (e *Engine) issue(kind jobKind, hash string) {
	e.record.Revision = e.clock.Next()
	e.lastHash = hash
	if e.closed || !e.writer.enqueue(job{kind: kind, record: e.record.Clone()}) {
		e.logger.Warn("progress not saved: engine closed", "op", kind.String(), "revision", e.record.Revision)
		return
	}
	e.logger.Debug("snapshot issued", "op", kind.String(), "revision", e.record.Revision)
}

// reject stamps a transition error with call context.
func (e *Engine) reject(transition string, te *TransitionError) error {
	te.Transition = transition
	te.Phase = e.phase
	e.logger.Debug("transition rejected", "transition", transition, "code", te.Code, "error", te.Message)
	return te
}

// observe records the transition outcome. Use as: defer e.observe(name, &err).
func (e *Engine) observe(transition string, errp *error) {
	e.metrics.Transition(transition, *errp)
	if *errp == nil {
		e.logger.Debug("transition applied", "transition", transition, "phase", e.phase)
	}
}
