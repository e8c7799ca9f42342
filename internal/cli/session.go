package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/sortie/internal/campaign"
	"github.com/roach88/sortie/internal/compiler"
	"github.com/roach88/sortie/internal/config"
	"github.com/roach88/sortie/internal/engine"
	"github.com/roach88/sortie/internal/ir"
	"github.com/roach88/sortie/internal/metrics"
	"github.com/roach88/sortie/internal/unlock"
)

// loadedCampaign is a compiled, validated campaign ready for an engine.
type loadedCampaign struct {
	Campaign *ir.Campaign
	Graph    *campaign.Graph
	Policy   *unlock.Policy
}

// loadCampaign compiles dir (the built-in campaign when empty), builds the
// graph and runs the schema checks.
func loadCampaign(dir string) (*loadedCampaign, error) {
	c, err := compiler.Load(dir)
	if err != nil {
		return nil, campaignErr(err)
	}
	graph, err := campaign.FromCampaign(*c)
	if err != nil {
		return nil, err
	}
	if errs := compiler.Validate(*c); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, campaignErr(errors.New(strings.Join(msgs, "; ")))
	}
	policy, err := unlock.NewPolicy(c.Unlocks)
	if err != nil {
		return nil, campaignErr(err)
	}
	return &loadedCampaign{Campaign: c, Graph: graph, Policy: policy}, nil
}

// Session is one command's engine, resumed from the configured store.
type Session struct {
	Config   config.Config
	Campaign *loadedCampaign
	Engine   *engine.Engine
	Metrics  *metrics.Metrics
	Resumed  bool

	logger     *slog.Logger
	closeStore func() error

	mu         sync.Mutex
	persistErr error
}

// openSession wires campaign, store, metrics and engine, then continues the
// saved run. launcher may be nil.
func openSession(ctx context.Context, opts *RootOptions, logOut io.Writer, launcher engine.Launcher) (*Session, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(opts, cfg, logOut)

	lc, err := loadCampaign(cfg.CampaignDir)
	if err != nil {
		return nil, err
	}
	teamSize := lc.Campaign.TeamSize
	if cfg.TeamSize > 0 {
		teamSize = cfg.TeamSize
	}

	ps, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Config:     cfg,
		Campaign:   lc,
		Metrics:    metrics.New(),
		logger:     logger,
		closeStore: closeStore,
	}
	engineOpts := []engine.Option{
		engine.WithLogger(logger.With("profile", cfg.Profile)),
		engine.WithTeamSize(teamSize),
		engine.WithMetrics(s.Metrics),
		engine.WithPersistErrorHandler(s.recordPersistError),
	}
	if launcher != nil {
		engineOpts = append(engineOpts, engine.WithLauncher(launcher))
	}
	eng, err := engine.New(lc.Graph, lc.Campaign.Roster, lc.Policy, ps, engineOpts...)
	if err != nil {
		closeStore()
		return nil, campaignErr(err)
	}
	s.Engine = eng

	s.Resumed = eng.Continue(ctx)
	s.reenterBriefing()
	return s, nil
}

// reenterBriefing restores a chosen-but-unflown mission. A saved record
// derives PathChoice for any non-empty path, so a run saved right after
// choose would otherwise ask for the same choice again.
func (s *Session) reenterBriefing() {
	if s.Engine.Phase() != engine.PhasePathChoice {
		return
	}
	state := s.Engine.State()
	last, _ := state.LastCompleted()
	if state.CurrentMissionID == last {
		return
	}
	if err := s.Engine.ChoosePath(state.CurrentMissionID); err != nil {
		s.logger.Debug("chosen mission not restored", "mission", state.CurrentMissionID, "error", err)
	}
}

func (s *Session) recordPersistError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistErr = err
}

func (s *Session) lastPersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

// Close drains pending writes and releases the store. A write that failed
// during the session is reported so the caller knows progress was not
// saved.
func (s *Session) Close(ctx context.Context) error {
	var errs []error
	if err := s.Engine.Close(ctx); err != nil && !errors.Is(err, engine.ErrClosed) {
		errs = append(errs, err)
	}
	if err := s.lastPersistError(); err != nil {
		errs = append(errs, fmt.Errorf("progress not saved: %w", err))
	}
	if s.Config.MetricsFile != "" {
		if err := s.Metrics.WriteTextfile(s.Config.MetricsFile); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.closeStore(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
