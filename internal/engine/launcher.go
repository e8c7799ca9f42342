package engine

import (
	"context"
	"slices"

	"github.com/roach88/sortie/internal/ir"
)

// LaunchConfig is what the gameplay engine receives for one mission.
type LaunchConfig struct {
	MissionID     string
	Squad         []string
	Options       ir.Options
	CompletedPath []string
}

// Launcher hands a mission to the external gameplay engine.
//
// Launch must not block until the mission ends. The gameplay engine calls
// done exactly once, at any later time and from any goroutine, with the
// outcome; done returns the ReportOutcome error. A done call that arrives
// after the run moved on (new run, resume, another launch) is rejected with
// INVALID_PHASE.
type Launcher interface {
	Launch(ctx context.Context, cfg LaunchConfig, done func(ir.MissionOutcome) error) error
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, cfg LaunchConfig, done func(ir.MissionOutcome) error) error

// Launch calls f.
func (f LauncherFunc) Launch(ctx context.Context, cfg LaunchConfig, done func(ir.MissionOutcome) error) error {
	return f(ctx, cfg, done)
}

func (c LaunchConfig) clone() LaunchConfig {
	c.Squad = slices.Clone(c.Squad)
	c.CompletedPath = slices.Clone(c.CompletedPath)
	return c
}
