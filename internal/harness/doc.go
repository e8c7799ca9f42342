// Package harness runs YAML scenarios against a real progression engine.
//
// Each scenario gets a fresh in-memory progress store, a fixed session id
// and a fresh revision clock, so the same scenario always produces the same
// trace.
//
// # Scenario Format
//
//	name: branch_victory
//	description: "Clearing mission 1 offers both branches"
//	campaign: ""           # CUE directory, relative to the scenario; empty = built-in
//	seed: |                # optional raw save record placed in the store first
//	  {"completedRuns": 1}
//	flow:
//	  - step: confirm_squad
//	    squad: [a, b]
//	  - step: launch
//	    outcome: {completed: true, score: 1000, rank: A}
//	  - step: choose
//	    mission: 2c
//	    expect: {error: ILLEGAL_CHOICE}
//	assertions:
//	  - type: phase
//	    phase: PathChoice
//	  - type: progress
//	    expect: {completedPath: ["1"], cumulativeScore: 1000}
//
// # Steps
//
//   - new_run, new_game_plus, continue, flush
//   - confirm_squad (squad)
//   - launch (optional outcome, reported through the launcher callback)
//   - report (outcome), ack, retry
//   - choose (mission)
//   - options (options)
//   - resume (record, a raw JSON save)
//
// # Assertion Types
//
//   - phase: the engine is in the given phase
//   - progress: subset match on the in-memory record
//   - stored: subset match on the record in the store after a flush
//   - no_save: the store holds no record
//   - choices: AvailableChoices equals missions
//   - unlocks: the earned tiers equal tiers
//   - trace_count: a step name appears count times with the given result
package harness
