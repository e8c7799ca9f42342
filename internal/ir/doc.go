// Package ir provides the canonical domain types for sortie.
//
// This package contains type definitions and their canonical encoding only.
// All other internal packages import ir; ir imports nothing internal. This
// keeps the campaign, engine and store layers free of circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - scores, accuracy and stats are integers
//   - Persisted field names use camelCase to match the save-file schema
//   - Revisions are logical clocks, never wall-clock timestamps
//   - UI phase is never stored; it is derived from RunState on resume
package ir
