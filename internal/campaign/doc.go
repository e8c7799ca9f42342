// Package campaign holds the static campaign graph: missions, their branching
// successors and the map edges that mirror them.
//
// A Graph is built once at process start and never mutated. New validates the
// definition and fails with *GraphIntegrityError when the graph is unusable:
//   - a successor id is undefined
//   - the graph contains a cycle
//   - there is not exactly one mission without incoming edges (the entry)
//   - a final mission has successors, or a non-final mission has none
//   - the edge list does not mirror the union of all NextChoices
//
// No safe fallback campaign exists, so callers treat these errors as fatal.
package campaign
