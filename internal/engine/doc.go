// Package engine implements the campaign progression state machine.
//
// The engine owns one player's RunState and moves it through the phases
// AwaitingSquad, Briefing, InMission, Results, PathChoice and RunComplete.
// Legality of every move is checked against the campaign graph and roster.
//
// ARCHITECTURE:
//
// Serialized transitions:
// Every transition takes the engine mutex, validates, mutates and returns.
// Two transitions never interleave. Validation failures return a
// *TransitionError and leave the state untouched.
//
// Detached snapshot writes:
// A transition that changes the persisted record (detected by comparing the
// snapshot hash) enqueues a complete snapshot for the background writer and
// returns without waiting. The writer applies jobs in FIFO order, one at a
// time; a queued save that has not started yet is replaced by a newer one.
// Store failures are logged and handed to the persist error handler. They
// never roll back or block the in-memory run.
//
// Derived phase:
// The phase is not persisted. ResumeRun reconstructs the most advanced phase
// the record supports: RunComplete when the last completed mission is final,
// else PathChoice for a non-empty completed path, else Briefing for a chosen
// squad, else AwaitingSquad.
//
// Revision clock:
// Each snapshot is stamped with a strictly increasing revision from Clock at
// the moment the write is issued.
package engine
