// package tasks implements playlist reconciliation: duplicate removal and
// release-date sorting against a remote, server-ordered playlist.
//
// Both operations follow the same shape: fetch an immutable snapshot of the
// playlist, plan a minimal sequence of mutations offline against an
// in-memory simulation, then execute the plan op by op with an optimistic
// snapshot-ID check before every live mutation. The planner never retries;
// all retry and throttling policy lives in the services executor.
package tasks
