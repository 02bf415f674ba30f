// Package tasks orchestrates the playlist-to-library save pipeline with
// real-time progress reporting.
//
// # Core Operations
//
// The [Engine] runs two strictly sequential phases:
//
//  1. [Engine.Collect] : Fetch the complete ordered track listing of one
//     playlist, paginating through the remote API. The fetch must complete
//     in full before any mutation happens; a fetch error aborts the run.
//
//  2. [Engine.Save] : Partition the collected identifiers into consecutive
//     batches no larger than the API's per-request maximum and submit one
//     save request per batch, in order. A failed batch is recorded with its
//     identifiers and the run continues with the remaining batches.
//
// [Engine.Run] chains both phases and reports a partial-failure error when
// some batches failed while others succeeded.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, and messages for
// display. Updates use select with default to prevent blocking.
//
// # Implementation
//
// [Engine] depends on [spotify.Library], so tests drive it with fakes.
package tasks
