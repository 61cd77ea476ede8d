// Package jobs persists subtitling jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// A job is accepted in the processing state and moves exactly once, to
// processed or failed. The Store manages connections, embedded migrations,
// aggregate health counts, and stuck-job recovery after a restart. Result
// fields (subtitle text, published refs) are only ever set on processed jobs.
//
// The database is treated as the system of record for job status, not for
// media artifacts; those live under the library directory and are referenced
// by opaque refs.
package jobs
