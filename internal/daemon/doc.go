// Package daemon exposes the HTTP surface of the subtitling service.
//
// POST /api/jobs accepts a multipart upload and answers 202 with a job id
// before any media processing happens; the pipeline runs on a background
// goroutine and the job row is the only progress contract. GET endpoints
// read the job store, /api/health folds in external binary availability,
// and /api/download redeems single-use artifact tokens minted by the blob
// store. The server holds no pipeline logic of its own.
package daemon
