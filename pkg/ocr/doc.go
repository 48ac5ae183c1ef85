// Package ocr decouples on-demand text reading from the sampling loop.
//
// The coordinator owns exactly one background worker. Submit snapshots
// the frame and hands it to the worker without blocking; a second
// Submit while one request is in flight is rejected with ErrBusy
// rather than queued, so a slow engine can never build a backlog.
// Poll returns each completed result exactly once.
//
// Engine failures are soft: the coordinator produces a fixed fallback
// message and the caller marks the feature degraded until the next
// successful extraction.
package ocr
