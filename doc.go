// Package docflow provides a durable job queue and multi-worker execution
// engine for an asynchronous document-to-Markdown conversion service.
//
// # Overview
//
// docflow models a durable work queue with explicit document, job and batch
// state machines. Clients submit documents (individually or as part of a
// batch); the engine persists them and enqueues conversion work, and a pool
// of workers claims jobs, performs OCR against an external provider, and
// writes back Markdown content and usage records.
//
// The package does not mandate a particular storage backend for the
// external collaborators (blob storage, OCR provider) it depends on, but it
// ships a single embedded-SQLite backed store (see package store) as its
// durable queue, reached through github.com/uptrace/bun.
//
// # Delivery Semantics
//
// A job is claimed by at most one worker at a time (see store.ClaimNextJob).
// If a worker dies mid-job, the job is recovered by the orphan sweep once
// its started-at timestamp is older than the orphan threshold — handlers
// must therefore be idempotent with respect to re-execution after a crash.
//
// # State Machine
//
// Documents follow:
//
//	pending -> processing -> {completed, failed} -> archived
//
// Jobs follow:
//
//	pending -> processing -> completed
//	pending -> processing -> pending   (retry, via failJob)
//	pending -> processing -> failed    (terminal, attempts exhausted)
//
// Batches are a derived projection over their child documents; see
// store.UpdateBatchProgress.
//
// # Retry Policy
//
// Retry behavior is controlled by the job's MaxAttempts and the fixed
// backoff schedule in package dao (claim-layer contention) and package
// store (job-layer failJob backoff). Attempts are incremented exactly once
// per successful claim.
//
// # Concurrency Model
//
// The Dispatcher claims eligible jobs and feeds them to a fixed-size pool
// of goroutines, each running Worker.Handle on one job at a time, plus
// periodic dispatch, orphan-cleanup and archive ticks. Shutdown is
// graceful: in-flight handlers are allowed to finish, subject to a single
// timeout that covers the whole pool's drain.
//
// # Package Layout
//
//	model      — Document, Job, Batch, Usage, and their status enums
//	store      — the embedded-SQLite queue repository (bun + modernc.org/sqlite)
//	dao        — the bounded-retry wrapper absorbing transient busy/locked errors
//	blob       — the blob-store external collaborator (S3-backed)
//	ocr        — the OCR-provider external collaborator (Gemini-backed)
//	worker     — the single-job execution unit and its job-type handlers
//	dispatcher — the process-wide supervisor
//	engine     — the top-level wiring and Submission API
//	config     — recognized configuration options
//	cmd/docflow-server — an embedding binary
package docflow
