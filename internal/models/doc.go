// Package models defines the data model for the fetch orchestration service.
//
//   - [HistoryRecord] : one durable row per fetch job, created or updated at
//     completion time and keyed by job id
//   - [JobKind] : which engine family ran the job (media or swarm)
//   - [JobStatus] : terminal outcome recorded in history
//
// Progress events are deliberately NOT part of this package: they are
// ephemeral wire payloads owned by internal/progress and are never persisted.
package models
