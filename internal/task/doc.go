// Package task provides background task processing with database-backed
// recovery. Tasks are persisted before they are queued so a crash never
// loses work; on startup the runner re-hydrates unfinished tasks and
// requeues them.
package task
