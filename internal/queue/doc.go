// Package queue records finished conversion workflows in SQLite.
//
// The Store is a job history: one row per workflow the runner finished,
// whether it completed, failed or was cancelled. It backs the `history`
// command and is never consulted for control flow; the runner works from the
// caller's in-memory workflow list.
//
// Schema changes bump the version in schema.go; users clear the database with
// `ngffconverter history clear` or delete it to adopt the new schema.
package queue
