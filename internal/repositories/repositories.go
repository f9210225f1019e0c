// package repositories provides the sqlite persistence layer for the
// client's local state: server connections, library item records, playback
// progress, bookmarks, and the single-row app state (active connection,
// last known session id).
//
// Records are keyed by their natural identity (connection id, item id,
// (book id, time)) and written with upsert semantics so local and remote
// sync passes stay idempotent.
package repositories
