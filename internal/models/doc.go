// package models defines the data model for the audiobook sync client:
// server connections and their credentials, remote playback sessions,
// per-item media progress, and locally-queued bookmarks.
package models
