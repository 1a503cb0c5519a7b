package domain

import "time"

// ReloadEvent tells connected browsers which served paths changed.
// Paths are URL paths rooted at the destination root, e.g. "/style/main.css".
type ReloadEvent struct {
	Task  string
	Paths []string
	At    time.Time
}
