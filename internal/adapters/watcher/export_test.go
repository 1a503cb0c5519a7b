package watcher

// ConvertEvent exposes convertEvent for testing.
var ConvertEvent = convertEvent
