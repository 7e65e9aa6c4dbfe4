package watcher

// ConvertEvent exposes convertEvent for white-box testing.
var ConvertEvent = convertEvent
