package domain

import "errors"

// ErrSessionNotFound is returned by stores when a session ID is unknown.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoDomainLoaded is returned when processing is attempted before any
// valid domain configuration has been activated.
var ErrNoDomainLoaded = errors.New("no domain loaded")

// ErrUnknownSkill is returned when a skill handler name is not registered.
var ErrUnknownSkill = errors.New("skill not registered")

// ErrCollectionActive is returned when a slot collection is started while
// another is already in progress for the session.
var ErrCollectionActive = errors.New("slot collection already in progress")
