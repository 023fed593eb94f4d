package domain

import "errors"

// ErrInvalidKind is returned when a node kind is outside the closed Kind set.
var ErrInvalidKind = errors.New("invalid node kind")

// ErrDanglingReference is returned when a parent id does not exist in the session.
var ErrDanglingReference = errors.New("dangling node reference")

// ErrInvalidStep is returned when a step emitted by a source cannot be applied.
var ErrInvalidStep = errors.New("invalid step")

// ErrAlreadyRunning is returned when a run is started while another one is active.
var ErrAlreadyRunning = errors.New("run already in progress, wait or cancel it")

// ErrNotRunning is returned when an operation requires an active run.
var ErrNotRunning = errors.New("no run in progress")

// ErrSourceUnavailable is returned by step sources that cannot produce steps.
var ErrSourceUnavailable = errors.New("step source unavailable")

// ErrSessionNotFound is returned when a session ID cannot be found.
var ErrSessionNotFound = errors.New("session not found")

// ErrRunNotFound is returned when an archived run cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")

// ErrInvalidRequest is returned when a run request is malformed.
var ErrInvalidRequest = errors.New("invalid run request")
