package permissions

import "errors"

// ErrDenied is returned when the user or system policy refuses microphone access.
var ErrDenied = errors.New("microphone permission not granted")
