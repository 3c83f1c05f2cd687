package domain

import "errors"

// ErrRecordNotFound is returned by stores when no value exists for a key.
var ErrRecordNotFound = errors.New("record not found")

// ErrMalformedRecord is returned when a stored value cannot be decoded into a Record.
var ErrMalformedRecord = errors.New("malformed session record")

// ErrConnection is reported when the backing store could not be reached
// after exhausting the retry budget.
var ErrConnection = errors.New("backing store connection failure")
