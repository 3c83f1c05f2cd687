package domain

import "time"

const (
	// DefaultNamespace is the key prefix under which records are stored.
	// Keys have the form "<namespace>:<userId>".
	DefaultNamespace = "sticky:session"

	// DefaultTTL is the sliding expiry window of a record (30 days).
	DefaultTTL = 30 * 24 * time.Hour

	// KeySeparator joins the namespace and the user identifier.
	KeySeparator = ":"
)
