package domain

import "time"

// Cookie mirrors the cookie object exchanged with the browser (CDP shape).
// Only Name and Value are mandatory.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"` // seconds since epoch, 0 for session cookies
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// OriginStorage maps an origin (scheme://host[:port]) to its key/value pairs.
type OriginStorage map[string]map[string]string

// SessionData is the client-visible state of a browser session.
type SessionData struct {
	Cookies        []Cookie      `json:"cookies"`
	LocalStorage   OriginStorage `json:"localStorage"`
	SessionStorage OriginStorage `json:"sessionStorage"`
}

// Record is the persisted snapshot for one user identifier.
// There is exactly one Record per UserID; saves overwrite it in place.
type Record struct {
	UserID      string         `json:"userId"`
	SessionData SessionData    `json:"sessionData"`
	Fingerprint map[string]any `json:"fingerprint,omitempty"`
	UserAgent   string         `json:"userAgent,omitempty"`

	// LastAccessed is bumped on every successful read and every write.
	LastAccessed time.Time `json:"lastAccessed"`
	// CreatedAt is set on the first write and carried forward afterwards.
	CreatedAt time.Time `json:"createdAt"`
}

// Normalize replaces nil collections with empty ones so the encoded form is
// stable ("cookies": [] rather than null).
func (d SessionData) Normalize() SessionData {
	if d.Cookies == nil {
		d.Cookies = []Cookie{}
	}
	if d.LocalStorage == nil {
		d.LocalStorage = OriginStorage{}
	}
	if d.SessionStorage == nil {
		d.SessionStorage = OriginStorage{}
	}
	return d
}
