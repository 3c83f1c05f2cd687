// Package codec translates session records to and from the single JSON blob
// stored per key.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aretw0/sticky/pkg/domain"
)

// Encode serializes a record. Output is deterministic for equal records:
// struct fields keep declaration order and map keys are sorted.
func Encode(rec *domain.Record) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("encode: nil record")
	}
	out := *rec
	out.SessionData = rec.SessionData.Normalize()
	out.CreatedAt = rec.CreatedAt.UTC()
	out.LastAccessed = rec.LastAccessed.UTC()

	data, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return data, nil
}

// Decode parses a stored value. Any structural problem is reported as
// domain.ErrMalformedRecord so callers can treat the key as absent.
func Decode(data []byte) (*domain.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: not a JSON object", domain.ErrMalformedRecord)
	}

	var rec domain.Record
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedRecord, err)
	}

	switch {
	case rec.UserID == "":
		return nil, fmt.Errorf("%w: missing userId", domain.ErrMalformedRecord)
	case rec.CreatedAt.IsZero():
		return nil, fmt.Errorf("%w: missing createdAt", domain.ErrMalformedRecord)
	case rec.LastAccessed.IsZero():
		return nil, fmt.Errorf("%w: missing lastAccessed", domain.ErrMalformedRecord)
	}

	rec.SessionData = rec.SessionData.Normalize()
	return &rec, nil
}
