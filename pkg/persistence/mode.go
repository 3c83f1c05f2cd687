package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/sticky/pkg/codec"
	"github.com/aretw0/sticky/pkg/domain"
	"github.com/aretw0/sticky/pkg/ports"
)

// Outcome labels, also used as metric label values.
const (
	resultOK        = "ok"
	resultHit       = "hit"
	resultMiss      = "miss"
	resultMalformed = "malformed"
	resultError     = "error"
	resultDisabled  = "disabled"
)

type snapshot struct {
	data        domain.SessionData
	fingerprint map[string]any
	userAgent   string
}

// mode is the Disabled / Enabled(store) split. Both variants implement
// every operation, so Service methods never branch on enablement.
type mode interface {
	save(ctx context.Context, userID string, snap snapshot) string
	get(ctx context.Context, userID string) (*domain.Record, string)
	remove(ctx context.Context, userID string) string
	exists(ctx context.Context, userID string) (bool, string)
	list(ctx context.Context) ([]string, string)
}

type disabled struct {
	logger *slog.Logger
}

func (d disabled) save(_ context.Context, userID string, _ snapshot) string {
	d.logger.Debug("session persistence disabled, not saving", "user_id", userID)
	return resultDisabled
}

func (d disabled) get(context.Context, string) (*domain.Record, string) {
	return nil, resultDisabled
}

func (d disabled) remove(context.Context, string) string {
	return resultDisabled
}

func (d disabled) exists(context.Context, string) (bool, string) {
	return false, resultDisabled
}

func (d disabled) list(context.Context) ([]string, string) {
	return []string{}, resultDisabled
}

type enabled struct {
	svc   *Service
	store ports.RecordStore
}

// read fetches and decodes without touching lastAccessed or the TTL.
// A record stored under userID's key but owned by someone else is malformed.
func (e *enabled) read(ctx context.Context, key, userID string) (*domain.Record, error) {
	raw, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	rec, err := codec.Decode(raw)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, fmt.Errorf("%w: key %q holds record of user %q", domain.ErrMalformedRecord, key, rec.UserID)
	}
	return rec, nil
}

func (e *enabled) write(ctx context.Context, key string, rec *domain.Record) error {
	data, err := codec.Encode(rec)
	if err != nil {
		return err
	}
	return e.store.Set(ctx, key, data, e.svc.ttl)
}

func (e *enabled) save(ctx context.Context, userID string, snap snapshot) string {
	logger := e.svc.logger.With("user_id", userID)
	key := e.svc.key(userID)
	now := e.svc.now().UTC()
	createdAt := now

	// Existence check goes through read, not get: no refresh-on-read here,
	// the write below re-arms the TTL anyway.
	existing, err := e.read(ctx, key, userID)
	switch {
	case err == nil:
		createdAt = existing.CreatedAt
	case errors.Is(err, domain.ErrRecordNotFound):
	case errors.Is(err, domain.ErrMalformedRecord):
		logger.Warn("replacing malformed session record", "err", err)
	default:
		logger.Error("failed to read session record before save", "err", err)
		return resultError
	}

	rec := &domain.Record{
		UserID:       userID,
		SessionData:  snap.data.Normalize(),
		Fingerprint:  snap.fingerprint,
		UserAgent:    snap.userAgent,
		LastAccessed: now,
		CreatedAt:    createdAt,
	}
	if err := e.write(ctx, key, rec); err != nil {
		logger.Error("failed to save session record", "err", err)
		return resultError
	}

	logger.Debug("session record saved", "cookies", len(rec.SessionData.Cookies))
	return resultOK
}

func (e *enabled) get(ctx context.Context, userID string) (*domain.Record, string) {
	logger := e.svc.logger.With("user_id", userID)
	key := e.svc.key(userID)

	rec, err := e.read(ctx, key, userID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrRecordNotFound):
		logger.Info("no persisted session for user")
		return nil, resultMiss
	case errors.Is(err, domain.ErrMalformedRecord):
		logger.Warn("ignoring malformed session record", "err", err)
		return nil, resultMalformed
	default:
		logger.Error("failed to load session record", "err", err)
		return nil, resultError
	}

	// Refresh-on-read: bump lastAccessed and restart the TTL window.
	rec.LastAccessed = e.svc.now().UTC()
	if err := e.write(ctx, key, rec); err != nil {
		logger.Error("failed to refresh session record", "err", err)
		return nil, resultError
	}

	logger.Debug("session record loaded", "created_at", rec.CreatedAt)
	return rec, resultHit
}

func (e *enabled) remove(ctx context.Context, userID string) string {
	if err := e.store.Delete(ctx, e.svc.key(userID)); err != nil {
		e.svc.logger.Error("failed to delete session record", "user_id", userID, "err", err)
		return resultError
	}
	return resultOK
}

func (e *enabled) exists(ctx context.Context, userID string) (bool, string) {
	ok, err := e.store.Exists(ctx, e.svc.key(userID))
	if err != nil {
		e.svc.logger.Error("failed to check session record", "user_id", userID, "err", err)
		return false, resultError
	}
	if !ok {
		return false, resultMiss
	}
	return true, resultHit
}

func (e *enabled) list(ctx context.Context) ([]string, string) {
	prefix := e.svc.prefix()

	keys, err := e.store.Keys(ctx, prefix)
	if err != nil {
		e.svc.logger.Error("failed to list session records", "err", err)
		return []string{}, resultError
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		id, ok := strings.CutPrefix(key, prefix)
		if !ok || id == "" {
			continue
		}
		ids = append(ids, id)
	}
	return ids, resultOK
}
