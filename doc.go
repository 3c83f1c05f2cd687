/*
Package sticky persists browser session state per logical user, so that a
later automation session for the same user comes back with the same
cookies, storage, fingerprint and user agent.

Records live in Redis under "<namespace>:<userId>" with a sliding 30 day
expiry: every read and every write restarts the window. Persistence is
fail-soft. When it is switched off, or Redis is unreachable, every
operation turns into a no-op that reports "nothing stored", and the host
keeps running with fresh sessions.

# Usage

	client := sticky.Open(ctx, redis.Config{Enabled: true, URL: "redis://localhost:6379/0"},
		sticky.WithLogger(logger),
	)
	defer client.Close(context.Background())

	if rec, ok := client.Get(ctx, "user-42"); ok {
		// seed the new browser from rec.SessionData
	}

	// ... at the end of the browsing session
	client.Save(ctx, "user-42", data, fingerprint, userAgent)

A session.Manager (see NewSessionManager) wraps this Get-on-create /
Save-on-release cycle and serializes it per user; package browser moves
the state in and out of a go-rod driven Chrome.
*/
package sticky
