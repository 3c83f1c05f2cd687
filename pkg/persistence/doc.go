/*
Package persistence implements the sticky session persistence service.

A Service stores one record per user identifier in a ports.Backend under
"<namespace>:<userId>", with a sliding TTL (30 days by default):

  - Save writes the whole record at once and keeps the first createdAt.
  - Get bumps lastAccessed and restarts the TTL window (refresh-on-read).
  - Delete, Exists and ListUserIDs round out the surface.

The service is fail-soft. When the backend is not ready, or a round-trip
fails, or a stored value cannot be decoded, the operation degrades to its
"no persistence" result and the problem is only visible in logs and
metrics. Persistence is an optimization; it must never fail the browser
session workflow that calls it.
*/
package persistence
