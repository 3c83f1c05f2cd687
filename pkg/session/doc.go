/*
Package session implements the lifecycle owner side of sticky sessions.

A Manager creates live sessions, seeding them from persisted state when a
user identifier is supplied, and saves their final state on release.
Calls for the same user are serialized in-process, and optionally across
replicas through a ports.DistributedLocker.
*/
package session
