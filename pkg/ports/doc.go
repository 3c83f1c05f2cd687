/*
Package ports defines the driven ports (interfaces) for sticky session persistence.

These interfaces decouple the persistence service from concrete storage
backends, so the same service runs against Redis in production and an
in-memory store in tests.

# Key Interfaces

  - RecordStore: Raw get/set-with-TTL/delete/exists/prefix-scan over encoded records.
  - Backend: A RecordStore that also reports whether it is currently reachable.
  - DistributedLocker: Provides distributed locking for saves of the same user.
*/
package ports
