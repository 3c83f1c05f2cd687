/*
Package domain contains the core data model for sticky session persistence.

It defines what gets persisted for a logical user between two browser
automation sessions. This package is kept pure and free of external
dependencies like I/O or persistence, so adapters and the persistence
service can share it without import cycles.

# Key Entities

  - Record: The persisted snapshot for one user identifier (PersistedSessionRecord).
  - SessionData: Cookies plus local and session storage, grouped by origin.
  - Cookie: A single browser cookie in CDP-compatible shape.
*/
package domain
