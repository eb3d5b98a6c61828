/*
Package ports defines the driven ports (interfaces) for the Switchback router.

These interfaces decouple the navigation core from external implementations,
allowing the router to work with various tree sources, URL schemes, location
backends and snapshot stores.

# Key Interfaces

  - TreeLoader: Responsible for loading state definitions (e.g., from YAML, Loam or Memory).
  - URLMatcher: Maps URLs to states and back, so navigation can be driven by locations.
  - Location: A mutable, observable address bar (browser history, memory, or anything else).
  - SnapshotStore: Persists a router's current position for "Stop & Resume" sessions.
  - DistributedLocker: Provides distributed locking for concurrent session access.
*/
package ports
