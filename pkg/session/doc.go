/*
Package session serializes concurrent access to per-session navigation
snapshots.

A Manager pairs a snapshot store with reference-counted local locks, so
two transitions for the same session never interleave their loads and
saves, and optionally with a distributed locker so the same holds across
replicas sharing one store.
*/
package session
