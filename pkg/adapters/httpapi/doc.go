// Package httpapi exposes a router-per-session navigation API over
// HTTP. Each session ID owns an isolated router built by a factory;
// positions are persisted through a session manager so sessions survive
// process restarts, and settled transitions stream to subscribers as
// server-sent events.
package httpapi
