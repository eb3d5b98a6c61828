/*
Package observability provides Prometheus instrumentation for a router.

It attaches observer hooks that count transition outcomes, time them,
and track state entries, without touching the hot path: observers run
after a transition settled and their errors are only logged.
*/
package observability
