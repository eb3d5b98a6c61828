/*
Package path materializes states into per-transition path nodes and
computes the difference between two paths.

A Node binds a registered state to concrete parameter values and a
private resolve-value cache. Diff compares a "from" and a "to" path and
splits them into entering, exiting and retained sequences; retained
nodes carry their cache forward, which is why their resolves never
re-run.
*/
package path
