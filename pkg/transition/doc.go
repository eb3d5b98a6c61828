/*
Package transition implements the hook pipeline: the catalog of
lifecycle events, hook registration and matching, and the state machine
that drives one navigation attempt to Success, Error or Ignored.

Execution order is fully deterministic. Events run ascending by
(phase, order); within an event, hook instances are grouped by node
along the event's path, reverse-sorted events flip the group order
(exits run leaf to root), and within a node higher priorities run first
with registration order breaking ties. The pipeline is a strict
waterfall: no two hooks of one transition ever run concurrently.

Supersession is cooperative: immediately before each hook invocation the
pipeline asks its Host whether a newer transition exists, and yields with
outcome Ignored if so. The most recently created transition is the only
one that can reach Success.
*/
package transition
