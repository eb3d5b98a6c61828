/*
Package resolve implements the data-loading side of a navigation: named
asynchronous values ("resolvables") declared by states, organized into a
per-transition dependency graph.

Each resolvable has a token, an optional list of dependency tokens, a
provider function and a policy (eager or lazy). Values are memoized per
path node for the lifetime of that node, so a retained node never re-runs
its providers. Dependencies are looked up on the owning node first and
then on its ancestors walking toward the root; the closest declaration
wins.

The graph validates itself before any provider runs: a missing dependency
or a dependency cycle is reported as an error naming the offending chain
instead of deadlocking at resolution time.
*/
package resolve
