package path

// Changes is the diff of two paths. To, From, Entering and Retained run
// root to leaf; Exiting runs leaf to root, the order exit hooks fire in.
// Reloaded lists retained nodes whose dynamic parameters changed value.
//
// Invariants: Entering ∪ Retained = To (in order, by identity);
// Exiting ∪ Retained = From; Entering ∩ Exiting = ∅.
type Changes struct {
	To       List
	From     List
	Entering List
	Retained List
	Exiting  List
	Reloaded List
}

type diffConfig struct {
	reload bool
}

// DiffOption adjusts how Diff splits the two paths.
type DiffOption func(*diffConfig)

// WithReload forces every node to exit and re-enter even when it would
// be retained, realizing a caller-requested forced reload.
func WithReload() DiffOption {
	return func(c *diffConfig) { c.reload = true }
}

// Diff compares a from path and a to path, both root to leaf. The
// longest common prefix of nodes with the same state and equal
// non-dynamic parameters is retained; retained nodes are carried over
// from the from path (cache included) with parameter values adopted from
// the to path. The from remainder exits leaf to root; the to remainder
// enters root to leaf.
func Diff(from, to List, opts ...DiffOption) *Changes {
	var cfg diffConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	common := 0
	if !cfg.reload {
		limit := len(from)
		if len(to) < limit {
			limit = len(to)
		}
		for common < limit {
			f, n := from[common], to[common]
			if !f.sameState(n) || !f.staticParamsEqual(n) {
				break
			}
			common++
		}
	}

	c := &Changes{From: from}
	for i := 0; i < common; i++ {
		kept, reloaded := from[i].retain(to[i])
		c.Retained = append(c.Retained, kept)
		if reloaded {
			c.Reloaded = append(c.Reloaded, kept)
		}
	}
	c.Entering = append(List{}, to[common:]...)
	c.Exiting = from[common:].Reverse()
	c.To = append(append(List{}, c.Retained...), c.Entering...)
	return c
}

// NoOp reports whether the transition would change nothing: nothing
// enters, nothing exits, no retained node needs a reload.
func (c *Changes) NoOp() bool {
	return len(c.Entering) == 0 && len(c.Exiting) == 0 && len(c.Reloaded) == 0
}
