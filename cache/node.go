package cache

// node is an intrusive doubly linked list element owned by a cache.
// The same physical node is threaded through two independent lists:
// the recency list (every cache) and the time list (TTL caches only).
// Both lists are circular and rooted at a sentinel, so splice and
// unlink never deal with nil termini.
type node[K comparable, V any] struct {
	key K
	val V

	// Recency list links: head side is MRU, tail side is LRU.
	prev *node[K, V]
	next *node[K, V]

	// Time list links: head side is the oldest write, tail side the newest.
	// nil on nodes owned by a plain Cache (never time-linked).
	tprev *node[K, V]
	tnext *node[K, V]

	// Last write time in UnixNano. Stamped by TTLCache on every Set;
	// zero and unused in a plain Cache.
	ts int64
}

// timeLinked reports whether the node is currently threaded on a time list.
func (n *node[K, V]) timeLinked() bool { return n.tnext != nil }
