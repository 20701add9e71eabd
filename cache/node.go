package cache

// node is one resident entry. It is owned by a single LFU engine and is
// linked into exactly one frequency bucket: the one at index freq.
type node[K comparable, V any] struct {
	key K
	val V

	// Bucket index, in [0, maxFreq].
	freq int

	// Intrusive bucket links: prev points towards the front (oldest),
	// next towards the back (most recently appended).
	prev *node[K, V]
	next *node[K, V]
}

// bucket is an insertion-ordered list of nodes sharing one access frequency.
// Front is the oldest insertion (evicted first), back the newest.
// All operations are O(1); membership is implied by node.freq.
type bucket[K comparable, V any] struct {
	head *node[K, V]
	tail *node[K, V]
	len  int
}

// pushBack appends n at the most-recently-used end.
func (b *bucket[K, V]) pushBack(n *node[K, V]) {
	n.next = nil
	n.prev = b.tail
	if b.tail != nil {
		b.tail.next = n
	}
	b.tail = n
	if b.head == nil {
		b.head = n
	}
	b.len++
}

// remove detaches n from the bucket.
func (b *bucket[K, V]) remove(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if b.head == n {
		b.head = n.next
	}
	if b.tail == n {
		b.tail = n.prev
	}
	n.prev, n.next = nil, nil
	b.len--
}

// moveToBack re-appends n, making it the newest entry of the bucket.
func (b *bucket[K, V]) moveToBack(n *node[K, V]) {
	if b.tail == n {
		return
	}
	b.remove(n)
	b.pushBack(n)
}

// front returns the oldest node, or nil if the bucket is empty.
func (b *bucket[K, V]) front() *node[K, V] { return b.head }
