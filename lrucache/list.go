/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import "time"

// Slots 0 and 1 of the arena are the head and tail sentinels.
// They are allocated once and never handed out by alloc.
const (
	headSlot int32 = 0
	tailSlot int32 = 1

	noSlot int32 = -1
)

type node[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time // zero means the entry never expires
	prev      int32
	next      int32
}

// recencyList is an intrusive doubly linked list stored in an arena of nodes.
// Links are arena indices, so nodes never point to each other directly.
// Head side is the most recently used entry, tail side is the eviction candidate.
type recencyList[K comparable, V any] struct {
	nodes []node[K, V]
	free  []int32
	len   int
}

func newRecencyList[K comparable, V any](capacity int) *recencyList[K, V] {
	l := &recencyList[K, V]{nodes: make([]node[K, V], 2, capacity+2)}
	l.init()
	return l
}

// init drops all data nodes and links the sentinels to each other.
func (l *recencyList[K, V]) init() {
	clear(l.nodes[2:])
	l.nodes = l.nodes[:2]
	l.nodes[headSlot] = node[K, V]{prev: noSlot, next: tailSlot}
	l.nodes[tailSlot] = node[K, V]{prev: headSlot, next: noSlot}
	l.free = l.free[:0]
	l.len = 0
}

func (l *recencyList[K, V]) alloc() int32 {
	if n := len(l.free); n > 0 {
		slot := l.free[n-1]
		l.free = l.free[:n-1]
		return slot
	}
	l.nodes = append(l.nodes, node[K, V]{})
	return int32(len(l.nodes) - 1) //nolint:gosec // arena size is bounded by cache capacity
}

// pushFront places a new node right after the head sentinel and returns its slot.
func (l *recencyList[K, V]) pushFront(key K, value V, expiresAt time.Time) int32 {
	slot := l.alloc()
	l.nodes[slot] = node[K, V]{key: key, value: value, expiresAt: expiresAt}
	l.linkAfter(slot, headSlot)
	l.len++
	return slot
}

// unlink detaches the node and returns its slot to the free list.
// Key and value are zeroed so the arena does not keep them reachable.
func (l *recencyList[K, V]) unlink(slot int32) node[K, V] {
	n := l.nodes[slot]
	l.nodes[n.prev].next = n.next
	l.nodes[n.next].prev = n.prev
	l.nodes[slot] = node[K, V]{prev: noSlot, next: noSlot}
	l.free = append(l.free, slot)
	l.len--
	return n
}

func (l *recencyList[K, V]) moveToFront(slot int32) {
	if l.nodes[headSlot].next == slot {
		return
	}
	n := &l.nodes[slot]
	l.nodes[n.prev].next = n.next
	l.nodes[n.next].prev = n.prev
	l.linkAfter(slot, headSlot)
}

func (l *recencyList[K, V]) linkAfter(slot, at int32) {
	next := l.nodes[at].next
	l.nodes[slot].prev = at
	l.nodes[slot].next = next
	l.nodes[at].next = slot
	l.nodes[next].prev = slot
}

// back returns the slot nearest to the tail sentinel or noSlot if the list is empty.
func (l *recencyList[K, V]) back() int32 {
	if slot := l.nodes[tailSlot].prev; slot != headSlot {
		return slot
	}
	return noSlot
}

// front returns the slot nearest to the head sentinel or noSlot if the list is empty.
func (l *recencyList[K, V]) front() int32 {
	if slot := l.nodes[headSlot].next; slot != tailSlot {
		return slot
	}
	return noSlot
}

// nextOf and prevOf return noSlot when the walk reaches a sentinel.
func (l *recencyList[K, V]) nextOf(slot int32) int32 {
	if next := l.nodes[slot].next; next != tailSlot {
		return next
	}
	return noSlot
}

func (l *recencyList[K, V]) prevOf(slot int32) int32 {
	if prev := l.nodes[slot].prev; prev != headSlot {
		return prev
	}
	return noSlot
}
