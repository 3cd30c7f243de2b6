package scheduler

import "github.com/nerrad567/gray-logic-grow/internal/action"

// Item is a handle to a pending entry, used with Cancel.
type Item struct {
	entry action.Entry
	seq   uint64
	index int // heap position, -1 once removed
	owner *Scheduler
}

// Entry returns the scheduled entry.
func (it *Item) Entry() action.Entry {
	return it.entry
}

func (it *Item) less(other *Item) bool {
	if !it.entry.At.Equal(other.entry.At) {
		return it.entry.At.Before(other.entry.At)
	}
	if it.entry.Priority != other.entry.Priority {
		return it.entry.Priority < other.entry.Priority
	}
	return it.seq < other.seq
}

// itemHeap implements heap.Interface.
type itemHeap []*Item

func (h itemHeap) Len() int           { return len(h) }
func (h itemHeap) Less(i, j int) bool { return h[i].less(h[j]) }

func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *itemHeap) Push(x any) {
	it := x.(*Item) //nolint:errcheck,forcetypeassert // only *Item is pushed
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}
