package repo

import (
	"container/heap"
	"fmt"

	"github.com/gritvcs/grit/pkg/object"
)

// AncestryWalk is a restartable traversal over commit ancestry. The
// reachable commit graph is loaded up front so emission can follow a
// topological order: a commit stays held until every child the walk has
// seen for it has been emitted, and among ready commits the newest
// committer timestamp wins, with the hash as tie-break. A parent
// therefore never precedes any of its children, even when clocks ran
// backwards between commits, and merge diamonds visit the shared
// ancestor exactly once.
//
// Abandoning a walk early has no side effects: all state is owned by
// the walker.
type AncestryWalk struct {
	queue    ancestryHeap
	commits  map[object.Hash]*object.CommitObj
	blockers map[object.Hash]int
}

// NewAncestryWalk starts a traversal at the given commit. Each call
// produces an independent walker. A missing or malformed ancestor fails
// here rather than midway through the walk.
func (r *Repo) NewAncestryWalk(start object.Hash) (*AncestryWalk, error) {
	w := &AncestryWalk{
		commits:  make(map[object.Hash]*object.CommitObj),
		blockers: make(map[object.Hash]int),
	}
	if err := w.load(r, start); err != nil {
		return nil, fmt.Errorf("ancestry walk: %w", err)
	}
	heap.Init(&w.queue)
	heap.Push(&w.queue, ancestryItem{hash: start, commit: w.commits[start]})
	return w, nil
}

// load reads every commit reachable from start and counts, per commit,
// how many children refer to it. Those counts gate emission in Next.
func (w *AncestryWalk) load(r *Repo, start object.Hash) error {
	frontier := []object.Hash{start}
	for len(frontier) > 0 {
		h := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		if _, seen := w.commits[h]; seen {
			continue
		}

		c, err := r.Store.ReadCommit(h)
		if err != nil {
			return err
		}
		w.commits[h] = c
		for _, parent := range c.Parents {
			w.blockers[parent]++
			frontier = append(frontier, parent)
		}
	}
	return nil
}

// Next returns the next commit in the walk, or ok=false when the
// traversal is exhausted. A parent enters the ready queue only when its
// last unemitted child is popped.
func (w *AncestryWalk) Next() (object.Hash, *object.CommitObj, bool, error) {
	if w.queue.Len() == 0 {
		return "", nil, false, nil
	}

	item := heap.Pop(&w.queue).(ancestryItem)
	for _, parent := range item.commit.Parents {
		w.blockers[parent]--
		if w.blockers[parent] == 0 {
			heap.Push(&w.queue, ancestryItem{hash: parent, commit: w.commits[parent]})
		}
	}
	return item.hash, item.commit, true, nil
}

type ancestryItem struct {
	hash   object.Hash
	commit *object.CommitObj
}

// ancestryHeap is a max-heap on committer timestamp with hash tie-break.
type ancestryHeap []ancestryItem

func (h ancestryHeap) Len() int { return len(h) }

func (h ancestryHeap) Less(i, j int) bool {
	if h[i].commit.Timestamp == h[j].commit.Timestamp {
		return h[i].hash < h[j].hash
	}
	return h[i].commit.Timestamp > h[j].commit.Timestamp
}

func (h ancestryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *ancestryHeap) Push(x any) {
	*h = append(*h, x.(ancestryItem))
}

func (h *ancestryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
