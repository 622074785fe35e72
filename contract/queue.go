package contract

import "github.com/google/btree"

// dueItem orders unexecuted proposals by closing time.
type dueItem struct {
	end int64
	id  uint64
}

func dueLess(a, b dueItem) bool {
	if a.end != b.end {
		return a.end < b.end
	}
	return a.id < b.id
}

// dueQueue mirrors every unexecuted proposal in memory. It is rebuilt from the
// store on open and only touched after a successful commit.
type dueQueue struct {
	tree *btree.BTreeG[dueItem]
}

func newDueQueue() *dueQueue {
	return &dueQueue{tree: btree.NewG[dueItem](16, dueLess)}
}

func (q *dueQueue) add(end int64, id uint64) {
	q.tree.ReplaceOrInsert(dueItem{end: end, id: id})
}

func (q *dueQueue) remove(end int64, id uint64) {
	q.tree.Delete(dueItem{end: end, id: id})
}

func (q *dueQueue) len() int { return q.tree.Len() }

// resolvable returns ids whose window closed at or before now, oldest first.
// limit <= 0 means no limit.
func (q *dueQueue) resolvable(now int64, limit int) []uint64 {
	out := []uint64{}
	q.tree.Ascend(func(it dueItem) bool {
		if it.end > now {
			return false
		}
		out = append(out, it.id)
		return limit <= 0 || len(out) < limit
	})
	return out
}

// active returns ids still accepting votes at now, closest deadline first.
func (q *dueQueue) active(now int64, limit int) []uint64 {
	out := []uint64{}
	q.tree.AscendGreaterOrEqual(dueItem{end: now + 1}, func(it dueItem) bool {
		out = append(out, it.id)
		return limit <= 0 || len(out) < limit
	})
	return out
}

// open counts proposals still accepting votes at now.
func (q *dueQueue) open(now int64) int {
	return q.len() - len(q.resolvable(now, 0))
}

// nextDeadline is the earliest end time after now, zero if none.
func (q *dueQueue) nextDeadline(now int64) int64 {
	var next int64
	q.tree.AscendGreaterOrEqual(dueItem{end: now + 1}, func(it dueItem) bool {
		next = it.end
		return false
	})
	return next
}

type queueOp struct {
	add bool
	end int64
	id  uint64
}
