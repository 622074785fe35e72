package contract

import (
	"ganjes_dao/sdk"
)

type reader interface {
	Get(key string) (*string, error)
}

// diff stages writes on top of a reader. Nothing reaches the store until the
// owning txn commits, so an aborted call leaves no trace.
type diff struct {
	parent reader
	writes map[string]*string
	order  []string
}

func newDiff(parent reader) *diff {
	return &diff{parent: parent, writes: make(map[string]*string)}
}

func (d *diff) Get(key string) (*string, error) {
	if v, ok := d.writes[key]; ok {
		if v == nil {
			return nil, nil
		}
		cp := *v
		return &cp, nil
	}
	return d.parent.Get(key)
}

func (d *diff) Set(key, value string) {
	d.touch(key)
	d.writes[key] = &value
}

func (d *diff) Delete(key string) {
	d.touch(key)
	d.writes[key] = nil
}

func (d *diff) touch(key string) {
	if _, ok := d.writes[key]; !ok {
		d.order = append(d.order, key)
	}
}

// fork returns a child that reads through d; merge folds it back.
func (d *diff) fork() *diff { return newDiff(d) }

func (d *diff) merge(child *diff) {
	for _, k := range child.order {
		v := child.writes[k]
		if v == nil {
			d.Delete(k)
			continue
		}
		d.Set(k, *v)
	}
}

func (d *diff) empty() bool { return len(d.order) == 0 }

// batch converts the staged writes in first-touch order.
func (d *diff) batch() *sdk.Batch {
	b := sdk.NewBatch()
	for _, k := range d.order {
		v := d.writes[k]
		if v == nil {
			b.Delete(k)
			continue
		}
		b.Set(k, *v)
	}
	return b
}
