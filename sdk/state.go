package sdk

import "errors"

// ErrStateClosed is returned by backends after Close.
var ErrStateClosed = errors.New("state closed")

// State is the key/value store the engine persists into. Values are opaque strings
// (binary blobs or decimal counters). Get returns nil when the key is missing.
type State interface {
	Get(key string) (*string, error)
	Set(key, value string) error
	Delete(key string) error
	// Apply writes every op of the batch or none of them.
	Apply(b *Batch) error
	// Keys lists keys starting with prefix in ascending order.
	Keys(prefix string) ([]string, error)
	Close() error
}

type batchOp struct {
	key    string
	value  string
	delete bool
}

// Batch collects writes so a whole operation lands in one Apply.
type Batch struct {
	ops []batchOp
}

// NewBatch returns an empty batch.
func NewBatch() *Batch { return &Batch{} }

// Set queues a write.
func (b *Batch) Set(key, value string) {
	b.ops = append(b.ops, batchOp{key: key, value: value})
}

// Delete queues a removal.
func (b *Batch) Delete(key string) {
	b.ops = append(b.ops, batchOp{key: key, delete: true})
}

// Len reports the number of queued ops.
func (b *Batch) Len() int { return len(b.ops) }

// Each replays ops in insertion order.
func (b *Batch) Each(fn func(key, value string, del bool)) {
	for _, op := range b.ops {
		fn(op.key, op.value, op.delete)
	}
}
