package unitsearch

import (
	"encoding/json"

	"github.com/nonibytes/unitsearch/unitsearch/ops"
)

type BatchOpKind int

const (
	batchPut BatchOpKind = iota
	batchDelete
)

type BatchOp struct {
	Kind BatchOpKind
	Doc  []byte // for put
	ID   int64  // for delete
}

// Batch is an ordered list of record writes
type Batch struct {
	ops []BatchOp
}

func NewBatch() Batch {
	return Batch{ops: make([]BatchOp, 0)}
}

// PutJSON queues a record document. Only the id is checked here, by the
// same rule the decoder applies; other fields are checked when the batch
// is applied.
func (b *Batch) PutJSON(doc []byte) error {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return Wrap(ErrSchema, "document json", err)
	}
	if _, err := ops.DocumentID(m); err != nil {
		return Wrap(ErrSchema, "document id", err)
	}
	b.ops = append(b.ops, BatchOp{Kind: batchPut, Doc: doc})
	return nil
}

func (b *Batch) Delete(id int64) {
	b.ops = append(b.ops, BatchOp{Kind: batchDelete, ID: id})
}

func (b *Batch) Len() int {
	return len(b.ops)
}

func (b *Batch) Empty() bool {
	return len(b.ops) == 0
}
