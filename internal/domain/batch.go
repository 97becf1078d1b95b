package domain

import "github.com/google/uuid"

// BatchItem pairs a prospect with its computed in-batch send delay.
type BatchItem struct {
	Prospect     Prospect
	DelayMinutes int
}

// DispatchBatch is an ordered group of prospects selected together for one
// downstream submission. It is ephemeral: never persisted, rebuilt from the
// datastore on every cycle.
type DispatchBatch struct {
	Number int // 1-based position within the cycle
	Items  []BatchItem
}

// ProspectIDs returns the ids of all prospects in the batch, in order.
func (b *DispatchBatch) ProspectIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(b.Items))
	for i, it := range b.Items {
		ids[i] = it.Prospect.ID
	}
	return ids
}

// Size returns the number of prospects in the batch.
func (b *DispatchBatch) Size() int { return len(b.Items) }
