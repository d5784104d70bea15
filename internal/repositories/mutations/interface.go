package mutations

import (
	"context"
	"encoding/json"

	"github.com/lotbook/lotbook/internal/models"
)

// Repository is the durable pending-mutation queue. The queue holds at most
// one entry per (table, record id): a later mutation supersedes an earlier
// unsynced one instead of stacking behind it.
type Repository interface {
	// Enqueue adds a mutation, collapsing it with any existing entry for the
	// same (table, record id):
	//   - delete after a pending create removes the entry entirely (net
	//     no-op against the remote store);
	//   - update after a pending create stays a create, carrying the newer
	//     payload (the record still does not exist remotely);
	//   - anything else replaces the existing entry.
	// A superseding entry takes a fresh queue position.
	Enqueue(ctx context.Context, m *models.PendingMutation) error

	// GetByRecord returns the pending entry for (table, record id), or
	// common.ErrNotFound.
	GetByRecord(ctx context.Context, table, recordID string) (*models.PendingMutation, error)

	// GetAllOrdered returns all pending entries in enqueue (FIFO) order.
	// Entries stay queued until explicitly acknowledged.
	GetAllOrdered(ctx context.Context) ([]models.PendingMutation, error)

	// Ack removes an entry after its successful remote application. Seq
	// identifies the exact enqueued revision; acknowledging a superseded
	// seq is a no-op so a late remote result cannot drop a newer mutation.
	Ack(ctx context.Context, seq int64) error

	// RewriteRecordID re-keys queued entries for a record whose temporary
	// identifier has been reconciled to a permanent one, keeping their
	// queue positions.
	RewriteRecordID(ctx context.Context, table, oldID, newID string) error

	// UpdatePayload replaces the payload of a queued entry in place.
	UpdatePayload(ctx context.Context, seq int64, payload json.RawMessage) error
}
