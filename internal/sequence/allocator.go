// Package sequence assigns per-sale display numbers to new catalog items.
// Online, the next number is read from the remote store (max + 1); offline,
// or when the read fails, a temporary number from a reserved namespace is
// issued and reconciled to a permanent one on the next sync pass. Item
// creation is never blocked by numbering.
package sequence

import (
	"context"

	"github.com/lotbook/lotbook/internal/logging"
	"github.com/lotbook/lotbook/internal/models"
	"github.com/lotbook/lotbook/internal/remote"
)

// OnlineChecker reports current connectivity. Satisfied by
// *connectivity.Monitor.
type OnlineChecker interface {
	Online() bool
}

// Allocator issues display sequence numbers.
//
// The online path is read-then-use: two devices allocating concurrently for
// the same sale can collide. The product assumes a single mutable owner per
// device; the remote store does not enforce uniqueness.
type Allocator struct {
	remote  remote.Client
	monitor OnlineChecker
	log     logging.Logger
}

// NewAllocator returns an Allocator backed by the remote catalog API.
func NewAllocator(client remote.Client, monitor OnlineChecker, log logging.Logger) *Allocator {
	return &Allocator{remote: client, monitor: monitor, log: log}
}

// NextNumber returns the display number for a new item in the sale. It
// never fails: any error on the remote path degrades to a temporary number.
func (a *Allocator) NextNumber(ctx context.Context, saleID string) int64 {
	if a.monitor.Online() {
		max, err := a.remote.MaxItemNumber(ctx, saleID)
		if err == nil {
			return max + 1
		}
		a.log.Warn(ctx, "max-number query failed, issuing temporary number",
			"sale_id", saleID, "error", err)
	}
	return models.NewTemporaryNumber()
}

// IsTemporaryNumber reports whether n was issued offline and still awaits
// reconciliation.
func IsTemporaryNumber(n int64) bool {
	return models.IsTemporaryNumber(n)
}
