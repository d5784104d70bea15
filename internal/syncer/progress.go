package syncer

import "sync"

// Sync stages, in the order a pass works through them.
const (
	StageActiveSaleItems = "active-sale-items"
	StagePhotos          = "photos"
	StageMutations       = "pending-mutations"
	StageUploads         = "photo-uploads"
	StageHistorical      = "historical-sales"
)

// Progress is one observable step of a sync pass: the category being
// processed plus completed and total counts within it.
type Progress struct {
	Stage   string
	Current int
	Total   int
}

// progressHub is the observer registry for sync progress. Subscribers are
// invoked synchronously; unsubscribing is deterministic, and publishing
// after the last subscriber is gone is a no-op.
type progressHub struct {
	mu   sync.Mutex
	next int64
	subs map[int64]func(Progress)
}

func newProgressHub() *progressHub {
	return &progressHub{subs: map[int64]func(Progress){}}
}

func (h *progressHub) subscribe(fn func(Progress)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	h.subs[id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

func (h *progressHub) publish(p Progress) {
	h.mu.Lock()
	fns := make([]func(Progress), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
}
