// Package syncer coordinates synchronization between the device cache and
// the remote catalog: pulling authoritative state for the sale the user is
// working in, draining the durable mutation queue, reconciling temporary
// identifiers, and continuing lower-priority pulls in the background. A
// pass is bounded by a timeout so the interface never blocks indefinitely
// on the network.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lotbook/lotbook/internal/cache"
	"github.com/lotbook/lotbook/internal/common"
	"github.com/lotbook/lotbook/internal/logging"
	"github.com/lotbook/lotbook/internal/models"
	"github.com/lotbook/lotbook/internal/remote"
)

// DefaultTimeout bounds one full priority sync pass.
const DefaultTimeout = 30 * time.Second

// State is the orchestrator's position in its lifecycle. A terminal state
// (complete or failed) re-arms on the next trigger.
type State string

const (
	StateIdle     State = "idle"
	StateSyncing  State = "syncing"
	StateComplete State = "complete"
	StateFailed   State = "failed"
)

// PhotoUploader pushes one pending photo blob to object storage. Satisfied
// by *photo.Pipeline.
type PhotoUploader interface {
	Upload(ctx context.Context, photoID string) error
}

// NumberAllocator issues the next permanent display number for a sale.
// Satisfied by *sequence.Allocator.
type NumberAllocator interface {
	NextNumber(ctx context.Context, saleID string) int64
}

// Orchestrator runs sync passes. One pass pulls items and photo metadata
// for the priority sale, pushes queued local mutations, uploads pending
// photo blobs, and then continues pulling the remaining sales in the
// background. Progress is reported through a subscribable observer
// registry.
type Orchestrator struct {
	cache     *cache.Cache
	remote    remote.Client
	uploader  PhotoUploader
	allocator NumberAllocator
	log       logging.Logger
	timeout   time.Duration

	progress *progressHub

	mu         sync.Mutex
	state      State
	generation int64
	// lastSale and sessionDone implement the performed-this-session guard:
	// a repeated trigger for the same sale is a no-op until the context
	// switches to a different sale.
	lastSale    string
	sessionDone bool

	background sync.WaitGroup
}

// NewOrchestrator wires the orchestrator to its collaborators. A zero
// timeout selects DefaultTimeout.
func NewOrchestrator(c *cache.Cache, client remote.Client, uploader PhotoUploader, allocator NumberAllocator, timeout time.Duration, log logging.Logger) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Orchestrator{
		cache:     c,
		remote:    client,
		uploader:  uploader,
		allocator: allocator,
		log:       log,
		timeout:   timeout,
		progress:  newProgressHub(),
		state:     StateIdle,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// OnProgress registers a progress observer and returns its unsubscribe
// function. Observers are invoked synchronously during the pass; after
// unsubscribing no further deliveries happen.
func (o *Orchestrator) OnProgress(fn func(Progress)) func() {
	return o.progress.subscribe(fn)
}

// Sync runs one pass for the given sale context. A pass already running
// returns common.ErrSyncInProgress; a pass already completed this session
// for the same sale is skipped until the context switches to another sale.
// On timeout the pass fails with common.ErrSyncTimeout but the device keeps
// operating on cached data.
func (o *Orchestrator) Sync(ctx context.Context, saleID string) error {
	return o.sync(ctx, saleID, false)
}

// Resync runs a pass regardless of the performed-this-session guard. Used
// when the user explicitly re-triggers synchronization.
func (o *Orchestrator) Resync(ctx context.Context, saleID string) error {
	return o.sync(ctx, saleID, true)
}

func (o *Orchestrator) sync(ctx context.Context, saleID string, force bool) error {
	o.mu.Lock()
	if o.state == StateSyncing {
		o.mu.Unlock()
		return common.ErrSyncInProgress
	}
	if saleID != o.lastSale {
		o.sessionDone = false
		o.lastSale = saleID
	}
	if o.sessionDone && !force {
		o.mu.Unlock()
		return nil
	}
	o.state = StateSyncing
	o.generation++
	gen := o.generation
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	err := o.runPass(ctx, gen, saleID)

	o.mu.Lock()
	if err != nil {
		o.state = StateFailed
	} else {
		o.state = StateComplete
		o.sessionDone = true
	}
	o.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("sync pass for sale %s: %w", saleID, common.ErrSyncTimeout)
		}
		o.log.Warn(ctx, "sync pass failed", "sale_id", saleID, "error", err)
		return err
	}

	o.continueInBackground(gen, saleID)
	return nil
}

func (o *Orchestrator) runPass(ctx context.Context, gen int64, saleID string) error {
	if err := o.pullSale(ctx, gen, saleID, StageActiveSaleItems, StagePhotos); err != nil {
		return err
	}
	if err := o.pushMutations(ctx, gen); err != nil {
		return err
	}
	if err := o.uploadPending(ctx, gen); err != nil {
		return err
	}
	return o.cache.SetLastSync(ctx, saleID, time.Now().UTC())
}

// emit publishes progress unless the pass has been superseded by a newer
// one; a late pass must never report over a live one.
func (o *Orchestrator) emit(gen int64, p Progress) {
	o.mu.Lock()
	stale := gen != o.generation
	o.mu.Unlock()
	if stale {
		return
	}
	o.progress.publish(p)
}

// pendingDeletes returns the (table, record id) pairs with a queued delete
// mutation, keyed "table/id".
func (o *Orchestrator) pendingDeletes(ctx context.Context) (map[string]bool, error) {
	queued, err := o.cache.PendingMutations(ctx)
	if err != nil {
		return nil, err
	}
	set := map[string]bool{}
	for _, m := range queued {
		if m.Op == models.OpDelete {
			set[m.Table+"/"+m.RecordID] = true
		}
	}
	return set, nil
}

// pullSale fetches items and photo metadata of one sale and applies them
// last-write-wins, so pending local edits that are newer than the remote
// copy survive the pull. Records deleted locally but not yet deleted
// remotely are skipped entirely: the upsert would re-insert the absent row
// and no later pull would ever remove it again.
func (o *Orchestrator) pullSale(ctx context.Context, gen int64, saleID, itemStage, photoStage string) error {
	deleted, err := o.pendingDeletes(ctx)
	if err != nil {
		return err
	}

	remoteItems, err := o.remote.ListItems(ctx, saleID)
	if err != nil {
		return fmt.Errorf("failed to pull items for sale %s: %w", saleID, err)
	}
	o.emit(gen, Progress{Stage: itemStage, Current: 0, Total: len(remoteItems)})
	for i := range remoteItems {
		item := remoteItems[i]
		if !deleted[common.TableItems+"/"+item.ID] {
			item.SyncStatus = models.SyncSynced
			if err := o.cache.UpsertItem(ctx, &item); err != nil {
				return err
			}
		}
		o.emit(gen, Progress{Stage: itemStage, Current: i + 1, Total: len(remoteItems)})
	}

	remotePhotos, err := o.remote.ListPhotos(ctx, saleID)
	if err != nil {
		return fmt.Errorf("failed to pull photos for sale %s: %w", saleID, err)
	}
	o.emit(gen, Progress{Stage: photoStage, Current: 0, Total: len(remotePhotos)})
	for i := range remotePhotos {
		p := remotePhotos[i]
		if !deleted[common.TablePhotos+"/"+p.ID] {
			p.SyncStatus = models.SyncSynced
			if err := o.cache.UpsertPhoto(ctx, &p); err != nil {
				return err
			}
		}
		o.emit(gen, Progress{Stage: photoStage, Current: i + 1, Total: len(remotePhotos)})
	}
	return nil
}

// pushMutations drains the queue in FIFO order. Each entry is applied to
// the remote store and acknowledged on success; on failure it stays queued
// for the next pass. A failing entry does not abort the drain unless the
// pass itself is cancelled.
func (o *Orchestrator) pushMutations(ctx context.Context, gen int64) error {
	queued, err := o.cache.PendingMutations(ctx)
	if err != nil {
		return err
	}
	o.emit(gen, Progress{Stage: StageMutations, Current: 0, Total: len(queued)})

	for i, m := range queued {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.applyMutation(ctx, m); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return err
			}
			o.log.Warn(ctx, "mutation push failed, entry stays queued",
				"table", m.Table, "record_id", m.RecordID, "op", m.Op, "error", err)
		} else if err := o.cache.AckMutation(ctx, m.Seq); err != nil {
			return err
		}
		// the counter tracks processed entries, failed ones included
		o.emit(gen, Progress{Stage: StageMutations, Current: i + 1, Total: len(queued)})
	}
	return nil
}

func (o *Orchestrator) applyMutation(ctx context.Context, m models.PendingMutation) error {
	switch m.Table {
	case common.TableItems:
		return o.applyItemMutation(ctx, m)
	case common.TablePhotos:
		return o.applyPhotoMutation(ctx, m)
	default:
		// unknown entries would poison the queue forever; drop them
		o.log.Error(ctx, "dropping mutation for unknown table", "table", m.Table, "record_id", m.RecordID)
		return nil
	}
}

func (o *Orchestrator) applyItemMutation(ctx context.Context, m models.PendingMutation) error {
	switch m.Op {
	case models.OpCreate:
		var item models.CatalogItem
		if err := json.Unmarshal(m.Payload, &item); err != nil {
			return fmt.Errorf("corrupt item payload: %w", err)
		}
		if models.IsTemporaryNumber(item.Number) {
			item.Number = o.allocator.NextNumber(ctx, item.SaleID)
			if models.IsTemporaryNumber(item.Number) {
				// temporary numbers never go remote; stay queued until a
				// permanent one can be read
				return fmt.Errorf("no permanent number available for sale %s: %w", item.SaleID, common.ErrUnavailable)
			}
		}
		created, err := o.remote.InsertItem(ctx, &item)
		if err != nil {
			return err
		}
		if models.IsTemporaryID(item.ID) {
			return o.cache.ReconcileItem(ctx, item.ID, created.ID, created.Number)
		}
		return nil

	case models.OpUpdate:
		var item models.CatalogItem
		if err := json.Unmarshal(m.Payload, &item); err != nil {
			return fmt.Errorf("corrupt item payload: %w", err)
		}
		return o.remote.UpdateItem(ctx, &item)

	case models.OpDelete:
		return o.remote.DeleteItem(ctx, m.RecordID)
	}
	return fmt.Errorf("unknown item operation %q", m.Op)
}

// applyPhotoMutation ships the live cached record rather than the payload
// snapshot: a background upload completed after enqueue may have filled in
// the remote path, and the snapshot would ship it stale.
func (o *Orchestrator) applyPhotoMutation(ctx context.Context, m models.PendingMutation) error {
	if m.Op == models.OpDelete {
		return o.remote.DeletePhoto(ctx, m.RecordID)
	}

	record, err := o.cache.Photo(ctx, m.RecordID)
	if errors.Is(err, common.ErrNotFound) {
		// deleted locally since enqueue; nothing to ship
		return nil
	}
	if err != nil {
		return err
	}

	if models.IsTemporaryID(record.ItemID) {
		// owning item not reconciled yet; retry next pass
		return fmt.Errorf("photo %s still references a temporary item: %w", record.ID, common.ErrConflict)
	}

	if record.RemotePath == "" {
		if err := o.uploader.Upload(ctx, record.ID); err != nil {
			return err
		}
		record, err = o.cache.Photo(ctx, m.RecordID)
		if err != nil {
			return err
		}
	}

	switch m.Op {
	case models.OpCreate:
		return o.remote.InsertPhoto(ctx, record)
	case models.OpUpdate:
		return o.remote.UpdatePhoto(ctx, record)
	}
	return fmt.Errorf("unknown photo operation %q", m.Op)
}

// uploadPending sweeps photos whose blob never reached object storage and
// that no queued mutation will carry, e.g. after a crash between
// acknowledgment and upload.
func (o *Orchestrator) uploadPending(ctx context.Context, gen int64) error {
	pending, err := o.cache.PendingUploadPhotos(ctx)
	if err != nil {
		return err
	}
	o.emit(gen, Progress{Stage: StageUploads, Current: 0, Total: len(pending)})

	for i, p := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !models.IsTemporaryID(p.ItemID) {
			if err := o.uploader.Upload(ctx, p.ID); err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					return err
				}
				o.log.Warn(ctx, "photo upload failed, stays pending", "photo_id", p.ID, "error", err)
			}
		}
		o.emit(gen, Progress{Stage: StageUploads, Current: i + 1, Total: len(pending)})
	}
	return nil
}

// continueInBackground pulls the remaining sales after the priority pass
// has unblocked the caller. A newer pass supersedes the continuation;
// errors are logged, never surfaced.
func (o *Orchestrator) continueInBackground(gen int64, prioritySaleID string) {
	o.background.Add(1)
	go func() {
		defer o.background.Done()

		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		defer cancel()

		sales, err := o.remote.ListSales(ctx)
		if err != nil {
			o.log.Warn(ctx, "background sale listing failed", "error", err)
			return
		}

		for _, sale := range sales {
			if sale.ID == prioritySaleID {
				continue
			}
			o.mu.Lock()
			superseded := gen != o.generation
			o.mu.Unlock()
			if superseded {
				return
			}
			if err := o.pullSale(ctx, gen, sale.ID, StageHistorical, StageHistorical); err != nil {
				o.log.Warn(ctx, "background pull failed", "sale_id", sale.ID, "error", err)
				continue
			}
			if err := o.cache.SetLastSync(ctx, sale.ID, time.Now().UTC()); err != nil {
				o.log.Warn(ctx, "failed to record background sync time", "sale_id", sale.ID, "error", err)
			}
		}
	}()
}

// WaitBackground blocks until background continuations finish. Intended
// for shutdown paths and tests.
func (o *Orchestrator) WaitBackground() {
	o.background.Wait()
}
