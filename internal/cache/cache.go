// Package cache implements the device-resident persistent store: cached
// catalog records, photo binary payloads, and the durable mutation queue.
// It is the single mutable shared resource of the subsystem; every
// component reads and writes records through this facade so no two
// components can hold divergent copies of the same identifier.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/lotbook/lotbook/internal/dbx"
	"github.com/lotbook/lotbook/internal/filex"
	"github.com/lotbook/lotbook/internal/logging"
	"github.com/lotbook/lotbook/internal/migrations"
	"github.com/lotbook/lotbook/internal/models"
	"github.com/lotbook/lotbook/internal/repositories/blobs"
	"github.com/lotbook/lotbook/internal/repositories/items"
	"github.com/lotbook/lotbook/internal/repositories/metadata"
	"github.com/lotbook/lotbook/internal/repositories/mutations"
	"github.com/lotbook/lotbook/internal/repositories/photos"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// InMemoryDSN opens the cache without touching disk. It is also the
// degradation mode used when the on-disk store cannot be opened.
const InMemoryDSN = ":memory:"

// Cache is the LocalCache facade over the per-table repositories.
type Cache struct {
	db       *sql.DB
	inMemory bool
	log      logging.Logger

	items     *items.SQLiteRepository
	photos    *photos.SQLiteRepository
	mutations *mutations.SQLiteRepository
	blobs     *blobs.SQLiteRepository
	meta      *metadata.SQLiteRepository
}

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Open initializes the cache database in dataDir and runs migrations. When
// the on-disk store cannot be opened the cache degrades to an in-memory
// database for the session instead of failing: the device keeps working,
// it just loses durability until the next restart.
func Open(ctx context.Context, dataDir string, log logging.Logger) (*Cache, error) {
	dsn := InMemoryDSN
	inMemory := true

	if dataDir != InMemoryDSN {
		dir, err := filex.EnsureDataDir(dataDir)
		if err == nil {
			dsn = filepath.Join(dir, "catalog.db")
			inMemory = false
		} else {
			log.Warn(ctx, "cache directory unavailable, using in-memory store", "error", err)
		}
	}

	db, err := openDB(ctx, dsn)
	if err != nil {
		if inMemory {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		log.Warn(ctx, "local store unavailable, degrading to in-memory cache", "error", err)
		db, err = openDB(ctx, InMemoryDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open in-memory cache: %w", err)
		}
		inMemory = true
	}

	return &Cache{
		db:        db,
		inMemory:  inMemory,
		log:       log,
		items:     items.NewSQLiteRepository(db),
		photos:    photos.NewSQLiteRepository(db),
		mutations: mutations.NewSQLiteRepository(db),
		blobs:     blobs.NewSQLiteRepository(db),
		meta:      metadata.NewSQLiteRepository(db),
	}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// InMemory reports whether the cache is running in the degraded,
// non-durable mode.
func (c *Cache) InMemory() bool {
	return c.inMemory
}

// --- items ---

// UpsertItem applies a record last-write-wins by its UpdatedAt field. Used
// both by local writes and by sync pulls; replaying the same payload is
// idempotent.
func (c *Cache) UpsertItem(ctx context.Context, item *models.CatalogItem) error {
	return c.items.Upsert(ctx, item)
}

// Item returns a cached item or common.ErrNotFound.
func (c *Cache) Item(ctx context.Context, id string) (*models.CatalogItem, error) {
	return c.items.GetByID(ctx, id)
}

// ItemsBySale lists cached items of a sale ordered by display number.
func (c *Cache) ItemsBySale(ctx context.Context, saleID string) ([]models.CatalogItem, error) {
	return c.items.GetAllBySale(ctx, saleID)
}

// SaveItemLocally performs a local write: the record is marked pending,
// stored, and a mutation is enqueued, all in one transaction. The caller's
// on-screen state can update immediately; reconciliation with the remote
// store happens on the next sync pass.
func (c *Cache) SaveItemLocally(ctx context.Context, item *models.CatalogItem, op models.Operation) error {
	item.SyncStatus = models.SyncPending
	item.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := items.NewSQLiteRepository(tx).Upsert(ctx, item); err != nil {
			return err
		}
		return mutations.NewSQLiteRepository(tx).Enqueue(ctx, &models.PendingMutation{
			Table:      "items",
			RecordID:   item.ID,
			Op:         op,
			Payload:    payload,
			EnqueuedAt: time.Now().UTC(),
		})
	})
}

// DeleteItemLocally removes the item, its photos and their blobs, and
// enqueues a delete mutation, all in one transaction.
func (c *Cache) DeleteItemLocally(ctx context.Context, id string) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		photoRepo := photos.NewSQLiteRepository(tx)
		blobRepo := blobs.NewSQLiteRepository(tx)
		mutationRepo := mutations.NewSQLiteRepository(tx)

		itemPhotos, err := photoRepo.GetAllByItem(ctx, id)
		if err != nil {
			return err
		}
		for _, p := range itemPhotos {
			if err := blobRepo.Delete(ctx, p.ID); err != nil {
				return err
			}
			if err := photoRepo.DeleteByID(ctx, p.ID); err != nil {
				return err
			}
			// ships the remote photo-record delete; for a photo whose
			// create never left the queue this cancels both entries
			if err := mutationRepo.Enqueue(ctx, &models.PendingMutation{
				Table:      "photos",
				RecordID:   p.ID,
				Op:         models.OpDelete,
				EnqueuedAt: time.Now().UTC(),
			}); err != nil {
				return err
			}
		}

		if err := items.NewSQLiteRepository(tx).DeleteByID(ctx, id); err != nil {
			return err
		}
		return mutationRepo.Enqueue(ctx, &models.PendingMutation{
			Table:      "items",
			RecordID:   id,
			Op:         models.OpDelete,
			EnqueuedAt: time.Now().UTC(),
		})
	})
}

// --- photos ---

// UpsertPhoto applies a photo metadata record last-write-wins.
func (c *Cache) UpsertPhoto(ctx context.Context, p *models.Photo) error {
	return c.photos.Upsert(ctx, p)
}

// Photo returns a cached photo record or common.ErrNotFound.
func (c *Cache) Photo(ctx context.Context, id string) (*models.Photo, error) {
	return c.photos.GetByID(ctx, id)
}

// PhotosByItem lists cached photos of an item, primary first.
func (c *Cache) PhotosByItem(ctx context.Context, itemID string) ([]models.Photo, error) {
	return c.photos.GetAllByItem(ctx, itemID)
}

// SavePhotoLocally persists a captured photo: blob, metadata record, and a
// create mutation in one transaction. When the photo is primary the flag is
// cleared on siblings in the same transaction so the primary invariant has
// no observable intermediate state.
func (c *Cache) SavePhotoLocally(ctx context.Context, p *models.Photo, blob []byte) error {
	p.SyncStatus = models.SyncPending
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal photo: %w", err)
	}

	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		photoRepo := photos.NewSQLiteRepository(tx)
		mutationRepo := mutations.NewSQLiteRepository(tx)

		if err := blobs.NewSQLiteRepository(tx).Save(ctx, p.ID, blob); err != nil {
			return err
		}
		if p.IsPrimary {
			siblings, err := photoRepo.GetAllByItem(ctx, p.ItemID)
			if err != nil {
				return err
			}
			if err := photoRepo.Upsert(ctx, p); err != nil {
				return err
			}
			if err := photoRepo.SetPrimary(ctx, p.ItemID, p.ID, p.UpdatedAt); err != nil {
				return err
			}
			// demoted siblings need their flag change shipped too
			if err := enqueuePrimaryChanges(ctx, mutationRepo, siblings, p.ID, p.UpdatedAt); err != nil {
				return err
			}
		} else if err := photoRepo.Upsert(ctx, p); err != nil {
			return err
		}
		return mutationRepo.Enqueue(ctx, &models.PendingMutation{
			Table:      "photos",
			RecordID:   p.ID,
			Op:         models.OpCreate,
			Payload:    payload,
			EnqueuedAt: time.Now().UTC(),
		})
	})
}

// SetPrimaryPhoto atomically designates one photo of an item as primary.
// Every photo whose flag changes gets a bumped UpdatedAt and an enqueued
// update mutation in the same transaction, so the designation both reaches
// the remote store and survives the next pull's last-write-wins upsert.
func (c *Cache) SetPrimaryPhoto(ctx context.Context, itemID, photoID string) error {
	now := time.Now().UTC()
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		photoRepo := photos.NewSQLiteRepository(tx)

		before, err := photoRepo.GetAllByItem(ctx, itemID)
		if err != nil {
			return err
		}
		if err := photoRepo.SetPrimary(ctx, itemID, photoID, now); err != nil {
			return err
		}
		return enqueuePrimaryChanges(ctx, mutations.NewSQLiteRepository(tx), before, photoID, now)
	})
}

// enqueuePrimaryChanges queues an update mutation for each photo whose
// primary flag flipped when primaryID took the designation.
func enqueuePrimaryChanges(ctx context.Context, repo *mutations.SQLiteRepository, before []models.Photo, primaryID string, now time.Time) error {
	for _, p := range before {
		becamePrimary := p.ID == primaryID && !p.IsPrimary
		demoted := p.ID != primaryID && p.IsPrimary
		if !becamePrimary && !demoted {
			continue
		}
		p.IsPrimary = p.ID == primaryID
		p.UpdatedAt = now
		payload, err := json.Marshal(&p)
		if err != nil {
			return fmt.Errorf("failed to marshal photo: %w", err)
		}
		if err := repo.Enqueue(ctx, &models.PendingMutation{
			Table:      "photos",
			RecordID:   p.ID,
			Op:         models.OpUpdate,
			Payload:    payload,
			EnqueuedAt: now,
		}); err != nil {
			return err
		}
	}
	return nil
}

// DeletePhotoLocally removes the blob and the metadata record and enqueues
// a delete mutation, all in one transaction. No sibling is auto-promoted to
// primary; the caller designates a new primary explicitly if desired.
func (c *Cache) DeletePhotoLocally(ctx context.Context, id string) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := blobs.NewSQLiteRepository(tx).Delete(ctx, id); err != nil {
			return err
		}
		if err := photos.NewSQLiteRepository(tx).DeleteByID(ctx, id); err != nil {
			return err
		}
		return mutations.NewSQLiteRepository(tx).Enqueue(ctx, &models.PendingMutation{
			Table:      "photos",
			RecordID:   id,
			Op:         models.OpDelete,
			EnqueuedAt: time.Now().UTC(),
		})
	})
}

// MarkPhotoSynced records a successful upload.
func (c *Cache) MarkPhotoSynced(ctx context.Context, id, remotePath string) error {
	return c.photos.MarkSynced(ctx, id, remotePath)
}

// PendingUploadPhotos lists photos whose blobs have not been uploaded yet.
func (c *Cache) PendingUploadPhotos(ctx context.Context) ([]models.Photo, error) {
	return c.photos.GetAllPendingUpload(ctx)
}

// --- blobs ---

// SavePhotoBlob stores an opaque binary payload keyed by photo identifier.
func (c *Cache) SavePhotoBlob(ctx context.Context, photoID string, data []byte) error {
	return c.blobs.Save(ctx, photoID, data)
}

// GetPhotoBlob returns the payload, or nil when absent so callers can fall
// back to a remote-served reference.
func (c *Cache) GetPhotoBlob(ctx context.Context, photoID string) ([]byte, error) {
	return c.blobs.Get(ctx, photoID)
}

// --- mutation queue ---

// EnqueueMutation adds a pending mutation, collapsing it with any existing
// entry for the same (table, record id).
func (c *Cache) EnqueueMutation(ctx context.Context, m *models.PendingMutation) error {
	if m.EnqueuedAt.IsZero() {
		m.EnqueuedAt = time.Now().UTC()
	}
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return mutations.NewSQLiteRepository(tx).Enqueue(ctx, m)
	})
}

// PendingMutations returns queued entries in FIFO order without removing
// them; each entry stays queued until AckMutation confirms its remote
// application (at-least-once delivery).
func (c *Cache) PendingMutations(ctx context.Context) ([]models.PendingMutation, error) {
	return c.mutations.GetAllOrdered(ctx)
}

// AckMutation removes a drained entry after successful remote application.
// Acknowledging a seq that has been superseded meanwhile is a no-op.
func (c *Cache) AckMutation(ctx context.Context, seq int64) error {
	return c.mutations.Ack(ctx, seq)
}

// --- sync bookkeeping ---

func lastSyncKey(saleID string) string { return "last_sync:" + saleID }

// LastSync returns the recorded completion time of the previous sync pass
// for a sale, or the zero time when none is recorded.
func (c *Cache) LastSync(ctx context.Context, saleID string) (time.Time, error) {
	raw, err := c.meta.Get(ctx, lastSyncKey(saleID))
	if err != nil || raw == nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, string(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt last-sync value: %w", err)
	}
	return t, nil
}

// SetLastSync records the completion time of a sync pass for a sale.
func (c *Cache) SetLastSync(ctx context.Context, saleID string, t time.Time) error {
	return c.meta.Set(ctx, lastSyncKey(saleID), []byte(t.UTC().Format(time.RFC3339)))
}
