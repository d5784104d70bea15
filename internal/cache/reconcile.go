package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lotbook/lotbook/internal/dbx"
	"github.com/lotbook/lotbook/internal/models"
	"github.com/lotbook/lotbook/internal/repositories/items"
	"github.com/lotbook/lotbook/internal/repositories/mutations"
	"github.com/lotbook/lotbook/internal/repositories/photos"
)

// ReconcileItem substitutes the permanent identifier and display number the
// remote store assigned for the temporary ones an item was created with
// while offline. Every local reference follows the identifier: the item row
// is re-keyed, its photos are reassigned, and queued mutations that still
// point at the temporary identifier (directly or inside a photo payload)
// are rewritten. One transaction, so a crash cannot leave the item split
// between two identifiers.
func (c *Cache) ReconcileItem(ctx context.Context, tempID, permanentID string, number int64) error {
	if !models.IsTemporaryID(tempID) {
		return fmt.Errorf("refusing to reconcile non-temporary id %q", tempID)
	}

	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := items.NewSQLiteRepository(tx).Rekey(ctx, tempID, permanentID, number); err != nil {
			return err
		}
		if err := photos.NewSQLiteRepository(tx).ReassignItem(ctx, tempID, permanentID); err != nil {
			return err
		}

		mutationRepo := mutations.NewSQLiteRepository(tx)
		if err := mutationRepo.RewriteRecordID(ctx, "items", tempID, permanentID); err != nil {
			return err
		}
		return rewritePhotoPayloadRefs(ctx, mutationRepo, tempID, permanentID)
	})
}

// rewritePhotoPayloadRefs patches queued photo-create payloads whose
// item_id still carries the temporary identifier.
func rewritePhotoPayloadRefs(ctx context.Context, repo *mutations.SQLiteRepository, tempID, permanentID string) error {
	queued, err := repo.GetAllOrdered(ctx)
	if err != nil {
		return err
	}

	for _, m := range queued {
		if m.Table != "photos" || len(m.Payload) == 0 {
			continue
		}
		var p models.Photo
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			return fmt.Errorf("corrupt photo mutation payload (seq %d): %w", m.Seq, err)
		}
		if p.ItemID != tempID {
			continue
		}
		p.ItemID = permanentID
		payload, err := json.Marshal(&p)
		if err != nil {
			return err
		}
		if err := repo.UpdatePayload(ctx, m.Seq, payload); err != nil {
			return err
		}
	}
	return nil
}
