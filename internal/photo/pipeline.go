package photo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lotbook/lotbook/internal/cache"
	"github.com/lotbook/lotbook/internal/common"
	"github.com/lotbook/lotbook/internal/logging"
	"github.com/lotbook/lotbook/internal/models"
	"github.com/lotbook/lotbook/internal/netx"
	"github.com/lotbook/lotbook/internal/storage"
	"github.com/sethvargo/go-retry"
)

// OnlineChecker reports current connectivity. Satisfied by
// *connectivity.Monitor.
type OnlineChecker interface {
	Online() bool
}

// signedURLTTL bounds how long a remote display reference stays readable.
const signedURLTTL = time.Hour

// Pipeline manages the photo blob lifecycle: local persistence on capture,
// background upload to object storage, display references, and deletion.
type Pipeline struct {
	cache   *cache.Cache
	source  CaptureSource
	store   storage.ObjectStorage
	monitor OnlineChecker
	log     logging.Logger

	uploads sync.WaitGroup

	// newBackoff builds the retry policy for one upload attempt chain;
	// overridable in tests.
	newBackoff func() retry.Backoff
}

// NewPipeline wires the pipeline to its collaborators.
func NewPipeline(c *cache.Cache, source CaptureSource, store storage.ObjectStorage, monitor OnlineChecker, log logging.Logger) *Pipeline {
	return &Pipeline{
		cache:   c,
		source:  source,
		store:   store,
		monitor: monitor,
		log:     log,
		newBackoff: func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewExponential(time.Second))
		},
	}
}

// CapturedPhoto is the immediate result of a capture: the permanent photo
// identifier and a locally renderable reference. The UI never waits on
// network I/O for it.
type CapturedPhoto struct {
	PhotoID string
	Ref     *Ref
}

// Capture obtains one image from the camera, persists it locally, and
// schedules a background upload. A nil result without error means the user
// cancelled. The first photo of an item becomes primary automatically.
func (p *Pipeline) Capture(ctx context.Context, itemID string, isPrimary bool) (*CapturedPhoto, error) {
	res, err := p.source.CapturePhoto(ctx)
	if errors.Is(err, common.ErrCanceled) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("capture failed: %w", err)
	}
	return p.ingest(ctx, itemID, isPrimary, res.Data)
}

// Import obtains images from the gallery picker and ingests each one. A
// nil slice without error means the user cancelled.
func (p *Pipeline) Import(ctx context.Context, itemID string) ([]*CapturedPhoto, error) {
	results, err := p.source.PickFromGallery(ctx)
	if errors.Is(err, common.ErrCanceled) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gallery import failed: %w", err)
	}

	var imported []*CapturedPhoto
	for _, res := range results {
		cp, err := p.ingest(ctx, itemID, false, res.Data)
		if err != nil {
			return imported, err
		}
		imported = append(imported, cp)
	}
	return imported, nil
}

func (p *Pipeline) ingest(ctx context.Context, itemID string, isPrimary bool, data []byte) (*CapturedPhoto, error) {
	if !isPrimary {
		existing, err := p.cache.PhotosByItem(ctx, itemID)
		if err != nil {
			return nil, err
		}
		isPrimary = len(existing) == 0
	}

	now := time.Now().UTC()
	record := &models.Photo{
		ID:        uuid.NewString(),
		ItemID:    itemID,
		IsPrimary: isPrimary,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := p.cache.SavePhotoLocally(ctx, record, data); err != nil {
		return nil, fmt.Errorf("saving photo failed: %w", err)
	}

	p.uploadAsync(record.ItemID, record.ID, data)

	return &CapturedPhoto{PhotoID: record.ID, Ref: newLocalRef(record.ID, data)}, nil
}

// uploadAsync schedules a background upload. Offline, it does nothing; the
// next sync pass picks the photo up from the pending-upload set. Failures
// are swallowed into the pending state, never surfaced to the capturing
// caller.
func (p *Pipeline) uploadAsync(itemID, photoID string, data []byte) {
	if p.monitor != nil && !p.monitor.Online() {
		return
	}

	p.uploads.Add(1)
	go func() {
		defer p.uploads.Done()
		ctx := context.Background()
		if err := p.upload(ctx, itemID, photoID, data); err != nil {
			p.log.Warn(ctx, "background upload failed, photo stays pending",
				"photo_id", photoID, "error", err)
		}
	}()
}

func (p *Pipeline) upload(ctx context.Context, itemID, photoID string, data []byte) error {
	key := storage.PhotoPath(itemID, photoID)

	err := retry.Do(ctx, p.newBackoff(), func(ctx context.Context) error {
		if err := p.store.Upload(ctx, key, data); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return p.cache.MarkPhotoSynced(ctx, photoID, key)
}

// Upload pushes one pending photo blob to object storage in the
// foreground. Used by the sync orchestrator when draining the
// pending-upload set. A photo whose blob is gone locally is skipped.
func (p *Pipeline) Upload(ctx context.Context, photoID string) error {
	record, err := p.cache.Photo(ctx, photoID)
	if err != nil {
		return err
	}
	data, err := p.cache.GetPhotoBlob(ctx, photoID)
	if err != nil {
		return err
	}
	if data == nil {
		p.log.Warn(ctx, "pending photo has no local blob, skipping upload", "photo_id", photoID)
		return nil
	}
	return p.upload(ctx, record.ItemID, photoID, data)
}

// DisplayRef resolves a displayable reference for a photo: the local blob
// when cached, otherwise a signed URL for the remote object.
func (p *Pipeline) DisplayRef(ctx context.Context, photoID string) (*Ref, error) {
	data, err := p.cache.GetPhotoBlob(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if data != nil {
		return newLocalRef(photoID, data), nil
	}

	record, err := p.cache.Photo(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if record.RemotePath == "" {
		return nil, common.ErrNotFound
	}

	url, err := p.store.CreateSignedURL(ctx, record.RemotePath, signedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign display url: %w", err)
	}
	return newRemoteRef(photoID, url), nil
}

// Fetch downloads the photo bytes from object storage through a signed URL
// and re-caches them locally, so later displays do not need the network.
func (p *Pipeline) Fetch(ctx context.Context, photoID string) (*Ref, error) {
	record, err := p.cache.Photo(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if record.RemotePath == "" {
		return nil, common.ErrNotFound
	}

	url, err := p.store.CreateSignedURL(ctx, record.RemotePath, signedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign download url: %w", err)
	}
	data, err := netx.DownloadFromSignedURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to download photo: %w", err)
	}

	if err := p.cache.SavePhotoBlob(ctx, photoID, data); err != nil {
		return nil, err
	}
	return newLocalRef(photoID, data), nil
}

// SetPrimary designates one photo of an item as primary, clearing the flag
// on siblings atomically.
func (p *Pipeline) SetPrimary(ctx context.Context, itemID, photoID string) error {
	return p.cache.SetPrimaryPhoto(ctx, itemID, photoID)
}

// Delete removes the photo locally (blob, record, queued delete mutation)
// and then the remote object, in that order. The remote removal is
// fire-and-forget: local state is authoritative for what the device
// displays, and a failed remote removal is logged but not retried.
func (p *Pipeline) Delete(ctx context.Context, photoID string) error {
	record, err := p.cache.Photo(ctx, photoID)
	if err != nil {
		return err
	}

	if err := p.cache.DeletePhotoLocally(ctx, photoID); err != nil {
		return err
	}

	if record.RemotePath != "" {
		remotePath := record.RemotePath
		p.uploads.Add(1)
		go func() {
			defer p.uploads.Done()
			ctx := context.Background()
			if err := p.store.Remove(ctx, []string{remotePath}); err != nil {
				p.log.Warn(ctx, "remote object removal failed", "path", remotePath, "error", err)
			}
		}()
	}
	return nil
}

// WaitBackground blocks until in-flight background uploads and removals
// finish. Intended for shutdown paths and tests.
func (p *Pipeline) WaitBackground() {
	p.uploads.Wait()
}
