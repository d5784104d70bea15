// Package lotbook assembles the offline-first synchronization subsystem of
// the sale-catalog application: the device-resident cache, the
// connectivity monitor, the sequence allocator, the photo pipeline, and
// the sync orchestrator. Components are explicit long-lived instances
// constructed once at process start and handed to the embedding
// application by reference; there is no ambient module-level state.
package lotbook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lotbook/lotbook/internal/cache"
	"github.com/lotbook/lotbook/internal/config"
	"github.com/lotbook/lotbook/internal/connectivity"
	"github.com/lotbook/lotbook/internal/logging"
	"github.com/lotbook/lotbook/internal/photo"
	"github.com/lotbook/lotbook/internal/remote"
	"github.com/lotbook/lotbook/internal/sequence"
	"github.com/lotbook/lotbook/internal/storage"
	"github.com/lotbook/lotbook/internal/syncer"
)

// App is the assembled sync subsystem. The embedding application reads and
// writes catalog state through Cache, captures photos through Photos, and
// triggers sync passes through Syncer.
type App struct {
	Cache        *cache.Cache
	Remote       *remote.HTTPClient
	Storage      *storage.S3Storage
	Connectivity *connectivity.Monitor
	Sequence     *sequence.Allocator
	Photos       *photo.Pipeline
	Syncer       *syncer.Orchestrator

	log    logging.Logger
	cancel context.CancelFunc
}

// New assembles the subsystem from cfg. The capture source is supplied by
// the embedding application since camera and gallery access are platform
// capabilities. A nil logger selects slog's default.
func New(ctx context.Context, cfg *config.Config, source photo.CaptureSource, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.NewSlogLogger(slog.Default())
	}

	c, err := cache.Open(ctx, cfg.DataDir, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	client := remote.NewHTTPClient(cfg.RemoteBaseURL, log)

	store, err := storage.NewS3Storage(ctx, storage.S3Config{
		Region:       cfg.S3Region,
		Bucket:       cfg.S3Bucket,
		BaseEndpoint: cfg.S3BaseEndpoint,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
	})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to init object storage: %w", err)
	}

	monitor := connectivity.NewMonitor(client, cfg.ProbeInterval, log)
	allocator := sequence.NewAllocator(client, monitor, log)
	pipeline := photo.NewPipeline(c, source, store, monitor, log)
	orchestrator := syncer.NewOrchestrator(c, client, pipeline, allocator, cfg.SyncTimeout, log)

	return &App{
		Cache:        c,
		Remote:       client,
		Storage:      store,
		Connectivity: monitor,
		Sequence:     allocator,
		Photos:       pipeline,
		Syncer:       orchestrator,
		log:          log,
	}, nil
}

// SetTokens installs the session's access and refresh tokens on the remote
// client. Called by the embedding application after authentication.
func (a *App) SetTokens(access, refresh string) {
	a.Remote.SetTokens(access, refresh)
}

// Start launches the connectivity probe loop. It returns immediately; the
// loop stops when Close is called or ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	go a.Connectivity.Start(ctx)
}

// Sync runs a priority sync pass for the selected sale. See
// (*syncer.Orchestrator).Sync for the trigger semantics.
func (a *App) Sync(ctx context.Context, saleID string) error {
	return a.Syncer.Sync(ctx, saleID)
}

// Close stops background work and releases the cache. In-flight uploads
// are given the chance to finish first.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	done := make(chan struct{})
	go func() {
		a.Photos.WaitBackground()
		a.Syncer.WaitBackground()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		a.log.Warn(context.Background(), "timed out waiting for background work")
	}
	return a.Cache.Close()
}
