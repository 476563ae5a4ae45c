package submit

import (
	"context"
	"log/slog"
	"time"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/capture"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/storage"
)

// Uploader persists original payloads to durable storage.
type Uploader interface {
	Upload(ctx context.Context, token, path string, data []byte, contentType string) (string, error)
}

// Orchestrator uploads original payloads one item at a time. Sequential by
// construction: the uplink on a constrained mobile network does not tolerate
// parallel uploads, and memory stays bounded. A failed item is logged and
// skipped; the batch never aborts because one upload failed.
type Orchestrator struct {
	uploader Uploader
	logger   *slog.Logger
	now      func() time.Time
}

func NewOrchestrator(uploader Uploader, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		uploader: uploader,
		logger:   logger.With("component", "upload-orchestrator"),
		now:      time.Now,
	}
}

// UploadAll returns the public URLs of the payloads that made it, preserving
// the relative order of successes. The result may be shorter than the input.
func (o *Orchestrator) UploadAll(ctx context.Context, token, ownerID string, items []*capture.Item) []string {
	urls := make([]string, 0, len(items))
	batchStart := o.now()

	for i, it := range items {
		if ctx.Err() != nil {
			o.logger.Warn("upload batch cancelled", "uploaded", len(urls), "remaining", len(items)-i)
			break
		}

		path := storage.ObjectPath(ownerID, batchStart, i)
		url, err := o.uploader.Upload(ctx, token, path, it.OriginalPayload, contentTypeFor(it))
		if err != nil {
			o.logger.Warn("item upload failed, continuing batch",
				"item_id", it.ID, "index", i, "error", err)
			continue
		}
		urls = append(urls, url)
	}

	o.logger.Info("upload batch finished", "attempted", len(items), "succeeded", len(urls))
	return urls
}

func contentTypeFor(it *capture.Item) string {
	if it.Kind == shared.ItemKindVideo {
		return "video/webm"
	}
	return "image/jpeg"
}
