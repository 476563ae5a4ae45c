package submit

import (
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/capture"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/compress"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/ghost"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

const (
	// maxItemBytes is the hard per-item ceiling at assembly time. Items larger
	// than this were compressed under an older, looser policy and get one
	// defensive re-compression pass with a tighter budget.
	maxItemBytes = 2 * 1024 * 1024

	recompressBudget = 1536 * 1024
	recompressMaxDim = 1280
)

// Request is one submission, built per user action and never persisted.
type Request struct {
	Items       []RequestItem
	DurableURLs []string
	Ghost       *ghost.Listing
	Category    string
	Subcategory string
}

type RequestItem struct {
	Kind             shared.ItemKind
	Name             string
	Payload          []byte
	AdditionalFrames [][]byte
	DocumentType     shared.DocumentType
	OriginalBytes    int64
	CompressedBytes  int64
}

// Assembler reduces the buffer selection to a submission request.
type Assembler struct {
	logger *slog.Logger
}

func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{logger: logger.With("component", "request-assembler")}
}

// Build validates the selection and assembles the request. Validation is
// fail-fast: an empty selection, or ghost mode enabled but not ready, rejects
// the submission before any network call happens.
func (a *Assembler) Build(items []*capture.Item, durableURLs []string, ghostDraft *ghost.Draft, category, subcategory string) (*Request, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items selected", shared.ErrValidation)
	}
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", shared.ErrValidation)
	}

	var listing *ghost.Listing
	if ghostDraft != nil && ghostDraft.Enabled() {
		listing = ghostDraft.Snapshot()
		if !listing.Ready() {
			return nil, fmt.Errorf("%w: ghost mode enabled but not ready", shared.ErrValidation)
		}
	}

	req := &Request{
		Items:       make([]RequestItem, 0, len(items)),
		DurableURLs: durableURLs,
		Ghost:       listing,
		Category:    category,
		Subcategory: subcategory,
	}

	for _, it := range items {
		payload := a.ensureBudget(it)
		req.Items = append(req.Items, RequestItem{
			Kind:             it.Kind,
			Name:             it.Name,
			Payload:          payload,
			AdditionalFrames: it.Meta.VideoFrames,
			DocumentType:     it.Meta.DocumentType,
			OriginalBytes:    it.Meta.OriginalBytes,
			CompressedBytes:  int64(len(payload)),
		})
	}

	return req, nil
}

// ensureBudget applies the defensive re-compression pass. Failure falls back
// to the item's existing payload: compression never blocks a submission.
func (a *Assembler) ensureBudget(it *capture.Item) []byte {
	if int64(len(it.Payload)) <= maxItemBytes {
		return it.Payload
	}

	a.logger.Warn("item over assembly ceiling, recompressing",
		"item_id", it.ID, "bytes", len(it.Payload))

	res, err := compress.Image(it.Payload, compress.Options{
		MaxWidth:  recompressMaxDim,
		MaxHeight: recompressMaxDim,
		MaxBytes:  recompressBudget,
	})
	if err != nil {
		a.logger.Error("defensive recompression failed", "item_id", it.ID, "error", err)
		return it.Payload
	}
	return res.Data
}

func requestToWire(req *Request) analyzeBody {
	body := analyzeBody{
		ScanType:          "multi-modal",
		OriginalImageURLs: req.DurableURLs,
		Items:             make([]analyzeItem, 0, len(req.Items)),
		CategoryID:        req.Category,
		SubcategoryID:     req.Subcategory,
	}
	if body.OriginalImageURLs == nil {
		body.OriginalImageURLs = []string{}
	}

	for _, it := range req.Items {
		wire := analyzeItem{
			Type: it.Kind.String(),
			Name: it.Name,
			Data: base64.StdEncoding.EncodeToString(it.Payload),
		}
		for _, f := range it.AdditionalFrames {
			wire.AdditionalFrames = append(wire.AdditionalFrames, base64.StdEncoding.EncodeToString(f))
		}

		meta := map[string]any{
			"originalSize":   it.OriginalBytes,
			"compressedSize": it.CompressedBytes,
		}
		if it.DocumentType != "" {
			meta["documentType"] = string(it.DocumentType)
		}
		wire.Metadata = meta

		body.Items = append(body.Items, wire)
	}

	if req.Ghost != nil {
		body.GhostMode = &analyzeGhost{
			ShelfPrice:    req.Ghost.ShelfPrice,
			HandlingHours: req.Ghost.HandlingHours,
			StoreType:     string(req.Ghost.StoreType),
			StoreName:     req.Ghost.StoreName,
			StoreAisle:    req.Ghost.StoreAisle,
			Location:      req.Ghost.Location,
		}
	}

	return body
}
