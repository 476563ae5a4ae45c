package submit

import (
	"context"
	"log/slog"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/capture"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/ghost"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/history"
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

// Analyzer is the external valuation upstream.
type Analyzer interface {
	Analyze(ctx context.Context, token string, req *Request) (*AnalysisResult, error)
}

// Result is what a completed submission returns to the caller.
type Result struct {
	SubmissionID string
	Analysis     *AnalysisResult
	DurableURLs  []string
	FailedCount  int
	GhostOutcome *ghost.Outcome
}

// Service runs the submission pipeline: validate and assemble the selection,
// persist originals to durable storage, call the analysis service, and record
// the outcome. Assembly happens first so validation failures never cost a
// network call.
type Service struct {
	assembler    *Assembler
	orchestrator *Orchestrator
	analyzer     Analyzer
	history      *history.Store
	logger       *slog.Logger
}

type ServiceConfig struct {
	Assembler    *Assembler
	Orchestrator *Orchestrator
	Analyzer     Analyzer
	History      *history.Store
	Logger       *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Assembler == nil {
		cfg.Assembler = NewAssembler(cfg.Logger)
	}
	return &Service{
		assembler:    cfg.Assembler,
		orchestrator: cfg.Orchestrator,
		analyzer:     cfg.Analyzer,
		history:      cfg.History,
		logger:       cfg.Logger.With("component", "submit-service"),
	}
}

// Submit runs one submission for a session's current selection.
func (s *Service) Submit(ctx context.Context, sess *capture.Session, token, category, subcategory string) (*Result, error) {
	items := sess.SelectedItems()

	req, err := s.assembler.Build(items, nil, sess.Ghost(), category, subcategory)
	if err != nil {
		return nil, err
	}

	req.DurableURLs = s.orchestrator.UploadAll(ctx, token, sess.OwnerID(), items)
	failed := len(items) - len(req.DurableURLs)
	if failed > 0 {
		sess.Events().Publish(capture.Event{
			Type:      capture.EventUploadProgress,
			SessionID: sess.ID(),
			Detail:    map[string]int{"uploaded": len(req.DurableURLs), "failed": failed},
		})
	}

	analysis, err := s.analyzer.Analyze(ctx, token, req)
	if err != nil {
		return nil, err
	}

	var outcome *ghost.Outcome
	if req.Ghost != nil {
		outcome = req.Ghost.ComputeOutcome(analysis.EstimatedValue)
	}

	rec := s.record(sess.OwnerID(), req, analysis, outcome)
	if s.history != nil {
		if err := s.history.Create(ctx, rec); err != nil {
			s.logger.Warn("history write failed", "error", err)
		}
	}

	sess.Events().Publish(capture.Event{
		Type:      capture.EventSubmissionDone,
		SessionID: sess.ID(),
		Detail:    map[string]any{"submission_id": rec.ID, "estimated_value": analysis.EstimatedValue},
	})

	s.logger.Info("submission complete",
		"submission_id", rec.ID,
		"items", len(req.Items),
		"uploaded", len(req.DurableURLs),
		"estimated_value", analysis.EstimatedValue)

	return &Result{
		SubmissionID: rec.ID,
		Analysis:     analysis,
		DurableURLs:  req.DurableURLs,
		FailedCount:  failed,
		GhostOutcome: outcome,
	}, nil
}

func (s *Service) record(ownerID string, req *Request, analysis *AnalysisResult, outcome *ghost.Outcome) *history.Record {
	var totalOriginal, totalCompressed int64
	for _, it := range req.Items {
		totalOriginal += it.OriginalBytes
		totalCompressed += it.CompressedBytes
	}

	rec := &history.Record{
		ID:              shared.NewID("sub_"),
		OwnerID:         ownerID,
		Category:        req.Category,
		Subcategory:     req.Subcategory,
		ItemCount:       len(req.Items),
		OriginalBytes:   totalOriginal,
		CompressedBytes: totalCompressed,
		EstimatedValue:  analysis.EstimatedValue,
		Confidence:      analysis.Confidence,
		Verdict:         analysis.Verdict,
		Summary:         analysis.Summary,
		DurableURLs:     shared.StringSlice(req.DurableURLs),
	}

	if req.Ghost != nil {
		rec.GhostStoreType = string(req.Ghost.StoreType)
		rec.GhostStoreName = req.Ghost.StoreName
		rec.GhostShelfPrice = &req.Ghost.ShelfPrice
	}
	if outcome != nil {
		rec.GhostMargin = &outcome.EstimatedMargin
		rec.GhostMarginPercent = &outcome.MarginPercent
		rec.GhostVelocity = string(outcome.Velocity)
	}

	return rec
}
