package watcher

import (
	"context"
	"time"

	pipeerrors "github.com/talentflow/intake-pipeline/internal/common/errors"
	"github.com/talentflow/intake-pipeline/internal/common/metrics"
	"github.com/talentflow/intake-pipeline/internal/common/retry"
	"github.com/talentflow/intake-pipeline/internal/models"
	"github.com/talentflow/intake-pipeline/internal/pipeline/attachments"
	"github.com/talentflow/intake-pipeline/internal/pipeline/extraction"
	"github.com/talentflow/intake-pipeline/internal/pipeline/parser"
)

// Stage names used in logs and metrics.
const (
	stageResolve = "resolve_attachment"
	stageExtract = "extract_text"
	stageParse   = "parse_profile"
	stageScreen  = "screen_fit"
)

// processCandidate runs the full stage chain for one freshly ingested
// message. Stages run strictly in order; a failed stage parks the candidate
// in needs_review and later stages never run. The outcome is always durable,
// so the caller can acknowledge the message afterwards.
func (w *Watcher) processCandidate(ctx context.Context, candidateID string, msg *models.InboundMessage) {
	metrics.CandidatesActive.Inc()
	defer metrics.CandidatesActive.Dec()

	if err := w.store.TransitionStatus(ctx, candidateID, models.StatusProcessing); err != nil {
		w.log.Error("cannot start processing", map[string]interface{}{
			"candidateId": candidateID,
			"error":       err.Error(),
		})
		return
	}

	var resolved *attachments.Resolved
	err := w.runStage(stageResolve, func() error {
		var err error
		resolved, err = w.resolver.Resolve(ctx, candidateID, msg)
		return err
	})
	if err != nil {
		w.parkForReview(ctx, candidateID, flagForError(err, models.FlagAttachmentMissing))
		return
	}

	w.runExtractionChain(ctx, candidateID, msg, resolved.Content, resolved.BlobRef, resolved.Filename, resolved.MimeType)
}

// Reprocess re-runs extraction, parsing and screening for a candidate parked
// in needs_review, using the resume already in blob storage.
func (w *Watcher) Reprocess(ctx context.Context, candidateID string) error {
	cand, err := w.store.GetByID(ctx, candidateID)
	if err != nil {
		return err
	}
	if cand.ResumeBlobRef == "" {
		return pipeerrors.NewAttachmentMissingError(cand.MessageID)
	}

	if err := w.store.TransitionStatus(ctx, candidateID, models.StatusProcessing); err != nil {
		return err
	}

	content, err := w.blobs.Get(ctx, cand.ResumeBlobRef)
	if err != nil {
		w.parkForReview(ctx, candidateID, nil)
		return err
	}

	msg := &models.InboundMessage{
		MessageID:   cand.MessageID,
		SenderEmail: cand.SourceEmail,
		SenderName:  cand.SenderName,
	}
	w.runExtractionChain(ctx, candidateID, msg, content, cand.ResumeBlobRef, cand.ResumeFilename, "")
	return nil
}

// runExtractionChain covers the stages shared by first-pass processing and
// reprocessing: extract, parse, screen.
func (w *Watcher) runExtractionChain(ctx context.Context, candidateID string, msg *models.InboundMessage, content []byte, blobRef, filename, mimeType string) {
	var extracted *extraction.Result
	err := w.runStage(stageExtract, func() error {
		var err error
		extracted, err = w.extractor.Extract(ctx, content, filename, mimeType)
		return err
	})
	if err != nil {
		w.parkForReview(ctx, candidateID, &models.ValidationFlag{
			Type:    models.FlagUnreadableResume,
			Message: "no extraction layer produced usable text",
		})
		return
	}
	if err := w.store.RecordExtraction(ctx, candidateID, blobRef, filename, extracted.Text, extracted.Method); err != nil {
		w.log.Error("failed to persist extraction", map[string]interface{}{
			"candidateId": candidateID,
			"error":       err.Error(),
		})
		w.parkForReview(ctx, candidateID, nil)
		return
	}

	var profile *models.ParsedProfile
	err = w.runStage(stageParse, func() error {
		return retry.Do(ctx, stageParse, func() error {
			var err error
			profile, err = w.parser.Parse(ctx, extracted.Text)
			return err
		}, w.retryPolicy(), w.log)
	})
	if err != nil {
		// nil profile is recorded so reviewers see the parse was attempted
		if perr := w.store.RecordParseResult(ctx, candidateID, nil); perr != nil {
			w.log.Error("failed to record empty parse result", map[string]interface{}{
				"candidateId": candidateID,
				"error":       perr.Error(),
			})
		}
		w.parkForReview(ctx, candidateID, &models.ValidationFlag{
			Type:    models.FlagParsingFailed,
			Message: err.Error(),
		})
		return
	}

	if err := w.store.RecordParseResult(ctx, candidateID, profile); err != nil {
		w.parkForReview(ctx, candidateID, nil)
		return
	}
	if flags := parser.CrossCheck(profile, msg.SenderEmail, msg.SenderName); len(flags) > 0 {
		if err := w.store.AppendFlags(ctx, candidateID, flags...); err != nil {
			w.log.Error("failed to append validation flags", map[string]interface{}{
				"candidateId": candidateID,
				"error":       err.Error(),
			})
		}
	}
	if err := w.store.TransitionStatus(ctx, candidateID, models.StatusParsed); err != nil {
		w.log.Error("cannot mark candidate parsed", map[string]interface{}{
			"candidateId": candidateID,
			"error":       err.Error(),
		})
		return
	}

	var result *models.ScreeningResult
	var comments string
	err = w.runStage(stageScreen, func() error {
		return retry.Do(ctx, stageScreen, func() error {
			var err error
			result, comments, err = w.screener.Screen(ctx, profile)
			return err
		}, w.retryPolicy(), w.log)
	})
	if err != nil {
		w.parkForReview(ctx, candidateID, &models.ValidationFlag{
			Type:    models.FlagScreeningFailed,
			Message: err.Error(),
		})
		return
	}

	if err := w.store.RecordScreeningResult(ctx, candidateID, *result, comments); err != nil {
		w.parkForReview(ctx, candidateID, nil)
		return
	}
	if w.jdRef != "" {
		if err := w.store.SetJobDescriptionRef(ctx, candidateID, w.jdRef); err != nil {
			w.log.Warn("failed to record job description ref", map[string]interface{}{
				"candidateId": candidateID,
				"error":       err.Error(),
			})
		}
	}
	if err := w.store.TransitionStatus(ctx, candidateID, models.StatusScreened); err != nil {
		w.log.Error("cannot mark candidate screened", map[string]interface{}{
			"candidateId": candidateID,
			"error":       err.Error(),
		})
		return
	}

	w.log.Info("candidate screened", map[string]interface{}{
		"candidateId": candidateID,
		"fitScore":    result.FitScore,
		"band":        string(models.ClassifyScore(result.FitScore)),
		"method":      string(extracted.Method),
	})
}

// parkForReview moves a candidate into needs_review, optionally attaching a
// flag describing why. needs_review is a durable outcome.
func (w *Watcher) parkForReview(ctx context.Context, candidateID string, flag *models.ValidationFlag) {
	if flag != nil {
		if err := w.store.AppendFlags(ctx, candidateID, *flag); err != nil {
			w.log.Error("failed to append review flag", map[string]interface{}{
				"candidateId": candidateID,
				"error":       err.Error(),
			})
		}
	}
	if err := w.store.TransitionStatus(ctx, candidateID, models.StatusNeedsReview); err != nil {
		w.log.Error("cannot park candidate for review", map[string]interface{}{
			"candidateId": candidateID,
			"error":       err.Error(),
		})
	}
}

// runStage times a stage and feeds the outcome into the pipeline metrics.
func (w *Watcher) runStage(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PipelineStagesFailed.WithLabelValues(stage, string(pipeerrors.CodeOf(err))).Inc()
		w.log.Warn("pipeline stage failed", map[string]interface{}{
			"stage": stage,
			"error": err.Error(),
		})
		return err
	}
	metrics.PipelineStagesCompleted.WithLabelValues(stage).Inc()
	return nil
}

// flagForError maps attachment errors onto review flags.
func flagForError(err error, fallback string) *models.ValidationFlag {
	flagType := fallback
	switch pipeerrors.CodeOf(err) {
	case pipeerrors.ErrCodeAttachmentMissing:
		flagType = models.FlagAttachmentMissing
	case pipeerrors.ErrCodeAttachmentTooLarge:
		flagType = models.FlagAttachmentTooLarge
	case pipeerrors.ErrCodeAttachmentUnsupported:
		flagType = models.FlagAttachmentInvalid
	}
	return &models.ValidationFlag{Type: flagType, Message: err.Error()}
}
