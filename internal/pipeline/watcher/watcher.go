// Package watcher polls the mailbox and drives each new application through
// the processing stages.
package watcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talentflow/intake-pipeline/internal/common/config"
	pipeerrors "github.com/talentflow/intake-pipeline/internal/common/errors"
	"github.com/talentflow/intake-pipeline/internal/common/logger"
	"github.com/talentflow/intake-pipeline/internal/common/metrics"
	"github.com/talentflow/intake-pipeline/internal/common/retry"
	"github.com/talentflow/intake-pipeline/internal/models"
	"github.com/talentflow/intake-pipeline/internal/pipeline/attachments"
	"github.com/talentflow/intake-pipeline/internal/pipeline/extraction"
)

// dedupeKeyTTL bounds the fast-path dedupe entries. The database unique
// constraint remains authoritative after expiry.
const dedupeKeyTTL = 7 * 24 * time.Hour

// Mailbox is the inbound mail surface the watcher polls.
type Mailbox interface {
	ListMessages(ctx context.Context, query string, max int64) ([]string, error)
	GetMessage(ctx context.Context, messageID string) (*models.InboundMessage, error)
	MarkRead(ctx context.Context, messageID string) error
}

// Deduper is the fast-path seen-message check. A false return means the
// message was already claimed.
type Deduper interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
}

// CandidateStore is the persistence surface the watcher drives.
type CandidateStore interface {
	UpsertByMessageID(ctx context.Context, msg *models.InboundMessage) (string, error)
	GetByID(ctx context.Context, id string) (*models.Candidate, error)
	TransitionStatus(ctx context.Context, id string, to models.Status) error
	AppendFlags(ctx context.Context, id string, flags ...models.ValidationFlag) error
	RecordExtraction(ctx context.Context, id, blobRef, filename, text string, method models.ExtractionMethod) error
	RecordParseResult(ctx context.Context, id string, profile *models.ParsedProfile) error
	RecordScreeningResult(ctx context.Context, id string, result models.ScreeningResult, recruiterComments string) error
	SetJobDescriptionRef(ctx context.Context, id, ref string) error
}

// AttachmentResolver picks and persists the resume attachment of a message.
type AttachmentResolver interface {
	Resolve(ctx context.Context, candidateID string, msg *models.InboundMessage) (*attachments.Resolved, error)
}

// TextExtractor turns resume bytes into text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, filename, mimeType string) (*extraction.Result, error)
}

// ProfileParser turns resume text into a structured profile.
type ProfileParser interface {
	Parse(ctx context.Context, resumeText string) (*models.ParsedProfile, error)
}

// FitScreener scores a profile against the open role.
type FitScreener interface {
	Screen(ctx context.Context, profile *models.ParsedProfile) (*models.ScreeningResult, string, error)
}

// BlobGetter fetches stored resumes for reprocessing.
type BlobGetter interface {
	Get(ctx context.Context, ref string) ([]byte, error)
}

// Acknowledger confirms intake to the applicant.
type Acknowledger interface {
	SendIntakeAck(ctx context.Context, recipient, name string) error
}

// Watcher owns the poll loop. Poll cycles are single flight: a tick that
// fires while a cycle is still running is skipped, never queued.
type Watcher struct {
	mailbox   Mailbox
	dedupe    Deduper
	store     CandidateStore
	resolver  AttachmentResolver
	extractor TextExtractor
	parser    ProfileParser
	screener  FitScreener
	blobs     BlobGetter
	acks      Acknowledger
	counters  *metrics.CounterStore
	jdRef     string
	cfg       config.MailboxConfig
	pipeCfg   config.PipelineConfig
	log       logger.Logger

	polling atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

type Deps struct {
	Mailbox   Mailbox
	Dedupe    Deduper
	Store     CandidateStore
	Resolver  AttachmentResolver
	Extractor TextExtractor
	Parser    ProfileParser
	Screener  FitScreener
	Blobs     BlobGetter
	Acks      Acknowledger
	Counters  *metrics.CounterStore
	Logger    logger.Logger

	// JobDescriptionRef identifies the role description candidates are
	// screened against, recorded on each screened candidate.
	JobDescriptionRef string
}

func New(deps Deps, cfg config.MailboxConfig, pipeCfg config.PipelineConfig) *Watcher {
	return &Watcher{
		mailbox:   deps.Mailbox,
		dedupe:    deps.Dedupe,
		store:     deps.Store,
		resolver:  deps.Resolver,
		extractor: deps.Extractor,
		parser:    deps.Parser,
		screener:  deps.Screener,
		blobs:     deps.Blobs,
		acks:      deps.Acks,
		counters:  deps.Counters,
		jdRef:     deps.JobDescriptionRef,
		cfg:       cfg,
		pipeCfg:   pipeCfg,
		log:       deps.Logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (w *Watcher) retryPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	if w.pipeCfg.MaxRetries > 0 {
		p.MaxAttempts = w.pipeCfg.MaxRetries
	}
	if w.pipeCfg.RetryDelay > 0 {
		p.InitialDelay = time.Duration(w.pipeCfg.RetryDelay) * time.Millisecond
	}
	return p
}

// Run polls until Stop is called or ctx is cancelled. The first cycle fires
// immediately. In-flight work is never cancelled mid-candidate: shutdown
// stops scheduling new cycles and waits for the current one to finish.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.done)

	interval := time.Duration(w.cfg.PollInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.log.Info("mail watcher started", map[string]interface{}{
		"interval":    interval.String(),
		"query":       w.cfg.Query,
		"maxMessages": w.cfg.MaxMessages,
		"maxWorkers":  w.cfg.MaxWorkers,
	})

	w.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.PollOnce(ctx)
		}
	}
}

// Stop halts the poll loop and blocks until the running cycle, if any, has
// drained. Safe to call more than once.
func (w *Watcher) Stop() {
	w.once.Do(func() { close(w.stop) })
	<-w.done
}

// PollOnce runs a single poll cycle. Concurrent calls are collapsed: if a
// cycle is already in flight the call is dropped and counted as skipped.
func (w *Watcher) PollOnce(ctx context.Context) {
	if !w.polling.CompareAndSwap(false, true) {
		metrics.PollCyclesSkipped.Inc()
		w.log.Debug("poll tick skipped, cycle in flight", nil)
		return
	}
	defer w.polling.Store(false)

	metrics.PollCyclesTotal.Inc()

	// Candidates in flight must reach a durable state even if the outer
	// context is cancelled during shutdown.
	cycleCtx := context.WithoutCancel(ctx)

	messageIDs, err := w.mailbox.ListMessages(cycleCtx, w.cfg.Query, int64(w.cfg.MaxMessages))
	if err != nil {
		w.log.Error("mailbox listing failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(messageIDs) == 0 {
		w.log.Debug("poll cycle found no messages", nil)
		return
	}

	workers := w.cfg.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(cycleCtx)
	g.SetLimit(workers)
	for _, messageID := range messageIDs {
		messageID := messageID
		g.Go(func() error {
			w.ingestMessage(gctx, messageID)
			return nil
		})
	}
	_ = g.Wait() // workers report their own errors via logs

	w.log.Info("poll cycle completed", map[string]interface{}{
		"messages": len(messageIDs),
	})
}

// ingestMessage claims one message and drives it to a durable outcome. The
// message is marked read only after that outcome is persisted, so a crash
// mid-processing leaves it eligible for the next cycle.
func (w *Watcher) ingestMessage(ctx context.Context, messageID string) {
	claimed, err := w.dedupe.SetNX(ctx, dedupeKey(messageID), time.Now().UTC().Format(time.RFC3339), dedupeKeyTTL)
	if err != nil {
		// Fast path down; the unique constraint below still protects us.
		w.log.Warn("dedupe fast path unavailable", map[string]interface{}{
			"messageId": messageID,
			"error":     err.Error(),
		})
	} else if !claimed {
		w.log.Debug("message already claimed, skipping", map[string]interface{}{
			"messageId": messageID,
		})
		return
	}

	msg, err := w.mailbox.GetMessage(ctx, messageID)
	if err != nil {
		w.log.Error("failed to fetch message", map[string]interface{}{
			"messageId": messageID,
			"error":     err.Error(),
		})
		return
	}

	candidateID, err := w.store.UpsertByMessageID(ctx, msg)
	if pipeerrors.IsDuplicateMessage(err) {
		w.log.Debug("message already ingested", map[string]interface{}{
			"messageId":   messageID,
			"candidateId": candidateID,
		})
		w.markRead(ctx, messageID)
		return
	}
	if err != nil {
		w.log.Error("failed to create candidate", map[string]interface{}{
			"messageId": messageID,
			"error":     err.Error(),
		})
		return
	}

	w.counters.Inc(metrics.CounterCandidatesTotal)
	w.log.Info("new application ingested", map[string]interface{}{
		"messageId":   messageID,
		"candidateId": candidateID,
		"sender":      msg.SenderEmail,
	})

	if w.cfg.AcknowledgeIntake && w.acks != nil {
		// once per message: only the upsert winner reaches this point
		if err := w.acks.SendIntakeAck(ctx, msg.SenderEmail, msg.SenderName); err != nil {
			w.log.Warn("intake acknowledgement failed", map[string]interface{}{
				"candidateId": candidateID,
				"error":       err.Error(),
			})
		}
	}

	stageCtx := ctx
	if w.pipeCfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, time.Duration(w.pipeCfg.StageTimeout)*time.Millisecond)
		defer cancel()
	}

	w.processCandidate(stageCtx, candidateID, msg)
	w.markRead(ctx, messageID)
}

func (w *Watcher) markRead(ctx context.Context, messageID string) {
	if err := w.mailbox.MarkRead(ctx, messageID); err != nil {
		w.log.Warn("failed to mark message read", map[string]interface{}{
			"messageId": messageID,
			"error":     err.Error(),
		})
	}
}

func dedupeKey(messageID string) string {
	return fmt.Sprintf("intake:msg:%s", messageID)
}
