// Package notify dispatches candidate-facing notifications: interview
// invites, bulk rejection feedback, and intake acknowledgements.
package notify

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talentflow/intake-pipeline/internal/common/config"
	pipeerrors "github.com/talentflow/intake-pipeline/internal/common/errors"
	"github.com/talentflow/intake-pipeline/internal/common/google"
	"github.com/talentflow/intake-pipeline/internal/common/logger"
	"github.com/talentflow/intake-pipeline/internal/common/metrics"
	"github.com/talentflow/intake-pipeline/internal/common/retry"
	"github.com/talentflow/intake-pipeline/internal/models"
)

// CandidateStore is the slice of the persistence layer the dispatcher needs.
type CandidateStore interface {
	GetByID(ctx context.Context, id string) (*models.Candidate, error)
	TransitionStatus(ctx context.Context, id string, to models.Status) error
	SetCalendarEvent(ctx context.Context, id, eventID string) error
	RecordNotificationAttempt(ctx context.Context, attempt models.NotificationAttempt) (string, error)
	FindPendingForBulkAction(ctx context.Context) ([]*models.Candidate, error)
}

// Dispatcher sends invites and feedback. Every send is recorded as a
// notification attempt regardless of outcome.
type Dispatcher struct {
	store    CandidateStore
	email    EmailSender
	calendar google.CalendarService
	counters *metrics.CounterStore
	cfg      config.NotificationConfig
	calCfg   config.CalendarConfig
	log      logger.Logger
}

func NewDispatcher(
	store CandidateStore,
	email EmailSender,
	calendar google.CalendarService,
	counters *metrics.CounterStore,
	cfg config.NotificationConfig,
	calCfg config.CalendarConfig,
	log logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		store:    store,
		email:    email,
		calendar: calendar,
		counters: counters,
		cfg:      cfg,
		calCfg:   calCfg,
		log:      log,
	}
}

func (d *Dispatcher) sendPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	if d.cfg.MaxRetries > 0 {
		p.MaxAttempts = d.cfg.MaxRetries
	}
	return p
}

// SendInvite invites a candidate to an interview. When no slot is given it
// defaults to the top of the hour after the configured lead time, with the
// configured duration. When a calendar event already exists
// from an earlier attempt it is reused instead of creating a duplicate.
func (d *Dispatcher) SendInvite(ctx context.Context, candidateID string, start, end *time.Time) (*models.InviteResult, error) {
	cand, err := d.store.GetByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	switch cand.Status {
	case models.StatusScreened:
		if err := d.store.TransitionStatus(ctx, candidateID, models.StatusInvitePending); err != nil {
			return nil, err
		}
	case models.StatusInvitePending, models.StatusInvited:
		// retrying or resending
	default:
		return nil, pipeerrors.NewStatusTransitionInvalidError(string(cand.Status), string(models.StatusInvitePending))
	}

	slotStart, slotEnd := d.resolveSlot(start, end)
	recipient := recipientEmail(cand)
	if recipient == "" {
		return nil, pipeerrors.NewDispatchRecipientInvalidError("")
	}

	eventID := cand.CalendarEventID
	calendarUsed := false
	if d.calCfg.Enabled && d.calendar != nil {
		if eventID == "" {
			err = retry.Do(ctx, "calendar event", func() error {
				var cerr error
				eventID, cerr = d.calendar.CreateEvent(ctx, google.EventRequest{
					Summary:       fmt.Sprintf("Interview: %s", displayName(cand)),
					Description:   "Interview scheduled by the recruiting team.",
					Start:         slotStart,
					End:           slotEnd,
					AttendeeEmail: recipient,
					Timezone:      d.calCfg.Timezone,
				})
				if cerr != nil {
					return pipeerrors.NewCalendarUnavailableError(cerr)
				}
				return nil
			}, d.sendPolicy(), d.log)
			if err != nil {
				return nil, err
			}
			// Persisted before the email goes out so a later retry finds it.
			if err := d.store.SetCalendarEvent(ctx, candidateID, eventID); err != nil {
				return nil, err
			}
		}
		calendarUsed = true
	}

	body, err := renderInvite(displayName(cand), slotStart, slotEnd, d.calCfg.Timezone, calendarUsed)
	if err != nil {
		return nil, err
	}

	sendErr := retry.Do(ctx, "invite email", func() error {
		return d.email.Send(ctx, recipient, inviteSubject, body)
	}, d.sendPolicy(), d.log)

	d.recordAttempt(ctx, candidateID, models.NotificationInvite, recipient, eventID, sendErr)

	if sendErr != nil {
		return nil, sendErr
	}

	if cand.Status != models.StatusInvited {
		if err := d.store.TransitionStatus(ctx, candidateID, models.StatusInvited); err != nil {
			return nil, err
		}
	}
	d.counters.Inc(metrics.CounterInvitesSent)

	d.log.Info("interview invite sent", map[string]interface{}{
		"candidateId": candidateID,
		"recipient":   recipient,
		"eventId":     eventID,
		"start":       slotStart.Format(time.RFC3339),
	})

	return &models.InviteResult{
		CandidateID:     candidateID,
		CalendarEventID: eventID,
		Start:           slotStart,
		End:             slotEnd,
		EmailSent:       true,
	}, nil
}

// SendFeedbackToRemaining sends rejection feedback to every candidate still
// awaiting an outcome. Failures are isolated per candidate: one bad address
// never blocks the rest, and failed candidates keep their prior status.
func (d *Dispatcher) SendFeedbackToRemaining(ctx context.Context) (*models.BulkFeedbackResult, error) {
	candidates, err := d.store.FindPendingForBulkAction(ctx)
	if err != nil {
		return nil, err
	}

	workers := d.cfg.BulkWorkers
	if workers < 1 {
		workers = 1
	}

	failures := make([]*models.FeedbackFailure, len(candidates))
	var sent int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	sentCh := make(chan struct{}, len(candidates))

	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			if err := d.sendFeedbackOne(gctx, cand); err != nil {
				failures[i] = &models.FeedbackFailure{
					CandidateID: cand.ID,
					Email:       recipientEmail(cand),
					Reason:      err.Error(),
				}
				return nil
			}
			sentCh <- struct{}{}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(sentCh)
	for range sentCh {
		sent++
	}

	result := &models.BulkFeedbackResult{Sent: int(sent)}
	for _, f := range failures {
		if f != nil {
			result.Failures = append(result.Failures, *f)
		}
	}

	d.log.Info("bulk feedback completed", map[string]interface{}{
		"candidates": len(candidates),
		"sent":       result.Sent,
		"failed":     len(result.Failures),
	})
	return result, nil
}

func (d *Dispatcher) sendFeedbackOne(ctx context.Context, cand *models.Candidate) error {
	recipient := recipientEmail(cand)
	if recipient == "" {
		err := pipeerrors.NewDispatchRecipientInvalidError("")
		d.recordAttempt(ctx, cand.ID, models.NotificationFeedback, recipient, "", err)
		return err
	}

	body, err := renderFeedback(displayName(cand), cand.Summary, cand.MatchingSkills, cand.Concerns)
	if err != nil {
		return err
	}

	sendErr := retry.Do(ctx, "feedback email", func() error {
		return d.email.Send(ctx, recipient, feedbackSubject, body)
	}, d.sendPolicy(), d.log)

	d.recordAttempt(ctx, cand.ID, models.NotificationFeedback, recipient, "", sendErr)
	if sendErr != nil {
		return sendErr
	}

	if err := d.store.TransitionStatus(ctx, cand.ID, models.StatusFeedbackSent); err != nil {
		return err
	}
	d.counters.Inc(metrics.CounterFeedbackSent)
	return nil
}

// SendIntakeAck confirms receipt of an application. Best effort; the caller
// logs and moves on if it fails.
func (d *Dispatcher) SendIntakeAck(ctx context.Context, recipient, name string) error {
	if !d.cfg.Email.Enabled {
		return nil
	}
	body, err := renderIntakeAck(name)
	if err != nil {
		return err
	}
	return d.email.Send(ctx, recipient, ackSubject, body)
}

func (d *Dispatcher) recordAttempt(ctx context.Context, candidateID string, kind models.NotificationKind, recipient, eventID string, sendErr error) {
	attempt := models.NotificationAttempt{
		CandidateID:     candidateID,
		Kind:            kind,
		Recipient:       recipient,
		Result:          models.AttemptSuccess,
		CalendarEventID: eventID,
	}
	if sendErr != nil {
		attempt.Result = models.AttemptFailure
		attempt.Reason = sendErr.Error()
	}

	if _, err := d.store.RecordNotificationAttempt(ctx, attempt); err != nil {
		d.log.Error("failed to record notification attempt", map[string]interface{}{
			"candidateId": candidateID,
			"kind":        string(kind),
			"error":       err.Error(),
		})
	}
	metrics.NotificationsSent.WithLabelValues(string(kind), string(attempt.Result)).Inc()
}

// resolveSlot fills in missing interview times. The default slot starts at
// the top of the hour after the configured lead time and runs for the
// configured duration, always in UTC.
func (d *Dispatcher) resolveSlot(start, end *time.Time) (time.Time, time.Time) {
	leadHours := d.cfg.InviteLeadHours
	if leadHours <= 0 {
		leadHours = 24
	}
	durationMin := d.cfg.InviteDurationMin
	if durationMin <= 0 {
		durationMin = 30
	}

	var s time.Time
	if start != nil {
		s = start.UTC()
	} else {
		s = time.Now().UTC().Add(time.Duration(leadHours) * time.Hour).Truncate(time.Hour)
	}

	var e time.Time
	if end != nil && end.After(s) {
		e = end.UTC()
	} else {
		e = s.Add(time.Duration(durationMin) * time.Minute)
	}
	return s, e
}

func recipientEmail(cand *models.Candidate) string {
	if cand.ParsedProfile != nil && cand.ParsedProfile.ContactEmail != "" {
		return cand.ParsedProfile.ContactEmail
	}
	return cand.SourceEmail
}

func displayName(cand *models.Candidate) string {
	if cand.ParsedProfile != nil && cand.ParsedProfile.FullName != "" {
		return cand.ParsedProfile.FullName
	}
	return cand.SenderName
}
