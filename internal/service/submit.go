package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aleber123/nytt-sub001/internal/client"
	"github.com/aleber123/nytt-sub001/internal/domain"
	"github.com/aleber123/nytt-sub001/internal/event"
	"github.com/aleber123/nytt-sub001/internal/repository"
	apperrors "github.com/aleber123/nytt-sub001/pkg/errors"
)

// SubmitResult identifies the created order and where the browser goes next.
type SubmitResult struct {
	OrderID         string `json:"order_id"`
	Token           string `json:"token,omitempty"`
	ConfirmationURL string `json:"confirmation_url"`
}

// Submit creates the order for a completed draft.
//
// Only one attempt per draft runs at a time; a second one fails with a
// CONFLICT error without reaching the order service, and attempts during
// the cooldown that follows fail with TOO_MANY_REQUESTS wrapping a
// *repository.CooldownError. The order call runs on a context detached from
// ctx so a client disconnect cannot abort an order that is being created.
// Once the order exists, emails, events and draft cleanup are best effort.
func (s *WizardService) Submit(ctx context.Context, id, captchaToken string) (*SubmitResult, error) {
	if strings.TrimSpace(captchaToken) == "" {
		return nil, apperrors.InvalidInput("recaptcha token is required")
	}

	d, c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsTerminal() {
		submissions.WithLabelValues(d.Flow, outcomeIncomplete).Inc()
		return nil, apperrors.InvalidInput("the draft must be on the review step to submit")
	}
	if step, incomplete := c.Incomplete(); incomplete {
		submissions.WithLabelValues(d.Flow, outcomeIncomplete).Inc()
		return nil, apperrors.InvalidInput(fmt.Sprintf("step %s is incomplete", step))
	}

	if err := s.guard.Acquire(ctx, id); err != nil {
		return nil, s.guardError(d.Flow, err)
	}

	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SubmitTimeout)
	defer cancel()
	defer func() {
		if err := s.guard.Release(submitCtx, id); err != nil {
			s.logger.ErrorContext(submitCtx, "failed to release submission guard",
				slog.String("draft_id", id),
				slog.String("error", err.Error()),
			)
		}
	}()

	submitCtx, span := s.tracer.Start(submitCtx, "wizard.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("draft.id", id),
		attribute.String("draft.flow", d.Flow),
	)

	answers := c.Answers()
	order := client.Order{
		DraftID: id,
		Flow:    d.Flow,
		Locale:  s.cfg.Locale,
		Answers: answers,
	}

	start := time.Now()
	result, err := s.createOrder(submitCtx, order)
	submitDuration.WithLabelValues(d.Flow).Observe(time.Since(start).Seconds())
	if err != nil {
		submissions.WithLabelValues(d.Flow, outcomeFailed).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(submitCtx, "order submission failed",
			slog.String("draft_id", id),
			slog.String("flow", d.Flow),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	submissions.WithLabelValues(d.Flow, outcomeSuccess).Inc()
	span.SetAttributes(attribute.String("order.id", result.OrderID))
	s.logger.InfoContext(submitCtx, "order submitted",
		slog.String("draft_id", id),
		slog.String("order_id", result.OrderID),
		slog.String("flow", d.Flow),
	)

	s.afterSubmit(submitCtx, d, answers, result)
	return result, nil
}

func (s *WizardService) guardError(flowName string, err error) error {
	var cooldown *repository.CooldownError
	switch {
	case errors.Is(err, repository.ErrSubmitInFlight):
		submissions.WithLabelValues(flowName, outcomeInFlight).Inc()
		return apperrors.Conflict("a submission for this draft is already in progress")
	case errors.As(err, &cooldown):
		submissions.WithLabelValues(flowName, outcomeCooldown).Inc()
		return fmt.Errorf("%w: %w", apperrors.TooManyRequests(cooldown.Error()), cooldown)
	default:
		return fmt.Errorf("acquire submission guard: %w", err)
	}
}

func (s *WizardService) createOrder(ctx context.Context, order client.Order) (*SubmitResult, error) {
	if order.Flow == domain.FlowVisa {
		res, err := s.orders.CreateVisaOrder(ctx, order)
		if err != nil {
			return nil, fmt.Errorf("create visa order: %w", err)
		}
		return &SubmitResult{
			OrderID:         res.OrderID,
			Token:           res.Token,
			ConfirmationURL: confirmationURL(order.Flow, res.OrderID, res.Token),
		}, nil
	}

	files, closeAll, err := s.openFiles(ctx, order.Answers)
	if err != nil {
		return nil, err
	}
	defer closeAll()

	orderID, err := s.orders.CreateOrderWithFiles(ctx, order, files)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &SubmitResult{
		OrderID:         orderID,
		ConfirmationURL: confirmationURL(order.Flow, orderID, ""),
	}, nil
}

// openFiles opens every uploaded document of a. The returned func closes
// them.
func (s *WizardService) openFiles(ctx context.Context, a domain.Answers) ([]client.File, func(), error) {
	var files []client.File
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	for i, slot := range a.UploadedFiles {
		if !slot.Filled() {
			continue
		}
		obj, err := s.files.Open(ctx, slot.Key)
		if err != nil {
			closeAll()
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, nil, apperrors.InvalidInput(fmt.Sprintf("the document in slot %d is no longer available, upload it again", i))
			}
			return nil, nil, fmt.Errorf("open document %s: %w", slot.Key, err)
		}
		closers = append(closers, obj.Data.Close)
		files = append(files, client.File{
			Name:        slot.Name,
			ContentType: slot.ContentType,
			Data:        obj.Data,
		})
	}
	return files, closeAll, nil
}

// afterSubmit runs the follow-ups of a created order. None of them can
// fail the submission.
func (s *WizardService) afterSubmit(ctx context.Context, d *domain.Draft, a domain.Answers, result *SubmitResult) {
	s.notifier.OrderSubmitted(ctx, result.OrderID, d.Flow, a)

	if s.events != nil {
		if err := s.events.PublishOrderSubmitted(ctx, event.OrderSubmittedData{
			DraftID:    d.ID,
			OrderID:    result.OrderID,
			Flow:       d.Flow,
			Country:    a.Country,
			Quantity:   a.Quantity,
			TotalPrice: a.TotalPrice,
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to publish order.submitted event",
				slog.String("order_id", result.OrderID),
				slog.String("error", err.Error()),
			)
		}
	}

	unlock := s.locks.Lock(d.ID)
	err := s.sessions.Clear(ctx, d.ID)
	unlock()
	if err != nil {
		s.logger.WarnContext(ctx, "failed to clear submitted draft",
			slog.String("draft_id", d.ID),
			slog.String("error", err.Error()),
		)
	}
	s.deleteFiles(ctx, d.ID, a.FileKeys())
}

// confirmationURL returns the storefront page that confirms an order.
func confirmationURL(flowName, orderID, token string) string {
	q := url.Values{}
	if flowName == domain.FlowVisa {
		q.Set("token", token)
		return "/visum/bekraftelse?" + q.Encode()
	}
	q.Set("orderId", orderID)
	if token != "" {
		q.Set("token", token)
	}
	return "/bekraftelse?" + q.Encode()
}
