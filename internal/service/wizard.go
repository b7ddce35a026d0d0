package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/aleber123/nytt-sub001/internal/catalog"
	"github.com/aleber123/nytt-sub001/internal/client"
	"github.com/aleber123/nytt-sub001/internal/domain"
	"github.com/aleber123/nytt-sub001/internal/event"
	"github.com/aleber123/nytt-sub001/internal/flow"
	"github.com/aleber123/nytt-sub001/internal/repository"
	"github.com/aleber123/nytt-sub001/internal/storage"
	apperrors "github.com/aleber123/nytt-sub001/pkg/errors"
	"github.com/aleber123/nytt-sub001/pkg/tracing"
)

// Pricer quotes drafts and lists add-ons.
type Pricer interface {
	CalculateOrderPrice(ctx context.Context, in client.PriceInput) (*client.Quote, error)
	ApplicableAddons(ctx context.Context, country, documentType string) ([]domain.Service, error)
}

// OrderCreator creates orders in the order service.
type OrderCreator interface {
	CreateOrderWithFiles(ctx context.Context, order client.Order, files []client.File) (string, error)
	CreateVisaOrder(ctx context.Context, order client.Order) (*client.VisaOrderResult, error)
}

// Notifier sends the order emails.
type Notifier interface {
	OrderSubmitted(ctx context.Context, orderID, flow string, a domain.Answers)
}

// EventPublisher publishes storefront domain events.
type EventPublisher interface {
	PublishOrderSubmitted(ctx context.Context, data event.OrderSubmittedData) error
	PublishDraftAbandoned(ctx context.Context, data event.DraftAbandonedData) error
}

// TokenIssuer issues the token that binds a browser to its draft.
type TokenIssuer interface {
	Issue(draftID, flow string) (string, error)
}

// Dependencies are the collaborators of the wizard service. Events may be
// nil when no broker is configured.
type Dependencies struct {
	Sessions repository.SessionStore
	Guard    repository.SubmissionGuard
	Files    storage.Storage
	Catalog  *catalog.Catalog
	Pricing  Pricer
	Orders   OrderCreator
	Notifier Notifier
	Events   EventPublisher
	Tokens   TokenIssuer
}

// Config tunes the wizard service.
type Config struct {
	// SubmitTimeout bounds the order-creation call, independently of the
	// client request that triggered it.
	SubmitTimeout time.Duration
	Locale        string
}

// WizardService runs the order wizard for drafts kept in the session store.
type WizardService struct {
	sessions repository.SessionStore
	guard    repository.SubmissionGuard
	files    storage.Storage
	catalog  *catalog.Catalog
	pricing  Pricer
	orders   OrderCreator
	notifier Notifier
	events   EventPublisher
	tokens   TokenIssuer

	cfg    Config
	locks  *keyedMutex
	tracer trace.Tracer
	logger *slog.Logger
	now    func() time.Time
}

// NewWizardService creates a new wizard service.
func NewWizardService(deps Dependencies, cfg Config, logger *slog.Logger) *WizardService {
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 30 * time.Second
	}
	return &WizardService{
		sessions: deps.Sessions,
		guard:    deps.Guard,
		files:    deps.Files,
		catalog:  deps.Catalog,
		pricing:  deps.Pricing,
		orders:   deps.Orders,
		notifier: deps.Notifier,
		events:   deps.Events,
		tokens:   deps.Tokens,
		cfg:      cfg,
		locks:    newKeyedMutex(),
		tracer:   tracing.Tracer("storefront/wizard"),
		logger:   logger,
		now:      time.Now,
	}
}

// DraftView is the wizard state the UI renders.
type DraftView struct {
	ID          string            `json:"id"`
	Flow        string            `json:"flow"`
	CurrentStep int               `json:"current_step"`
	StepID      flow.StepID       `json:"step_id"`
	Steps       []flow.StepStatus `json:"steps"`
	CanAdvance  bool              `json:"can_advance"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	Answers     domain.Answers    `json:"answers"`
	Moved       bool              `json:"moved"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// StartedDraft is a new draft and the token that grants access to it.
type StartedDraft struct {
	Token string     `json:"token"`
	Draft *DraftView `json:"draft"`
}

func newView(d *domain.Draft, c *flow.Controller, moved bool) *DraftView {
	return &DraftView{
		ID:          d.ID,
		Flow:        d.Flow,
		CurrentStep: c.CurrentStepIndex(),
		StepID:      c.CurrentStep().ID,
		Steps:       c.Statuses(),
		CanAdvance:  c.CanAdvance(),
		FieldErrors: c.FieldErrors(),
		Answers:     c.Answers(),
		Moved:       moved,
		UpdatedAt:   d.UpdatedAt,
	}
}

// StartDraft creates a draft with default answers at the first step.
func (s *WizardService) StartDraft(ctx context.Context, flowName string) (*StartedDraft, error) {
	if !domain.IsValidFlow(flowName) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown flow %q", flowName))
	}

	c, err := flow.New(flowName)
	if err != nil {
		return nil, fmt.Errorf("start flow: %w", err)
	}

	d := &domain.Draft{
		ID:        uuid.NewString(),
		Flow:      flowName,
		CreatedAt: s.now().UTC(),
	}
	token, err := s.tokens.Issue(d.ID, flowName)
	if err != nil {
		return nil, fmt.Errorf("issue draft token: %w", err)
	}
	if err := s.save(ctx, d, c); err != nil {
		return nil, err
	}

	draftsStarted.WithLabelValues(flowName).Inc()
	s.logger.InfoContext(ctx, "draft started",
		slog.String("draft_id", d.ID),
		slog.String("flow", flowName),
	)

	return &StartedDraft{Token: token, Draft: newView(d, c, false)}, nil
}

// GetDraft returns the current wizard state.
func (s *WizardService) GetDraft(ctx context.Context, id string) (*DraftView, error) {
	d, c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return newView(d, c, false), nil
}

// PatchAnswers merges p into the draft's answers. Catalog references are
// checked first; a pricing-relevant change drops the stored quote, and
// files in slots the patch removed are deleted.
func (s *WizardService) PatchAnswers(ctx context.Context, id string, p domain.Patch) (*DraftView, error) {
	var dropped []string
	view, err := s.mutate(ctx, id, func(_ *domain.Draft, c *flow.Controller) (bool, error) {
		p = p.Canonical()
		before := c.Answers()
		if err := s.checkCatalog(before, &p); err != nil {
			return false, err
		}
		if err := c.UpdateAnswers(p); err != nil {
			return false, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
		}
		if p.TouchesPricing() {
			c.ClearQuote()
		}
		dropped = missingKeys(before.FileKeys(), c.Answers().FileKeys())
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	s.deleteFiles(ctx, id, dropped)
	return view, nil
}

// checkCatalog rejects references to countries, document types, services
// and visa products the catalog doesn't know. Choosing a visa product
// fills in its visa type, and moving to another country drops a visa
// product that isn't offered there.
func (s *WizardService) checkCatalog(current domain.Answers, p *domain.Patch) error {
	if p.Country != nil && *p.Country != "" {
		if _, ok := s.catalog.Country(*p.Country); !ok {
			return apperrors.InvalidInput(fmt.Sprintf("unknown country %q", *p.Country))
		}
	}
	if p.Nationality != nil && *p.Nationality != "" {
		if _, ok := s.catalog.Country(*p.Nationality); !ok {
			return apperrors.InvalidInput(fmt.Sprintf("unknown nationality %q", *p.Nationality))
		}
	}
	if p.DocumentType != nil && *p.DocumentType != "" && !s.catalog.DocumentType(*p.DocumentType) {
		return apperrors.InvalidInput(fmt.Sprintf("unknown document type %q", *p.DocumentType))
	}
	if p.DocumentTypes != nil {
		for _, id := range *p.DocumentTypes {
			if !s.catalog.DocumentType(strings.TrimSpace(id)) {
				return apperrors.InvalidInput(fmt.Sprintf("unknown document type %q", id))
			}
		}
	}
	if p.Services != nil {
		for _, id := range *p.Services {
			if _, ok := s.catalog.Service(strings.TrimSpace(id)); !ok {
				return apperrors.InvalidInput(fmt.Sprintf("unknown service %q", id))
			}
		}
	}

	country := current.Country
	if p.Country != nil {
		country = *p.Country
	}
	productID := current.VisaProductID
	if p.VisaProductID != nil {
		productID = *p.VisaProductID
	}
	if productID == "" {
		return nil
	}

	product, ok := s.catalog.VisaProduct(productID)
	if !ok {
		return apperrors.InvalidInput(fmt.Sprintf("unknown visa product %q", productID))
	}
	if product.Country != country {
		if p.VisaProductID != nil {
			return apperrors.InvalidInput(fmt.Sprintf("visa product %q is not offered for %s", productID, country))
		}
		none := ""
		p.VisaProductID = &none
		p.VisaType = &none
		return nil
	}
	if p.VisaProductID != nil && p.VisaType == nil {
		visaType := product.VisaType
		p.VisaType = &visaType
	}
	return nil
}

// Next advances to the next applicable step when the current one is complete.
func (s *WizardService) Next(ctx context.Context, id string) (*DraftView, error) {
	return s.mutate(ctx, id, func(_ *domain.Draft, c *flow.Controller) (bool, error) {
		moved := c.GoNext()
		if moved {
			stepTransitions.WithLabelValues(c.Flow(), "next").Inc()
		}
		return moved, nil
	})
}

// Back returns to the previous applicable step.
func (s *WizardService) Back(ctx context.Context, id string) (*DraftView, error) {
	return s.mutate(ctx, id, func(_ *domain.Draft, c *flow.Controller) (bool, error) {
		moved := c.GoBack()
		if moved {
			stepTransitions.WithLabelValues(c.Flow(), "back").Inc()
		}
		return moved, nil
	})
}

// GoTo jumps to an applicable, already visited step. Other targets leave
// the cursor where it is and report Moved=false.
func (s *WizardService) GoTo(ctx context.Context, id string, index int) (*DraftView, error) {
	return s.mutate(ctx, id, func(_ *domain.Draft, c *flow.Controller) (bool, error) {
		moved := c.GoToStep(index)
		if moved {
			stepTransitions.WithLabelValues(c.Flow(), "jump").Inc()
		}
		return moved, nil
	})
}

// Quote asks the pricing service for a price and stores it on the draft.
func (s *WizardService) Quote(ctx context.Context, id string) (*DraftView, error) {
	return s.mutate(ctx, id, func(_ *domain.Draft, c *flow.Controller) (bool, error) {
		a := c.Answers()
		if a.Country == "" {
			return false, apperrors.InvalidInput("a country is required before quoting")
		}
		q, err := s.pricing.CalculateOrderPrice(ctx, client.PriceInputFrom(c.Flow(), a))
		if err != nil {
			return false, fmt.Errorf("calculate price: %w", err)
		}
		c.SetQuote(q.Breakdown, q.TotalPrice)
		return false, nil
	})
}

// ApplicableAddons lists the optional services for the draft's destination
// and document type.
func (s *WizardService) ApplicableAddons(ctx context.Context, id string) ([]domain.Service, error) {
	_, c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	a := c.Answers()
	if a.Country == "" {
		return nil, apperrors.InvalidInput("a country is required before listing add-ons")
	}
	addons, err := s.pricing.ApplicableAddons(ctx, a.Country, a.DocumentType)
	if err != nil {
		return nil, fmt.Errorf("list add-ons: %w", err)
	}
	return addons, nil
}

// UploadFile stores a document in upload slot and records it on the draft.
// Uploads are only accepted for drafts with document_source upload and for
// slots below quantity.
func (s *WizardService) UploadFile(ctx context.Context, id string, slot int, name string, r io.Reader) (*DraftView, error) {
	return s.mutate(ctx, id, func(d *domain.Draft, c *flow.Controller) (bool, error) {
		a := c.Answers()
		if a.DocumentSource != domain.SourceUpload {
			return false, apperrors.InvalidInput("uploads require document_source upload")
		}
		if slot < 0 || slot >= len(a.UploadedFiles) {
			return false, apperrors.InvalidInput(fmt.Sprintf("slot %d out of range, quantity is %d", slot, len(a.UploadedFiles)))
		}

		contentType, body, err := storage.Sniff(r)
		if err != nil {
			return false, err
		}
		name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
		if name == "." || name == "/" {
			name = "document-" + strconv.Itoa(slot+1)
		}

		res, err := s.files.Upload(ctx, &storage.UploadInput{
			Key:         fileKey(d.ID, slot),
			Name:        name,
			ContentType: contentType,
			Data:        body,
		})
		if err != nil {
			return false, fmt.Errorf("store upload: %w", err)
		}

		if _, err := c.FillSlot(slot, domain.FileSlot{
			Key:         res.Key,
			Name:        name,
			ContentType: res.ContentType,
			Size:        res.Size,
		}); err != nil {
			return false, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
		}

		s.logger.InfoContext(ctx, "document uploaded",
			slog.String("draft_id", d.ID),
			slog.Int("slot", slot),
			slog.String("content_type", res.ContentType),
			slog.Int64("size", res.Size),
		)
		return false, nil
	})
}

// Abandon discards a draft and its uploaded files.
func (s *WizardService) Abandon(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	d, c, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.sessions.Clear(ctx, id); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	s.deleteFiles(ctx, id, d.Answers.FileKeys())

	if s.events != nil {
		if err := s.events.PublishDraftAbandoned(ctx, event.DraftAbandonedData{
			DraftID:     id,
			Flow:        d.Flow,
			CurrentStep: c.CurrentStepIndex(),
			StepID:      string(c.CurrentStep().ID),
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to publish draft.abandoned event",
				slog.String("draft_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "draft abandoned",
		slog.String("draft_id", id),
		slog.String("step", string(c.CurrentStep().ID)),
	)
	return nil
}

// mutate loads a draft under its lock, applies fn and saves the result.
func (s *WizardService) mutate(ctx context.Context, id string, fn func(d *domain.Draft, c *flow.Controller) (bool, error)) (*DraftView, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	d, c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	moved, err := fn(d, c)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, d, c); err != nil {
		return nil, err
	}
	return newView(d, c, moved), nil
}

// load returns the draft and a controller restored from it. A draft
// missing from the store has expired or been submitted, which is reported
// as Gone.
func (s *WizardService) load(ctx context.Context, id string) (*domain.Draft, *flow.Controller, error) {
	d, err := s.sessions.Load(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.Gone("draft has expired or was already submitted")
		}
		return nil, nil, fmt.Errorf("load draft %s: %w", id, err)
	}

	c, err := flow.Restore(d.Flow, d.Answers, d.CurrentStep, d.MaxVisited)
	if err != nil {
		return nil, nil, fmt.Errorf("restore draft %s: %w", id, err)
	}
	return d, c, nil
}

func (s *WizardService) save(ctx context.Context, d *domain.Draft, c *flow.Controller) error {
	d.Answers = c.Answers()
	d.CurrentStep = c.CurrentStepIndex()
	d.MaxVisited = c.MaxVisited()
	d.UpdatedAt = s.now().UTC()
	if err := s.sessions.Save(ctx, d); err != nil {
		return fmt.Errorf("save draft %s: %w", d.ID, err)
	}
	return nil
}

// deleteFiles removes stored documents. Failures only leave orphaned files
// behind and are logged.
func (s *WizardService) deleteFiles(ctx context.Context, draftID string, keys []string) {
	for _, key := range keys {
		if err := s.files.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to delete stored document",
				slog.String("draft_id", draftID),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}

func fileKey(draftID string, slot int) string {
	return "drafts/" + draftID + "/" + strconv.Itoa(slot)
}

// missingKeys returns the keys of before that are not in after.
func missingKeys(before, after []string) []string {
	if len(before) == 0 {
		return nil
	}
	keep := make(map[string]struct{}, len(after))
	for _, k := range after {
		keep[k] = struct{}{}
	}
	var out []string
	for _, k := range before {
		if _, ok := keep[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}
