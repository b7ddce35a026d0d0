package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aleber123/nytt-sub001/internal/auth"
	"github.com/aleber123/nytt-sub001/internal/catalog"
	"github.com/aleber123/nytt-sub001/internal/client"
	"github.com/aleber123/nytt-sub001/internal/domain"
	"github.com/aleber123/nytt-sub001/internal/event"
	"github.com/aleber123/nytt-sub001/internal/flow"
	"github.com/aleber123/nytt-sub001/internal/repository/memory"
	memstorage "github.com/aleber123/nytt-sub001/internal/storage/memory"
	apperrors "github.com/aleber123/nytt-sub001/pkg/errors"
	"github.com/aleber123/nytt-sub001/pkg/validator"
)

// --- Mocks and fakes ---

type mockPricer struct {
	mock.Mock
}

func (m *mockPricer) CalculateOrderPrice(ctx context.Context, in client.PriceInput) (*client.Quote, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Quote), args.Error(1)
}

func (m *mockPricer) ApplicableAddons(ctx context.Context, country, documentType string) ([]domain.Service, error) {
	args := m.Called(ctx, country, documentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Service), args.Error(1)
}

type fakeOrders struct {
	mu        sync.Mutex
	calls     int
	lastOrder client.Order
	fileData  []string
	ctxErr    error

	orderID string
	visa    *client.VisaOrderResult
	err     error

	// When set, calls signal entered and wait for proceed.
	entered chan struct{}
	proceed chan struct{}
}

func (f *fakeOrders) record(ctx context.Context, order client.Order, files []client.File) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastOrder = order
	f.ctxErr = ctx.Err()
	for _, file := range files {
		b, _ := io.ReadAll(file.Data)
		f.fileData = append(f.fileData, string(b))
	}
}

func (f *fakeOrders) wait() {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.proceed
	}
}

func (f *fakeOrders) CreateOrderWithFiles(ctx context.Context, order client.Order, files []client.File) (string, error) {
	f.record(ctx, order, files)
	f.wait()
	if f.err != nil {
		return "", f.err
	}
	return f.orderID, nil
}

func (f *fakeOrders) CreateVisaOrder(ctx context.Context, order client.Order) (*client.VisaOrderResult, error) {
	f.record(ctx, order, nil)
	f.wait()
	if f.err != nil {
		return nil, f.err
	}
	return f.visa, nil
}

func (f *fakeOrders) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingNotifier struct {
	mu     sync.Mutex
	orders []string
}

func (n *recordingNotifier) OrderSubmitted(_ context.Context, orderID, _ string, _ domain.Answers) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, orderID)
}

type recordingEvents struct {
	mu        sync.Mutex
	submitted []event.OrderSubmittedData
	abandoned []event.DraftAbandonedData
	err       error
}

func (e *recordingEvents) PublishOrderSubmitted(_ context.Context, data event.OrderSubmittedData) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.submitted = append(e.submitted, data)
	return e.err
}

func (e *recordingEvents) PublishDraftAbandoned(_ context.Context, data event.DraftAbandonedData) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.abandoned = append(e.abandoned, data)
	return e.err
}

// --- Test Helpers ---

type fixture struct {
	svc      *WizardService
	sessions *memory.SessionStore
	files    *memstorage.Storage
	pricer   *mockPricer
	orders   *fakeOrders
	notifier *recordingNotifier
	events   *recordingEvents
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sessions: memory.NewSessionStore(time.Hour),
		files:    memstorage.New(),
		pricer:   &mockPricer{},
		orders:   &fakeOrders{orderID: "SWE000123", visa: &client.VisaOrderResult{OrderID: "VIS000042", Token: "tok-42"}},
		notifier: &recordingNotifier{},
		events:   &recordingEvents{},
	}
	f.svc = NewWizardService(Dependencies{
		Sessions: f.sessions,
		Guard:    memory.NewSubmissionGuard(time.Minute),
		Files:    f.files,
		Catalog:  catalog.New(),
		Pricing:  f.pricer,
		Orders:   f.orders,
		Notifier: f.notifier,
		Events:   f.events,
		Tokens:   auth.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour),
	}, Config{SubmitTimeout: 5 * time.Second, Locale: "sv"}, newTestLogger())
	return f
}

func ptr[T any](v T) *T { return &v }

func start(t *testing.T, f *fixture, flowName string) string {
	t.Helper()
	started, err := f.svc.StartDraft(context.Background(), flowName)
	require.NoError(t, err)
	return started.Draft.ID
}

// advance applies each patch and moves on, failing if the cursor sticks.
func advance(t *testing.T, f *fixture, id string, patches ...domain.Patch) *DraftView {
	t.Helper()
	var view *DraftView
	for _, p := range patches {
		_, err := f.svc.PatchAnswers(context.Background(), id, p)
		require.NoError(t, err)
		view, err = f.svc.Next(context.Background(), id)
		require.NoError(t, err)
		require.True(t, view.Moved, "stuck on %s: %v", view.StepID, view.FieldErrors)
	}
	return view
}

var customerPatch = domain.Patch{
	CustomerType: ptr(domain.CustomerPrivate),
	CustomerInfo: &domain.CustomerInfo{
		FirstName: "Anna", LastName: "Berg", Email: "anna@example.se", Phone: "+46701234567",
	},
	BillingInfo: &domain.Address{
		Street: "Drottninggatan 1", PostalCode: "111 51", City: "Stockholm", CountryCode: "SE",
	},
}

var pdf = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"

// uploadDraftAtReview walks a two-document upload draft to the review step.
func uploadDraftAtReview(t *testing.T, f *fixture) string {
	t.Helper()
	id := start(t, f, domain.FlowLegalization)
	view := advance(t, f, id,
		domain.Patch{Country: ptr("DE")},
		domain.Patch{DocumentType: ptr("birth-certificate")},
		domain.Patch{Services: &[]string{"apostille"}},
		domain.Patch{Quantity: ptr(2)},
		domain.Patch{DocumentSource: ptr(domain.SourceUpload)},
		domain.Patch{ReturnService: ptr(domain.ReturnOfficePickup)},
		customerPatch,
	)
	require.Equal(t, flow.StepReview, view.StepID)
	return id
}

func readyToSubmit(t *testing.T, f *fixture) string {
	t.Helper()
	id := uploadDraftAtReview(t, f)
	ctx := context.Background()
	for slot, name := range []string{"birth.pdf", "birth-2.pdf"} {
		_, err := f.svc.UploadFile(ctx, id, slot, name, strings.NewReader(pdf+name))
		require.NoError(t, err)
	}
	_, err := f.svc.PatchAnswers(ctx, id, domain.Patch{TermsAccepted: ptr(true)})
	require.NoError(t, err)
	return id
}

// --- Tests ---

func TestStartDraft(t *testing.T) {
	f := newFixture(t)

	started, err := f.svc.StartDraft(context.Background(), domain.FlowLegalization)
	require.NoError(t, err)
	assert.NotEmpty(t, started.Token)
	assert.Equal(t, domain.FlowLegalization, started.Draft.Flow)
	assert.Equal(t, 0, started.Draft.CurrentStep)
	assert.Equal(t, flow.StepCountry, started.Draft.StepID)
	assert.False(t, started.Draft.CanAdvance)
	assert.Len(t, started.Draft.Steps, 11)
	assert.Equal(t, 1, started.Draft.Answers.Quantity)

	view, err := f.svc.GetDraft(context.Background(), started.Draft.ID)
	require.NoError(t, err)
	assert.Equal(t, started.Draft.ID, view.ID)
}

func TestStartDraft_UnknownFlow(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.StartDraft(context.Background(), "passport")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestGetDraft_MissingIsGone(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetDraft(context.Background(), "no-such-draft")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrGone))
}

func TestPatchAnswers_CatalogReferences(t *testing.T) {
	tests := []struct {
		name  string
		patch domain.Patch
	}{
		{"unknown country", domain.Patch{Country: ptr("XK")}},
		{"unknown nationality", domain.Patch{Nationality: ptr("XK")}},
		{"unknown document type", domain.Patch{DocumentType: ptr("lottery-ticket")}},
		{"unknown document types", domain.Patch{DocumentTypes: &[]string{"diploma", "nope"}}},
		{"unknown service", domain.Patch{Services: &[]string{"apostille", "express-wizardry"}}},
		{"unknown visa product", domain.Patch{VisaProductID: ptr("xx-tourist")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := start(t, f, domain.FlowLegalization)

			_, err := f.svc.PatchAnswers(context.Background(), id, tt.patch)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
		})
	}
}

func TestPatchAnswers_LowercaseCountry(t *testing.T) {
	f := newFixture(t)
	id := start(t, f, domain.FlowLegalization)

	view, err := f.svc.PatchAnswers(context.Background(), id, domain.Patch{Country: ptr(" de ")})
	require.NoError(t, err)
	assert.Equal(t, "DE", view.Answers.Country)
	assert.True(t, view.CanAdvance)
}

func TestPatchAnswers_InvalidPatch(t *testing.T) {
	f := newFixture(t)
	id := start(t, f, domain.FlowLegalization)

	_, err := f.svc.PatchAnswers(context.Background(), id, domain.Patch{Quantity: ptr(11)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	var valErr *validator.ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Contains(t, valErr.Fields(), "quantity")

	view, err := f.svc.GetDraft(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Answers.Quantity)
}

func TestPatchAnswers_PricingChangeDropsQuote(t *testing.T) {
	f := newFixture(t)
	id := start(t, f, domain.FlowLegalization)
	ctx := context.Background()

	_, err := f.svc.PatchAnswers(ctx, id, domain.Patch{Country: ptr("DE"), Services: &[]string{"apostille"}})
	require.NoError(t, err)

	f.pricer.On("CalculateOrderPrice", mock.Anything, mock.MatchedBy(func(in client.PriceInput) bool {
		return in.Country == "DE" && in.Quantity == 1 && in.Flow == domain.FlowLegalization
	})).Return(&client.Quote{
		TotalPrice: 89500,
		Breakdown:  []domain.PricingLine{{ServiceID: "apostille", Description: "Apostille", Quantity: 1, UnitPrice: 89500, Total: 89500}},
	}, nil).Once()

	view, err := f.svc.Quote(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(89500), view.Answers.TotalPrice)
	require.Len(t, view.Answers.PricingBreakdown, 1)

	// Contact details don't affect the price.
	view, err = f.svc.PatchAnswers(ctx, id, domain.Patch{AdditionalNotes: ptr("ring the bell")})
	require.NoError(t, err)
	assert.Equal(t, int64(89500), view.Answers.TotalPrice)

	view, err = f.svc.PatchAnswers(ctx, id, domain.Patch{Quantity: ptr(3)})
	require.NoError(t, err)
	assert.Zero(t, view.Answers.TotalPrice)
	assert.Empty(t, view.Answers.PricingBreakdown)

	f.pricer.AssertExpectations(t)
}

func TestQuote_RequiresCountry(t *testing.T) {
	f := newFixture(t)
	id := start(t, f, domain.FlowLegalization)

	_, err := f.svc.Quote(context.Background(), id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	f.pricer.AssertNotCalled(t, "CalculateOrderPrice", mock.Anything, mock.Anything)
}

func TestQuote_PricingUnavailable(t *testing.T) {
	f := newFixture(t)
	id := start(t, f, domain.FlowLegalization)
	ctx := context.Background()

	_, err := f.svc.PatchAnswers(ctx, id, domain.Patch{Country: ptr("DE")})
	require.NoError(t, err)
	f.pricer.On("CalculateOrderPrice", mock.Anything, mock.Anything).
		Return(nil, apperrors.ServiceUnavailable("pricing down")).Once()

	_, err = f.svc.Quote(ctx, id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
}

func TestApplicableAddons(t *testing.T) {
	f := newFixture(t)
	id := start(t, f, domain.FlowLegalization)
	ctx := context.Background()

	_, err := f.svc.ApplicableAddons(ctx, id)
	require.Error(t, err)

	_, err = f.svc.PatchAnswers(ctx, id, domain.Patch{Country: ptr("AE"), DocumentType: ptr("diploma")})
	require.NoError(t, err)

	addons := []domain.Service{{ID: "translation", Name: "Auktoriserad översättning", Price: 145000}}
	f.pricer.On("ApplicableAddons", mock.Anything, "AE", "diploma").Return(addons, nil).Once()

	got, err := f.svc.ApplicableAddons(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, addons, got)
	f.pricer.AssertExpectations(t)
}

func TestPatchAnswers_VisaProduct(t *testing.T) {
	f := newFixture(t)
	id := start(t, f, domain.FlowVisa)
	ctx := context.Background()

	_, err := f.svc.PatchAnswers(ctx, id, domain.Patch{VisaProductID: ptr("in-tourist")})
	require.Error(t, err, "product for a country other than the draft's")

	view, err := f.svc.PatchAnswers(ctx, id, domain.Patch{Country: ptr("IN"), VisaProductID: ptr("in-business")})
	require.NoError(t, err)
	assert.Equal(t, domain.VisaTypeSticker, view.Answers.VisaType)

	view, err = f.svc.PatchAnswers(ctx, id, domain.Patch{Country: ptr("CN")})
	require.NoError(t, err)
	assert.Empty(t, view.Answers.VisaProductID)
	assert.Empty(t, view.Answers.VisaType)
}

func TestQuote_EVisaExcludesShipping(t *testing.T) {
	f := newFixture(t)
	id := start(t, f, domain.FlowVisa)
	ctx := context.Background()

	_, err := f.svc.PatchAnswers(ctx, id, domain.Patch{Country: ptr("IN"), VisaProductID: ptr("in-business")})
	require.NoError(t, err)
	_, err = f.svc.PatchAnswers(ctx, id, domain.Patch{
		PickupService: ptr(true),
		ReturnService: ptr(domain.ReturnDHLSweden),
	})
	require.NoError(t, err)

	view, err := f.svc.PatchAnswers(ctx, id, domain.Patch{VisaProductID: ptr("in-tourist")})
	require.NoError(t, err)
	assert.Equal(t, domain.VisaTypeEVisa, view.Answers.VisaType)

	f.pricer.On("CalculateOrderPrice", mock.Anything, mock.MatchedBy(func(in client.PriceInput) bool {
		return !in.PickupService && in.ReturnService == "" && in.VisaProductID == "in-tourist"
	})).Return(&client.Quote{TotalPrice: 149500}, nil).Once()

	view, err = f.svc.Quote(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(149500), view.Answers.TotalPrice)
	f.pricer.AssertExpectations(t)
}

func TestNavigation(t *testing.T) {
	f := newFixture(t)
	id := start(t, f, domain.FlowLegalization)
	ctx := context.Background()

	view, err := f.svc.Next(ctx, id)
	require.NoError(t, err)
	assert.False(t, view.Moved)
	assert.Equal(t, map[string]string{"country": "is required"}, view.FieldErrors)

	advance(t, f, id,
		domain.Patch{Country: ptr("DE")},
		domain.Patch{DocumentType: ptr("diploma")},
	)

	view, err = f.svc.Back(ctx, id)
	require.NoError(t, err)
	assert.True(t, view.Moved)
	assert.Equal(t, flow.StepDocumentType, view.StepID)

	view, err = f.svc.GoTo(ctx, id, 2)
	require.NoError(t, err)
	assert.True(t, view.Moved)
	assert.Equal(t, flow.StepServices, view.StepID)

	view, err = f.svc.GoTo(ctx, id, 5)
	require.NoError(t, err)
	assert.False(t, view.Moved)
	assert.Equal(t, 2, view.CurrentStep)

	stored, err := f.sessions.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentStep)
	assert.Equal(t, 2, stored.MaxVisited)
}

func TestUploadFile(t *testing.T) {
	f := newFixture(t)
	id := uploadDraftAtReview(t, f)
	ctx := context.Background()

	view, err := f.svc.UploadFile(ctx, id, 1, `C:\scans\diploma.pdf`, strings.NewReader(pdf))
	require.NoError(t, err)
	slot := view.Answers.UploadedFiles[1]
	assert.Equal(t, "drafts/"+id+"/1", slot.Key)
	assert.Equal(t, "diploma.pdf", slot.Name)
	assert.Equal(t, "application/pdf", slot.ContentType)
	assert.Equal(t, int64(len(pdf)), slot.Size)
	assert.False(t, view.Answers.UploadedFiles[0].Filled())
	assert.Equal(t, 1, f.files.Len())

	_, err = f.svc.UploadFile(ctx, id, 2, "third.pdf", strings.NewReader(pdf))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = f.svc.UploadFile(ctx, id, 0, "notes.txt", strings.NewReader("just some plain text"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Equal(t, 1, f.files.Len())
}

func TestUploadFile_RequiresUploadSource(t *testing.T) {
	f := newFixture(t)
	id := start(t, f, domain.FlowLegalization)

	_, err := f.svc.UploadFile(context.Background(), id, 0, "a.pdf", strings.NewReader(pdf))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Zero(t, f.files.Len())
}

func TestPatchAnswers_DroppedSlotsDeleteFiles(t *testing.T) {
	f := newFixture(t)
	id := uploadDraftAtReview(t, f)
	ctx := context.Background()

	for slot := range 2 {
		_, err := f.svc.UploadFile(ctx, id, slot, "doc.pdf", strings.NewReader(pdf))
		require.NoError(t, err)
	}
	require.Equal(t, 2, f.files.Len())

	view, err := f.svc.PatchAnswers(ctx, id, domain.Patch{Quantity: ptr(1)})
	require.NoError(t, err)
	require.Len(t, view.Answers.UploadedFiles, 1)
	assert.True(t, view.Answers.UploadedFiles[0].Filled())
	assert.Equal(t, 1, f.files.Len())

	_, err = f.svc.PatchAnswers(ctx, id, domain.Patch{DocumentSource: ptr(domain.SourceOriginal)})
	require.NoError(t, err)
	assert.Zero(t, f.files.Len())
}

func TestAbandon(t *testing.T) {
	f := newFixture(t)
	id := uploadDraftAtReview(t, f)
	ctx := context.Background()

	_, err := f.svc.UploadFile(ctx, id, 0, "doc.pdf", strings.NewReader(pdf))
	require.NoError(t, err)

	require.NoError(t, f.svc.Abandon(ctx, id))
	assert.Zero(t, f.files.Len())

	_, err = f.svc.GetDraft(ctx, id)
	assert.True(t, errors.Is(err, apperrors.ErrGone))

	require.Len(t, f.events.abandoned, 1)
	assert.Equal(t, id, f.events.abandoned[0].DraftID)
	assert.Equal(t, string(flow.StepReview), f.events.abandoned[0].StepID)

	err = f.svc.Abandon(ctx, id)
	assert.True(t, errors.Is(err, apperrors.ErrGone))
}

func TestAbandon_EventFailureIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	id := start(t, f, domain.FlowVisa)

	require.NoError(t, f.svc.Abandon(context.Background(), id))
}

func TestConcurrentPatchesAreSerialised(t *testing.T) {
	f := newFixture(t)
	id := start(t, f, domain.FlowLegalization)
	ctx := context.Background()

	notes := []string{"ring twice", "leave at door", "call first", "after 5pm", "reception", "back entrance"}
	var wg sync.WaitGroup
	for _, n := range notes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.PatchAnswers(ctx, id, domain.Patch{AdditionalNotes: ptr(n)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	view, err := f.svc.GetDraft(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, notes, view.Answers.AdditionalNotes)
	assert.Zero(t, f.svc.locks.size())
}

func TestMissingKeys(t *testing.T) {
	assert.Nil(t, missingKeys(nil, []string{"a"}))
	assert.Equal(t, []string{"b", "c"}, missingKeys([]string{"a", "b", "c"}, []string{"a"}))
	assert.Empty(t, missingKeys([]string{"a"}, []string{"a"}))
}
