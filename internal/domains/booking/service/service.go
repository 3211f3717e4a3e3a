package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks

import (
	"context"
	"errors"
	"parcel/config"
	"parcel/infras/otel"
	"parcel/internal/domains/booking/form"
	"parcel/internal/domains/booking/gateway"
	"parcel/internal/domains/booking/model"
	"parcel/internal/domains/booking/model/dto"
	"parcel/internal/domains/booking/party"
	"parcel/internal/domains/booking/pricing"
	"parcel/internal/domains/booking/redirect"
	"parcel/shared/constant"
	"parcel/shared/failure"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	errFormNotFound = failure.NotFound(model.EntityName + " not found")
	errDeskFull     = failure.ServiceUnavailable("too many open booking forms, try again later")
)

// Booking is the desk: a registry of open forms.
type Booking interface {
	Open(ctx context.Context, mode model.Mode, resolver party.Resolver) (dto.FormResponse, error)
	Get(ctx context.Context, id string) (dto.FormResponse, error)
	UpdateDraft(ctx context.Context, id string, req dto.UpdateDraftRequest) (dto.FormResponse, error)
	Quote(ctx context.Context, id string) (dto.QuoteResponse, error)
	// Submit returns form.ErrValidation together with the updated view when nothing was dispatched.
	Submit(ctx context.Context, id string) (dto.FormResponse, error)
	Reset(ctx context.Context, id string) (dto.FormResponse, error)
	Close(ctx context.Context, id string) error
	// Wait blocks until every dispatched submission and scheduled payment redirect has
	// finished, closed forms included, or until ctx is done.
	Wait(ctx context.Context) error
}

// Options bound the registry. A zero IdleTTL keeps forms until they are closed and a zero
// MaxForms leaves the registry unbounded.
type Options struct {
	IdleTTL  time.Duration
	MaxForms int
	Now      func() time.Time
}

type entry struct {
	form    *form.Form
	touched time.Time
}

type serviceImpl struct {
	deps form.Dependencies
	opts Options
	otel otel.Otel

	mu    sync.Mutex
	forms map[string]*entry
}

func New(cfg *config.Config, gw gateway.Gateway, nav redirect.Navigator, otel otel.Otel) Booking {
	return NewWithDependencies(form.Dependencies{
		Pricer:        pricing.New(pricing.NewRateTable(cfg)),
		Gateway:       gw,
		Navigator:     nav,
		Scheduler:     form.TimerScheduler(),
		PaymentRoute:  cfg.Payment.Route,
		RedirectDelay: time.Duration(cfg.Payment.RedirectDelaySeconds) * time.Second,
	}, Options{
		IdleTTL:  time.Duration(cfg.Cache.TTL) * time.Second,
		MaxForms: cfg.App.MaxOpenForms,
	}, otel)
}

func NewWithDependencies(deps form.Dependencies, opts Options, otel otel.Otel) Booking {
	if deps.Background == nil {
		deps.Background = form.NewTracker()
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &serviceImpl{
		deps:  deps,
		opts:  opts,
		otel:  otel,
		forms: make(map[string]*entry),
	}
}

func (s *serviceImpl) Open(ctx context.Context, mode model.Mode, resolver party.Resolver) (res dto.FormResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Open")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if mode != model.ModeSelfService && mode != model.ModeAdmin {
		return res, failure.BadRequestFromString("unknown booking mode") // nolint:wrapcheck
	}

	id := uuid.NewString()
	f := form.New(ctx, id, mode, resolver, s.deps)

	s.mu.Lock()
	evicted := s.evictIdle()
	full := s.opts.MaxForms > 0 && len(s.forms) >= s.opts.MaxForms

	if !full {
		s.forms[id] = &entry{form: f, touched: s.opts.Now()}
	}
	s.mu.Unlock()

	scope.SetAttribute("desk.evicted", evicted)

	if full {
		log.Warn().Int("max", s.opts.MaxForms).Msg("booking desk is full")

		return res, errDeskFull
	}

	scope.SetAttributes(map[string]any{"form.id": id, "form.mode": mode.String()})
	log.Info().Str("form", id).Str("mode", mode.String()).Msg("booking form opened")

	return newFormResponse(f.Snapshot()), nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.FormResponse, err error) {
	_, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	f, err := s.lookup(id)
	if err != nil {
		return res, err
	}

	return newFormResponse(f.Snapshot()), nil
}

func (s *serviceImpl) UpdateDraft(ctx context.Context, id string, req dto.UpdateDraftRequest) (res dto.FormResponse, err error) {
	_, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".UpdateDraft")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	f, err := s.lookup(id)
	if err != nil {
		return res, err
	}

	f.Edit(req.Apply)

	return newFormResponse(f.Snapshot()), nil
}

func (s *serviceImpl) Quote(ctx context.Context, id string) (res dto.QuoteResponse, err error) {
	_, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Quote")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	f, err := s.lookup(id)
	if err != nil {
		return res, err
	}

	cost, priceable := f.Quote()

	scope.SetAttributes(map[string]any{"quote.cost": cost})

	return dto.QuoteResponse{
		Mode:              f.Mode().String(),
		Priceable:         priceable,
		ParcelServiceCost: cost,
	}, nil
}

func (s *serviceImpl) Submit(ctx context.Context, id string) (res dto.FormResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Submit")
	defer scope.End()
	defer func() {
		if !errors.Is(err, form.ErrValidation) {
			scope.TraceIfError(err)
		}
	}()

	f, err := s.lookup(id)
	if err != nil {
		return res, err
	}

	if !f.Submit(ctx) {
		scope.AddEvent("draft rejected by validation")

		return newFormResponse(f.Snapshot()), form.ErrValidation
	}

	log.Info().Str("form", id).Str("mode", f.Mode().String()).Msg("booking submission dispatched")

	return newFormResponse(f.Snapshot()), nil
}

func (s *serviceImpl) Reset(ctx context.Context, id string) (res dto.FormResponse, err error) {
	_, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Reset")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	f, err := s.lookup(id)
	if err != nil {
		return res, err
	}

	f.Reset()

	return newFormResponse(f.Snapshot()), nil
}

func (s *serviceImpl) Close(ctx context.Context, id string) (err error) {
	_, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Close")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.forms[id]; !ok {
		return errFormNotFound
	}

	delete(s.forms, id)

	log.Info().Str("form", id).Msg("booking form closed")

	return nil
}

func (s *serviceImpl) Wait(ctx context.Context) error {
	return s.deps.Background.Wait(ctx) // nolint:wrapcheck
}

// lookup finds a form and marks it as active.
func (s *serviceImpl) lookup(id string) (*form.Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.forms[id]
	if !ok {
		return nil, errFormNotFound
	}

	e.touched = s.opts.Now()

	return e.form, nil
}

// evictIdle drops forms untouched for longer than IdleTTL. Forms still waiting on the
// backend are kept. Callers hold mu.
func (s *serviceImpl) evictIdle() int {
	if s.opts.IdleTTL <= 0 {
		return 0
	}

	cutoff := s.opts.Now().Add(-s.opts.IdleTTL)
	evicted := 0

	for id, e := range s.forms {
		if e.touched.After(cutoff) || e.form.Snapshot().Pending > 0 {
			continue
		}

		delete(s.forms, id)
		evicted++

		log.Info().Str("form", id).Msg("idle booking form evicted")
	}

	return evicted
}

func newFormResponse(state form.State) dto.FormResponse {
	return dto.FormResponse{
		ID:                state.ID,
		Mode:              state.Mode.String(),
		Party:             state.Party,
		Draft:             state.Draft,
		ParcelServiceCost: state.ParcelServiceCost,
		BookingID:         state.BookingID,
		Success:           state.Success,
		Error:             state.Error,
		Pending:           state.Pending,
	}
}
