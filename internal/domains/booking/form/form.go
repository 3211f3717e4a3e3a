package form

import (
	"context"
	"errors"
	"parcel/internal/domains/booking/gateway"
	"parcel/internal/domains/booking/model"
	"parcel/internal/domains/booking/party"
	"parcel/internal/domains/booking/redirect"
	"parcel/shared/failure"
	"parcel/shared/validator"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	MessageValidation         = "Please fill in all required fields."
	MessageSelfServiceSuccess = "Booking successful! Redirecting to payment."
	MessageAdminSuccess       = "Booking confirmed! Inform customer to present this ID for offline payment and status update."
	MessageFailure            = "Booking failed, try again later."
)

// ErrValidation is returned by Validate for any missing or invalid required field.
var ErrValidation = failure.UnprocessableEntity(MessageValidation)

// Pricer quotes a draft.
type Pricer interface {
	Quote(draft model.Draft, mode model.Mode) float64
}

// Scheduler runs fn once after delay. Scheduled work is never cancelled.
type Scheduler interface {
	AfterFunc(delay time.Duration, fn func())
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(delay time.Duration, fn func()) {
	time.AfterFunc(delay, fn)
}

// TimerScheduler schedules on the runtime timer.
func TimerScheduler() Scheduler {
	return timerScheduler{}
}

// Dependencies are shared by every form of a desk. Background, when set, counts every
// dispatched submission and every scheduled redirect across those forms.
type Dependencies struct {
	Pricer        Pricer
	Gateway       gateway.Gateway
	Navigator     redirect.Navigator
	Scheduler     Scheduler
	Background    *Tracker
	PaymentRoute  string
	RedirectDelay time.Duration
}

// State is a point-in-time copy of a form.
type State struct {
	ID                string
	Mode              model.Mode
	Party             model.Party
	Draft             model.Draft
	ParcelServiceCost float64
	BookingID         string
	Success           string
	Error             string
	Pending           int
}

func (s State) HasError() bool {
	return s.Error != ""
}

func (s State) HasSuccess() bool {
	return s.Success != ""
}

// Form owns one draft booking. Every mutation, including the arrival of a backend
// answer, happens under mu; overlapping submissions resolve last-write-wins.
type Form struct {
	id   string
	mode model.Mode
	deps Dependencies

	mu        sync.Mutex
	party     model.Party
	draft     model.Draft
	cost      float64
	bookingID string
	success   string
	err       string
	pending   int

	submissions Tracker
}

// New opens an empty form and resolves its party once.
func New(ctx context.Context, id string, mode model.Mode, resolver party.Resolver, deps Dependencies) *Form {
	if deps.Scheduler == nil {
		deps.Scheduler = TimerScheduler()
	}

	return &Form{
		id:    id,
		mode:  mode,
		deps:  deps,
		party: resolver.Resolve(ctx),
	}
}

func (f *Form) ID() string {
	return f.id
}

func (f *Form) Mode() model.Mode {
	return f.mode
}

// Edit applies fn to the draft. Messages from an earlier cycle are left as they are.
func (f *Form) Edit(fn func(draft *model.Draft)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fn(&f.draft)
}

// Quote prices the current draft without storing the result. priceable and cost describe
// the same draft.
func (f *Form) Quote() (cost float64, priceable bool) {
	f.mu.Lock()
	draft := f.draft
	f.mu.Unlock()

	return f.deps.Pricer.Quote(draft, f.mode), draft.Priceable()
}

// Validate checks that all ten required fields are present at once.
func Validate(draft model.Draft) error {
	if err := validator.ValidateStruct(&draft); err != nil {
		log.Debug().Err(err).Msg("draft failed validation")

		return ErrValidation
	}

	return nil
}

// Submit validates the draft and, when it passes, prices it and hands it to the gateway
// without waiting for the answer. It reports whether a submission was dispatched.
func (f *Form) Submit(ctx context.Context) bool {
	f.mu.Lock()

	if err := Validate(f.draft); err != nil {
		f.err = MessageValidation
		f.success = ""
		f.mu.Unlock()

		return false
	}

	f.err = ""

	draft := f.draft
	f.cost = f.deps.Pricer.Quote(draft, f.mode)
	cost := f.cost
	who := f.party

	f.pending++
	f.submissions.Add()
	f.deps.Background.Add()
	f.mu.Unlock()

	go f.dispatch(context.WithoutCancel(ctx), draft, cost, who)

	return true
}

func (f *Form) dispatch(ctx context.Context, draft model.Draft, cost float64, who model.Party) {
	defer f.deps.Background.Done()
	defer f.submissions.Done()

	bookingID, err := f.deps.Gateway.Submit(ctx, draft, cost, who, f.mode)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.pending--

	if err != nil {
		reason := "unknown"

		switch {
		case errors.Is(err, gateway.ErrBackendRejection):
			reason = "rejection"
		case errors.Is(err, gateway.ErrTransportFailure):
			reason = "transport"
		}

		log.Error().Err(err).Str("form", f.id).Str("mode", f.mode.String()).Str("reason", reason).Msg("booking submission failed")

		f.err = MessageFailure
		f.success = ""

		return
	}

	f.bookingID = bookingID
	f.err = ""

	if !f.mode.RedirectsToPayment() {
		f.success = MessageAdminSuccess

		return
	}

	f.success = MessageSelfServiceSuccess
	f.scheduleRedirect(bookingID)
}

// scheduleRedirect captures bookingID now; a later reset or submission does not stop it.
func (f *Form) scheduleRedirect(bookingID string) {
	nav := f.deps.Navigator
	route := f.deps.PaymentRoute
	background := f.deps.Background

	background.Add()

	f.deps.Scheduler.AfterFunc(f.deps.RedirectDelay, func() {
		defer background.Done()

		req := redirect.Payment(route, bookingID, time.Now())

		if err := nav.Navigate(context.Background(), req); err != nil {
			log.Error().Err(err).Str("bookingId", bookingID).Msg("failed to request payment redirect")
		}
	})
}

// Reset empties the draft and clears messages, booking identifier and cost.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.draft = model.Draft{}
	f.err = ""
	f.success = ""
	f.bookingID = ""
	f.cost = 0
}

func (f *Form) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	return State{
		ID:                f.id,
		Mode:              f.mode,
		Party:             f.party,
		Draft:             f.draft,
		ParcelServiceCost: f.cost,
		BookingID:         f.bookingID,
		Success:           f.success,
		Error:             f.err,
		Pending:           f.pending,
	}
}

// Wait blocks until every dispatched submission of this form has been answered.
func (f *Form) Wait() {
	_ = f.submissions.Wait(context.Background())
}
