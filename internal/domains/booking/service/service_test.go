package service_test

import (
	"context"
	"net/http"
	"parcel/config"
	otelMocks "parcel/infras/otel/mocks"
	"parcel/internal/domains/booking/form"
	"parcel/internal/domains/booking/gateway"
	"parcel/internal/domains/booking/mocks"
	"parcel/internal/domains/booking/model"
	"parcel/internal/domains/booking/model/dto"
	"parcel/internal/domains/booking/party"
	"parcel/internal/domains/booking/pricing"
	"parcel/internal/domains/booking/service"
	"parcel/shared/failure"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type immediateScheduler struct {
	delays []time.Duration
}

func (s *immediateScheduler) AfterFunc(delay time.Duration, fn func()) {
	s.delays = append(s.delays, delay)
	fn()
}

func ptr[T any](v T) *T {
	return &v
}

func fullDraft() dto.UpdateDraftRequest {
	return dto.UpdateDraftRequest{
		ReceiverName:              ptr("Jane Receiver"),
		ReceiverAddress:           ptr("42 Elm Road"),
		ReceiverPin:               ptr("560001"),
		ReceiverMobile:            ptr("9999999999"),
		ParcelWeight:              ptr(500.0),
		ParcelContentsDescription: ptr("Books"),
		ParcelDeliveryType:        ptr(model.DeliveryStandard),
		ParcelPackingPreference:   ptr(model.PackingBasic),
		ParcelPickupTime:          ptr("2025-01-03T09:00"),
		ParcelDropoffTime:         ptr("2025-01-04T18:00"),
	}
}

type suite struct {
	gateway   *mocks.MockGateway
	navigator *mocks.MockNavigator
	scheduler *immediateScheduler
	service   service.Booking
}

func newSuite(t *testing.T, opts service.Options) *suite {
	t.Helper()

	ctrl := gomock.NewController(t)
	cfg := &config.Config{}
	cfg.Pricing.BaseRate = 50
	cfg.Pricing.WeightChargePerGram = 0.02
	cfg.Pricing.TaxRate = 0.05
	cfg.Pricing.AdminFee = 50
	cfg.Pricing.Delivery.Standard = 30
	cfg.Pricing.Packing.Basic = 10

	s := &suite{
		gateway:   mocks.NewMockGateway(ctrl),
		navigator: mocks.NewMockNavigator(ctrl),
		scheduler: &immediateScheduler{},
	}

	s.service = service.NewWithDependencies(form.Dependencies{
		Pricer:        pricing.New(pricing.NewRateTable(cfg)),
		Gateway:       s.gateway,
		Navigator:     s.navigator,
		Scheduler:     s.scheduler,
		PaymentRoute:  "/payment",
		RedirectDelay: 3 * time.Second,
	}, opts, otelMocks.NewOtel())

	return s
}

func TestNew(t *testing.T) {
	cfg := &config.Config{}
	cfg.Payment.Route = "/payment"
	cfg.Payment.RedirectDelaySeconds = 3

	assert.NotNil(t, service.New(cfg, mocks.NewMockGateway(gomock.NewController(t)), nil, otelMocks.NewOtel()))
}

func TestService_Open(t *testing.T) {
	s := newSuite(t, service.Options{})
	ctx := context.Background()

	first, err := s.service.Open(ctx, model.ModeAdmin, party.FromQuery(nil))
	require.NoError(t, err)

	second, err := s.service.Open(ctx, model.ModeSelfService, party.FromQuery(nil))
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "admin", first.Mode)
	assert.Equal(t, party.DefaultAdminName, first.Party.Name)
	assert.Equal(t, model.Draft{}, first.Draft)

	_, err = s.service.Open(ctx, model.Mode(0), party.FromQuery(nil))
	assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
}

func TestService_UnknownForm(t *testing.T) {
	s := newSuite(t, service.Options{})
	ctx := context.Background()

	calls := map[string]func() error{
		"Get": func() error {
			_, err := s.service.Get(ctx, "missing")
			return err
		},
		"UpdateDraft": func() error {
			_, err := s.service.UpdateDraft(ctx, "missing", fullDraft())
			return err
		},
		"Quote": func() error {
			_, err := s.service.Quote(ctx, "missing")
			return err
		},
		"Submit": func() error {
			_, err := s.service.Submit(ctx, "missing")
			return err
		},
		"Reset": func() error {
			_, err := s.service.Reset(ctx, "missing")
			return err
		},
		"Close": func() error {
			return s.service.Close(ctx, "missing")
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
			assert.Equal(t, "booking form not found", err.Error())
		})
	}
}

func TestService_QuoteIsLive(t *testing.T) {
	s := newSuite(t, service.Options{})
	ctx := context.Background()

	opened, err := s.service.Open(ctx, model.ModeAdmin, party.FromQuery(nil))
	require.NoError(t, err)

	quote, err := s.service.Quote(ctx, opened.ID)
	require.NoError(t, err)
	assert.False(t, quote.Priceable)
	assert.Zero(t, quote.ParcelServiceCost)

	_, err = s.service.UpdateDraft(ctx, opened.ID, fullDraft())
	require.NoError(t, err)

	quote, err = s.service.Quote(ctx, opened.ID)
	require.NoError(t, err)
	assert.True(t, quote.Priceable)
	assert.Equal(t, "admin", quote.Mode)
	assert.Equal(t, 157.50, quote.ParcelServiceCost)

	view, err := s.service.Get(ctx, opened.ID)
	require.NoError(t, err)
	assert.Zero(t, view.ParcelServiceCost)
}

func TestService_UpdateDraftIsPartial(t *testing.T) {
	s := newSuite(t, service.Options{})
	ctx := context.Background()

	opened, err := s.service.Open(ctx, model.ModeSelfService, party.FromQuery(nil))
	require.NoError(t, err)

	_, err = s.service.UpdateDraft(ctx, opened.ID, fullDraft())
	require.NoError(t, err)

	view, err := s.service.UpdateDraft(ctx, opened.ID, dto.UpdateDraftRequest{
		ReceiverName:       ptr("John"),
		ParcelDeliveryType: ptr(model.DeliveryType("")),
	})
	require.NoError(t, err)

	assert.Equal(t, "John", view.Draft.ReceiverName)
	assert.Equal(t, "42 Elm Road", view.Draft.ReceiverAddress)
	assert.Equal(t, model.DeliveryType(""), view.Draft.ParcelDeliveryType)
	assert.Equal(t, model.PackingBasic, view.Draft.ParcelPackingPreference)
}

func TestService_SubmitSelfService(t *testing.T) {
	s := newSuite(t, service.Options{})
	ctx := context.Background()

	opened, err := s.service.Open(ctx, model.ModeSelfService, party.FromQuery(nil))
	require.NoError(t, err)

	_, err = s.service.UpdateDraft(ctx, opened.ID, fullDraft())
	require.NoError(t, err)

	s.gateway.EXPECT().Submit(gomock.Any(), gomock.Any(), 105.00, gomock.Any(), model.ModeSelfService).Return("B123", nil)
	s.navigator.EXPECT().Navigate(gomock.Any(), gomock.Any()).Return(nil)

	_, err = s.service.Submit(ctx, opened.ID)
	require.NoError(t, err)

	require.NoError(t, s.service.Wait(ctx))

	view, err := s.service.Get(ctx, opened.ID)
	require.NoError(t, err)
	assert.Equal(t, "B123", view.BookingID)
	assert.Equal(t, form.MessageSelfServiceSuccess, view.Success)
	assert.Equal(t, 105.00, view.ParcelServiceCost)
	assert.Equal(t, []time.Duration{3 * time.Second}, s.scheduler.delays)
}

func TestService_SubmitValidationFailure(t *testing.T) {
	s := newSuite(t, service.Options{})
	ctx := context.Background()

	opened, err := s.service.Open(ctx, model.ModeSelfService, party.FromQuery(nil))
	require.NoError(t, err)

	view, err := s.service.Submit(ctx, opened.ID)

	assert.ErrorIs(t, err, form.ErrValidation)
	assert.Equal(t, http.StatusUnprocessableEntity, failure.GetCode(err))
	assert.Equal(t, opened.ID, view.ID)
	assert.Equal(t, form.MessageValidation, view.Error)
}

func TestService_SubmitFailureThenReset(t *testing.T) {
	s := newSuite(t, service.Options{})
	ctx := context.Background()

	opened, err := s.service.Open(ctx, model.ModeAdmin, party.FromQuery(nil))
	require.NoError(t, err)

	_, err = s.service.UpdateDraft(ctx, opened.ID, fullDraft())
	require.NoError(t, err)

	s.gateway.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("", gateway.ErrBackendRejection)

	_, err = s.service.Submit(ctx, opened.ID)
	require.NoError(t, err)

	require.NoError(t, s.service.Wait(ctx))

	view, err := s.service.Get(ctx, opened.ID)
	require.NoError(t, err)
	assert.Equal(t, form.MessageFailure, view.Error)

	view, err = s.service.Reset(ctx, opened.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Error)
	assert.Equal(t, model.Draft{}, view.Draft)
}

func TestService_CloseWaitsForInFlight(t *testing.T) {
	s := newSuite(t, service.Options{})
	ctx := context.Background()

	opened, err := s.service.Open(ctx, model.ModeAdmin, party.FromQuery(nil))
	require.NoError(t, err)

	_, err = s.service.UpdateDraft(ctx, opened.ID, fullDraft())
	require.NoError(t, err)

	release := make(chan struct{})
	answered := make(chan struct{})

	s.gateway.EXPECT().
		Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, model.Draft, float64, model.Party, model.Mode) (string, error) {
			<-release
			close(answered)

			return "A1", nil
		})

	_, err = s.service.Submit(ctx, opened.ID)
	require.NoError(t, err)

	require.NoError(t, s.service.Close(ctx, opened.ID))

	_, err = s.service.Get(ctx, opened.ID)
	assert.Equal(t, http.StatusNotFound, failure.GetCode(err))

	close(release)
	require.NoError(t, s.service.Wait(ctx))

	select {
	case <-answered:
	default:
		t.Fatal("Wait returned before the submission was answered")
	}
}

func TestService_ConcurrentSubmitsOnOneForm(t *testing.T) {
	s := newSuite(t, service.Options{})
	ctx := context.Background()

	opened, err := s.service.Open(ctx, model.ModeAdmin, party.FromQuery(nil))
	require.NoError(t, err)

	_, err = s.service.UpdateDraft(ctx, opened.ID, fullDraft())
	require.NoError(t, err)

	s.gateway.EXPECT().
		Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("A1", nil).
		AnyTimes()

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 500 {
				_, err := s.service.Submit(ctx, opened.ID)
				assert.NoError(t, err)
			}
		}()

		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 500 {
				assert.NoError(t, s.service.Wait(ctx))
			}
		}()
	}

	wg.Wait()
	require.NoError(t, s.service.Wait(ctx))

	view, err := s.service.Get(ctx, opened.ID)
	require.NoError(t, err)
	assert.Zero(t, view.Pending)
	assert.Equal(t, "A1", view.BookingID)
	assert.Equal(t, form.MessageAdminSuccess, view.Success)
}

func TestService_WaitHonoursContext(t *testing.T) {
	s := newSuite(t, service.Options{})
	ctx := context.Background()

	opened, err := s.service.Open(ctx, model.ModeAdmin, party.FromQuery(nil))
	require.NoError(t, err)

	_, err = s.service.UpdateDraft(ctx, opened.ID, fullDraft())
	require.NoError(t, err)

	release := make(chan struct{})

	s.gateway.EXPECT().
		Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, model.Draft, float64, model.Party, model.Mode) (string, error) {
			<-release

			return "A1", nil
		})

	_, err = s.service.Submit(ctx, opened.ID)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, s.service.Wait(short), context.DeadlineExceeded)

	close(release)
	assert.NoError(t, s.service.Wait(ctx))
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

func (c *clock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestService_EvictsIdleForms(t *testing.T) {
	c := &clock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	s := newSuite(t, service.Options{IdleTTL: 30 * time.Minute, Now: c.Now})
	ctx := context.Background()

	idle, err := s.service.Open(ctx, model.ModeAdmin, party.FromQuery(nil))
	require.NoError(t, err)

	active, err := s.service.Open(ctx, model.ModeAdmin, party.FromQuery(nil))
	require.NoError(t, err)

	c.advance(20 * time.Minute)

	_, err = s.service.Get(ctx, active.ID)
	require.NoError(t, err)

	c.advance(15 * time.Minute)

	_, err = s.service.Open(ctx, model.ModeAdmin, party.FromQuery(nil))
	require.NoError(t, err)

	_, err = s.service.Get(ctx, idle.ID)
	assert.Equal(t, http.StatusNotFound, failure.GetCode(err))

	_, err = s.service.Get(ctx, active.ID)
	assert.NoError(t, err)
}

func TestService_KeepsIdleFormsWithPendingSubmissions(t *testing.T) {
	c := &clock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	s := newSuite(t, service.Options{IdleTTL: time.Minute, Now: c.Now})
	ctx := context.Background()

	opened, err := s.service.Open(ctx, model.ModeAdmin, party.FromQuery(nil))
	require.NoError(t, err)

	_, err = s.service.UpdateDraft(ctx, opened.ID, fullDraft())
	require.NoError(t, err)

	release := make(chan struct{})

	s.gateway.EXPECT().
		Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, model.Draft, float64, model.Party, model.Mode) (string, error) {
			<-release

			return "A1", nil
		})

	_, err = s.service.Submit(ctx, opened.ID)
	require.NoError(t, err)

	c.advance(time.Hour)

	_, err = s.service.Open(ctx, model.ModeAdmin, party.FromQuery(nil))
	require.NoError(t, err)

	close(release)
	require.NoError(t, s.service.Wait(ctx))

	view, err := s.service.Get(ctx, opened.ID)
	require.NoError(t, err)
	assert.Equal(t, "A1", view.BookingID)
}

func TestService_MaxForms(t *testing.T) {
	s := newSuite(t, service.Options{MaxForms: 2})
	ctx := context.Background()

	first, err := s.service.Open(ctx, model.ModeAdmin, party.FromQuery(nil))
	require.NoError(t, err)

	_, err = s.service.Open(ctx, model.ModeAdmin, party.FromQuery(nil))
	require.NoError(t, err)

	_, err = s.service.Open(ctx, model.ModeAdmin, party.FromQuery(nil))
	assert.Equal(t, http.StatusServiceUnavailable, failure.GetCode(err))

	require.NoError(t, s.service.Close(ctx, first.ID))

	_, err = s.service.Open(ctx, model.ModeAdmin, party.FromQuery(nil))
	assert.NoError(t, err)
}
