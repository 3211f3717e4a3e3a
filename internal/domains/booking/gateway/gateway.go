package gateway

//go:generate go run go.uber.org/mock/mockgen -source=./gateway.go -destination=../mocks/gateway_mock.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"parcel/config"
	"parcel/infras/otel"
	"parcel/internal/domains/booking/model"
	"parcel/internal/domains/booking/model/dto"
	"parcel/shared/constant"
	"time"

	"github.com/rs/zerolog/log"
	otelGlobal "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"
)

var (
	// ErrBackendRejection means the backend answered without a booking identifier.
	ErrBackendRejection = errors.New("booking backend returned no booking identifier")
	// ErrTransportFailure means the request did not complete with a 2xx answer.
	ErrTransportFailure = errors.New("booking backend request failed")
)

// maxResponseBytes bounds how much of a backend answer is read.
const maxResponseBytes = 1 << 20

// Gateway sends a validated booking to the backend and returns the issued booking identifier.
type Gateway interface {
	Submit(ctx context.Context, draft model.Draft, quote float64, party model.Party, mode model.Mode) (bookingID string, err error)
}

type httpGateway struct {
	client    *http.Client
	endpoints map[model.Mode]string
	otel      otel.Otel
	now       func() time.Time
}

// New builds the HTTP gateway for the configured backend.
func New(cfg *config.Config, ot otel.Otel) (Gateway, error) {
	return NewWithClock(cfg, ot, time.Now)
}

// NewWithClock is New with an explicit clock for the payment timestamp.
func NewWithClock(cfg *config.Config, ot otel.Otel, now func() time.Time) (Gateway, error) {
	self, err := url.JoinPath(cfg.Backend.BaseURL, cfg.Backend.BookPath)
	if err != nil {
		return nil, fmt.Errorf("invalid self-service booking endpoint: %w", err)
	}

	admin, err := url.JoinPath(cfg.Backend.BaseURL, cfg.Backend.AdminBookPath)
	if err != nil {
		return nil, fmt.Errorf("invalid admin booking endpoint: %w", err)
	}

	return &httpGateway{
		client: &http.Client{
			Timeout: time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
		},
		endpoints: map[model.Mode]string{
			model.ModeSelfService: self,
			model.ModeAdmin:       admin,
		},
		otel: ot,
		now:  now,
	}, nil
}

func (g *httpGateway) Submit(ctx context.Context, draft model.Draft, quote float64, party model.Party, mode model.Mode) (bookingID string, err error) {
	ctx, scope := g.otel.NewScope(ctx, constant.OtelExternalScopeName, constant.OtelExternalScopeName+".SubmitBooking",
		oteltrace.WithSpanKind(oteltrace.SpanKindClient))
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	endpoint, ok := g.endpoints[mode]
	if !ok {
		return "", fmt.Errorf("no booking endpoint for mode %s: %w", mode, ErrTransportFailure)
	}

	payload := dto.NewBookingRequest(draft, quote, party, mode, g.now())

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode booking request: %w", err)
	}

	scope.SetAttributes(map[string]any{
		"http.url":             endpoint,
		"http.method":          http.MethodPost,
		"booking.mode":         mode.String(),
		"booking.cost":         quote,
		"booking.payment_time": payload.ParcelPaymentTime,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build booking request: %w", errors.Join(ErrTransportFailure, err))
	}

	req.Header.Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)
	otelGlobal.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := g.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("endpoint", endpoint).Str("reason", "transport").Msg("booking backend unreachable")

		return "", fmt.Errorf("%w: %w", ErrTransportFailure, err)
	}
	defer resp.Body.Close()

	scope.SetAttribute("http.status_code", resp.StatusCode)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		log.Error().Int("status", resp.StatusCode).Str("endpoint", endpoint).Str("reason", "transport").Msg("booking backend returned an error status")

		return "", fmt.Errorf("%w: status %s", ErrTransportFailure, resp.Status)
	}

	var res dto.BookingResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&res); err != nil && !errors.Is(err, io.EOF) {
		log.Error().Err(err).Str("endpoint", endpoint).Str("reason", "rejection").Msg("booking backend answered with an unreadable body")

		return "", fmt.Errorf("%w: %w", ErrBackendRejection, err)
	}

	bookingID = res.ID()
	if bookingID == constant.Empty {
		log.Error().Str("endpoint", endpoint).Str("reason", "rejection").Msg("booking backend answered without a booking identifier")

		return "", ErrBackendRejection
	}

	scope.SetAttribute("booking.id", bookingID)
	log.Info().Str("bookingId", bookingID).Str("mode", mode.String()).Msg("booking accepted by backend")

	return bookingID, nil
}
