package booking_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	otelMocks "parcel/infras/otel/mocks"
	"parcel/internal/domains/booking/form"
	"parcel/internal/domains/booking/mocks"
	"parcel/internal/domains/booking/model"
	"parcel/internal/domains/booking/model/dto"
	"parcel/internal/domains/booking/party"
	"parcel/internal/handlers/booking"
	cacheMocks "parcel/shared/cache/mocks"
	"parcel/shared/failure"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type harness struct {
	service  *mocks.MockBooking
	sessions *cacheMocks.MockRedisCache
	router   chi.Router
	guarded  bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)

	h := &harness{
		service:  mocks.NewMockBooking(ctrl),
		sessions: cacheMocks.NewMockRedisCache(ctrl),
		router:   chi.NewRouter(),
	}

	handler := booking.New(h.service, h.sessions, otelMocks.NewOtel())
	handler.Router(h.router, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.guarded = true

			next.ServeHTTP(w, r)
		})
	})

	return h
}

func (h *harness) do(t *testing.T, method, target, body string, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}

	return rec, env
}

func TestOpenSelfServiceForm(t *testing.T) {
	h := newHarness(t)

	h.service.EXPECT().
		Open(gomock.Any(), model.ModeSelfService, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ model.Mode, _ party.Resolver) (dto.FormResponse, error) {
			return dto.FormResponse{ID: "f1", Mode: "self-service"}, nil
		})

	rec, env := h.do(t, http.MethodPost, "/forms", "", map[string]string{"X-Session-ID": "sid"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.False(t, h.guarded)

	var res dto.FormResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "f1", res.ID)
}

func TestOpenSelfServiceForm_MissingSession(t *testing.T) {
	h := newHarness(t)

	rec, env := h.do(t, http.MethodPost, "/forms", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, failure.MissingSessionError.Message, env.Error)
}

func TestOpenSelfServiceForm_InvalidSession(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
	}{
		{name: "too long", sessionID: strings.Repeat("s", 129)},
		{name: "control character", sessionID: "abc\tdef"},
		{name: "non ascii", sessionID: "séance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			rec, env := h.do(t, http.MethodPost, "/forms", "", map[string]string{"X-Session-ID": tt.sessionID})

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, failure.InvalidSessionError.Message, env.Error)
		})
	}
}

func TestOpenAdminForm(t *testing.T) {
	h := newHarness(t)

	h.service.EXPECT().
		Open(gomock.Any(), model.ModeAdmin, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ model.Mode, resolver party.Resolver) (dto.FormResponse, error) {
			return dto.FormResponse{ID: "a1", Mode: "admin", Party: resolver.Resolve(ctx)}, nil
		})

	query := url.Values{"name": {"Bob"}, "contact": {"555"}}
	rec, env := h.do(t, http.MethodPost, "/admin/forms?"+query.Encode(), "", nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, h.guarded)

	var res dto.FormResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, model.Party{Name: "Bob", Address: party.DefaultAdminAddress, Contact: "555"}, res.Party)
}

func TestGetForm_NotFound(t *testing.T) {
	h := newHarness(t)

	h.service.EXPECT().Get(gomock.Any(), "nope").Return(dto.FormResponse{}, failure.NotFound("booking form not found"))

	rec, env := h.do(t, http.MethodGet, "/forms/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "booking form not found", env.Error)
}

func TestUpdateDraft(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		expect func(h *harness)
		code   int
	}{
		{
			name: "partial update",
			body: `{"receiverName":"Jane","parcelWeight":500,"parcelDeliveryType":"Express"}`,
			expect: func(h *harness) {
				h.service.EXPECT().
					UpdateDraft(gomock.Any(), "f1", gomock.Any()).
					DoAndReturn(func(_ context.Context, _ string, req dto.UpdateDraftRequest) (dto.FormResponse, error) {
						var draft model.Draft
						req.Apply(&draft)

						return dto.FormResponse{ID: "f1", Draft: draft}, nil
					})
			},
			code: http.StatusOK,
		},
		{
			name:   "unknown delivery type",
			body:   `{"parcelDeliveryType":"Overnight"}`,
			expect: func(*harness) {},
			code:   http.StatusBadRequest,
		},
		{
			name:   "unknown packing preference",
			body:   `{"parcelPackingPreference":"Gold"}`,
			expect: func(*harness) {},
			code:   http.StatusBadRequest,
		},
		{
			name:   "negative weight",
			body:   `{"parcelWeight":-5}`,
			expect: func(*harness) {},
			code:   http.StatusBadRequest,
		},
		{
			name:   "unknown field",
			body:   `{"receiverEmail":"x@y.z"}`,
			expect: func(*harness) {},
			code:   http.StatusBadRequest,
		},
		{
			name:   "malformed body",
			body:   `{`,
			expect: func(*harness) {},
			code:   http.StatusBadRequest,
		},
		{
			name: "clearing an enum",
			body: `{"parcelPackingPreference":""}`,
			expect: func(h *harness) {
				h.service.EXPECT().UpdateDraft(gomock.Any(), "f1", gomock.Any()).Return(dto.FormResponse{ID: "f1"}, nil)
			},
			code: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.expect(h)

			rec, _ := h.do(t, http.MethodPatch, "/forms/f1/draft", tt.body, nil)

			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestUpdateDraft_AppliesFields(t *testing.T) {
	h := newHarness(t)

	h.service.EXPECT().
		UpdateDraft(gomock.Any(), "f1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, req dto.UpdateDraftRequest) (dto.FormResponse, error) {
			var draft model.Draft
			req.Apply(&draft)

			return dto.FormResponse{ID: "f1", Draft: draft}, nil
		})

	_, env := h.do(t, http.MethodPatch, "/forms/f1/draft", `{"receiverName":"Jane","parcelWeight":500,"parcelDeliveryType":"Express"}`, nil)

	var res dto.FormResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "Jane", res.Draft.ReceiverName)
	assert.Equal(t, 500.0, res.Draft.ParcelWeight)
	assert.Equal(t, model.DeliveryExpress, res.Draft.ParcelDeliveryType)
}

func TestGetQuote(t *testing.T) {
	h := newHarness(t)

	h.service.EXPECT().Quote(gomock.Any(), "f1").Return(dto.QuoteResponse{Mode: "self-service", Priceable: true, ParcelServiceCost: 105}, nil)

	rec, env := h.do(t, http.MethodGet, "/forms/f1/quote", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var res dto.QuoteResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 105.0, res.ParcelServiceCost)
}

func TestSubmitForm(t *testing.T) {
	tests := []struct {
		name string
		res  dto.FormResponse
		err  error
		code int
	}{
		{name: "dispatched", res: dto.FormResponse{ID: "f1", Pending: 1}, code: http.StatusAccepted},
		{name: "incomplete draft", res: dto.FormResponse{ID: "f1", Error: form.MessageValidation}, err: form.ErrValidation, code: http.StatusUnprocessableEntity},
		{name: "unknown form", err: failure.NotFound("booking form not found"), code: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			h.service.EXPECT().Submit(gomock.Any(), "f1").Return(tt.res, tt.err)

			rec, env := h.do(t, http.MethodPost, "/forms/f1/submit", "", nil)

			assert.Equal(t, tt.code, rec.Code)

			if tt.code != http.StatusNotFound {
				var res dto.FormResponse
				require.NoError(t, json.Unmarshal(env.Data, &res))
				assert.Equal(t, tt.res, res)
			}
		})
	}
}

func TestResetForm(t *testing.T) {
	h := newHarness(t)

	h.service.EXPECT().Reset(gomock.Any(), "f1").Return(dto.FormResponse{ID: "f1"}, nil)

	rec, _ := h.do(t, http.MethodPost, "/forms/f1/reset", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCloseForm(t *testing.T) {
	h := newHarness(t)

	h.service.EXPECT().Close(gomock.Any(), "f1").Return(nil)

	rec, env := h.do(t, http.MethodDelete, "/forms/f1", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Booking form closed", env.Message)
}
