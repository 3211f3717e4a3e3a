package booking

import (
	"errors"
	"net/http"
	"parcel/infras/otel"
	"parcel/internal/domains/booking/form"
	"parcel/internal/domains/booking/model"
	"parcel/internal/domains/booking/model/dto"
	"parcel/internal/domains/booking/party"
	"parcel/internal/domains/booking/service"
	"parcel/shared/cache"
	"parcel/shared/constant"
	"parcel/shared/failure"
	"parcel/shared/validator"
	"parcel/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Session identifiers become cache keys.
const sessionIDRules = "printascii,max=128"

type Handler struct {
	service  service.Booking
	sessions cache.RedisCache
	otel     otel.Otel
}

func New(service service.Booking, sessions cache.RedisCache, otel otel.Otel) Handler {
	return Handler{
		service:  service,
		sessions: sessions,
		otel:     otel,
	}
}

// Router mounts the form routes. admin guards the admin form opener.
func (handler *Handler) Router(router chi.Router, admin func(http.Handler) http.Handler) {
	router.Route("/forms", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.OpenSelfServiceForm)
		routerGroup.Get("/{id}", handler.GetForm)
		routerGroup.Patch("/{id}/draft", handler.UpdateDraft)
		routerGroup.Get("/{id}/quote", handler.GetQuote)
		routerGroup.Post("/{id}/submit", handler.SubmitForm)
		routerGroup.Post("/{id}/reset", handler.ResetForm)
		routerGroup.Delete("/{id}", handler.CloseForm)
	})

	router.With(admin).Post("/admin/forms", handler.OpenAdminForm)
}

// OpenSelfServiceForm opens a form for the customer identified by the session header.
func (handler *Handler) OpenSelfServiceForm(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".OpenSelfServiceForm")
	defer scope.End()

	sessionID := request.Header.Get(constant.RequestHeaderSessionID)
	if sessionID == constant.Empty {
		scope.TraceError(failure.MissingSessionError)
		response.WithError(writer, failure.MissingSessionError)

		return
	}

	if err := validator.ValidateVar(sessionID, sessionIDRules); err != nil {
		scope.TraceError(err)
		response.WithError(writer, failure.InvalidSessionError)

		return
	}

	res, err := handler.service.Open(ctx, model.ModeSelfService, party.FromSession(handler.sessions, sessionID))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to open self-service form")

		response.WithError(writer, err)

		return
	}

	response.WithData(writer, http.StatusCreated, res)
}

// OpenAdminForm opens a form on behalf of the customer named in the query string.
func (handler *Handler) OpenAdminForm(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".OpenAdminForm")
	defer scope.End()

	res, err := handler.service.Open(ctx, model.ModeAdmin, party.FromQuery(request.URL.Query()))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to open admin form")

		response.WithError(writer, err)

		return
	}

	response.WithData(writer, http.StatusCreated, res)
}

func (handler *Handler) GetForm(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetForm")
	defer scope.End()

	res, err := handler.service.Get(ctx, chi.URLParam(request, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	response.WithData(writer, http.StatusOK, res)
}

func (handler *Handler) UpdateDraft(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateDraft")
	defer scope.End()

	req := dto.UpdateDraftRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	res, err := handler.service.UpdateDraft(ctx, chi.URLParam(request, constant.RequestParamID), req)
	if err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	response.WithData(writer, http.StatusOK, res)
}

func (handler *Handler) GetQuote(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetQuote")
	defer scope.End()

	res, err := handler.service.Quote(ctx, chi.URLParam(request, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	response.WithData(writer, http.StatusOK, res)
}

// SubmitForm answers 202 once the booking is dispatched and 422 with the form view when
// the draft is incomplete.
func (handler *Handler) SubmitForm(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".SubmitForm")
	defer scope.End()

	res, err := handler.service.Submit(ctx, chi.URLParam(request, constant.RequestParamID))

	switch {
	case errors.Is(err, form.ErrValidation):
		response.WithData(writer, http.StatusUnprocessableEntity, res)
	case err != nil:
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to submit form")

		response.WithError(writer, err)
	default:
		scope.AddEvent("booking dispatched for form " + res.ID)

		response.WithData(writer, http.StatusAccepted, res)
	}
}

func (handler *Handler) ResetForm(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".ResetForm")
	defer scope.End()

	res, err := handler.service.Reset(ctx, chi.URLParam(request, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	response.WithData(writer, http.StatusOK, res)
}

func (handler *Handler) CloseForm(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CloseForm")
	defer scope.End()

	if err := handler.service.Close(ctx, chi.URLParam(request, constant.RequestParamID)); err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	response.WithMessage(writer, http.StatusOK, "Booking form closed")
}
