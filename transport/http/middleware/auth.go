package middleware

import (
	"crypto/subtle"
	"net/http"
	"parcel/config"
	"parcel/infras/otel"
	"parcel/shared/constant"
	"parcel/shared/failure"
	"parcel/transport/http/response"
)

// Auth guards the admin surface.
type Auth interface {
	APIKey(http.Handler) http.Handler
}

type authImpl struct {
	otel otel.Otel
	cfg  *config.Config
}

func NewAuthMiddleware(otel otel.Otel, cfg *config.Config) Auth {
	return &authImpl{
		otel: otel,
		cfg:  cfg,
	}
}

// APIKey requires X-API-Key to match APP_API_KEY. With no key configured every request passes.
func (m *authImpl) APIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, scope := m.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, "api_key.middleware")

		expected := m.cfg.App.APIKey
		if expected == constant.Empty {
			scope.SetAttribute("http.source", "open")
			scope.End()
			next.ServeHTTP(writer, request)

			return
		}

		apiKey := request.Header.Get(constant.RequestHeaderAPIKey)

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expected)) != 1 {
			err := failure.ForbiddenError

			response.WithError(writer, err)

			scope.SetAttribute("http.source", "client")
			scope.TraceError(err)
			scope.End()

			return
		}

		scope.SetAttribute("http.source", "internal")
		scope.End()

		next.ServeHTTP(writer, request)
	})
}
