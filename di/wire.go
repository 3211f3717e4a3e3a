//go:build wireinject
// +build wireinject

package di

import (
	"parcel/config"
	"parcel/infras/kafka"
	"parcel/infras/otel"
	"parcel/infras/redis"
	"parcel/internal/domains/booking/gateway"
	"parcel/internal/domains/booking/redirect"
	bookingService "parcel/internal/domains/booking/service"
	bookingHandler "parcel/internal/handlers/booking"
	"parcel/shared/cache"
	"parcel/transport/http"
	"parcel/transport/http/middleware"
	"parcel/transport/http/router"

	"github.com/google/wire"
)

var configurations = wire.NewSet(
	config.Get,
)

var infrastructures = wire.NewSet(
	otel.New,
	redis.New,
	kafka.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
)

var bookingDomain = wire.NewSet(
	gateway.New,
	redirect.New,
	bookingService.New,
)

var domains = wire.NewSet(
	bookingDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	bookingHandler.New,
	router.New,
)

func InitializeService() (*http.HTTP, error) {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}, nil
}
