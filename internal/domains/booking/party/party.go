package party

//go:generate go run go.uber.org/mock/mockgen -source=./party.go -destination=../mocks/party_mock.go -package=mocks

import (
	"context"
	"errors"
	"net/url"
	"parcel/internal/domains/booking/model"
	"parcel/shared"
	"parcel/shared/cache"
	"parcel/shared/constant"

	"github.com/rs/zerolog/log"
)

const cacheKeySession = "session"

// Defaults used when the customer session lacks a value.
const (
	DefaultCustomerName    = ""
	DefaultCustomerAddress = "Default address"
	DefaultCustomerContact = "Unknown"
)

// Defaults used when the admin navigation lacks a value.
const (
	DefaultAdminName    = "Default Customer"
	DefaultAdminAddress = "Unknown Address"
	DefaultAdminContact = "Unknown Contact"
)

// Resolver resolves the party of the current booking. Every field is defaulted independently.
type Resolver interface {
	Resolve(ctx context.Context) model.Party
}

type sessionResolver struct {
	store     cache.RedisCache
	sessionID string
}

// FromSession reads the logged-in customer's identity from the session store.
func FromSession(store cache.RedisCache, sessionID string) Resolver {
	return &sessionResolver{
		store:     store,
		sessionID: sessionID,
	}
}

func (r *sessionResolver) Resolve(ctx context.Context) model.Party {
	return model.Party{
		Name:    r.lookup(ctx, constant.SessionKeyCustomerName, DefaultCustomerName),
		Address: r.lookup(ctx, constant.SessionKeyCustomerAddress, DefaultCustomerAddress),
		Contact: r.lookup(ctx, constant.SessionKeyCustomerContact, DefaultCustomerContact),
	}
}

func (r *sessionResolver) lookup(ctx context.Context, field, fallback string) string {
	key := SessionKey(r.sessionID, field)

	var value string
	if err := r.store.Get(ctx, key, &value); err != nil {
		if !errors.Is(err, cache.Nil) {
			log.Error().Err(err).Str("key", key).Msg("failed to read session identity, using default")
		}

		return fallback
	}

	return shared.ValueOrDefault(value, fallback)
}

// SessionKey is where the login flow stores one identity field of a session.
func SessionKey(sessionID, field string) string {
	return shared.BuildCacheKey(cacheKeySession, sessionID, field)
}

type queryResolver struct {
	params url.Values
}

// FromQuery reads the customer an admin is booking for from navigation query parameters.
func FromQuery(params url.Values) Resolver {
	return &queryResolver{params: params}
}

func (r *queryResolver) Resolve(_ context.Context) model.Party {
	return model.Party{
		Name:    shared.ValueOrDefault(r.params.Get(constant.QueryParamName), DefaultAdminName),
		Address: shared.ValueOrDefault(r.params.Get(constant.QueryParamAddress), DefaultAdminAddress),
		Contact: shared.ValueOrDefault(r.params.Get(constant.QueryParamContact), DefaultAdminContact),
	}
}
