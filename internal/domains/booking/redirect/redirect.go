package redirect

//go:generate go run go.uber.org/mock/mockgen -source=./redirect.go -destination=../mocks/redirect_mock.go -package=mocks

import (
	"context"
	"fmt"
	"net/url"
	"parcel/config"
	"parcel/infras/kafka"
	"parcel/infras/otel"
	"parcel/shared/constant"
	"parcel/shared/timezone"
	"time"

	"github.com/rs/zerolog/log"
)

// Request asks the customer's client to navigate to Route with Params.
type Request struct {
	Route    string     `json:"route"`
	Params   url.Values `json:"params"`
	URL      string     `json:"url"`
	IssuedAt string     `json:"issuedAt"`
}

// Payment builds the payment-screen navigation for a booking.
func Payment(route, bookingID string, at time.Time) Request {
	params := url.Values{}
	params.Set(constant.QueryParamBookingID, bookingID)

	return Request{
		Route:    route,
		Params:   params,
		URL:      route + "?" + params.Encode(),
		IssuedAt: timezone.ISO(at),
	}
}

type Navigator interface {
	Navigate(ctx context.Context, req Request) error
}

type kafkaNavigator struct {
	client kafka.Client
	topic  string
	otel   otel.Otel
}

type logNavigator struct{}

// New publishes navigations to Kafka, or only logs them when no brokers are configured.
func New(cfg *config.Config, client kafka.Client, ot otel.Otel) Navigator {
	if client == nil {
		return &logNavigator{}
	}

	return &kafkaNavigator{
		client: client,
		topic:  cfg.Kafka.Topic.PaymentRedirect,
		otel:   ot,
	}
}

func (n *kafkaNavigator) Navigate(ctx context.Context, req Request) (err error) {
	ctx, scope := n.otel.NewScope(ctx, constant.OtelEventScopeName, constant.OtelEventScopeName+".Navigate")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	scope.SetAttribute("navigation.url", req.URL)

	err = n.client.SendMessages(ctx, n.topic, kafka.Message{
		Key:   req.Params.Get(constant.QueryParamBookingID),
		Value: req,
	})
	if err != nil {
		return fmt.Errorf("failed to publish navigation: %w", err)
	}

	return nil
}

func (n *logNavigator) Navigate(_ context.Context, req Request) error {
	log.Info().Str("url", req.URL).Msg("navigation requested")

	return nil
}
