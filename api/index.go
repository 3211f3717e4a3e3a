package handler

import (
	"net/http"
	"os"
	"parcel/config"
	"parcel/di"
	"parcel/shared/logger"
	"parcel/transport/http/response"
	"sync"

	app "parcel/transport/http"

	"github.com/rs/zerolog/log"
)

var (
	service *app.HTTP
	initErr error
	once    sync.Once
)

// Handler serves the desk from a serverless function. Forms only live as long as the instance.
func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()

	once.Do(func() {
		cfg := config.Get()

		logger.InitLogger()
		logger.Configure(cfg, os.Stdout)

		service, initErr = di.InitializeService()
	})

	if initErr != nil {
		log.Error().Err(initErr).Msg("failed to initialize service")
		response.WithUnhealthy(w)

		return
	}

	service.ServeHTTP(w, r)
}
