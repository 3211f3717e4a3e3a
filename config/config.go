package config

import (
	"fmt"
	"sync"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Server struct {
		Env      string `envconfig:"ENV"       default:"development"`
		LogLevel string `envconfig:"LOG_LEVEL"`
		Port     string `envconfig:"PORT"      default:"8081"`
		Host     string `envconfig:"HOST"`
		Shutdown struct {
			CleanupPeriodSeconds int64 `envconfig:"CLEANUP_PERIOD_SECONDS" default:"5"`
			GracePeriodSeconds   int64 `envconfig:"GRACE_PERIOD_SECONDS"   default:"5"`
		} `envconfig:"SHUTDOWN"`
	} `envconfig:"SERVER"`

	App struct {
		Name string `envconfig:"APP_NAME" default:"parcel-desk"`
		CORS struct {
			AllowCredentials bool     `envconfig:"ALLOW_CREDENTIALS"`
			AllowedHeaders   []string `envconfig:"ALLOWED_HEADERS"`
			AllowedMethods   []string `envconfig:"ALLOWED_METHODS"`
			AllowedOrigins   []string `envconfig:"ALLOWED_ORIGINS"`
			Enable           bool     `envconfig:"ENABLE"`
			MaxAgeSeconds    int      `envconfig:"MAX_AGE_SECONDS"`
		} `envconfig:"CORS"`
		RateLimiter struct {
			Enable        bool `envconfig:"ENABLE"`
			MaxRequests   int  `envconfig:"MAX_REQUESTS"`
			WindowSeconds int  `envconfig:"WINDOW_SECONDS"`
		} `envconfig:"RATE_LIMITER"`
		APIKey       string `envconfig:"API_KEY"`
		MaxOpenForms int    `envconfig:"MAX_OPEN_FORMS" default:"10000"`
	} `envconfig:"APP"`

	Cache struct {
		Redis struct {
			Primary struct {
				Host     string `envconfig:"HOST"     default:"localhost"`
				Port     string `envconfig:"PORT"     default:"6379"`
				Password string `envconfig:"PASSWORD"`
				DB       int    `envconfig:"DB"`
			} `envconfig:"PRIMARY"`
		} `envconfig:"REDIS"`
		// TTL is how many seconds a form may sit idle before the desk evicts it.
		TTL int `envconfig:"TTL" default:"1800"`
	} `envconfig:"CACHE"`

	Kafka struct {
		Brokers []string `envconfig:"BROKERS"`
		SASL    struct {
			Username string `envconfig:"USERNAME"`
			Password string `envconfig:"PASSWORD"`
		} `envconfig:"SASL"`
		Topic struct {
			PaymentRedirect string `envconfig:"PAYMENT_REDIRECT" default:"booking.payment-redirect"`
		} `envconfig:"TOPIC"`
	} `envconfig:"KAFKA"`

	Backend struct {
		BaseURL        string `envconfig:"BASE_URL"        default:"http://localhost:8080"`
		BookPath       string `envconfig:"BOOK_PATH"       default:"/api/book"`
		AdminBookPath  string `envconfig:"ADMIN_BOOK_PATH" default:"/api/admin-book"`
		TimeoutSeconds int    `envconfig:"TIMEOUT_SECONDS" default:"10"`
	} `envconfig:"BACKEND"`

	Pricing struct {
		BaseRate            float64 `envconfig:"BASE_RATE"              default:"50"`
		WeightChargePerGram float64 `envconfig:"WEIGHT_CHARGE_PER_GRAM" default:"0.02"`
		TaxRate             float64 `envconfig:"TAX_RATE"               default:"0.05"`
		AdminFee            float64 `envconfig:"ADMIN_FEE"              default:"50"`
		Delivery            struct {
			Standard float64 `envconfig:"STANDARD" default:"30"`
			Express  float64 `envconfig:"EXPRESS"  default:"80"`
			SameDay  float64 `envconfig:"SAME_DAY" default:"150"`
		} `envconfig:"DELIVERY"`
		Packing struct {
			Basic   float64 `envconfig:"BASIC"   default:"10"`
			Premium float64 `envconfig:"PREMIUM" default:"30"`
		} `envconfig:"PACKING"`
	} `envconfig:"PRICING"`

	Payment struct {
		Route                string `envconfig:"ROUTE"                  default:"/payment"`
		RedirectDelaySeconds int    `envconfig:"REDIRECT_DELAY_SECONDS" default:"3"`
	} `envconfig:"PAYMENT"`

	External struct {
		Otel struct {
			Endpoint string `envconfig:"ENDPOINT"`
		} `envconfig:"OTEL"`
	}
}

var (
	conf        Config
	once        sync.Once
	initialized bool
)

func Init() error {
	var err error

	once.Do(func() {
		err = godotenv.Load(".env")
		if err != nil {
			log.Warn().Err(err).Msg("Could not load .env file, continuing with existing environment variables")
		} else {
			log.Info().Msg("Successfully loaded variables from .env file into environment")
		}

		err = envconfig.Process("", &conf)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to process environment variables")
		}

		initialized = true

		log.Info().Msg("Service configuration initialized successfully")
	})

	if err != nil {
		return fmt.Errorf("processing configuration: %w", err)
	}

	return nil
}

func Get() *Config {
	if !initialized {
		if err := Init(); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize configuration")
		}
	}

	return &conf
}
