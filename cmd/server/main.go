package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/spraylab/streetshop/internal/config"
	"github.com/spraylab/streetshop/internal/es"
	"github.com/spraylab/streetshop/internal/geo"
	"github.com/spraylab/streetshop/internal/handlers"
	"github.com/spraylab/streetshop/internal/handlers/cart"
	"github.com/spraylab/streetshop/internal/logging"
	"github.com/spraylab/streetshop/internal/mailer"
	"github.com/spraylab/streetshop/internal/mykafka"
	"github.com/spraylab/streetshop/internal/orders"
	"github.com/spraylab/streetshop/internal/payment"
	"github.com/spraylab/streetshop/internal/ratelimit"
	"github.com/spraylab/streetshop/internal/service"
	"github.com/spraylab/streetshop/internal/shipping"
	httpserver "github.com/spraylab/streetshop/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	prod, err := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	if err != nil {
		logger.Warn("kafka unavailable, events disabled", "error", err)
		prod = &mykafka.Producer{}
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		logger.Warn("elasticsearch unavailable, search disabled", "error", err)
		esClient = nil
	}

	var rdb *redis.Client
	if configuration.REDIS_ADDR != "" {
		rdb = redis.NewClient(&redis.Options{Addr: configuration.REDIS_ADDR})
	}

	payments := payment.NewClient(configuration.MIDTRANS_SERVER_KEY, configuration.MIDTRANS_BASE_URL)
	couriers := shipping.NewClient(configuration.BITESHIP_API_KEY, configuration.BITESHIP_BASE_URL)
	geocoder := geo.NewClient(configuration.GEOCODING_API_KEY)
	mail := mailer.New(configuration.RESEND_API_KEY, configuration.MAIL_FROM)

	orderService := orders.NewService(db)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.Logger())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := logging.IntoContext(c.Request().Context(), logger)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})

	deps := httpserver.Deps{
		DB:             db,
		AuthHandler:    &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret, Producer: prod, Mailer: mail},
		ProductHandler: &handlers.ProductHandler{DB: db, Producer: prod, ES: esClient, Index: "product"},
		SearchHandler:  &handlers.SearchHandler{ES: esClient, Index: "product"},
		CartHandler:    &cart.CartHandler{DB: db, Producer: prod},
		OrderHandler: &handlers.OrderHandler{
			DB:         db,
			Orders:     orderService,
			Payments:   payments,
			Producer:   prod,
			CronSecret: configuration.CRON_SECRET,
		},
		WebhookHandler: &handlers.WebhookHandler{
			DB:        db,
			Orders:    orderService,
			ServerKey: configuration.MIDTRANS_SERVER_KEY,
			Producer:  prod,
			Mailer:    mail,
			Log:       logger,
		},
		AdminHandler:    &handlers.AdminHandler{DB: db, Orders: orderService},
		ShippingHandler: &handlers.ShippingHandler{Shipping: couriers, Geo: geocoder},
		ProfileHandler:  &handlers.ProfileHandler{DB: db},
		ServiceHandler:  &service.TokenService{DB: db, RefreshSecret: refreshSecret, JWTSecret: jwtSecret},
		AuthLimiter:     ratelimit.New(rdb, time.Minute, 10),
		WebhookLimiter:  ratelimit.New(rdb, time.Minute, 120),
	}

	httpserver.Register(e, &deps)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweeper := &orders.Sweeper{Service: orderService, Interval: time.Minute, Log: logger}
	go sweeper.Run(sweepCtx)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Printf("redis close error: %v", err)
		}
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
