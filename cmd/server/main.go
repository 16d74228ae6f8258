package main

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eventix/ticket-booking/internal/booking"
	"github.com/eventix/ticket-booking/internal/cache"
	"github.com/eventix/ticket-booking/internal/clock"
	"github.com/eventix/ticket-booking/internal/config"
	"github.com/eventix/ticket-booking/internal/database"
	"github.com/eventix/ticket-booking/internal/handler"
	"github.com/eventix/ticket-booking/internal/queue"
	"github.com/eventix/ticket-booking/internal/repository"
	"github.com/eventix/ticket-booking/internal/router"
)

func main() {
	cfg := config.Load() // fatal on missing required vars

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional; with a nil client the availability cache and
	// the rate limiter both switch themselves off.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, running without cache or rate limiting")
	}
	avail := cache.NewAvailability(rdb, cfg.AvailabilityTTL)

	store := repository.NewStore(db)
	users := repository.NewUserRepo(db)
	events := repository.NewEventRepo(db)
	tickets := repository.NewTicketRepo(db)
	bookings := repository.NewBookingRepo(db)

	publisher := queue.NewPublisher(cfg.AMQPURL)
	gateway := booking.NewGatewaySimulator(time.Now().UnixNano(), cfg.SuccessRate)

	svc := booking.NewService(store, clock.NewSystem(),
		booking.WithNotifier(publisher),
		booking.WithInvalidator(avail),
		booking.WithOutcome(gateway.Decide),
	)

	// Consumer runs for the life of the process and reconnects on its
	// own after broker outages.
	go queue.StartConfirmationConsumer(cfg.AMQPURL)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Auth:    handler.NewAuthHandler(users, cfg.JWTSecret, cfg.AccessTTLMin, cfg.BcryptCost),
		Event:   handler.NewEventHandler(events, users, clock.NewSystem()),
		Ticket:  handler.NewTicketHandler(tickets, events, users, svc, avail),
		Booking: handler.NewBookingHandler(svc, bookings, users, store),
	}, cfg.JWTSecret, router.RateLimitConfig{
		Client: rdb,
		Limit:  cfg.ReserveLimit,
		Window: cfg.ReserveWindow,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
