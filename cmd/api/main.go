package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-resort-booking.git/internal/booking"
	"github.com/ariefcatur/go-resort-booking.git/internal/config"
	"github.com/ariefcatur/go-resort-booking.git/internal/gateway"
	"github.com/ariefcatur/go-resort-booking.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-resort-booking.git/internal/kafka"
	"github.com/ariefcatur/go-resort-booking.git/internal/postgres"
	"github.com/ariefcatur/go-resort-booking.git/internal/reconcile"
	"github.com/ariefcatur/go-resort-booking.git/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers outlive the app context so in-flight pollers can still
	// publish during shutdown; they stop on Close
	prodCtx, prodCancel := context.WithCancel(context.Background())
	defer prodCancel()
	pConfirm := kafkax.NewProducer(cfg.KafkaBrokers, booking.TopicBookingConfirmed, 1024)
	pConfirm.Start(prodCtx)
	pCancel := kafkax.NewProducer(cfg.KafkaBrokers, booking.TopicBookingCancelled, 1024)
	pCancel.Start(prodCtx)

	// Store & gateway
	store := booking.NewRepo(db, cfg.HoldTTL)
	keys := gateway.Keys{
		SignKey:  cfg.GatewaySignKey,
		EncKey:   cfg.GatewayEncKey,
		KeyID:    cfg.GatewayKeyID,
		ClientID: cfg.GatewayClientID,
	}
	gw := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayMerchantID, keys)
	initiator := &gateway.Initiator{Store: store, Client: gw, ReturnURL: cfg.GatewayReturnURL}

	// Reconciliation
	apply := &reconcile.Applier{
		Store:           store,
		Redis:           rdb,
		ProducerConfirm: pConfirm,
		ProducerCancel:  pCancel,
		Service:         cfg.ServiceName,
	}
	poller := reconcile.NewPoller(gw, apply)
	poller.Interval = cfg.PollInterval
	poller.MaxChecks = cfg.PollMaxChecks

	sweeper := reconcile.NewSweeper(store, poller, apply)
	sweeper.Interval = cfg.SweepInterval
	go func() {
		if err := sweeper.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("sweeper exit: %v", err)
		}
	}()

	// Handler
	router := httpx.NewRouter()
	bh := &httpx.BookingsHandler{
		Store:     store,
		Redis:     rdb,
		Initiator: initiator,
		Poller:    poller,
		Apply:     apply,
		Keys:      keys,
		Currency:  cfg.Currency,
		AppCtx:    ctx,
	}
	bh.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	cancel()      // stop sweeper and poller loops
	poller.Wait() // let in-flight checks finish
	pConfirm.Close()
	pCancel.Close()
	pConfirm.WaitClosed()
	pCancel.WaitClosed()
}
