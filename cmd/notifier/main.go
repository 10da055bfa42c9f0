package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-resort-booking.git/internal/booking"
	"github.com/ariefcatur/go-resort-booking.git/internal/config"
	kafkax "github.com/ariefcatur/go-resort-booking.git/internal/kafka"
	"github.com/ariefcatur/go-resort-booking.git/internal/notify"
	"github.com/ariefcatur/go-resort-booking.git/internal/redisx"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis (dedup by event_id)
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notify.Service{
		Mailer:      notify.NewMailer(cfg.MailerSendAPIKey, cfg.MailFromName, cfg.MailFromEmail),
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-notifier",
	}

	group := getenv("NOTIFIER_GROUP", "notifier-svc")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), "4")

	// one consumer per topic, same group
	cConfirm := kafkax.NewConsumer(cfg.KafkaBrokers, group, booking.TopicBookingConfirmed, workers)
	cCancel := kafkax.NewConsumer(cfg.KafkaBrokers, group, booking.TopicBookingCancelled, workers)

	go func() {
		log.Printf("notifier consumer started: group=%s topic=%s workers=%d", group, booking.TopicBookingConfirmed, workers)
		if err := cConfirm.Start(ctx, svc.HandleConfirmed); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()
	go func() {
		log.Printf("notifier consumer started: group=%s topic=%s workers=%d", group, booking.TopicBookingCancelled, workers)
		if err := cCancel.Start(ctx, svc.HandleCancelled); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down consumers...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
