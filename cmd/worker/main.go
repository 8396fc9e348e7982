package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"college/internal/config"
	"college/internal/logger"
	"college/internal/mail"
	"college/internal/notify"
	"college/internal/queue"
	"college/internal/semester"
	"college/internal/store"
)

// Worker runs the semester expiry sweep and delivers queued notification mail.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reporter := logger.New(log.Default(), cfg, "worker")
	defer reporter.Close()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg)
	defer redisClient.Close()

	semesters := semester.NewService(semester.NewRepository(db.Client), cfg.Location())
	sweeper, err := semester.NewSweeper(semesters, cfg.SweepSchedule)
	if err != nil {
		log.Fatalf("invalid SWEEP_SCHEDULE %q: %v", cfg.SweepSchedule, err)
	}
	sweeper.Start()
	log.Printf("semester sweep scheduled %q in %s", cfg.SweepSchedule, cfg.Location())

	// catch up on a semester that lapsed while the worker was down
	if _, err := semesters.Sweep(ctx, time.Now()); err != nil {
		reporter.Error("worker: initial sweep failed", err)
	}

	var mailer mail.Sender
	if cfg.SendGridAPIKey != "" {
		mailer = mail.NewSendGrid(cfg.SendGridAPIKey, cfg.AppName, cfg.MailFrom)
		log.Println("mail: sending through SendGrid")
	} else {
		mailer = mail.NewConsole(log.Default())
		log.Println("mail: SENDGRID_API_KEY not set, printing mail to the log")
	}

	var q queue.Queue = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	if cfg.QueueBackend == "memory" {
		log.Println("QUEUE_BACKEND=memory: notices are delivered by the api process, worker only sweeps")
		<-ctx.Done()
	} else {
		log.Println("worker started, waiting for messages...")
		if err := notify.NewDispatcher(mailer).Run(ctx, q); err != nil {
			reporter.Error("worker: notice consumer stopped", err)
		}
	}

	<-sweeper.Stop().Done()
	log.Println("worker stopped")
}
