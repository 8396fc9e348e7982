package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"college/internal/api"
	"college/internal/attendance"
	"college/internal/cloudinary"
	"college/internal/config"
	"college/internal/httpmiddleware"
	"college/internal/logger"
	"college/internal/mail"
	"college/internal/notify"
	"college/internal/otp"
	"college/internal/queue"
	"college/internal/semester"
	"college/internal/store"
	"college/internal/store/memstore"
	"college/internal/timetable"
	"college/internal/user"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reporter := logger.New(log.Default(), cfg, "api")
	defer reporter.Close()
	loc := cfg.Location()

	redisClient := store.NewRedis(cfg)
	defer redisClient.Close()

	health := map[string]api.HealthCheck{}
	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		mem := queue.NewInMemory(64)
		q = mem
		// no separate worker can reach an in-process queue
		go func() {
			if err := notify.NewDispatcher(mail.NewConsole(log.Default())).Run(ctx, mem); err != nil {
				log.Printf("notify: %v", err)
			}
		}()
	} else {
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
		health["redis"] = redisClient.Healthy
	}

	var otpStore otp.Store
	if cfg.QueueBackend == "memory" {
		otpStore = otp.NewMemoryStore(nil)
	} else {
		otpStore = otp.NewRedisStore(redisClient.Client)
	}

	deps := api.Deps{
		OTP:      otp.NewService(otpStore, q, cfg.OTPTTL),
		Health:   health,
		Reporter: reporter,
	}
	if cfg.QueueBackend != "memory" {
		deps.Limiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin)
	}

	var semesters *semester.Service
	switch cfg.StoreBackend {
	case "memory":
		log.Println("store: using in-memory backend, data is lost on exit")
		mem := memstore.New()
		semesters = semester.NewService(mem.Semesters(), loc)
		deps.Timetables = timetable.NewService(mem.Timetables(), semesters)
		deps.Lectures = timetable.NewResolver(mem.Timetables(), mem.Users(), loc)
		deps.Attendance = attendance.NewService(mem.Ledger(), q, loc)
		deps.Users = mem.Users()

		sweeper, err := semester.NewSweeper(semesters, cfg.SweepSchedule)
		if err != nil {
			return err
		}
		sweeper.Start()
		defer sweeper.Stop()

	default:
		db, err := store.NewDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.Migrate(db.Client.DB); err != nil {
			return err
		}
		health["db"] = db.Healthy

		timetables := timetable.NewRepository(db.Client)
		users := user.NewRepository(db.Client)
		semesters = semester.NewService(semester.NewRepository(db.Client), loc)
		deps.Timetables = timetable.NewService(timetables, semesters)
		deps.Lectures = timetable.NewResolver(timetables, users, loc)
		deps.Attendance = attendance.NewService(attendance.NewRepository(db.Client), q, loc)
		deps.Users = users
	}
	deps.Semesters = semesters

	// Cloudinary client (nil when not configured)
	if cfg.CloudinaryConfigured() {
		deps.Proofs = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
