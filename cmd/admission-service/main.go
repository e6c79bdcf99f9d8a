package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-admissions/internal/attendance"
	attdb "ms-admissions/internal/attendance/db"
	"ms-admissions/internal/attendance/pass"
	"ms-admissions/internal/attendance/visitor_api"
	"ms-admissions/internal/auth"
	bookingdb "ms-admissions/internal/booking/db"
	"ms-admissions/internal/config"
	"ms-admissions/internal/database/migrations"
	"ms-admissions/internal/kafka"
	"ms-admissions/internal/logger"
	"ms-admissions/internal/models"
	"ms-admissions/internal/stats"
	statsdb "ms-admissions/internal/stats/db"
	"ms-admissions/internal/stats/stats_api"
)

func connectDatabase(cfg *config.Config, log *logger.Logger) *bun.DB {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password,
		cfg.Database.Host, cfg.Database.Port,
		cfg.Database.Database, cfg.Database.SSLMode)

	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("failed to open postgres: %v", err))
	}
	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("failed to connect to postgres: %v", err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	log.Info("DATABASE", "postgres connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	bunDB := connectDatabase(cfg, log)
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.MigrateUp(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("migrations failed: %v", err))
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		// The today-summary cache degrades to recomputation; not fatal.
		log.Warn("REDIS", fmt.Sprintf("redis unavailable at %s: %v", cfg.Redis.Addr, err))
	} else {
		log.Info("REDIS", "redis connection successful")
	}

	loc := cfg.Location()

	bookingDB := &bookingdb.DB{Bun: bunDB}
	attendanceDB := &attdb.DB{Bun: bunDB}
	statsDB := &statsdb.DB{Bun: bunDB}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled && !cfg.Kafka.MockMode {
		topics := []string{cfg.Kafka.Topics.BookingCompleted, cfg.Kafka.Topics.AdmissionEvents}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("failed to ensure topics: %v", err))
		}
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.AdmissionEvents)
		defer producer.Close()
	}

	admissionService := attendance.NewService(bookingDB, attendanceDB, eventPublisher(producer), log, loc, cfg.Venue.StorageTimeout)
	todayCache := stats.NewRedisTodayCache(rdb, cfg.Venue.TodayCacheTTL)
	statsService := stats.NewService(statsDB, bookingDB, attendanceDB, todayCache, log, loc, cfg.Venue.MaxScanDays)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Kafka.Enabled && !cfg.Kafka.MockMode {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.BookingCompleted, cfg.Kafka.GroupID, log)
		defer consumer.Close()
		go consumer.Start(ctx, func(booking models.Booking) {
			if err := statsService.RecordCompletedBooking(ctx, booking); err != nil {
				log.Error("STATS", fmt.Sprintf("failed to record booking %s: %v", booking.TicketNumber, err))
			}
		})
	}

	passes := pass.NewGenerator(cfg.Auth.PassSecret)
	visitorHandler := visitor_api.NewHandler(admissionService, passes, log)
	statsHandler := stats_api.NewHandler(statsService, log)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth.StaffTokenSecret))
		visitorHandler.RegisterRoutes(r)
		statsHandler.RegisterRoutes(r)
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("admission service on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = server.Shutdown(ctxShutdown)
	log.Info("SERVER", "admission service shutdown complete")
}

// eventPublisher adapts the optional producer; a nil *Producer must come
// through as a nil interface so the service skips publishing entirely.
func eventPublisher(producer *kafka.Producer) attendance.EventPublisher {
	if producer == nil {
		return nil
	}
	return producer
}
