package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/ben458-1/URL-Server-Monitor/dao"
	"github.com/ben458-1/URL-Server-Monitor/dao/model"
	"github.com/ben458-1/URL-Server-Monitor/dao/query"
	"github.com/ben458-1/URL-Server-Monitor/internal"
	"github.com/ben458-1/URL-Server-Monitor/internal/handler"
	"github.com/ben458-1/URL-Server-Monitor/pkg/alert"
	"github.com/ben458-1/URL-Server-Monitor/pkg/broadcast"
	"github.com/ben458-1/URL-Server-Monitor/pkg/cleaner"
	"github.com/ben458-1/URL-Server-Monitor/pkg/collector"
	"github.com/ben458-1/URL-Server-Monitor/pkg/config"
	"github.com/ben458-1/URL-Server-Monitor/pkg/healthcheck"
	"github.com/ben458-1/URL-Server-Monitor/pkg/keycrypt"
	"github.com/ben458-1/URL-Server-Monitor/pkg/sshexec"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if gin.Mode() == gin.DebugMode {
		if err := godotenv.Load(); err != nil {
			klog.Infof("No .env file loaded: %v", err)
		}
	}

	conf := config.GetConfig()

	cipher, err := keycrypt.New(conf.EncryptionKey)
	if err != nil {
		klog.Fatalf("Failed to initialize key cipher: %v", err)
	}

	db := query.GetDB()
	if err := ensureAdminUser(db); err != nil {
		klog.Fatalf("Failed to ensure admin user: %v", err)
	}

	hub := broadcast.NewHub()

	serverStore := dao.NewServerStore(db)
	metricStore := dao.NewMetricStore(db)
	alertStore := dao.NewAlertStore(db)
	urlStore := dao.NewURLStore(db)
	healthStore := dao.NewHealthStore(db)

	evaluator := alert.NewEvaluator(
		alertStore,
		alert.NewSMTPMailer(),
		time.Duration(conf.Monitor.AlertCooldownMinutes)*time.Minute,
	)
	prober := sshexec.NewProber(
		time.Duration(conf.Monitor.SSHConnectTimeoutSeconds)*time.Second,
		time.Duration(conf.Monitor.SSHCommandTimeoutSeconds)*time.Second,
	)
	coll := collector.New(serverStore, metricStore, evaluator, prober, hub, cipher, conf.Monitor.MaxConcurrentProbes)
	checker := healthcheck.NewChecker(
		urlStore, healthStore, hub,
		time.Duration(conf.Monitor.HealthTimeoutSeconds)*time.Second,
	)
	pruner := cleaner.New(db, conf.Monitor.RetentionDays)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Each cycle gets one guarded job shared by the immediate startup run
	// and the schedule, so a slow cycle can never stack a second instance
	// on top of itself no matter who launched the first.
	collectJob := guardedJob(ctx, "GPU collection", coll.RunCycle)
	healthJob := guardedJob(ctx, "health check", checker.RunCycle)
	cleanupJob := guardedJob(ctx, "database cleanup", pruner.Run)

	sched := cron.New()
	schedule := func(spec, name string, job cron.Job) {
		if _, addErr := sched.AddJob(spec, job); addErr != nil {
			klog.Fatalf("Failed to schedule %s: %v", name, addErr)
		}
	}
	schedule(fmt.Sprintf("@every %ds", conf.Monitor.IntervalSeconds), "GPU collection", collectJob)
	schedule(fmt.Sprintf("@every %ds", conf.Monitor.HealthIntervalSeconds), "health check", healthJob)
	schedule("@hourly", "database cleanup", cleanupJob)

	// First data point right away instead of one interval later.
	go collectJob.Run()
	go healthJob.Run()
	sched.Start()

	backend := internal.Register(&handler.RegisterConfig{
		DB:     db,
		Hub:    hub,
		Cipher: cipher,
	})
	srv := &http.Server{
		Addr:              conf.ServerAddr,
		Handler:           backend.R,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		klog.Infof("Server listening on %s", conf.ServerAddr)
		if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			klog.Fatalf("Server error: %v", serveErr)
		}
	}()

	<-ctx.Done()
	klog.Info("Shutdown signal received")

	cronDone := sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		klog.Errorf("HTTP shutdown: %v", shutdownErr)
	}
	<-cronDone.Done()
	klog.Info("Server exited")
}

// guardedJob wraps one cycle so overlapping invocations are skipped,
// whether launched by the scheduler or the immediate startup run.
func guardedJob(ctx context.Context, name string, run func(context.Context) error) cron.Job {
	return cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(cron.FuncJob(func() {
		if err := run(ctx); err != nil {
			klog.Errorf("%s failed: %v", name, err)
		}
	}))
}

// ensureAdminUser seeds the first operator account so the console is usable
// on a fresh database.
func ensureAdminUser(db *gorm.DB) error {
	users := dao.NewUserStore(db)
	existing, err := users.GetByName(context.Background(), "admin")
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin"
		klog.Warning("ADMIN_PASSWORD not set, seeding admin with the default password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return users.Create(context.Background(), &model.User{
		Name:     "admin",
		Password: string(hash),
		Role:     model.RoleAdmin,
	})
}
