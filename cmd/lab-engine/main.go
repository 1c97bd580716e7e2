package main

import (
	"Go2AdversaryLab/internal/api"
	"Go2AdversaryLab/internal/app"
	"Go2AdversaryLab/internal/config"
	"Go2AdversaryLab/internal/logging"
	"Go2AdversaryLab/internal/model"
	"Go2AdversaryLab/internal/notify"
	"context"
	"encoding/json"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	mode := flag.String("mode", "serve", "serve | analyze | reset | watch")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.NewLogger(cfg.Logging.Level)
	logger.Infof("Configuration loaded from %s.", *configPath)

	switch *mode {
	case "serve":
		serve(cfg, logger)
	case "analyze":
		analyze(cfg, logger)
	case "reset":
		reset(cfg, logger)
	case "watch":
		watch(cfg, logger)
	default:
		logger.Fatalf("Unknown mode '%s'", *mode)
	}
}

// serve runs the inspector behind the HTTP and gRPC servers until a signal.
func serve(cfg *config.Config, logger *logrus.Logger) {
	lab, err := app.NewLab(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to build lab: %v", err)
	}
	defer lab.Close()

	lab.Inspector.Start()

	healthServer := api.NewGRPCHealth(lab.Store, 5*time.Second, logger)
	lis, err := net.Listen("tcp", cfg.API.GRPCAddr)
	if err != nil {
		logger.Fatalf("Failed to listen on %s: %v", cfg.API.GRPCAddr, err)
	}
	go func() {
		logger.Infof("gRPC health server starting on %s", cfg.API.GRPCAddr)
		if err := healthServer.Serve(lis); err != nil {
			logger.Errorf("gRPC server error: %v", err)
		}
	}()

	server := api.NewServer(lab.Inspector, lab.Store, lab.Broadcaster, lab.Metrics, cfg.Processing, logger)
	httpServer := &http.Server{
		Addr:              cfg.API.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Infof("HTTP server starting on %s", cfg.API.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Servers shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
	}
	healthServer.Stop()
	lab.Inspector.Stop()

	logger.Info("All servers exited.")
}

// analyze runs a single drain with the configured processing settings and
// prints the summary and results.
func analyze(cfg *config.Config, logger *logrus.Logger) {
	lab, err := app.NewLab(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to build lab: %v", err)
	}
	defer lab.Close()

	lab.Inspector.Start()
	defer lab.Inspector.Stop()

	run := lab.Inspector.AnalyzeConnections(context.Background(), cfg.Processing)
	<-run.Done()
	if err := run.Err(); err != nil {
		logger.Fatalf("Analysis failed: %v", err)
	}

	out := struct {
		Summary interface{}       `json:"summary"`
		Results model.ResultBatch `json:"results"`
	}{run.Summary(), run.Results()}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Errorf("Failed to print results: %v", err)
	}
}

// reset clears every table, queue and field map of the store.
func reset(cfg *config.Config, logger *logrus.Logger) {
	lab, err := app.NewLab(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to build lab: %v", err)
	}
	defer lab.Close()

	if err := lab.Store.Reset(context.Background()); err != nil {
		logger.Fatalf("Failed to reset store: %v", err)
	}
	lab.Notifier.Post(model.NewEvent(model.StatsUpdated, ""))
	logger.Info("Store reset.")
}

// watch prints the events another lab publishes on NATS.
func watch(cfg *config.Config, logger *logrus.Logger) {
	sub, err := notify.NewSubscriber(cfg.NATS, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	err = sub.Start(func(event model.Event) {
		logger.WithFields(logrus.Fields{"kind": event.Kind, "detail": event.Detail}).Info("Event received.")
	})
	if err != nil {
		logger.Fatalf("Failed to subscribe: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}
