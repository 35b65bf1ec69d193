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

	"github.com/BrandonDHaskell/cardseq/internal/cardseq/service"
	"github.com/BrandonDHaskell/cardseq/internal/cardseq/store/sqlite"
	"github.com/BrandonDHaskell/cardseq/internal/config"
	"github.com/BrandonDHaskell/cardseq/internal/db"
	"github.com/BrandonDHaskell/cardseq/internal/grpcapi"
	"github.com/BrandonDHaskell/cardseq/internal/httpapi"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "cardseq-server ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DB
	sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath})
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer sqlDB.Close()

	writer := db.NewWorker(sqlDB)
	defer writer.Close()

	// Stores
	sequenceStore := sqlite.NewSequenceStore(sqlDB, writer)
	logEntryStore := sqlite.NewLogEntryStore(sqlDB, writer)

	// Background workers
	recorder := service.NewRecorder(logEntryStore, cfg.QueueSize*4, logger)
	recorder.Start(ctx)
	defer recorder.Stop()

	pruner := service.NewLogPruner(logEntryStore, service.PrunerConfig{
		RetentionDays: cfg.LogRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	// gRPC health
	grpcSrv := grpcapi.NewServer(grpcapi.Dependencies{
		Logger: logger,
		Addr:   cfg.GRPCAddr,
	})

	// Session
	session := service.NewSession(service.SessionDeps{
		Logger:          logger,
		Sequences:       sequenceStore,
		Entries:         logEntryStore,
		Recorder:        recorder,
		Health:          grpcSrv,
		DefaultBaudRate: cfg.BaudRate,
		PollTimeout:     cfg.PollTimeout,
		QueueSize:       cfg.QueueSize,
	})
	defer session.Close()
	logger.Printf("session %s started (env=%s db=%s)", session.ID(), cfg.Env, cfg.DBPath)

	if cfg.SequenceFile != "" {
		if err := session.LoadFile(ctx, cfg.SequenceFile); err != nil {
			logger.Printf("startup sequence not loaded: %v", err)
		}
	}
	if cfg.SerialPort != "" {
		if err := session.StartListening(cfg.SerialPort, cfg.BaudRate); err != nil {
			logger.Printf("startup listen failed: %v", err)
		}
	}

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:  logger,
		Addr:    cfg.HTTPAddr,
		Session: session,
	})

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	go func() {
		logger.Printf("grpc health on %s", cfg.GRPCAddr)
		if err := grpcSrv.Start(); err != nil {
			logger.Printf("grpc server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	grpcSrv.Shutdown(shutdownCtx)
}
