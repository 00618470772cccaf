package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BrandonDHaskell/Portunus/kiosk/internal/config"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/grpcapi"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/httpapi"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/credential"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/feedback"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/input"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/session"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/store"
)

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	if cfg.Env == "prod" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	log := logger.WithField("component", "portunus-kiosk")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// gRPC health is up before storage so probes see NOT_SERVING while the
	// image initializes.
	var grpcSrv *grpcapi.Server
	if cfg.GRPCAddr != "" {
		grpcSrv = grpcapi.NewServer(grpcapi.Dependencies{Logger: log, Addr: cfg.GRPCAddr})
		go func() {
			log.WithField("addr", cfg.GRPCAddr).Info("grpc listening")
			if err := grpcSrv.Start(); err != nil {
				log.WithError(err).Error("grpc server error")
				stop()
			}
		}()
	}

	// Storage
	medium, closeMedium, err := openMedium(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open credential storage")
	}
	defer closeMedium()

	table, err := credential.NewTable(medium, credential.Options{
		Capacity:          cfg.Capacity,
		CredentialLengths: cfg.CredentialLengths,
	})
	if err != nil {
		log.WithError(err).Fatal("credential table")
	}
	stored, resized, err := store.StoredSizeMismatch(ctx, medium)
	if err != nil {
		log.WithError(err).Fatal("inspect credential storage")
	}
	wiped, err := table.InitializeIfNeeded(ctx)
	if err != nil {
		log.WithError(err).Fatal("initialize credential storage")
	}
	switch {
	case wiped && resized:
		log.WithFields(logrus.Fields{
			"capacity":       table.Capacity(),
			"stored_bytes":   stored,
			"expected_bytes": medium.Size(),
		}).Warn("credential image size does not match capacity; all enrollments wiped")
	case wiped:
		log.WithField("capacity", table.Capacity()).Warn("credential storage was blank or foreign; wiped")
	}

	if cfg.Env == "dev" {
		seeds := make([]service.SeedCredential, 0, len(cfg.SeedCredentials))
		for _, s := range cfg.Seeds() {
			seeds = append(seeds, service.SeedCredential{UID: s[0], Code: s[1]})
		}
		if err := service.SeedCredentials(ctx, table, seeds, log); err != nil {
			log.WithError(err).Fatal("seed credentials")
		}
	}
	log.WithFields(logrus.Fields{
		"storage": cfg.Storage,
		"active":  table.ActiveCount(),
	}).Info("credential storage ready")

	// Session
	timings := feedback.Timings{
		GateDwell:   cfg.GateDwell(),
		FailureHold: cfg.FailureHold(),
		MessageHold: cfg.MessageHold(),
	}
	machine, err := session.NewMachine(table, session.Config{AdminCode: cfg.AdminCode, Timings: timings})
	if err != nil {
		log.WithError(err).Fatal("session machine")
	}

	// Input: this build has no hardware reader driver, so the queue is the
	// only card reader and credentials arrive through virtual input.  The
	// terminal adds a local keypad for bench runs.  Nothing may Fatal once
	// the terminal is raw: os.Exit would skip restoring it.
	queue := input.NewQueue(input.DefaultQueueDepth)
	if !cfg.VirtualInput || cfg.HTTPAddr == "" {
		log.Warn("no card reader: this build reads credentials only from virtual input (PORTUNUS_VIRTUAL_INPUT with PORTUNUS_HTTP_ADDR)")
	}
	keypads := []input.Keypad{queue}
	if cfg.TerminalKeypad {
		tk, err := input.NewTerminalKeypad(os.Stdin, stop)
		if err != nil {
			log.WithError(err).Warn("terminal keypad unavailable")
		} else {
			defer tk.Close()
			keypads = append(keypads, tk)
		}
	}
	arbiter := input.NewArbiter(input.Keypads(keypads...), queue, cfg.CredentialLengths, log)

	executor := feedback.NewExecutor(feedback.LogDrivers(log), nil, log)

	kiosk := service.NewKiosk(service.Dependencies{
		Poller:       arbiter,
		Machine:      machine,
		Sink:         executor,
		Occupancy:    table,
		Logger:       log,
		PollInterval: cfg.PollInterval(),
	})

	// HTTP
	var httpSrv *httpapi.Server
	if cfg.HTTPAddr != "" {
		deps := httpapi.Dependencies{
			Logger:            log,
			Addr:              cfg.HTTPAddr,
			Status:            kiosk.Status,
			CredentialLengths: cfg.CredentialLengths,
		}
		if cfg.VirtualInput {
			deps.Input = queue
		}
		httpSrv = httpapi.NewServer(deps)
		go func() {
			log.WithField("addr", cfg.HTTPAddr).Info("http listening")
			if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("http server error")
				stop()
			}
		}()
	}

	kiosk.Start(ctx)
	if grpcSrv != nil {
		grpcSrv.SetServing(true)
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Lets a running feedback sequence finish and closes the gate.
	kiosk.Stop()
	if httpSrv != nil {
		_ = httpSrv.Shutdown(shutdownCtx)
	}
	if grpcSrv != nil {
		grpcSrv.Stop(shutdownCtx)
	}
}
