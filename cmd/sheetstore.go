package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adfharrison1/sheetstore/pkg/api"
	"github.com/adfharrison1/sheetstore/pkg/archive"
	"github.com/adfharrison1/sheetstore/pkg/config"
	"github.com/adfharrison1/sheetstore/pkg/server"
	"github.com/adfharrison1/sheetstore/pkg/storage"
)

const (
	connectTimeout  = 30 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("ERROR: Invalid configuration: %v", err)
	}

	store, err := storage.New(cfg)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), connectTimeout)
	err = store.Connect(connectCtx)
	cancelConnect()
	if err != nil {
		log.Fatalf("ERROR: Could not connect to %s store: %v", cfg.Backend, err)
	}
	log.Printf("INFO: Connected to %s store, collection %s.%s", cfg.Backend, cfg.Database, cfg.Collection)

	options := []api.HandlerOption{api.WithRequestTimeout(cfg.RequestTimeout)}
	if cfg.Archive.Enabled() {
		archiveCtx, cancelArchive := context.WithTimeout(context.Background(), connectTimeout)
		archiver, err := archive.NewMinio(archiveCtx, cfg.Archive)
		cancelArchive()
		if err != nil {
			log.Fatalf("ERROR: Could not set up upload archive: %v", err)
		}
		options = append(options, api.WithArchiver(archiver))
		log.Printf("INFO: Archiving uploads to bucket %s", cfg.Archive.Bucket)
	} else {
		log.Printf("WARN: Upload archiving disabled")
	}

	srv := server.NewServer(store, options...)

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: srv.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Starting sheetstore server on %s", cfg.Addr())
		log.Printf("API endpoints available at http://localhost:%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")

		// Give outstanding requests a deadline for completion
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	serveErr := g.Wait()

	closeCtx, cancelClose := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelClose()
	if err := store.Close(closeCtx); err != nil {
		log.Printf("ERROR: Closing store failed: %v", err)
	}

	if serveErr != nil {
		log.Fatalf("ERROR: Server stopped: %v", serveErr)
	}
	log.Println("Server exited")
}
