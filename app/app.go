package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teamgold/golden/activitypub"
	"github.com/teamgold/golden/db"
	"github.com/teamgold/golden/util"
	"github.com/teamgold/golden/web"
)

// App represents the main application with all its servers and dependencies
type App struct {
	config      *util.AppConfig
	httpServer  *http.Server
	distributor *activitypub.Distributor
	processor   *activitypub.Processor
	done        chan os.Signal
	workerStop  chan struct{}
	workerDone  chan struct{}
}

// New creates a new App instance with the given configuration
func New(conf *util.AppConfig) (*App, error) {
	return &App{
		config:     conf,
		done:       make(chan os.Signal, 1),
		workerStop: make(chan struct{}),
		workerDone: make(chan struct{}),
	}, nil
}

// Initialize opens the database (running migrations) and wires the
// distribution pipeline and HTTP server.
func (a *App) Initialize() error {
	if a.config.Conf.DbPath != "" {
		db.SetPath(a.config.Conf.DbPath)
	}

	log.Println("Opening database and running migrations...")
	db.GetDB()
	log.Println("Database ready")

	database := activitypub.NewDBWrapper()
	client := activitypub.NewDefaultHTTPClient(activitypub.DeliveryTimeout)

	a.distributor = activitypub.NewDistributor(database, client, a.config.Conf.SiteUrl)
	a.processor = activitypub.NewProcessor(database)
	a.httpServer = web.NewServer(a.config, a.distributor)

	return nil
}

// Distributor exposes the wired distribution pipeline.
func (a *App) Distributor() *activitypub.Distributor {
	return a.distributor
}

// Start starts the HTTP server and the inbox worker, then blocks until a
// shutdown signal is received.
func (a *App) Start() error {
	signal.Notify(a.done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go a.runInboxWorker()

	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-a.done
	log.Println("Shutdown signal received")

	return a.Shutdown()
}

// runInboxWorker periodically drains unprocessed inbox items for every
// author that has a backlog.
func (a *App) runInboxWorker() {
	defer close(a.workerDone)

	interval := a.config.Conf.ProcessInterval
	if interval <= 0 {
		interval = 30
	}
	log.Printf("Inbox worker running every %d seconds", interval)

	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-a.workerStop:
			return
		case <-ticker.C:
			a.drainInboxes()
		}
	}
}

func (a *App) drainInboxes() {
	err, owners := db.GetDB().ReadInboxBacklogAuthors()
	if err != nil {
		log.Printf("Inbox worker: backlog query failed: %v", err)
		return
	}

	for _, owner := range owners {
		if err := a.processor.ProcessInbox(owner); err != nil {
			log.Printf("Inbox worker: processing %s failed: %v", owner, err)
		}
	}
}

// Shutdown gracefully stops the HTTP server and the inbox worker with a 30
// second timeout.
func (a *App) Shutdown() error {
	log.Println("Initiating graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var shutdownErr error

	log.Println("Stopping HTTP server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		shutdownErr = err
	} else {
		log.Println("HTTP server stopped gracefully")
	}

	log.Println("Stopping inbox worker...")
	close(a.workerStop)
	select {
	case <-a.workerDone:
		log.Println("Inbox worker stopped")
	case <-ctx.Done():
		log.Println("Inbox worker shutdown timed out")
	}

	// Drain anything that arrived while shutting down.
	a.drainInboxes()

	if err := db.GetDB().Close(); err != nil {
		log.Printf("Database close error: %v", err)
		if shutdownErr == nil {
			shutdownErr = err
		}
	}

	log.Println("All servers stopped")
	return shutdownErr
}
