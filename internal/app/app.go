// Package app wires configuration, the TrueNAS client, the reconcilers and
// the history ledger for one truenasctl invocation.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/truenasctl/internal/config"
	"github.com/dokzlo13/truenasctl/internal/db"
	"github.com/dokzlo13/truenasctl/internal/ledger"
	"github.com/dokzlo13/truenasctl/internal/reconcile"
	"github.com/dokzlo13/truenasctl/internal/reconcile/cronjob"
	"github.com/dokzlo13/truenasctl/internal/reconcile/tunable"
	"github.com/dokzlo13/truenasctl/internal/truenas"
)

// App is the container for everything one invocation needs.
type App struct {
	cfg *config.Config

	Client *truenas.Client

	// History, nil when database.path is empty
	DB     *db.DB
	Ledger *ledger.Ledger

	CronJobs *reconcile.Reconciler[cronjob.Desired]
	Tunables *reconcile.Reconciler[tunable.Desired]

	// Paces resources within a manifest run
	limiter *rate.Limiter
}

// New creates a new App from configuration.
func New(cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	a.Client = truenas.NewClient(
		cfg.TrueNAS.URL,
		cfg.TrueNAS.User,
		cfg.TrueNAS.Password,
		cfg.TrueNAS.Timeout.Duration(),
		cfg.TrueNAS.InsecureSkipVerify,
	)

	if cfg.Database.Path != "" {
		database, err := db.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		a.DB = database
		a.Ledger = ledger.New(database.DB)
	} else {
		log.Debug().Msg("History disabled (database.path is empty)")
	}

	a.CronJobs = reconcile.New[cronjob.Desired](a.Client, cronjob.NewAdapter())
	a.Tunables = reconcile.New[tunable.Desired](a.Client, tunable.NewAdapter())

	rps := cfg.Reconciler.RateLimitRPS
	if rps <= 0 {
		rps = 5.0
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	a.limiter = rate.NewLimiter(rate.Limit(rps), burst)

	return a, nil
}

// Config returns the configuration the app was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Close releases the database and idle connections.
func (a *App) Close() error {
	a.Client.Close()
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
