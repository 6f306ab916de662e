// Package server orchestrates all components: COMMS client, channel transport,
// dispatcher, optional subscription journal, HTTP ops endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/plugin-dispatcher/internal/config"
	"github.com/morezero/plugin-dispatcher/pkg/bootstrap"
	"github.com/morezero/plugin-dispatcher/pkg/commsutil"
	"github.com/morezero/plugin-dispatcher/pkg/db"
	"github.com/morezero/plugin-dispatcher/pkg/dispatcher"
	"github.com/morezero/plugin-dispatcher/pkg/events"
	"github.com/morezero/plugin-dispatcher/pkg/transport"
)

const logPrefix = "server:server"

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Server is the plugin host.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	pool       *pgxpool.Pool
	journal    journalStore
	dispatcher *dispatcher.JSONRPCSupportsEventStatus
	transport  *transport.Transport
	heartbeat  *heartbeat
	httpServer *http.Server
	checks     map[string]healthCheck
	started    time.Time
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	level := setupLogging(cfg)
	slog.Info(fmt.Sprintf("%s - Starting plugin-dispatcher", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := Start(ctx, cfg, level)
	if err != nil {
		return err
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	return s.Shutdown(ctx)
}

// setupLogging installs the default slog handler and returns its level so
// the loglevel method can change it at runtime.
func setupLogging(cfg *config.Config) *slog.LevelVar {
	level := new(slog.LevelVar)
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.LogFormat) == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, opts)))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, opts)))
	}
	return level
}

// Start wires every component and begins serving. The caller owns the
// returned Server and must Shutdown it.
func Start(ctx context.Context, cfg *config.Config, level *slog.LevelVar) (*Server, error) {
	s := &Server{cfg: cfg, started: time.Now(), checks: make(map[string]healthCheck)}

	// Step 1: Load bootstrap config
	pluginCfg, err := bootstrap.LoadPluginConfig(cfg.BootstrapFile)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load bootstrap config: %w", logPrefix, err)
	}
	if cfg.Callsign != "" {
		pluginCfg.Callsign = cfg.Callsign
	}
	resolved, err := bootstrap.CreateResolvedPlugin(pluginCfg)
	if err != nil {
		return nil, err
	}
	slog.Info(fmt.Sprintf("%s - Plugin %s, default registry %s, %d extra registries",
		logPrefix, resolved.Callsign(), resolved.DefaultVersions(), len(resolved.Extra())))

	// Step 2: Connect to COMMS
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}
	s.nc = nc
	s.checks["comms"] = func(context.Context) error {
		if status := nc.Status(); status != comms.CONNECTED {
			return fmt.Errorf("connection %s", status)
		}
		return nil
	}

	// Step 3: Optional journal database
	if cfg.JournalEnabled() {
		if err := s.openJournal(ctx); err != nil {
			s.close()
			return nil, err
		}
	}

	// Step 4: Dispatcher with subscription reporting
	publisher := events.NewCommsPublisher(nc, &events.CommsPublisherOpts{Prefix: cfg.SubjectPrefix})
	delegation := dispatcher.DelegateUnsubscribe
	if cfg.LegacyUnsubscribe {
		delegation = dispatcher.DelegateSubscribeLegacy
	}
	s.dispatcher = dispatcher.NewSupportsEventStatus(
		dispatcher.WithVersions(resolved.DefaultVersions()),
		dispatcher.WithStrictRegistration(cfg.StrictRegistration),
		dispatcher.WithUnsubscribeDelegation(delegation),
		dispatcher.WithSubscriptionObserver(newSubscriptionFanout(resolved.Callsign(), publisher, s.journal)),
	)
	registerBuiltins(s.dispatcher.JSONRPC, level, s.started)
	resolved.Install(s.dispatcher.JSONRPC)

	if cfg.HeartbeatInterval > 0 {
		s.heartbeat = newHeartbeat(s.dispatcher, cfg.HeartbeatInterval)
		s.heartbeat.Attach()
	}

	// Step 5: Serve channels
	s.transport = transport.New(nc, transport.Options{
		Prefix:    cfg.SubjectPrefix,
		Callsign:  resolved.Callsign(),
		RateLimit: cfg.ChannelRateLimit,
		RateBurst: cfg.ChannelRateBurst,
	})
	if err := s.transport.Serve(s.dispatcher); err != nil {
		s.close()
		return nil, err
	}

	// Step 6: Start HTTP ops server
	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	s.httpServer = &http.Server{Addr: httpAddr, Handler: s.routes(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP ops server listening on %s", logPrefix, httpAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - Plugin %s is ready", logPrefix, resolved.Callsign()))
	return s, nil
}

func (s *Server) openJournal(ctx context.Context) error {
	pool, err := db.NewPool(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
	}
	s.pool = pool
	s.checks["database"] = pool.Ping

	if s.cfg.RunMigrations {
		migrations, err := db.LoadMigrations(s.cfg.MigrationPath)
		if err != nil {
			return fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
		}
		if _, err := db.RunMigrations(ctx, pool, migrations); err != nil {
			return fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
		}
	}

	s.journal = db.NewJournal(pool)
	slog.Info(fmt.Sprintf("%s - Subscription journal enabled", logPrefix))
	return nil
}

// Shutdown stops the HTTP server, the heartbeat and the transport, then
// drains the COMMS connection and closes the database.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		cancel()
	}
	if s.heartbeat != nil {
		s.heartbeat.Detach()
	}
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			errs = append(errs, fmt.Errorf("comms drain: %w", err))
		}
		s.nc = nil
	}
	s.close()

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s - shutdown: %w", logPrefix, err)
	}
	return nil
}

// close releases connections without the graceful steps.
func (s *Server) close() {
	if s.nc != nil {
		s.nc.Close()
		s.nc = nil
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}
