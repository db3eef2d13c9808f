// Command rpsmatch starts the Rock-Paper-Scissors match server.
//
// It supports two modes:
//  1. "serve" (default) – runs the HTTP server exposing REST API, WebSocket, metrics and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags (or the matching environment variables, optionally from a .env file)
// control host/port, the match store backend, match rules, maintenance
// intervals, and optional ngrok tunneling for external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/rpsmatch/api"
	"github.com/wricardo/mcp-training/rpsmatch/game/config"
	"github.com/wricardo/mcp-training/rpsmatch/game/service"
	"github.com/wricardo/mcp-training/rpsmatch/game/store"
	"github.com/wricardo/mcp-training/rpsmatch/logger"
	"github.com/wricardo/mcp-training/rpsmatch/transport/mcp"
	"github.com/wricardo/mcp-training/rpsmatch/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Rock Paper Scissors Match Server"
)

// main loads .env, then runs the selected command
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
	}

	cmd := newCommand()
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Fatal("rpsmatch failed", "error", err)
	}
}

// newCommand builds the CLI. The root command behaves like "serve".
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "rpsmatch",
		Usage:   AppName,
		Version: Version,
		Flags:   config.Flags(),
		Action:  serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run HTTP server with API, WebSocket, metrics and MCP endpoint",
				Flags:  config.Flags(),
				Action: serveAction,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Flags:   config.Flags(),
				Action:  mcpAction,
			},
		},
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel(), cfg.LogFormat == "json")
	logger.Info("starting", "app", AppName, "version", Version, "mode", "serve", "store", cfg.Backend)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := initializeServices(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer app.Close()

	return runHTTPServer(ctx, cfg, app.service)
}

func mcpAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return err
	}
	// stdout carries the MCP protocol
	logger.InitWithWriter(os.Stderr, cfg.LogLevel(), cfg.LogFormat == "json")
	logger.Info("starting", "app", AppName, "version", Version, "mode", "mcp", "store", cfg.Backend)

	app, err := initializeServices(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer app.Close()

	return runStdioMCPWithInternalServer(ctx, cfg, app.service)
}

// application bundles the wired services and the resources to release
type application struct {
	service   service.MatchService
	store     *store.Store
	scheduler gocron.Scheduler
	closers   []func()
}

// Close stops maintenance jobs and closes the backend
func (a *application) Close() {
	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(); err != nil {
			logger.Warn("scheduler shutdown failed", "error", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// initializeServices wires the persistence backend, store and match service.
// It also starts the maintenance jobs.
func initializeServices(ctx context.Context, cfg config.Config) (*application, error) {
	app := &application{}

	persistence, closer, err := newPersistence(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}

	rules := cfg.Rules()
	if persistence != nil {
		app.store = store.NewStoreWithPersistence(rules, persistence)
		if err := app.store.LoadPersisted(ctx); err != nil {
			logger.Warn("failed to load persisted matches", "error", err)
		}
	} else {
		app.store = store.NewStore(rules)
	}

	app.service = service.NewMatchService(app.store, rules)

	scheduler, err := startMaintenance(app.store, cfg, persistence != nil)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to start maintenance jobs: %w", err)
	}
	app.scheduler = scheduler

	return app, nil
}

// newPersistence opens the configured backend. The memory backend has none.
func newPersistence(ctx context.Context, cfg config.Config) (store.MatchPersistence, func(), error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return nil, nil, nil

	case config.BackendFile:
		fp, err := store.NewFilePersistence(cfg.MatchesDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create file persistence: %w", err)
		}
		logger.Info("using file store", "dir", cfg.MatchesDir)
		return fp, nil, nil

	case config.BackendRedis:
		rp, err := store.NewRedisPersistence(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix, 0)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using redis store", "addr", cfg.RedisAddr, "prefix", cfg.RedisPrefix)
		return rp, func() { rp.Close() }, nil

	case config.BackendPostgres:
		pp, err := store.NewPostgresPersistence(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres store")
		return pp, pp.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

// startMaintenance schedules the expired-match sweep and, for persistent
// backends, pruning of matches whose record was deleted out of band
func startMaintenance(st *store.Store, cfg config.Config, persistent bool) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if cfg.MatchTTL > 0 && cfg.SweepInterval > 0 {
		_, err = s.NewJob(
			gocron.DurationJob(cfg.SweepInterval),
			gocron.NewTask(func() {
				if removed := st.CleanupExpired(cfg.MatchTTL); removed > 0 {
					logger.Info("cleaned up expired matches", "count", removed)
				}
			}),
			gocron.WithName("sweep-expired-matches"),
		)
		if err != nil {
			s.Shutdown()
			return nil, err
		}
	}

	if persistent && cfg.PruneInterval > 0 {
		_, err = s.NewJob(
			gocron.DurationJob(cfg.PruneInterval),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.PruneInterval)
				defer cancel()
				if pruned := st.PruneOrphans(ctx); pruned > 0 {
					logger.Info("store sync pruned orphaned matches", "count", pruned)
				}
			}),
			gocron.WithName("prune-orphaned-matches"),
		)
		if err != nil {
			s.Shutdown()
			return nil, err
		}
	}

	s.Start()
	return s, nil
}

// mcpHandler serves MCP JSON-RPC messages over HTTP POST
func mcpHandler(mcpServer *server.MCPServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRouter mounts the API server at the root and the MCP endpoint at /mcp
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient.GetMCPServer()))
	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel. It returns when ctx is done.
func runHTTPServer(ctx context.Context, cfg config.Config, matchService service.MatchService) error {
	hub := websocket.NewHub()
	go hub.Run(ctx)

	apiServer := api.NewServer(matchService, hub)

	addr := cfg.Addr()
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	mainRouter := newRouter(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening",
			"addr", addr,
			"api", fmt.Sprintf("http://%s/api", addr),
			"websocket", fmt.Sprintf("ws://%s/ws?match=<match_id>", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr),
		)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	if cfg.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, cfg, mainRouter)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-serveErr:
		logger.Error("HTTP server failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", "error", err)
	}

	wg.Wait()
	logger.Info("server stopped")
	return runErr
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done
func runNgrokTunnel(ctx context.Context, cfg config.Config, handler http.Handler) {
	if cfg.NgrokAuth == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	logger.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		logger.Info("using custom ngrok domain", "domain", cfg.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuth))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "error", err)
		return
	}

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		"url", ngrokURL,
		"api", ngrokURL+"/api",
		"websocket", ngrokURL+"/ws?match=<match_id>",
		"mcp", ngrokURL+"/mcp",
	)

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", "error", err)
		}
	}()

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		logger.Warn("ngrok server error", "error", err)
	}
	logger.Info("ngrok tunnel closed")
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at the configured address; if unavailable,
// it starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, cfg config.Config, matchService service.MatchService) error {
	externalURL := fmt.Sprintf("http://%s", cfg.Addr())
	baseURL, internal, err := resolveAPI(ctx, externalURL, matchService)
	if err != nil {
		return err
	}
	if internal != nil {
		defer internal.Close()
		logger.Info("MCP stdio server ready (using internal HTTP server)", "api", baseURL)
	} else {
		logger.Info("MCP stdio server ready (using external HTTP server)", "api", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// resolveAPI returns externalURL if an API answers there. Otherwise it starts
// an internal API on a loopback port and returns its URL and server.
func resolveAPI(ctx context.Context, externalURL string, matchService service.MatchService) (string, *http.Server, error) {
	logger.Info("checking for external API server", "url", externalURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/healthz")
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			logger.Info("external API server found", "url", externalURL)
			return externalURL, nil, nil
		}
	}

	logger.Info("no external API server found, starting internal HTTP server")

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}
	internalAddr := listener.Addr().String()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	httpServer := &http.Server{
		Handler: api.NewServer(matchService, hub),
	}

	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("internal HTTP server error", "error", err)
		}
	}()

	return fmt.Sprintf("http://%s", internalAddr), httpServer, nil
}
