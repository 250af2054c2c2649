// Command memory-match serves the Memory Match Game.
//
// It supports these subcommands:
//  1. "server" (default) runs the HTTP server exposing the REST API, WebSocket, /metrics and an /mcp HTTP endpoint
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "play" plays a game in the terminal
//  4. "validate-config" checks a settings file
//  5. "version" prints the version
//
// Global flags control the settings file, host/port, debug logging and
// optional ngrok tunneling for easy external access during development.
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

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/memory-match-game/api"
	"github.com/wricardo/memory-match-game/game/config"
	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/metrics"
	"github.com/wricardo/memory-match-game/game/service"
	"github.com/wricardo/memory-match-game/game/session"
	"github.com/wricardo/memory-match-game/transport/mcp"
	"github.com/wricardo/memory-match-game/transport/terminal"
	"github.com/wricardo/memory-match-game/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Memory Match Game Server"
)

// main loads .env and runs the selected subcommand.
func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("exiting")
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "memory-match",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "settings file (yaml, json or toml)",
				Sources: cli.EnvVars(config.EnvPrefix + "_CONFIG"),
			},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
			&cli.StringFlag{Name: "host", Usage: "HTTP server host (overrides server.host)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP server port (overrides server.port)"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel (overrides ngrok.enabled)"},
		},
		Action: runServer,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, metrics and MCP endpoint",
				Action:  runServer,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server, starting an internal HTTP server if none is running",
				Action:  runStdioMCP,
			},
			{
				Name:  "play",
				Usage: "Play in the terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "difficulty", Aliases: []string{"d"}, Usage: "easy, medium or hard"},
				},
				Action: runPlay,
			},
			{
				Name:      "validate-config",
				Usage:     "Load and validate a settings file",
				ArgsUsage: "<file>",
				Action:    runValidateConfig,
			},
			{
				Name:  "version",
				Usage: "Show version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Fprintf(cmd.Root().Writer, "%s v%s\n", AppName, Version)
					return nil
				},
			},
		},
	}
}

// loadSettings reads the settings file and applies command-line overrides
func loadSettings(cmd *cli.Command) (*config.Settings, error) {
	settings, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("host") {
		settings.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		settings.Server.Port = cmd.Int("port")
	}
	if cmd.Bool("ngrok") {
		settings.Ngrok.Enabled = true
	}
	if cmd.Bool("debug") {
		settings.Log.Level = zerolog.LevelDebugValue
	}
	if err := config.Validate(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// setupLogger configures the global zerolog logger. Output goes to w, which
// is stderr in every mode so MCP stdio keeps stdout for the protocol.
func setupLogger(settings *config.Settings, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(settings.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if settings.Log.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// stack is the wired application: config, sessions, service, hub and metrics
type stack struct {
	settings *config.Settings
	configs  *config.Manager
	sessions *session.Manager
	service  service.GameService
	hub      *websocket.Hub
	registry *prometheus.Registry
	logger   zerolog.Logger
}

// newStack wires session/config managers, metrics and the game service
func newStack(settings *config.Settings, logger zerolog.Logger) (*stack, error) {
	configManager, err := config.NewManagerFromSettings(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	gameMetrics := metrics.New(registry)

	hub := websocket.NewHub(logger.With().Str("component", "websocket").Logger())

	sessionManager := session.NewManager(
		session.WithEngineOptions(configManager.EngineOptions),
		session.WithPresenterFactory(func(id string) engine.Presenter {
			return gameMetrics.Presenter(hub.Presenter(id))
		}),
		session.WithLogger(logger.With().Str("component", "session").Logger()),
	)
	gameMetrics.RegisterSessionGauge(registry, sessionManager.Count)

	gameService := service.NewGameService(sessionManager, configManager,
		service.WithMetrics(gameMetrics),
		service.WithLogger(logger.With().Str("component", "service").Logger()),
	)

	return &stack{
		settings: settings,
		configs:  configManager,
		sessions: sessionManager,
		service:  gameService,
		hub:      hub,
		registry: registry,
		logger:   logger,
	}, nil
}

// handler combines the REST API with the /mcp endpoint. The MCP client
// proxies to the API at baseURL.
func (st *stack) handler(baseURL string) http.Handler {
	apiServer := api.NewServer(st.service, st.hub,
		api.WithLogger(st.logger.With().Str("component", "api").Logger()),
		api.WithMetricsHandler(promhttp.HandlerFor(st.registry, promhttp.HandlerOpts{})),
	)
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
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

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mainRouter
}

// cleanupRoutine periodically removes sessions that have not been accessed
// within the configured TTL
func (st *stack) cleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(st.settings.Sessions.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := st.sessions.CleanupExpiredSessions(st.settings.Sessions.TTL); removed > 0 {
				st.logger.Info().Int("removed", removed).Msg("cleaned up expired sessions")
			}
		}
	}
}

// localURL is the address other processes on this machine reach the server at
func localURL(settings *config.Settings) string {
	host := settings.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, fmt.Sprint(settings.Server.Port)))
}

// runServer starts the HTTP server with REST API, WebSocket hub, metrics and
// an /mcp proxy endpoint. If ngrok is enabled it also provisions a public tunnel.
func runServer(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(settings, cmd.Root().ErrWriter)
	logger.Info().Str("version", Version).Msgf("Starting %s", AppName)

	st, err := newStack(settings, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go st.hub.Run(ctx)
	go st.cleanupRoutine(ctx)

	addr := net.JoinHostPort(settings.Server.Host, fmt.Sprint(settings.Server.Port))
	mainRouter := st.handler(localURL(settings))

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

		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		logger.Info().Msgf("REST API: http://%s/api", addr)
		logger.Info().Msgf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		logger.Info().Msgf("MCP endpoint: http://%s/mcp", addr)
		logger.Info().Msgf("Metrics: http://%s/metrics", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	if settings.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, settings.Ngrok, mainRouter, logger)
		}()
	}

	<-ctx.Done()
	logger.Info().Msg("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	st.sessions.CloseAll()

	wg.Wait()
	logger.Info().Msg("Server stopped")

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	default:
		return nil
	}
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, settings config.NgrokSettings, handler http.Handler, logger zerolog.Logger) {
	logger.Info().Msg("Starting ngrok tunnel...")

	// Configure ngrok endpoint
	var tunnel ngrokConfig.Tunnel
	if settings.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.Domain))
		logger.Info().Str("domain", settings.Domain).Msg("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.AuthToken))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to start ngrok tunnel")
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	logger.Info().Str("url", ngrokURL).Msg("Ngrok tunnel established")
	logger.Info().Msgf("  REST API (ngrok): %s/api", ngrokURL)
	logger.Info().Msgf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	logger.Info().Msgf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error().Err(err).Msg("Ngrok server error")
	}
	logger.Info().Msg("Ngrok tunnel closed")
}

// runStdioMCP runs an MCP stdio server. It reuses an API already listening
// on the configured address; otherwise it starts an internal HTTP API bound
// to a random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(settings, cmd.Root().ErrWriter)

	baseURL, shutdown, err := resolveMCPBackend(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer shutdown()

	mcpClient := mcp.NewClient(baseURL)
	logger.Info().Str("api", baseURL).Msg("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// resolveMCPBackend finds or starts the HTTP API the MCP client proxies to
func resolveMCPBackend(ctx context.Context, settings *config.Settings, logger zerolog.Logger) (string, func(), error) {
	externalURL := localURL(settings)
	logger.Info().Str("url", externalURL).Msg("Checking for external API server")

	testClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := testClient.Get(externalURL + "/health"); err == nil {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			logger.Info().Msg("External API server found, using it for MCP")
			return externalURL, func() {}, nil
		}
	}

	logger.Info().Msg("No external API server found, starting internal HTTP server")
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}
	baseURL := fmt.Sprintf("http://%s", listener.Addr().String())

	st, err := newStack(settings, logger)
	if err != nil {
		listener.Close()
		return "", nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	go st.hub.Run(ctx)
	go st.cleanupRoutine(ctx)

	httpServer := &http.Server{Handler: st.handler(baseURL)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Internal HTTP server error")
		}
	}()

	shutdown := func() {
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		httpServer.Shutdown(shutdownCtx)
		st.sessions.CloseAll()
	}
	return baseURL, shutdown, nil
}

// runPlay plays one terminal game on the command's reader and writer
func runPlay(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(settings, cmd.Root().ErrWriter)

	configManager, err := config.NewManagerFromSettings(settings)
	if err != nil {
		return err
	}
	difficulty := configManager.DefaultDifficulty()
	if name := cmd.String("difficulty"); name != "" {
		if difficulty, err = engine.ParseDifficulty(name); err != nil {
			return err
		}
	}

	presenter := terminal.NewPresenter(cmd.Root().Writer)
	opts := append(configManager.EngineOptions(),
		engine.WithPresenter(presenter),
		engine.WithLogger(logger),
	)
	eng, err := engine.NewEngine(difficulty, opts...)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	err = terminal.NewGame(eng, presenter, terminal.WithLogger(logger)).Run(ctx, cmd.Root().Reader)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runValidateConfig loads a settings file and reports whether it is valid
func runValidateConfig(ctx context.Context, cmd *cli.Command) error {
	file := cmd.Args().First()
	if file == "" {
		return errors.New("validate-config requires a settings file argument")
	}

	settings, err := config.Load(file)
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	fmt.Fprintf(out, "✓ %s is valid\n", file)
	fmt.Fprintf(out, "  server:             %s:%d\n", settings.Server.Host, settings.Server.Port)
	fmt.Fprintf(out, "  default difficulty: %s\n", settings.Game.DefaultDifficulty)
	fmt.Fprintf(out, "  reveal delay:       %s\n", settings.Game.RevealDelay)
	fmt.Fprintf(out, "  symbols:            %v\n", settings.Game.Symbols)
	fmt.Fprintf(out, "  session ttl:        %s\n", settings.Sessions.TTL)
	return nil
}
