package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/54b3r/sommelier-go/internal/bot"
	"github.com/54b3r/sommelier-go/internal/cart"
	"github.com/54b3r/sommelier-go/internal/config"
	"github.com/54b3r/sommelier-go/internal/logging"
	"github.com/54b3r/sommelier-go/internal/server"
	"github.com/54b3r/sommelier-go/internal/throttle"
	"github.com/54b3r/sommelier-go/internal/tracing"
)

// NewServeCmd constructs the `sommelier serve` command, which runs the
// Telegram bot and, with --http, the HTTP API. Both share one agent and one
// set of carts.
func NewServeCmd() *cobra.Command {
	var withHTTP bool
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and optionally the HTTP API",
		Long: `Run the sommelier chat transports.

The Telegram bot starts when TELEGRAM_BOT_TOKEN is set. With --http the
REST/SSE API is served as well (POST /api/chat, /api/cart, /api/health,
/api/ready, /metrics). At least one of the two must be enabled.

Examples:
  TELEGRAM_BOT_TOKEN=... sommelier serve
  sommelier serve --http --port 9090
  MODEL_PROVIDER=openai sommelier serve --http`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.FromContext(ctx)
			token := config.EnvOr("TELEGRAM_BOT_TOKEN", "")
			if token == "" && !withHTTP {
				return errors.New("serve: nothing to run: set TELEGRAM_BOT_TOKEN or pass --http")
			}
			if !cmd.Flags().Changed("host") {
				host = config.EnvOr("SOMMELIER_HTTP_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = config.EnvInt("SOMMELIER_HTTP_PORT", port)
			}

			// Langfuse tracing is opt-in and a no-op without keys.
			flush, traced := tracing.Install(tracing.ConfigFromEnv())
			defer flush()
			if traced {
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			reg := prometheus.DefaultRegisterer

			history := openHistory(log)
			if history != nil {
				defer func() { _ = history.Close() }()
			}

			catalogStore, err := openCatalog(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = catalogStore.Close() }()

			emb, err := buildEmbedder(log, history, reg)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			carts := cart.New(reg)
			sommelier, err := buildAgent(ctx, log, buildSearch(catalogStore, emb, reg), carts, history)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			g, gctx := errgroup.WithContext(ctx)

			if token != "" {
				api, err := bot.NewAPI(token)
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				lim := throttle.New(throttle.Config{
					Rate:  float64(config.EnvFloat32("TELEGRAM_RATE_LIMIT", 0.2)),
					Burst: config.EnvInt("TELEGRAM_RATE_BURST", 3),
				})
				defer lim.Close()
				b := bot.New(api, sommelier, carts, log, reg).WithThrottle(lim)
				g.Go(func() error {
					log.Info("bot: polling Telegram")
					return b.Run(gctx)
				})
			} else {
				log.Info("bot: disabled", slog.String("reason", "TELEGRAM_BOT_TOKEN not set"))
			}

			if withHTTP {
				pingers := []server.Pinger{server.NewQdrantPinger(catalogStore)}
				if history != nil {
					pingers = append(pingers, server.NewHistoryPinger(history))
				}
				srv, err := server.New(sommelier, carts, &server.Config{
					Host:            host,
					Port:            port,
					Logger:          log,
					Pingers:         pingers,
					APIKey:          config.EnvOr("SOMMELIER_API_KEY", ""),
					MetricsRegistry: reg,
				})
				if err != nil {
					return fmt.Errorf("serve: failed to create server: %w", err)
				}
				g.Go(func() error {
					return srv.Start(gctx)
				})
			}

			return g.Wait() //nolint:wrapcheck // transports wrap their own errors
		},
	}

	cmd.Flags().BoolVar(&withHTTP, "http", false, "Serve the HTTP API alongside the bot")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind the HTTP API to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port for the HTTP API")

	return cmd
}
