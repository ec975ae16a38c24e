package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	orchestrator "github.com/borosabel/orchestrator"
	"github.com/borosabel/orchestrator/internal/logging"
	"github.com/borosabel/orchestrator/pkg/adapters/httpapi"
	redisadapter "github.com/borosabel/orchestrator/pkg/adapters/redis"
	"github.com/borosabel/orchestrator/pkg/adapters/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the orchestrator over HTTP and WebSocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		domainPath, _ := cmd.Flags().GetString("domain")
		level, _ := cmd.Flags().GetString("log-level")
		addr, _ := cmd.Flags().GetString("addr")
		redisURL, _ := cmd.Flags().GetString("redis")
		sessionTTL, _ := cmd.Flags().GetDuration("session-ttl")
		useModel, _ := cmd.Flags().GetBool("model")

		if domainPath == "" {
			return fmt.Errorf("--domain is required")
		}

		logger := logging.New(logging.ParseLevel(level))
		registry := prometheus.NewRegistry()

		opts := []orchestrator.Option{
			orchestrator.WithLogger(logger),
			orchestrator.WithMetrics(registry),
		}
		if useModel {
			opts = append(opts, orchestrator.WithModelCapabilities())
		}
		if redisURL != "" {
			store := redisadapter.New(redisURL, "", 0)
			opts = append(opts,
				orchestrator.WithStore(store),
				orchestrator.WithLocker(redisadapter.NewLocker(store.Client(), "dialogue:")),
			)
		}

		orch := orchestrator.New(opts...)
		registerBuiltins(orch)

		res, err := orch.LoadDomainFile(domainPath)
		if err != nil {
			return err
		}
		if !res.Valid {
			return fmt.Errorf("domain config is invalid:\n- %s", strings.Join(res.Errors, "\n- "))
		}

		orch.StartJanitor(cmd.Context(), time.Minute, sessionTTL)

		mux := http.NewServeMux()
		mux.Handle("/ws", ws.NewBridge(orch, logger))
		mux.Handle("/", httpapi.NewHandler(orch, logger, registry))

		logger.Info("listening", "addr", addr, "domain", orch.ActiveDomain())
		return http.ListenAndServe(addr, mux)
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().String("redis", "", "Redis address for shared session state (host:port)")
	serveCmd.Flags().Duration("session-ttl", time.Hour, "Evict sessions idle longer than this")
	serveCmd.Flags().Bool("model", false, "Use the hosted model capabilities from the domain's model options")
	rootCmd.AddCommand(serveCmd)
}
