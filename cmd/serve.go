package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"panelbridge/internal/config"
	"panelbridge/internal/dispatch"
	"panelbridge/internal/llm"
	"panelbridge/internal/registry"
	"panelbridge/internal/serve/panel"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the panel WebSocket server",
	Long: `Start the WebSocket server the editor panel connects to.

The panel sends {"command":"chat", ...} envelopes and receives streamed
{"command":"chatResponse"} updates or a single {"command":"error"}.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Listen = serveListen
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	dispatcher := dispatch.New(reg, buildAdapters(cfg))
	dispatcher.SetDebug(debugFlag)

	manager := panel.NewSessionManager(panel.Config{
		Token: cfg.Token,
		Debug: debugFlag,
	}, dispatcher)

	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: manager.HTTPHandler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	fmt.Fprintf(os.Stderr, "panelbridge listening on %s\n", cfg.Listen)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		server.Close()
	}
	return nil
}

func buildRegistry(cfg *config.Config) (*registry.Registry, error) {
	reg := registry.New()
	if cfg.ModelsFile != "" {
		if err := reg.LoadOverlay(cfg.ModelsFile); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func buildAdapters(cfg *config.Config) map[registry.Provider]llm.Adapter {
	return map[registry.Provider]llm.Adapter{
		registry.ProviderLocal: llm.NewOllamaAdapter(cfg.Ollama.BaseURL),
		registry.ProviderGemini: llm.NewGeminiAdapter(func() string {
			if cfg.Gemini.APIKey != "" {
				return cfg.Gemini.APIKey
			}
			return os.Getenv("GEMINI_API_KEY")
		}),
		registry.ProviderHost: llm.NewHostModelAdapter(cfg.Host.Endpoint, func() string {
			return cfg.Host.Selector
		}),
	}
}
