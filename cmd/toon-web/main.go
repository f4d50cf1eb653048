// Command toon-web serves the Toon Nation studio as a JSON API on
// localhost, for a browser front end.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/toon-nation/internal/cli"
	"github.com/fpang/toon-nation/internal/config"
	"github.com/fpang/toon-nation/internal/logging"
	"github.com/fpang/toon-nation/internal/metrics"
	"github.com/fpang/toon-nation/internal/previewcache"
	"github.com/fpang/toon-nation/internal/studio"
	"github.com/fpang/toon-nation/internal/styles"
)

var version = "dev"

// CLI flags
var (
	addrFlag      string
	warmCacheFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "toon-web",
	Short: "Local web API for the Toon Nation studio",
	Long: `Toon Web starts a local server exposing one studio session as a JSON
API. A browser front end drives it: upload a photo, pick styles, toonify,
edit, animate, download and manage the gallery.

Examples:
  toon-web
  toon-web --addr 127.0.0.1:9090
  toon-web --warm-cache`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVar(&addrFlag, "addr", "", "Address to listen on (default from TOON_WEB_ADDR)")
	rootCmd.Flags().BoolVar(&warmCacheFlag, "warm-cache", false, "Download all style previews at startup")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()
	start := time.Now()
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if addrFlag != "" {
		cfg.WebAddr = addrFlag
	}
	if cfg.Metrics {
		metrics.Enable(os.Stdout, "toon-web")
	}

	awsCfg := cli.AWSConfigIfNeeded(ctx, cfg)
	client := cli.InitGeminiClient(ctx, cfg, awsCfg)
	st := cli.OpenStore(ctx, cfg, awsCfg)
	defer st.Close()

	previews := previewcache.New(cfg.CacheDir, nil)
	if _, err := previews.Activate(); err != nil {
		log.Warn().Err(err).Msg("Failed to purge old preview caches")
	}
	if warmCacheFlag {
		go func() {
			if _, err := previews.Install(context.Background(), styles.PreviewURLs()); err != nil {
				log.Warn().Err(err).Msg("Preview cache warm-up stopped")
			}
		}()
	}

	srv := newServer(cfg, previews)
	srv.studio = studio.New(client, st, studio.Options{
		MaxDimension: cfg.MaxDimension,
		Pro:          cfg.Pro,
	})

	label, location := cli.StoreLocation(cfg)
	logging.NewStartupLogger("toon-web").
		Version(version).
		Store(label, location).
		Store("previews", previews.Dir()).
		Model("image", cfg.ImageModel).
		Model("text", cfg.TextModel).
		Model("video", cfg.VideoModel).
		Feature("pro", cfg.Pro).
		Feature("metrics", cfg.Metrics).
		Feature("warmCache", warmCacheFlag).
		Config("addr", cfg.WebAddr).
		InitDuration(time.Since(start)).
		Log()

	httpSrv := &http.Server{
		Addr:         cfg.WebAddr,
		Handler:      srv.routes(),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		srv.studio.Reset()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(ctx)
	}()

	log.Info().Str("addr", cfg.WebAddr).Msg("Starting web server")
	fmt.Printf("\n  Toon Nation API: http://%s/api/state\n\n", cfg.WebAddr)

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
	srv.studio.WaitCaptions()
}
