// Command toon is the terminal front end of Toon Nation: an interactive
// studio shell plus one-shot commands for toonifying, generating from a
// prompt, face swapping and managing the gallery.
package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/toon-nation/internal/cli"
	"github.com/fpang/toon-nation/internal/config"
	"github.com/fpang/toon-nation/internal/gemini"
	"github.com/fpang/toon-nation/internal/logging"
	"github.com/fpang/toon-nation/internal/metrics"
	"github.com/fpang/toon-nation/internal/store"
	"github.com/fpang/toon-nation/internal/studio"
)

var version = "dev"

// Persistent flags
var (
	storeFlag  string
	proFlag    bool
	outputFlag string
)

var rootCmd = &cobra.Command{
	Use:   "toon",
	Short: "Turn photos into cartoon portraits with Gemini",
	Long: `Toon Nation turns a photo into a stylized portrait using Google Gemini.
Pick up to two styles, edit the result with AI instructions or filters,
animate it with Veo, and keep your favourites in a local gallery.

Examples:
  toon studio
  toon toonify me.jpg --style pixarRender --style shonen
  toon scratch "a knight made of cheese" --style claymation
  toon swap --face me.jpg --target poster.png
  toon gallery list`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "Creation store backend: file or aws (default from TOON_STORE)")
	rootCmd.PersistentFlags().BoolVar(&proFlag, "pro", true, "Unlock pro styles, animation and HD downloads")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", ".", "Directory to write downloads into")

	rootCmd.AddCommand(studioCmd, toonifyCmd, scratchCmd, swapCmd, stylesCmd, galleryCmd, cacheCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what a command needs. Fields are nil when the command did not
// ask for them.
type app struct {
	cfg    *config.Config
	awsCfg *aws.Config
	client *gemini.Client
	store  store.CreationStore
}

// loadApp loads configuration and, as requested, the Gemini client and the
// creation store. Exits fatally on failure.
func loadApp(ctx context.Context, cmd *cobra.Command, withClient, withStore bool) *app {
	start := time.Now()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cmd.Flags().Changed("store") {
		cfg.StoreBackend = storeFlag
		if err := cfg.Validate(); err != nil {
			log.Fatal().Err(err).Msg("Invalid configuration")
		}
	}
	if cmd.Flags().Changed("pro") {
		cfg.Pro = proFlag
	}
	if cfg.Metrics {
		metrics.Enable(os.Stderr, "toon")
	}

	a := &app{cfg: cfg, awsCfg: cli.AWSConfigIfNeeded(ctx, cfg)}
	if withClient {
		a.client = cli.InitGeminiClient(ctx, cfg, a.awsCfg)
	}
	if withStore {
		a.store = cli.OpenStore(ctx, cfg, a.awsCfg)
	}

	label, location := cli.StoreLocation(cfg)
	logging.NewStartupLogger("toon").
		Version(version).
		Store(label, location).
		Model("image", cfg.ImageModel).
		Model("text", cfg.TextModel).
		Model("video", cfg.VideoModel).
		Feature("pro", cfg.Pro).
		Feature("metrics", cfg.Metrics).
		Config("command", cmd.Name()).
		InitDuration(time.Since(start)).
		Log()
	return a
}

func (a *app) newStudio(onChange func(studio.View)) *studio.Studio {
	return studio.New(a.client, a.store, studio.Options{
		MaxDimension: a.cfg.MaxDimension,
		Pro:          a.cfg.Pro,
		OnChange:     onChange,
	})
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close creation store")
		}
	}
}
