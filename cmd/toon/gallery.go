package main

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/toon-nation/internal/cli"
	"github.com/fpang/toon-nation/internal/previewcache"
	"github.com/fpang/toon-nation/internal/store"
	"github.com/fpang/toon-nation/internal/styles"
)

var (
	stylesAnimationFlag bool
	galleryYesFlag      bool
)

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List the available styles",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		defer w.Flush()
		if stylesAnimationFlag {
			for _, s := range styles.AnimationStyles() {
				fmt.Fprintf(w, "  %s\t%s\t%s\n", s.Key, s.Name, s.Description)
			}
			return
		}
		for _, c := range styles.Categories() {
			fmt.Fprintf(w, "%s\n", c.Name)
			for _, s := range c.Styles {
				pro := ""
				if s.Pro {
					pro = "pro"
				}
				fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", s.Key, s.Name, pro, s.Description)
			}
		}
	},
}

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Manage saved creations",
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved creations, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp(cmd.Context(), cmd, false, true)
		defer a.close()

		creations, err := a.store.List(cmd.Context())
		if err != nil {
			fail(err)
		}
		if len(creations) == 0 {
			fmt.Println("Your gallery is empty.")
			return
		}
		printCreations(creations)
	},
}

var galleryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved creation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fail(fmt.Errorf("invalid creation id %q", args[0]))
		}
		if !galleryYesFlag && !cli.Confirm(bufio.NewReader(os.Stdin), os.Stdout, fmt.Sprintf("Delete creation #%d?", id)) {
			fmt.Println("Cancelled.")
			return
		}

		a := loadApp(cmd.Context(), cmd, false, true)
		defer a.close()
		if err := a.store.Delete(cmd.Context(), id); err != nil {
			fail(err)
		}
		fmt.Printf("Deleted #%d\n", id)
	},
}

var galleryExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write a saved creation's result image",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fail(fmt.Errorf("invalid creation id %q", args[0]))
		}
		a := loadApp(cmd.Context(), cmd, false, true)
		defer a.close()

		c, err := findCreation(cmd, a.store, id)
		if err != nil {
			fail(err)
		}
		data, err := decodeResult(c)
		if err != nil {
			fail(err)
		}
		path, err := writeDownload(outputFlag, fmt.Sprintf("toon-nation-%d.png", id), data)
		if err != nil {
			fail(err)
		}
		fmt.Printf("Wrote %s\n", path)
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the offline style preview cache",
}

var cacheWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Download every style preview into the cache",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp(cmd.Context(), cmd, false, false)
		c := previewcache.New(a.cfg.CacheDir, nil)

		urls := styles.PreviewURLs()
		n, err := c.Install(cmd.Context(), urls)
		if err != nil {
			fail(err)
		}
		removed, err := c.Activate()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to purge old preview caches")
		}
		fmt.Printf("Cached %d of %d previews in %s\n", n, len(urls), c.Dir())
		if len(removed) > 0 {
			fmt.Printf("Removed old caches: %v\n", removed)
		}
	},
}

func init() {
	stylesCmd.Flags().BoolVar(&stylesAnimationFlag, "animation", false, "List only the animation styles")
	galleryDeleteCmd.Flags().BoolVarP(&galleryYesFlag, "yes", "y", false, "Do not ask for confirmation")
	galleryCmd.AddCommand(galleryListCmd, galleryDeleteCmd, galleryExportCmd)
	cacheCmd.AddCommand(cacheWarmCmd)
}

func printCreations(creations []store.Creation) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "ID\tSAVED\tCAPTION")
	for _, c := range creations {
		fmt.Fprintf(w, "%d\t%s\t%s\n", c.ID, cli.FormatTimestamp(c.Timestamp), cli.Truncate(c.Caption, 60))
	}
}

func findCreation(cmd *cobra.Command, st store.CreationStore, id int64) (store.Creation, error) {
	creations, err := st.List(cmd.Context())
	if err != nil {
		return store.Creation{}, err
	}
	for _, c := range creations {
		if c.ID == id {
			return c, nil
		}
	}
	return store.Creation{}, fmt.Errorf("creation #%d not found", id)
}

func decodeResult(c store.Creation) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(c.ToonifiedImageBase64)
	if err != nil {
		return nil, fmt.Errorf("creation #%d has an invalid image: %w", c.ID, err)
	}
	return data, nil
}
