package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/toon-nation/internal/apierror"
	"github.com/fpang/toon-nation/internal/cli"
	"github.com/fpang/toon-nation/internal/imaging"
	"github.com/fpang/toon-nation/internal/studio"
)

var (
	toonifyFlags generationFlags
	scratchFlags generationFlags
	swapFlags    generationFlags

	swapFaceFlag   string
	swapTargetFlag string
)

var toonifyCmd = &cobra.Command{
	Use:   "toonify [image]",
	Short: "Stylize a photo and write the result",
	Long: `Toonify stylizes a photo with the selected styles and writes
toon-nation.png (or toon-nation-hd.png with --hd) into the output directory.
Without an image argument a file picker is opened.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		runOneShot(cmd, &toonifyFlags, func(ctx context.Context, s *studio.Studio) error {
			if err := selectFromPath(s, path, "Select a photo to toonify"); err != nil {
				return err
			}
			return s.Toonify(ctx)
		})
	},
}

var scratchCmd = &cobra.Command{
	Use:   "scratch <prompt>",
	Short: "Generate a character from a text prompt",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runOneShot(cmd, &scratchFlags, func(ctx context.Context, s *studio.Studio) error {
			s.SetMode(studio.ModeFromScratch)
			return s.GenerateFromScratch(ctx, args[0])
		})
	},
}

var swapCmd = &cobra.Command{
	Use:   "swap",
	Short: "Put the face from one photo onto another",
	Long: `Swap takes the face from --face and puts it onto the person in
--target. Either flag may be omitted to choose the file with a picker.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runOneShot(cmd, &swapFlags, func(ctx context.Context, s *studio.Studio) error {
			s.SetMode(studio.ModeFaceSwap)
			if err := setFaceFromPath(s, studio.FaceSource, swapFaceFlag, "Select the face to use"); err != nil {
				return err
			}
			if err := setFaceFromPath(s, studio.FaceTarget, swapTargetFlag, "Select the target image"); err != nil {
				return err
			}
			return s.FaceSwap(ctx)
		})
	},
}

func init() {
	toonifyFlags.register(toonifyCmd)
	scratchFlags.register(scratchCmd)
	swapFlags.register(swapCmd)
	swapCmd.Flags().StringVar(&swapFaceFlag, "face", "", "Photo providing the face")
	swapCmd.Flags().StringVar(&swapTargetFlag, "target", "", "Image receiving the face")
}

// runOneShot builds a studio, runs generate and writes the download.
func runOneShot(cmd *cobra.Command, flags *generationFlags, generate func(context.Context, *studio.Studio) error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a := loadApp(ctx, cmd, true, flags.save)
	defer a.close()

	s := a.newStudio(func(v studio.View) {
		if v.State == studio.StateLoading && v.LoadingMessage != "" {
			fmt.Fprintln(os.Stderr, v.LoadingMessage)
		}
	})
	if err := flags.apply(s); err != nil {
		fail(err)
	}

	start := time.Now()
	if err := generate(ctx, s); err != nil {
		fail(err)
	}
	s.WaitCaptions()

	d, err := s.Download(ctx, flags.hd)
	if err != nil {
		fail(err)
	}
	path, err := writeDownload(outputFlag, d.Name, d.Data)
	if err != nil {
		fail(err)
	}

	v := s.View()
	fmt.Printf("Wrote %s in %s\n", path, cli.FormatDurationShort(time.Since(start)))
	if v.Caption != "" {
		fmt.Printf("Caption: %s\n", v.Caption)
	}
	if flags.save {
		id, err := s.SaveCreation(ctx)
		switch {
		case errors.Is(err, studio.ErrNothingToSave):
			fmt.Println("Nothing to save: results without an original photo are not kept in the gallery.")
		case err != nil:
			fail(err)
		default:
			fmt.Printf("Saved to gallery as #%d\n", id)
		}
	}
}

func selectFromPath(s *studio.Studio, path, title string) error {
	data, err := readImage(path, title)
	if err != nil {
		return err
	}
	return s.SelectImage(data)
}

func setFaceFromPath(s *studio.Studio, role studio.FaceRole, path, title string) error {
	data, err := readImage(path, title)
	if err != nil {
		return err
	}
	return s.SetFaceSwapImage(role, data)
}

// readImage loads path, or asks for one with the picker when it is empty.
func readImage(path, title string) ([]byte, error) {
	if path == "" {
		picked, err := pickImage(title)
		if err != nil {
			return nil, err
		}
		path = picked
	}
	resolved, err := cli.ResolveImagePath(path)
	if err != nil {
		return nil, err
	}
	up, err := imaging.Acquire(resolved)
	if err != nil {
		return nil, err
	}
	if up.Metadata != nil && up.Metadata.HasGPS {
		log.Debug().Str("path", resolved).Msg("Photo carries GPS coordinates; they are not sent")
	}
	return up.Data, nil
}

// fail prints the user-facing message for err and exits.
func fail(err error) {
	log.Debug().Err(err).Msg("Command failed")
	fmt.Fprintln(os.Stderr, "Error:", userMessage(err))
	os.Exit(1)
}

// userMessage uses the classified text for recognised generation failures
// and the raw error otherwise.
func userMessage(err error) string {
	if errors.Is(err, errPickCanceled) {
		return err.Error()
	}
	if e := apierror.Classify(err); e.Kind != apierror.Unknown {
		return e.Message()
	}
	return err.Error()
}
