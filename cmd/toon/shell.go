package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/toon-nation/internal/cli"
	"github.com/fpang/toon-nation/internal/imaging"
	"github.com/fpang/toon-nation/internal/store"
	"github.com/fpang/toon-nation/internal/studio"
	"github.com/fpang/toon-nation/internal/styles"
)

// videoName is the file an animation is written to.
const videoName = "toon-nation.mp4"

var studioCmd = &cobra.Command{
	Use:   "studio",
	Short: "Open the interactive studio",
	Long: `Studio is an interactive shell over a single session. Open a photo,
pick styles, toonify it, then edit, animate, download or save the result.
Type 'help' for the list of commands. Ctrl-C cancels a running generation.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := loadApp(cmd.Context(), cmd, true, true)
		defer a.close()

		sh := newShell(os.Stdin, os.Stdout, outputFlag)
		sh.studio = a.newStudio(sh.onChange)
		sh.run(cmd.Context())
		sh.studio.WaitCaptions()
	},
}

// shell is the line-oriented front end of the studio.
type shell struct {
	studio *studio.Studio
	in     *bufio.Reader
	out    io.Writer
	outDir string

	// interrupt derives the per-command context. Tests replace it.
	interrupt func(context.Context) (context.Context, context.CancelFunc)

	mu          sync.Mutex
	lastMessage string
	lastCaption string
	lastBar     int
}

func newShell(in io.Reader, out io.Writer, outDir string) *shell {
	return &shell{
		in:     bufio.NewReader(in),
		out:    out,
		outDir: outDir,
		interrupt: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt)
		},
		lastBar: -1,
	}
}

// onChange prints loading messages, animation progress and late captions.
func (sh *shell) onChange(v studio.View) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if v.State == studio.StateLoading {
		if v.LoadingMessage != "" && v.LoadingMessage != sh.lastMessage {
			fmt.Fprintf(sh.out, "  %s\n", v.LoadingMessage)
			sh.lastMessage = v.LoadingMessage
		}
		if v.Progress != nil && *v.Progress != sh.lastBar {
			fmt.Fprintf(sh.out, "  %s\n", cli.ProgressBar(*v.Progress))
			sh.lastBar = *v.Progress
		}
		return
	}
	sh.lastMessage = ""
	sh.lastBar = -1
	if v.Caption != "" && v.Caption != sh.lastCaption {
		fmt.Fprintf(sh.out, "  Caption: %s\n", v.Caption)
	}
	sh.lastCaption = v.Caption
}

func (sh *shell) printf(format string, args ...any) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	fmt.Fprintf(sh.out, format, args...)
}

// run reads commands until quit or end of input.
func (sh *shell) run(ctx context.Context) {
	sh.printf("Toon Nation studio. Type 'help' for commands.\n")
	for {
		sh.printf("toon> ")
		line, err := sh.in.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			if quit := sh.exec(ctx, line); quit {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Error().Err(err).Msg("Failed to read command")
			}
			sh.printf("\n")
			return
		}
	}
}

// exec runs one command line. It reports whether the shell should exit.
func (sh *shell) exec(parent context.Context, line string) bool {
	cmd, rest := cli.SplitCommand(line)
	ctx, stop := sh.interrupt(parent)
	defer stop()

	var err error
	switch cmd {
	case "help", "?":
		sh.help()
	case "quit", "exit":
		return true
	case "status":
		sh.status()
	case "open":
		err = sh.open(rest)
	case "pick":
		err = sh.open("")
	case "styles":
		sh.listStyles(rest)
	case "select":
		err = sh.studio.ToggleStyle(rest)
		if err == nil {
			sh.printf("  Styles: %s\n", strings.Join(styles.Names(sh.studio.View().Styles), " + "))
		}
	case "mode":
		err = sh.setMode(rest)
	case "shot":
		err = sh.studio.SetShotType(rest)
	case "intensity":
		err = sh.setInt(rest, sh.studio.SetIntensity)
	case "fidelity":
		err = sh.setInt(rest, sh.studio.SetFaceFidelity)
	case "advanced":
		err = sh.setAdvanced(rest)
	case "toonify":
		err = sh.generated(sh.studio.Toonify(ctx))
	case "scratch":
		sh.studio.SetMode(studio.ModeFromScratch)
		err = sh.generated(sh.studio.GenerateFromScratch(ctx, rest))
	case "face":
		err = sh.setFace(studio.FaceSource, rest, "Select the face to use")
	case "target":
		err = sh.setFace(studio.FaceTarget, rest, "Select the target image")
	case "swap":
		sh.studio.SetMode(studio.ModeFaceSwap)
		err = sh.generated(sh.studio.FaceSwap(ctx))
	case "edit":
		if rest == "" {
			err = sh.studio.StartEditing()
			if err == nil {
				sh.printf("  Editing. Try: %s\n", strings.Join(studio.EditSuggestions[:4], ", "))
			}
		} else {
			err = sh.generated(sh.studio.AIEdit(ctx, rest))
		}
	case "suggestions":
		for _, s := range studio.EditSuggestions {
			sh.printf("  %s\n", s)
		}
	case "filter":
		err = sh.filter(ctx, rest)
	case "adjust":
		var a imaging.Adjustments
		if a, err = cli.ParseAdjustments(strings.Fields(rest)); err == nil {
			err = sh.generated(sh.studio.ApplyAdjustments(ctx, a))
		}
	case "crop":
		var r imaging.Rect
		if r, err = cli.ParseRect(rest); err == nil {
			err = sh.generated(sh.studio.Crop(ctx, r))
		}
	case "undo":
		if !sh.studio.Undo() {
			sh.printf("  Nothing to undo.\n")
		}
	case "redo":
		if !sh.studio.Redo() {
			sh.printf("  Nothing to redo.\n")
		}
	case "done":
		err = sh.studio.DoneEditing()
	case "cancel":
		err = sh.studio.CancelEditing()
	case "animate":
		err = sh.animate(ctx, rest)
	case "download":
		err = sh.download(ctx, rest == "hd")
	case "save":
		var id int64
		if id, err = sh.studio.SaveCreation(ctx); err == nil {
			sh.printf("  Saved as #%d\n", id)
		}
	case "gallery":
		err = sh.gallery(ctx)
	case "reopen":
		err = sh.reopen(ctx, rest)
	case "delete":
		err = sh.delete(ctx, rest)
	case "reset":
		sh.studio.Reset()
		sh.printf("  Studio reset.\n")
	default:
		sh.printf("  Unknown command %q. Type 'help'.\n", cmd)
	}

	if err != nil {
		sh.printf("  Error: %s\n", userMessage(err))
	}
	return false
}

// generated prints the outcome of a generation that updated the history.
func (sh *shell) generated(err error) error {
	if err != nil {
		return err
	}
	v := sh.studio.View()
	sh.printf("  Done. Entry %d of %d.\n", v.Pointer+1, v.HistoryLength)
	return nil
}

func (sh *shell) help() {
	w := tabwriter.NewWriter(sh.out, 0, 0, 2, ' ', 0)
	for _, row := range [][2]string{
		{"open <path> | pick", "choose the photo to work on"},
		{"styles [animation]", "list styles"},
		{"select <key>", "toggle a style (up to two are blended)"},
		{"mode toonify|faceSwap|fromScratch", "switch the creation flow"},
		{"shot full-body|head-shot", "set the shot type"},
		{"intensity <0-100>, fidelity <0-100>", "tune the stylization"},
		{"advanced key=value ...", "emotion, pose, outfit, background, lighting"},
		{"toonify", "stylize the photo"},
		{"scratch <prompt>", "generate from a text prompt"},
		{"face <path>, target <path>, swap", "face swap (omit a path to pick)"},
		{"edit [instruction]", "enter the editor, or apply an AI edit"},
		{"suggestions", "list AI edit ideas"},
		{"filter <preset|expr>", "apply a color filter"},
		{"adjust rotate=90 brightness=110 ...", "rotate and tone adjust"},
		{"crop x,y,width,height", "crop the result"},
		{"undo, redo, done, cancel", "history and editor controls"},
		{"animate [style]", "render a short video (pro)"},
		{"download [hd]", "write the result (hd upscales, pro)"},
		{"save, gallery, reopen <id>, delete <id>", "manage saved creations"},
		{"status, reset, quit", ""},
	} {
		fmt.Fprintf(w, "  %s\t%s\n", row[0], row[1])
	}
	sh.mu.Lock()
	w.Flush()
	sh.mu.Unlock()
}

func (sh *shell) status() {
	v := sh.studio.View()
	sh.printf("  State: %s  Mode: %s  Media: %s\n", v.State, v.Mode, v.MediaType)
	sh.printf("  Styles: %s  Shot: %s  Intensity: %d  Fidelity: %d\n",
		strings.Join(styles.Names(v.Styles), " + "), v.ShotType, v.Intensity, v.FaceFidelity)
	if v.HistoryLength > 0 {
		sh.printf("  History: entry %d of %d", v.Pointer+1, v.HistoryLength)
		if v.Editing {
			sh.printf(" (editing)")
		}
		sh.printf("\n")
	}
	if v.Caption != "" {
		sh.printf("  Caption: %s\n", v.Caption)
	}
	if v.Error != "" {
		sh.printf("  Last error: %s\n", v.Error)
	}
}

func (sh *shell) open(path string) error {
	data, err := readImage(path, "Select a photo")
	if err != nil {
		return err
	}
	if err := sh.studio.SelectImage(data); err != nil {
		return err
	}
	sh.printf("  Photo ready. Type 'toonify' to stylize it.\n")
	return nil
}

func (sh *shell) listStyles(filter string) {
	w := tabwriter.NewWriter(sh.out, 0, 0, 2, ' ', 0)
	selected := sh.studio.View().Styles
	list := styles.All()
	if filter == "animation" {
		list = styles.AnimationStyles()
	}
	for _, s := range list {
		mark := " "
		for _, k := range selected {
			if k == s.Key {
				mark = "*"
			}
		}
		pro := ""
		if s.Pro {
			pro = "pro"
		}
		fmt.Fprintf(w, " %s %s\t%s\t%s\n", mark, s.Key, s.Name, pro)
	}
	sh.mu.Lock()
	w.Flush()
	sh.mu.Unlock()
}

func (sh *shell) setMode(name string) error {
	m, err := studio.ParseMode(name)
	if err != nil {
		return err
	}
	sh.studio.SetMode(m)
	return nil
}

func (sh *shell) setInt(arg string, set func(int) error) error {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return fmt.Errorf("%q is not a number", arg)
	}
	return set(n)
}

func (sh *shell) setAdvanced(arg string) error {
	o := sh.studio.View().Advanced
	for _, pair := range splitPairs(arg) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("advanced option %q must be key=value", pair)
		}
		switch strings.ToLower(key) {
		case "emotion":
			o.Emotion = value
		case "pose":
			o.Pose = value
		case "outfit":
			o.Outfit = value
		case "background":
			o.Background = value
		case "lighting":
			o.Lighting = value
		default:
			return fmt.Errorf("unknown advanced option %q", key)
		}
	}
	sh.studio.SetAdvancedOptions(o)
	return nil
}

// splitPairs splits "a=one two b=three" into ["a=one two", "b=three"] so
// values may contain spaces.
func splitPairs(s string) []string {
	var pairs []string
	for _, f := range strings.Fields(s) {
		if strings.Contains(f, "=") || len(pairs) == 0 {
			pairs = append(pairs, f)
			continue
		}
		pairs[len(pairs)-1] += " " + f
	}
	return pairs
}

func (sh *shell) setFace(role studio.FaceRole, path, title string) error {
	data, err := readImage(path, title)
	if err != nil {
		return err
	}
	return sh.studio.SetFaceSwapImage(role, data)
}

func (sh *shell) filter(ctx context.Context, arg string) error {
	expr := arg
	for _, p := range imaging.Presets {
		if strings.EqualFold(p.Name, arg) {
			expr = p.Expr
		}
	}
	if expr == "" {
		for _, p := range imaging.Presets {
			sh.printf("  %-12s %s\n", p.Name, p.Expr)
		}
		return nil
	}
	return sh.generated(sh.studio.ApplyFilter(ctx, expr))
}

func (sh *shell) animate(ctx context.Context, styleKey string) error {
	if styleKey == "" {
		styleKey = styles.AnimationStyles()[0].Key
	}
	if err := sh.studio.Animate(ctx, styleKey); err != nil {
		return err
	}
	path, err := writeDownload(sh.outDir, videoName, sh.studio.Video())
	if err != nil {
		return err
	}
	sh.printf("  Animation written to %s\n", path)
	return nil
}

func (sh *shell) download(ctx context.Context, hd bool) error {
	d, err := sh.studio.Download(ctx, hd)
	if err != nil {
		return err
	}
	path, err := writeDownload(sh.outDir, d.Name, d.Data)
	if err != nil {
		return err
	}
	sh.printf("  Wrote %s\n", path)
	return nil
}

func (sh *shell) gallery(ctx context.Context) error {
	creations, err := sh.studio.ListCreations(ctx)
	if err != nil {
		return err
	}
	if len(creations) == 0 {
		sh.printf("  Your gallery is empty.\n")
		return nil
	}
	for _, c := range creations {
		sh.printf("  #%d  %s  %s\n", c.ID, cli.FormatTimestamp(c.Timestamp), cli.Truncate(c.Caption, 60))
	}
	return nil
}

func (sh *shell) findCreation(ctx context.Context, arg string) (store.Creation, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(arg), "#"), 10, 64)
	if err != nil {
		return store.Creation{}, fmt.Errorf("invalid creation id %q", arg)
	}
	creations, err := sh.studio.ListCreations(ctx)
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

func (sh *shell) reopen(ctx context.Context, arg string) error {
	c, err := sh.findCreation(ctx, arg)
	if err != nil {
		return err
	}
	if err := sh.studio.ReEdit(c); err != nil {
		return err
	}
	sh.printf("  Reopened #%d.\n", c.ID)
	return nil
}

func (sh *shell) delete(ctx context.Context, arg string) error {
	c, err := sh.findCreation(ctx, arg)
	if err != nil {
		return err
	}
	if !cli.Confirm(sh.in, sh.out, fmt.Sprintf("  Delete creation #%d?", c.ID)) {
		return nil
	}
	if err := sh.studio.DeleteCreation(ctx, c.ID); err != nil {
		return err
	}
	sh.printf("  Deleted #%d.\n", c.ID)
	return nil
}
