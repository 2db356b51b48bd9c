package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"keepsake/internal/capsule"
	"keepsake/internal/draftstore"
	"keepsake/internal/playback"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var (
		draftKey string
		timeout  int
	)

	cmd := &cobra.Command{
		Use:   "play [capsule-id]",
		Short: "Play a capsule slideshow in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var doc capsule.Document
			switch {
			case draftKey != "":
				store, err := draftstore.Open(cfg.Drafts.Dir)
				if err != nil {
					return err
				}
				doc, err = store.Get(cmd.Context(), draftKey)
				closeErr := store.Close()
				if err != nil {
					return err
				}
				if closeErr != nil {
					return closeErr
				}
			case len(args) == 1:
				client, err := ctx.apiClient()
				if err != nil {
					return err
				}
				doc, err = client.Fetch(cmd.Context(), args[0])
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("pass a capsule id or --draft")
			}

			var opts []playback.Option
			if timeout != 0 {
				opts = append(opts, playback.WithSlideTimeout(time.Duration(timeout)*time.Millisecond))
			} else if cfg.Playback.SlideTimeoutMillis > 0 && doc.SlideshowTimeout == 0 {
				opts = append(opts,
					playback.WithSlideTimeout(time.Duration(cfg.Playback.SlideTimeoutMillis)*time.Millisecond))
			}
			// Piped output gets the whole show at once instead of pacing.
			if !stdoutIsTerminal() {
				opts = append(opts, playback.WithSlideTimeout(time.Millisecond),
					playback.WithVideoGrace(time.Millisecond))
			}

			return runSlideshow(cmd.OutOrStdout(), doc, opts...)
		},
	}

	cmd.Flags().StringVar(&draftKey, "draft", "", "Play a local draft instead of a fetched capsule")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "Slide timeout override in milliseconds")
	return cmd
}

// runSlideshow drives the engine to completion, rendering each slide as the
// cursor reaches it. Terminal playback has no video surface, so video slides
// advance on the grace timer.
func runSlideshow(out io.Writer, doc capsule.Document, opts ...playback.Option) error {
	engine := playback.NewEngine(doc, opts...)
	defer engine.Close()

	snapshots, cancel := engine.Subscribe()
	defer cancel()

	if err := engine.Start(); err != nil {
		return err
	}

	lastIndex := -1
	for snap := range snapshots {
		if snap.State == playback.StateFinished {
			fmt.Fprintln(out, "\nThe end.")
			return nil
		}
		if snap.State != playback.StateActive || snap.CurrentIndex == lastIndex {
			continue
		}
		lastIndex = snap.CurrentIndex
		item, ok := engine.CurrentItem()
		if !ok {
			continue
		}
		renderSlide(out, snap.CurrentIndex, snap.ItemCount, item)
	}
	return nil
}

func renderSlide(out io.Writer, index, count int, item capsule.ContentItem) {
	fmt.Fprintf(out, "\n[%d/%d] %s\n", index+1, count, item.Kind)
	switch item.Kind {
	case capsule.ItemText:
		fmt.Fprintln(out, stripTags(item.Content))
	default:
		fmt.Fprintln(out, item.MediaURL())
		if item.Description != "" {
			fmt.Fprintln(out, item.Description)
		}
	}
}

// stripTags flattens an HTML fragment for terminal display. The content is
// already sanitized; this only removes markup.
func stripTags(fragment string) string {
	var b strings.Builder
	inTag := false
	for _, r := range fragment {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// stdoutIsTerminal reports whether playback output goes to an interactive
// terminal.
func stdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
