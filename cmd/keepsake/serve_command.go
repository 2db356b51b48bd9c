package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"keepsake/internal/capsule"
	"keepsake/internal/draftstore"
	"keepsake/internal/logging"
	"keepsake/internal/playback"
	"keepsake/internal/viewer"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var (
		draftKey string
		bind     string
	)

	cmd := &cobra.Command{
		Use:   "serve [capsule-id]",
		Short: "Serve a capsule slideshow over HTTP",
		Long: "Serve exposes the playback engine for one capsule: a snapshot endpoint, " +
			"a command endpoint, and a websocket stream for renderers.",
		Args: cobra.MaximumNArgs(1),
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

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})
			if err != nil {
				return err
			}

			var opts []playback.Option
			opts = append(opts, playback.WithLogger(logger))
			if cfg.Playback.SlideTimeoutMillis > 0 && doc.SlideshowTimeout == 0 {
				opts = append(opts,
					playback.WithSlideTimeout(time.Duration(cfg.Playback.SlideTimeoutMillis)*time.Millisecond))
			}
			if cfg.Playback.VideoGraceSeconds > 0 {
				opts = append(opts,
					playback.WithVideoGrace(time.Duration(cfg.Playback.VideoGraceSeconds)*time.Second))
			}
			engine := playback.NewEngine(doc, opts...)
			defer engine.Close()

			if bind == "" {
				bind = cfg.Viewer.Bind
			}
			server := viewer.New(engine, viewer.Options{
				Bind:  bind,
				Token: cfg.Viewer.Token,
			}, logger)

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return server.Run(runCtx)
		},
	}

	cmd.Flags().StringVar(&draftKey, "draft", "", "Serve a local draft instead of a fetched capsule")
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to the configured viewer bind)")
	return cmd
}
