package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"keepsake/internal/authoring"
	"keepsake/internal/capsule"
	"keepsake/internal/draftstore"
	"keepsake/internal/services/assets"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var (
		kindFlag    string
		draftKey    string
		description string
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a media file to the asset store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			kind, ok := assets.ParseKind(kindFlag)
			if !ok {
				return fmt.Errorf("unknown asset kind %q (want image, video, or audio)", kindFlag)
			}

			store, err := assets.NewFromConfig(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			assetURL, err := store.Upload(cmd.Context(), kind, filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, assetURL)

			if draftKey == "" {
				return nil
			}
			return attachToDraft(cmd, cfg.Drafts.Dir, draftKey, kind, assetURL, description)
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "image", "Asset kind: image, video, or audio")
	cmd.Flags().StringVar(&draftKey, "draft", "", "Append the uploaded asset to this local draft")
	cmd.Flags().StringVar(&description, "description", "", "Caption for the appended item")
	return cmd
}

// attachToDraft routes the uploaded URL through an authoring session so
// locked drafts reject the append the same way any other edit is rejected.
func attachToDraft(cmd *cobra.Command, draftsDir, key string, kind assets.Kind, assetURL, description string) error {
	store, err := draftstore.Open(draftsDir)
	if err != nil {
		return err
	}
	defer store.Close()

	doc, err := store.Get(cmd.Context(), key)
	if err != nil {
		return err
	}
	session := authoring.NewSession(doc, nil, authoring.WithDraftSaver(store))

	switch kind {
	case assets.KindAudio:
		err = session.SetBackgroundMusic(assetURL)
	case assets.KindVideo:
		err = session.AddMediaItem(capsule.ItemVideo, assetURL, description)
	default:
		err = session.AddMediaItem(capsule.ItemImage, assetURL, description)
	}
	if err != nil {
		return err
	}

	if _, err := store.Put(cmd.Context(), key, session.Document()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Attached to draft %s\n", key)
	return nil
}
