package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"keepsake/internal/access"
	"keepsake/internal/authoring"
	"keepsake/internal/capsule"
	"keepsake/internal/draftstore"
	"keepsake/internal/services/mediaprobe"
)

const unlockDateLayout = "2006-01-02"

func newNewCommand(ctx *commandContext) *cobra.Command {
	var (
		title       string
		description string
		unlock      string
		public      bool
		emails      []string
		texts       []string
		images      []string
		videos      []string
		music       string
		timeout     int
		lock        bool
		asDraft     bool
		createdBy   string
	)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a capsule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			var opts []authoring.SessionOption
			var store *draftstore.Store
			if asDraft {
				store, err = draftstore.Open(cfg.Drafts.Dir)
				if err != nil {
					return err
				}
				defer store.Close()
				opts = append(opts, authoring.WithDraftSaver(store))
			}
			session := authoring.NewSession(capsule.Document{CreatedBy: createdBy}, client, opts...)

			if err := session.SetTitle(title); err != nil {
				return err
			}
			if err := session.SetDescription(description); err != nil {
				return err
			}
			if unlock != "" {
				date, err := time.Parse(unlockDateLayout, unlock)
				if err != nil {
					return fmt.Errorf("parse unlock date %q (want YYYY-MM-DD): %w", unlock, err)
				}
				if err := session.SetUnlockDate(date); err != nil {
					return err
				}
			}
			if err := session.SetPublic(public); err != nil {
				return err
			}
			if music != "" {
				if err := session.SetBackgroundMusic(music); err != nil {
					return err
				}
			}
			if timeout != 0 {
				if err := session.SetSlideshowTimeout(timeout); err != nil {
					return err
				}
			}
			for _, email := range emails {
				if err := session.AddParticipant(email); err != nil {
					return err
				}
			}
			for _, text := range texts {
				if err := session.AddTextItem("<p>"+text+"</p>", "", ""); err != nil {
					return err
				}
			}
			for _, imageURL := range images {
				if err := mediaprobe.ValidateURL(imageURL); err != nil {
					return err
				}
				if err := session.AddMediaItem(capsule.ItemImage, imageURL, ""); err != nil {
					return err
				}
			}
			for _, videoURL := range videos {
				if err := mediaprobe.ValidateURL(videoURL); err != nil {
					return err
				}
				if err := session.AddMediaItem(capsule.ItemVideo, videoURL, ""); err != nil {
					return err
				}
			}
			if lock {
				if err := session.Lock(); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asDraft {
				if err := session.SaveDraft(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(out, "Saved draft %s\n", session.DraftKey())
				return nil
			}

			id, err := session.Save(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Created capsule %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Capsule title")
	cmd.Flags().StringVar(&description, "description", "", "Capsule description")
	cmd.Flags().StringVar(&unlock, "unlock", "", "Unlock date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&public, "public", false, "Make the capsule public")
	cmd.Flags().StringArrayVar(&emails, "email", nil, "Participant email (repeatable)")
	cmd.Flags().StringArrayVar(&texts, "text", nil, "Text item content (repeatable)")
	cmd.Flags().StringArrayVar(&images, "image", nil, "Image item URL (repeatable)")
	cmd.Flags().StringArrayVar(&videos, "video", nil, "Video item URL (repeatable)")
	cmd.Flags().StringVar(&music, "music", "", "Background music URL")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "Slide timeout in milliseconds")
	cmd.Flags().BoolVar(&lock, "lock", false, "Finalize the capsule (no further edits)")
	cmd.Flags().BoolVar(&asDraft, "draft", false, "Save locally instead of pushing to the API")
	cmd.Flags().StringVar(&createdBy, "user", "", "Author user id")
	return cmd
}

// viewerFromFlags builds the access identity the gate evaluates.
func viewerFromFlags(userID, email string) access.Viewer {
	return access.Viewer{
		ID:            userID,
		Email:         email,
		Authenticated: userID != "" || email != "",
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var userID, email string

	cmd := &cobra.Command{
		Use:   "show <capsule-id>",
		Short: "Show a capsule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			doc, err := client.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			decision := access.Resolve(doc, viewerFromFlags(userID, email), time.Now())
			switch decision {
			case access.DecisionDenied:
				return fmt.Errorf("access denied to capsule %s", doc.ID)
			case access.DecisionLogin:
				return fmt.Errorf("capsule %s requires authentication (pass --user or --email)", doc.ID)
			case access.DecisionWait:
				fmt.Fprintf(out, "%s\n", doc.Title)
				fmt.Fprintf(out, "Locked until %s\n", doc.UnlockDate.Format(unlockDateLayout))
				return nil
			}

			printCapsule(out, doc)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Viewer user id")
	cmd.Flags().StringVar(&email, "email", "", "Viewer email")
	return cmd
}

func printCapsule(out io.Writer, doc capsule.Document) {
	fmt.Fprintf(out, "%s\n", doc.Title)
	fmt.Fprintf(out, "%s\n\n", doc.Description)

	rows := make([][]string, 0, len(doc.Items))
	for i, item := range doc.Items {
		summary := item.Content
		if item.IsMedia() {
			summary = item.MediaURL()
		}
		if len(summary) > 60 {
			summary = summary[:57] + "..."
		}
		rows = append(rows, []string{strconv.Itoa(i), string(item.Kind), summary})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Kind", "Content"}, rows, 1))

	status := "draft"
	if doc.IsLocked {
		status = "locked"
	}
	fmt.Fprintf(out, "\nStatus: %s   Public: %v   Unlocks: %s   Participants: %d\n",
		status, doc.IsPublic, doc.UnlockDate.Format(unlockDateLayout), len(doc.Emails))
}

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List public capsules",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			docs, err := client.ListPublic(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(docs))
			for _, doc := range docs {
				rows = append(rows, []string{
					doc.ID,
					doc.Title,
					doc.UnlockDate.Format(unlockDateLayout),
					strconv.Itoa(len(doc.Items)),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderTable([]string{"ID", "Title", "Unlocks", "Items"}, rows, 4))
			return nil
		},
	}
}

func newPushCommand(ctx *commandContext) *cobra.Command {
	var keep bool

	cmd := &cobra.Command{
		Use:   "push <draft-key>",
		Short: "Save a local draft to the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			store, err := draftstore.Open(cfg.Drafts.Dir)
			if err != nil {
				return err
			}
			defer store.Close()

			doc, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			session := authoring.NewSession(doc, client)
			id, err := session.Save(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Saved capsule %s\n", id)
			if !keep {
				if err := store.Delete(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("capsule saved but draft cleanup failed: %w", err)
				}
				fmt.Fprintf(out, "Removed draft %s\n", args[0])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&keep, "keep", false, "Keep the local draft after a successful push")
	return cmd
}

func newPullCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pull <capsule-id>",
		Short: "Fetch a capsule from the API into a local draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			doc, err := client.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			store, err := draftstore.Open(cfg.Drafts.Dir)
			if err != nil {
				return err
			}
			defer store.Close()

			key, err := store.Put(cmd.Context(), "", doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pulled capsule %s into draft %s\n", doc.ID, key)
			return nil
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <capsule-id>",
		Short: "Delete a capsule from the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if err := client.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted capsule %s\n", args[0])
			return nil
		},
	}
}

func newDraftsCommand(ctx *commandContext) *cobra.Command {
	draftsCmd := &cobra.Command{
		Use:   "drafts",
		Short: "Local draft utilities",
	}

	draftsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List local drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := draftstore.Open(cfg.Drafts.Dir)
			if err != nil {
				return err
			}
			defer store.Close()

			infos, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				title := info.Title
				if strings.TrimSpace(title) == "" {
					title = "(untitled)"
				}
				rows = append(rows, []string{
					info.Key,
					title,
					info.UpdatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderTable([]string{"Key", "Title", "Updated"}, rows))
			return nil
		},
	})

	draftsCmd.AddCommand(&cobra.Command{
		Use:   "delete <draft-key>",
		Short: "Delete a local draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := draftstore.Open(cfg.Drafts.Dir)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed draft %s\n", args[0])
			return nil
		},
	})

	return draftsCmd
}
