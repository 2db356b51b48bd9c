package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"keepsake/internal/share"
)

func newShareCommand(ctx *commandContext) *cobra.Command {
	var (
		qrPath   string
		copyFlag bool
	)

	cmd := &cobra.Command{
		Use:   "share <capsule-id>",
		Short: "Print the share link for a capsule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			link, err := share.CapsuleLink(cfg.Share.LinkBaseURL, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, link)

			if qrPath != "" {
				png, err := share.QRPNG(link, cfg.Share.QRSize)
				if err != nil {
					return err
				}
				if err := os.WriteFile(qrPath, png, 0o644); err != nil {
					return fmt.Errorf("write QR image: %w", err)
				}
				fmt.Fprintf(out, "Wrote QR code to %s\n", qrPath)
			}

			if copyFlag {
				if share.CopyToClipboard(link) {
					fmt.Fprintln(out, "Copied link to clipboard")
				} else {
					fmt.Fprintln(out, "Clipboard unavailable; copy the link manually")
				}
			}
			return nil
		},
		Args: cobra.ExactArgs(1),
	}

	cmd.Flags().StringVar(&qrPath, "qr", "", "Write a QR code PNG to this path")
	cmd.Flags().BoolVar(&copyFlag, "copy", false, "Copy the link to the system clipboard")
	return cmd
}
