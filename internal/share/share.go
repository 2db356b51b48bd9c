// Package share builds capsule deep links, QR encodings of those links, and
// copies text to the system clipboard.
package share

import (
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"keepsake/internal/services"
)

const defaultQRSize = 256

// CapsuleLink builds the deep-link URL for a capsule id.
func CapsuleLink(baseURL, capsuleID string) (string, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return "", services.Wrap(services.ErrValidation, "share", "link", "base url required", nil)
	}
	capsuleID = strings.TrimSpace(capsuleID)
	if capsuleID == "" {
		return "", services.Wrap(services.ErrValidation, "share", "link", "capsule id required", nil)
	}
	if _, err := url.Parse(baseURL); err != nil {
		return "", services.Wrap(services.ErrValidation, "share", "link", "base url", err)
	}
	return baseURL + "/capsules/" + url.PathEscape(capsuleID), nil
}

// QRPNG encodes the link as a PNG image of size x size pixels. A size at or
// below zero uses the default.
func QRPNG(link string, size int) ([]byte, error) {
	if strings.TrimSpace(link) == "" {
		return nil, services.Wrap(services.ErrValidation, "share", "qr", "link required", nil)
	}
	if size <= 0 {
		size = defaultQRSize
	}
	png, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "share", "qr", "encode", err)
	}
	return png, nil
}

// clipboardCommands lists the writers tried in order on non-darwin systems.
var clipboardCommands = [][]string{
	{"wl-copy"},
	{"xclip", "-selection", "clipboard"},
	{"xsel", "--clipboard", "--input"},
}

// CopyToClipboard writes text to the system clipboard, reporting success as
// a boolean since callers only branch on the outcome.
func CopyToClipboard(text string) bool {
	return copyWithCommands(text, candidateCommands())
}

func candidateCommands() [][]string {
	if runtime.GOOS == "darwin" {
		return [][]string{{"pbcopy"}}
	}
	return clipboardCommands
}

func copyWithCommands(text string, commands [][]string) bool {
	for _, argv := range commands {
		if _, err := exec.LookPath(argv[0]); err != nil {
			continue
		}
		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Stdin = strings.NewReader(text)
		if err := cmd.Run(); err == nil {
			return true
		}
	}
	return false
}
