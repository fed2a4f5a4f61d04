package display

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/qrimage"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/rotator"
)

// Renderer shows one rotation frame.
type Renderer interface {
	Render(f rotator.Frame) error
}

// TerminalRenderer redraws the QR code as block characters.
type TerminalRenderer struct {
	W io.Writer
	// Clear resets the screen before every frame.
	Clear bool
}

func (r TerminalRenderer) Render(f rotator.Frame) error {
	art, err := qrimage.Terminal(f.Token)
	if err != nil {
		return err
	}
	if r.Clear {
		if _, err := io.WriteString(r.W, "\x1b[H\x1b[2J"); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(r.W, "%s\nrotation %d, valid until %s\n",
		art, f.Rotation, time.Unix(f.ExpiresAt, 0).Format(time.TimeOnly))
	return err
}

// PNGRenderer replaces a PNG file on every rotation. The file is written
// next to its final path and renamed so viewers never read a partial image.
type PNGRenderer struct {
	Path string
	Size int
}

func (r PNGRenderer) Render(f rotator.Frame) error {
	img, err := qrimage.PNG(f.Token, r.Size)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.Path), ".qr-*.png")
	if err != nil {
		return fmt.Errorf("display: create temp png: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(img); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("display: write png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("display: close png: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.Path); err != nil {
		return fmt.Errorf("display: replace png: %w", err)
	}
	return nil
}
