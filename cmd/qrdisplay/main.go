// Command qrdisplay shows the rotating attendance QR code for one session.
// It fetches the session secret once, recomputes the token locally on every
// tick and stops when the session ends.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/Frankpesta/cds-attendance-sub001/internal/display"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/qrimage"
)

type options struct {
	envFile  string
	server   string
	token    string
	date     string
	group    int64
	tick     time.Duration
	pngPath  string
	pngSize  int
	live     bool
	logLevel string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	slog.SetDefault(instrument.NewLogger(stderr, &instrument.Config{
		ServiceName: "qrdisplay",
		LogLevel:    opts.logLevel,
		MaskFields:  []string{"token", "secret", "authorization"},
	}, nil))

	if opts.token == "" {
		if opts.token, err = promptToken(stderr); err != nil {
			slog.Error("failed to read access token", "error", err)
			return 2
		}
	}

	client, err := display.NewClient(display.ClientConfig{
		BaseURL:     opts.server,
		AccessToken: opts.token,
	})
	if err != nil {
		slog.Error("failed to init client", "error", err)
		return 2
	}

	var renderer display.Renderer = display.TerminalRenderer{W: stdout, Clear: true}
	if opts.pngPath != "" {
		renderer = display.PNGRenderer{Path: opts.pngPath, Size: opts.pngSize}
	}

	d := display.New(display.Config{
		MeetingDate: opts.date,
		GroupID:     opts.group,
		Tick:        opts.tick,
		Live:        opts.live,
		LiveURL:     client.LiveURL(opts.date, opts.group),
		LiveAuth:    client.AuthHeader(),
	}, client, renderer)

	err = d.Run(ctx)
	switch {
	case err == nil:
		slog.Info("display stopped")
		return 0
	case errors.Is(err, display.ErrSessionStopped):
		slog.Info("session ended by server")
		return 0
	case errors.Is(err, display.ErrRejected):
		slog.Error("server rejected the display", "error", err)
		return 1
	default:
		slog.Error("display failed", "error", err)
		return 1
	}
}

// parseOptions reads flags; each one falls back to an environment variable,
// optionally loaded from a dotenv file first.
func parseOptions(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("qrdisplay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.envFile, "env", ".env", "dotenv file to load before reading QR_* variables")
	server := fs.String("server", "", "attendance API base url (QR_SERVER_URL)")
	token := fs.String("token", "", "bearer access token (QR_ACCESS_TOKEN); prompted when empty")
	fs.StringVar(&opts.date, "date", "", "meeting date YYYY-MM-DD, server today when empty")
	fs.Int64Var(&opts.group, "group", 0, "group id, 0 for an all-groups session")
	fs.DurationVar(&opts.tick, "tick", 250*time.Millisecond, "local recompute interval")
	fs.StringVar(&opts.pngPath, "png", "", "write the QR code to this PNG file instead of the terminal")
	fs.IntVar(&opts.pngSize, "size", qrimage.DefaultSize, "PNG edge in pixels")
	fs.BoolVar(&opts.live, "live", true, "stop as soon as the session is stopped")
	fs.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.envFile != "" {
		// a missing file is fine; variables may come from the environment
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return options{}, fmt.Errorf("load %s: %w", opts.envFile, err)
		}
	}

	opts.server = firstNonEmpty(*server, os.Getenv("QR_SERVER_URL"), "http://localhost:8080")
	opts.token = firstNonEmpty(*token, os.Getenv("QR_ACCESS_TOKEN"))
	if opts.date != "" {
		if _, err := time.Parse(time.DateOnly, opts.date); err != nil {
			return options{}, fmt.Errorf("invalid -date %q: want YYYY-MM-DD", opts.date)
		}
	}
	if opts.group < 0 {
		return options{}, fmt.Errorf("invalid -group %d", opts.group)
	}
	return opts, nil
}

func promptToken(w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no access token: set -token or QR_ACCESS_TOKEN")
	}
	fmt.Fprint(w, "Access token: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	tok := strings.TrimSpace(string(raw))
	if tok == "" {
		return "", errors.New("empty access token")
	}
	return tok, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
