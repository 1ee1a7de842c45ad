package internal

import (
	"io"
	"log/slog"
	"time"

	"github.com/starford/vaultfill/internal/ui"
)

// Tool names, as recorded in the change journal.
const (
	ToolInsertImages = "insert-images"
	ToolNeedsInfo    = "needs-info"
)

// Flags are the command-line switches shared by both tools.
type Flags struct {
	Apply  bool
	Yes    bool
	Note   string
	Watch  bool
	Region string
}

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	flags    Flags
	out      io.Writer
	logger   *slog.Logger
	prompter ui.Prompter
	now      func() time.Time
	debounce time.Duration
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithFlags sets the command-line switches.
func WithFlags(f Flags) Option {
	return func(a *application) {
		a.flags = f
	}
}

// WithOutput sets where the report is written (stdout by default).
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.out = w
	}
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithPrompter sets the confirmation prompter (the terminal by default).
func WithPrompter(p ui.Prompter) Option {
	return func(a *application) {
		a.prompter = p
	}
}

// WithClock overrides the time source used for backup names.
func WithClock(now func() time.Time) Option {
	return func(a *application) {
		a.now = now
	}
}

// WithDebounce sets the watch-mode quiet period.
func WithDebounce(d time.Duration) Option {
	return func(a *application) {
		a.debounce = d
	}
}
