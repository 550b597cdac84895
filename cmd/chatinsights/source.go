package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/chat-insights/internal/models"
	"github.com/ConfabulousDev/chat-insights/internal/sessionstore"
)

// sourceFlags select where sessions come from and which ones to use.
type sourceFlags struct {
	inputs    []string
	sqlite    string
	from      string
	to        string
	platforms []string
	out       string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.inputs, "input", "i", nil, "Session export file (.json, .yaml, optionally .zst); repeatable")
	cmd.Flags().StringVar(&f.sqlite, "sqlite", "", "Path to a SQLite session database")
	cmd.Flags().StringVar(&f.from, "from", "", "Start of the window (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&f.to, "to", "", "End of the window, exclusive (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringSliceVar(&f.platforms, "platform", nil, "Only include these platforms")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Write the report to a file instead of stdout")
}

// open builds the session source. The returned close function is never nil.
func (f *sourceFlags) open(ctx context.Context) (sessionstore.Source, func(), error) {
	var sources sessionstore.MultiSource
	closeFn := func() {}

	if f.sqlite != "" {
		store, err := sessionstore.Open(ctx, sessionstore.DriverSQLite, f.sqlite)
		if err != nil {
			return nil, closeFn, err
		}
		closeFn = func() { store.Close() }
		sources = append(sources, store)
	}
	if len(f.inputs) > 0 {
		sources = append(sources, sessionstore.FileSource{Paths: f.inputs})
	}
	if len(sources) == 0 {
		return nil, closeFn, errors.New("no sessions: pass --input or --sqlite")
	}
	return sources, closeFn, nil
}

func parseFlagTime(name, v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: use YYYY-MM-DD or RFC 3339", name, v)
	}
	return t, nil
}

// window returns the requested window and whether both ends were given.
func (f *sourceFlags) window() (models.Window, bool, error) {
	var w models.Window
	var err error
	if f.from != "" {
		if w.From, err = parseFlagTime("from", f.from); err != nil {
			return w, false, err
		}
	}
	if f.to != "" {
		if w.To, err = parseFlagTime("to", f.to); err != nil {
			return w, false, err
		}
	}
	bounded := !w.From.IsZero() && !w.To.IsZero()
	if bounded && !w.From.Before(w.To) {
		return w, false, errors.New("--from must be before --to")
	}
	return w, bounded, nil
}

func (f *sourceFlags) query(w models.Window) sessionstore.Query {
	q := sessionstore.QueryWindow(w)
	q.Platforms = f.platforms
	return q
}

// output opens --out or returns stdout.
func (f *sourceFlags) output() (io.Writer, func() error, error) {
	if f.out == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	file, err := os.Create(f.out)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", f.out, err)
	}
	return file, file.Close, nil
}
