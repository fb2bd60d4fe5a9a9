// Package watch re-runs folder processing when invoice documents change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"invoiceqc/internal/invoice"
	"invoiceqc/internal/logger"
)

// DefaultDebounce coalesces the burst of events produced while a file is copied in.
const DefaultDebounce = 500 * time.Millisecond

// RunFunc processes the folder. changed lists the documents that triggered
// the run, sorted; it is nil for the initial run.
type RunFunc func(ctx context.Context, changed []string) error

// Config controls a Watcher.
type Config struct {
	Dir        string
	Debounce   time.Duration
	RunOnStart bool
}

// Watcher watches a single folder, without recursion, for supported documents.
type Watcher struct {
	config Config
	run    RunFunc
	log    zerolog.Logger
}

// New creates a Watcher calling run after each settled batch of changes.
func New(cfg Config, run RunFunc) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Watcher{
		config: cfg,
		run:    run,
		log:    logger.WithComponent("watcher").With().Str("dir", cfg.Dir).Logger(),
	}
}

// Run blocks until ctx is canceled or the watcher fails. Errors returned by
// the RunFunc are logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	const op = "watch.Run"

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%s: create watcher: %w", op, err)
	}
	defer fw.Close()

	if err := fw.Add(w.config.Dir); err != nil {
		return fmt.Errorf("%s: watch %s: %w", op, w.config.Dir, err)
	}

	if w.config.RunOnStart {
		w.invoke(ctx, nil)
	}

	w.log.Info().Dur("debounce", w.config.Debounce).Msg("Watching for documents")

	timer := time.NewTimer(w.config.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Watcher stopped")
			return nil

		case e, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("%s: %w", op, errors.New("event channel closed"))
			}
			if !relevant(e) {
				continue
			}
			w.log.Debug().Str("file", e.Name).Str("op", e.Op.String()).Msg("Document changed")
			pending[e.Name] = struct{}{}
			timer.Reset(w.config.Debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("%s: %w", op, errors.New("error channel closed"))
			}
			w.log.Error().Err(err).Msg("Watcher error")

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)

			w.invoke(ctx, changed)
		}
	}
}

func (w *Watcher) invoke(ctx context.Context, changed []string) {
	start := time.Now()
	if err := w.run(ctx, changed); err != nil {
		w.log.Error().Err(err).Strs("changed", changed).Msg("Folder run failed")
		return
	}
	w.log.Info().
		Int("changed", len(changed)).
		Dur("duration", time.Since(start)).
		Msg("Folder run complete")
}

// relevant reports whether e creates, rewrites or renames a supported document.
// Removals do not trigger a run.
func relevant(e fsnotify.Event) bool {
	if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) && !e.Has(fsnotify.Rename) {
		return false
	}
	return invoice.IsSupported(e.Name)
}
