package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"

	"github.com/mickamy/dieselgen/internal/config"
	"github.com/mickamy/dieselgen/internal/errs"
)

// watch generates once and again after every write to the schema file
// until ctx is done or the process is interrupted. Failed runs are logged
// and do not stop the loop.
func watch(ctx context.Context, w io.Writer, input, output string, cfg *config.GenerationConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	target, err := filepath.Abs(input)
	if err != nil {
		return errs.NewPathError("watch", input, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	// editors often replace the file on save, which drops a watch on the file itself
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return errs.NewPathError("watch", filepath.Dir(target), err)
	}

	run := func() {
		if err := generate(w, input, output, cfg, logger); err != nil {
			logger.Error("generation failed", "input", input, "err", err)
		}
	}
	run()
	logger.Info("watching for changes", "input", target)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			logger.Debug("schema changed", "op", ev.Op.String())
			run()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "err", err)
		}
	}
}
