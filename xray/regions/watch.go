package regions

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the regions file at path whenever it is written or
// recreated, handing each successfully parsed table to onReload. It blocks
// until ctx is done. The parent directory is watched so editors that replace
// the file on save keep triggering reloads.
func Watch(ctx context.Context, path string, onReload func(*Table)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			table, err := LoadFile(target)
			if err != nil {
				slog.Warn("Failed to reload memory regions", "path", target, "error", err)
				continue
			}
			slog.Info("Reloaded memory regions", "path", target, "count", table.Len())
			onReload(table)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Memory region watcher error", "error", err)
		}
	}
}
