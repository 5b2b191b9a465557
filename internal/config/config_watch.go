package config

import (
	"context"

	"github.com/fsnotify/fsnotify"
)

// WatchForTampering watches the production config file for writes, renames,
// or removals after startup and logs a warning for each. Security-critical
// keys are cached once at New and never hot-reloaded — spec's lifecycle
// rule — so this never re-reads or re-applies the file; it only tells an
// operator that the file changed under a running process, which on its own
// is worth flagging. A no-op outside production, and a logged-and-ignored
// no-op if the watch itself cannot be established.
func (c *Config) WatchForTampering(ctx context.Context, path string) {
	if !c.IsProduction() {
		return
	}
	if path == "" {
		path = ConfigFilePath
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.log.Warn("cannot start config tamper watch", "error", err)
		return
	}
	if err := watcher.Add(path); err != nil {
		c.log.Warn("cannot watch config file", "path", path, "error", err)
		_ = watcher.Close()
		return
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) != 0 {
					c.log.Warn("security-critical config file changed on disk after startup; restart aegish to apply it",
						"path", path, "op", event.Op.String())
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.log.Warn("config tamper watch error", "error", err)
			}
		}
	}()
}
