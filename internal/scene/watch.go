package scene

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"meshbatch/internal/logging"
)

// DefaultWatchDebounce is how long the input directory must stay quiet
// before a rebuild starts.
const DefaultWatchDebounce = 500 * time.Millisecond

// Watch calls rebuild once, then again after every burst of mesh file
// changes in inputDir, until ctx is cancelled. Only files with the configured
// input extension trigger a rebuild. An error from rebuild stops the watch.
func (b *Builder) Watch(ctx context.Context, inputDir string, debounce time.Duration, rebuild func(context.Context) error) error {
	if err := checkInputDir(inputDir); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	logger := logging.WithContext(ctx, b.logger)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(inputDir); err != nil {
		return fmt.Errorf("watch %s: %w", inputDir, err)
	}

	if err := rebuild(ctx); err != nil {
		return err
	}
	logger.Info("watching for mesh changes", logging.String(logging.FieldPath, inputDir))

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !b.relevant(event) {
				continue
			}
			logger.Debug("mesh change", logging.String(logging.FieldPath, event.Name), logging.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(logger, "file watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some mesh changes may be picked up late"),
			)
		case <-fire:
			fire = nil
			if err := rebuild(ctx); err != nil {
				return err
			}
		}
	}
}

func (b *Builder) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	return strings.EqualFold(filepath.Ext(event.Name), b.extension)
}
