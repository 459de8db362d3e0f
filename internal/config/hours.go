package config

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/fornalha/pizzaria-orders/internal/schedule"
)

// HoursProvider serves the current business-hours config and swaps it
// atomically when the backing yaml file changes. The admin side edits
// the file; this process only reads it.
type HoursProvider struct {
	mu   sync.RWMutex
	cfg  schedule.WeekConfig
	path string
	log  *slog.Logger
}

func NewHoursProvider(path string, log *slog.Logger) (*HoursProvider, error) {
	cfg, err := schedule.LoadWeekConfig(path)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &HoursProvider{cfg: cfg, path: path, log: log}, nil
}

func (p *HoursProvider) Current() schedule.WeekConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// Watch reloads on file writes until ctx is canceled. A file that
// fails to parse keeps the previous config in place.
func (p *HoursProvider) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(p.path); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := schedule.LoadWeekConfig(p.path)
				if err != nil {
					p.log.Warn("business hours reload failed, keeping previous", "err", err)
					continue
				}
				p.mu.Lock()
				p.cfg = cfg
				p.mu.Unlock()
				p.log.Info("business hours reloaded", "path", p.path)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				p.log.Warn("business hours watcher error", "err", err)
			}
		}
	}()
	return nil
}
