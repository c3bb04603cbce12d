package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultWatchInterval is the polling interval used by [NewWatcher].
const DefaultWatchInterval = 5 * time.Second

// ErrUnchanged is returned by [Watcher.Check] when the file content matches
// the current config or a previously rejected version.
var ErrUnchanged = errors.New("config: file unchanged")

// Watcher reloads a config file when its content changes. A version that
// fails to parse or validate is rejected and remembered, and the previous
// config stays current until the file changes again.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)

	mu       sync.Mutex
	current  *Config
	accepted [sha256.Size]byte
	rejected [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. Non-positive values are ignored.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads path and returns a Watcher holding it as the current
// config. onChange may be nil.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{path: path, interval: DefaultWatchInterval, onChange: onChange}
	for _, opt := range opts {
		opt(w)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: watch %q: %w", path, err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: watch %q: %w", path, err)
	}
	w.current, w.accepted = cfg, sha256.Sum256(data)
	return w, nil
}

// Current returns the most recently accepted config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run calls [Watcher.Check] every interval until ctx is done, then returns
// nil. Check failures are logged.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Check(); err != nil && !errors.Is(err, ErrUnchanged) {
				slog.Warn("config: reload rejected, keeping previous configuration", "path", w.path, "err", err)
			}
		}
	}
}

// Check reads the file once. A new valid version becomes current and is
// passed to onChange before Check returns. It returns [ErrUnchanged] when
// there is nothing new to apply.
func (w *Watcher) Check() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", w.path, err)
	}
	sum := sha256.Sum256(data)

	w.mu.Lock()
	seen := sum == w.accepted || sum == w.rejected
	w.mu.Unlock()
	if seen {
		return ErrUnchanged
	}

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		w.mu.Lock()
		w.rejected = sum
		w.mu.Unlock()
		return err
	}

	w.mu.Lock()
	old := w.current
	w.current, w.accepted = cfg, sum
	w.mu.Unlock()

	slog.Info("config: configuration reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
	return nil
}
