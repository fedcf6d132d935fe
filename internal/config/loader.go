package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
)

// reloadDebounce collapses the burst of events editors produce on save.
const reloadDebounce = 100 * time.Millisecond

// Change describes a configuration reload.
type Change struct {
	Old, New *Config

	// Restart names the sections that changed but are only read at
	// startup: the trigger, the input source, notifications and logging.
	Restart []string
}

// Diff reports which restart-only sections differ between old and new.
func Diff(old, new *Config) Change {
	c := Change{Old: old, New: new}
	if old == nil || new == nil {
		return c
	}
	if old.Trigger != new.Trigger {
		c.Restart = append(c.Restart, "trigger")
	}
	if old.Input != new.Input {
		c.Restart = append(c.Restart, "input")
	}
	if old.Notify != new.Notify {
		c.Restart = append(c.Restart, "notify")
	}
	if old.Logging != new.Logging {
		c.Restart = append(c.Restart, "logging")
	}
	return c
}

// Loader keeps the running configuration in step with its file. The same
// overrides are applied on every reload, so command line flags keep
// winning over the file.
type Loader struct {
	path      string
	overrides []Override

	mu       sync.RWMutex
	config   *Config
	onChange []func(Change)

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	errChan chan error
}

// NewLoader returns a loader for the file at path. A missing file yields
// the defaults until it is created.
func NewLoader(path string, overrides ...Override) *Loader {
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		path:      path,
		overrides: overrides,
		errChan:   make(chan error, 1),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Load reads the file and makes it the current configuration.
func (l *Loader) Load() (*Config, error) {
	cfg, err := load(l.path, l.overrides)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Config returns the current configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// OnChange registers fn to run after each accepted reload.
func (l *Loader) OnChange(fn func(Change)) {
	l.mu.Lock()
	l.onChange = append(l.onChange, fn)
	l.mu.Unlock()
}

// Errors delivers reload failures. The previous configuration stays in
// effect after each one.
func (l *Loader) Errors() <-chan error {
	return l.errChan
}

// Watch reloads the configuration whenever its file is written.
func (l *Loader) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Editors save by renaming over the file, which drops a watch on the
	// file itself.
	if err := w.Add(filepath.Dir(l.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(l.path), err)
	}
	l.watcher = w

	go l.watchLoop()
	return nil
}

func (l *Loader) watchLoop() {
	name := filepath.Base(l.path)
	debounce := time.NewTimer(reloadDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) == name && ev.Has(fsnotify.Write|fsnotify.Create) {
				debounce.Reset(reloadDebounce)
			}
		case <-debounce.C:
			l.reload()
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.report(err)
		}
	}
}

// reload swaps in the file's configuration if it is valid and differs
// from the current one.
func (l *Loader) reload() {
	next, err := load(l.path, l.overrides)
	if err != nil {
		l.report(fmt.Errorf("reload %s: %w", l.path, err))
		return
	}

	l.mu.Lock()
	prev := l.config
	if prev != nil && *prev == *next {
		l.mu.Unlock()
		return
	}
	l.config = next
	callbacks := append([]func(Change){}, l.onChange...)
	l.mu.Unlock()

	change := Diff(prev, next)
	for _, fn := range callbacks {
		fn(change)
	}
}

func (l *Loader) report(err error) {
	select {
	case l.errChan <- err:
	default:
	}
}

// Close stops watching.
func (l *Loader) Close() error {
	l.cancel()
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

// decoders parse a file body by extension.
var decoders = map[string]func([]byte, *Config) error{
	".toml": decodeTOML,
	".json": decodeJSON,
	".yaml": decodeYAML,
	".yml":  decodeYAML,
}

// readFile parses the file at path over the defaults, so absent keys keep
// their default values. A missing file is the defaults.
func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if decode, ok := decoders[filepath.Ext(path)]; ok {
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		return cfg, nil
	}

	// Unknown extension: take the first format that parses.
	for _, ext := range []string{".toml", ".json", ".yaml"} {
		cfg = DefaultConfig()
		if decoders[ext](data, cfg) == nil {
			return cfg, nil
		}
	}
	return nil, fmt.Errorf("parse %s: not TOML, JSON or YAML", filepath.Base(path))
}

func decodeTOML(data []byte, cfg *Config) error {
	_, err := toml.Decode(string(data), cfg)
	return err
}
