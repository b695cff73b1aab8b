package recipe

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ErrRecipeNotFound is returned by Get when no recipe has the requested id.
var ErrRecipeNotFound = errors.New("recipe not found")

// Loader reads every recipe file in a directory and watches it for changes.
type Loader struct {
	dir      string
	mu       sync.RWMutex
	recipes  map[string]*Recipe
	onChange []func(map[string]*Recipe)
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(dir string) (*Loader, error) {
	l := &Loader{dir: dir}
	recipes, err := l.load()
	if err != nil {
		return nil, err
	}
	l.recipes = recipes
	return l, nil
}

// Get returns the recipe with the given id.
func (l *Loader) Get(id string) (*Recipe, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.recipes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRecipeNotFound, id)
	}
	return r, nil
}

// List returns all loaded recipes sorted by id.
func (l *Loader) List() []*Recipe {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Recipe, 0, len(l.recipes))
	for _, r := range l.recipes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OnChange registers a callback invoked whenever the recipe set reloads.
func (l *Loader) OnChange(fn func(map[string]*Recipe)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that reloads recipes when files in the
// directory change. Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("recipe watcher: %w", err)
	}
	if err := w.Add(l.dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("recipe watcher add %s: %w", l.dir, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !isRecipeFile(ev.Name) {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					if _, err := l.Reload(); err != nil {
						slog.Warn("recipe reload failed, keeping previous set", "dir", l.dir, "err", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("recipe watcher error", "err", err)
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// Reload forces an immediate re-read of the recipe directory.
func (l *Loader) Reload() (map[string]*Recipe, error) {
	recipes, err := l.load()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.recipes = recipes
	callbacks := make([]func(map[string]*Recipe), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(recipes)
	}
	return recipes, nil
}

func (l *Loader) load() (map[string]*Recipe, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read recipe dir %s: %w", l.dir, err)
	}
	recipes := make(map[string]*Recipe)
	for _, e := range entries {
		if e.IsDir() || !isRecipeFile(e.Name()) {
			continue
		}
		path := filepath.Join(l.dir, e.Name())
		r, err := ParseFile(path)
		if err != nil {
			// One broken file must not take the others down.
			slog.Warn("skipping recipe file", "path", path, "err", err)
			continue
		}
		if _, dup := recipes[r.ID]; dup {
			slog.Warn("skipping duplicate recipe id", "path", path, "recipe_id", r.ID)
			continue
		}
		recipes[r.ID] = r
	}
	return recipes, nil
}

// ParseFile reads and validates a single recipe file.
func ParseFile(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML or JSON recipe document.
func Parse(data []byte) (*Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse recipe: %w", err)
	}
	if err := Validate(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func isRecipeFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
