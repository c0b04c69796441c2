// Package style resolves (appearance, state set) pairs to stable CSS class
// names backed by rules synthesized from a theme repository.
//
// Every distinct combination is synthesized once and then served from a map,
// so a render pass over N rows by M columns costs one lookup per cell rather
// than a theme cascade. Class names are derived from the key and the sorted
// truthy states, never from the rule content: a theme switch rebuilds rules
// in place under the same names.
package style

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/lattice/internal/logging"
	"github.com/five82/lattice/internal/notify"
	"github.com/five82/lattice/internal/theme"
)

// DefaultPrefix is prepended to every generated class name.
const DefaultPrefix = "lt-"

// States is a set of boolean flags. False flags are ignored.
type States map[string]bool

// Active returns the truthy, non-default states in lexical order.
func (s States) Active() []string {
	out := make([]string, 0, len(s))
	for name, on := range s {
		if !on || ignoredState(name) {
			continue
		}
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func ignoredState(name string) bool {
	return name == "" || name == "default"
}

// Entry is a resolved style. CSS is shared with the cache and must not be
// modified.
type Entry struct {
	ClassName  string
	Key        string
	States     []string
	Decorator  *theme.Decorator
	CSS        map[string]string
	Terminal   lipgloss.Style
	Degraded   bool
	Generation uint64
}

// Options tune an Engine.
type Options struct {
	Prefix     string
	DefaultCSS map[string]string
	Logger     *logging.Logger
}

// Engine caches resolved styles and owns the managed stylesheet.
type Engine struct {
	prefix     string
	defaultCSS map[string]string
	log        *logging.Logger
	sheet      *Sheet

	mu         sync.RWMutex
	repo       theme.Repository
	generation uint64
	entries    map[string]*Entry
	warned     map[string]uint64

	invalidated notify.Listeners[uint64]
}

// NewEngine builds an Engine reading from repo.
func NewEngine(repo theme.Repository, opts Options) *Engine {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Engine{
		prefix:     prefix,
		defaultCSS: maps.Clone(opts.DefaultCSS),
		log:        opts.Logger.With("style"),
		sheet:      newSheet(),
		repo:       repo,
		entries:    make(map[string]*Entry),
		warned:     make(map[string]uint64),
	}
}

// ClassName returns the class name for key and states without resolving it.
func (e *Engine) ClassName(key string, states States) string {
	return e.className(key, states.Active())
}

// className joins the escaped key and states with "--". Escaped parts never
// contain "--" and never start or end with '-', so distinct (key, states)
// pairs always yield distinct names.
func (e *Engine) className(key string, active []string) string {
	var b strings.Builder
	b.WriteString(e.prefix)
	escapeIdent(&b, key)
	for _, s := range active {
		b.WriteString("--")
		escapeIdent(&b, s)
	}
	return b.String()
}

// escapeIdent writes s keeping lowercase letters, digits and single inner
// hyphens. Every other rune, including uppercase letters and '_', becomes
// '_' followed by six hex digits.
func escapeIdent(b *strings.Builder, s string) {
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' && i > 0 && i < len(runes)-1 && runes[i-1] != '-' && runes[i+1] != '-':
			b.WriteRune(r)
		default:
			fmt.Fprintf(b, "_%06x", r)
		}
	}
}

// ResolveClass returns the class name for key and states, synthesizing its
// rule on first use. It never fails: unknown appearances degrade to the
// default CSS.
func (e *Engine) ResolveClass(key string, states States) string {
	return e.Resolve(key, states).ClassName
}

// Resolve returns the full entry for key and states.
func (e *Engine) Resolve(key string, states States) Entry {
	active := states.Active()
	name := e.className(key, active)

	e.mu.RLock()
	if entry, ok := e.entries[name]; ok {
		out := *entry
		e.mu.RUnlock()
		return out
	}
	e.mu.RUnlock()

	e.mu.Lock()
	entry, ok := e.entries[name]
	if !ok {
		entry = e.buildLocked(name, key, active)
		e.entries[name] = entry
		e.sheet.Put(name, entry.CSS)
	}
	out := *entry
	e.mu.Unlock()
	return out
}

func (e *Engine) buildLocked(name, key string, active []string) *Entry {
	entry := &Entry{
		ClassName:  name,
		Key:        key,
		States:     active,
		Generation: e.generation,
	}

	var (
		app theme.Appearance
		err error
	)
	if e.repo == nil {
		err = theme.ErrUnknownAppearance
	} else {
		app, err = e.repo.Lookup(key, active)
	}
	if err != nil {
		if e.warned[name] != e.generation+1 {
			e.warned[name] = e.generation + 1
			e.log.Warn("theme lookup failed, using default style", map[string]any{
				"appearance": key,
				"states":     active,
				"error":      err.Error(),
			})
		}
		entry.CSS = maps.Clone(e.defaultCSS)
		if entry.CSS == nil {
			entry.CSS = map[string]string{}
		}
		entry.Degraded = true
		entry.Terminal = terminalStyle(entry.CSS)
		return entry
	}

	if app.Decorator != nil {
		dec := *app.Decorator
		entry.Decorator = &dec
	}
	css := maps.Clone(e.defaultCSS)
	if css == nil {
		css = make(map[string]string)
	}
	maps.Copy(css, synthesize(app))
	entry.CSS = css
	entry.Terminal = terminalStyle(css)
	return entry
}

// BorderInsets returns the decorator border box of the resolved style. It
// needs no layout, so callers can use it before anything is drawn.
func (e *Engine) BorderInsets(key string, states States) (theme.Insets, error) {
	entry := e.Resolve(key, states)
	return entry.Decorator.Insets()
}

// InvalidateAll rebuilds every known rule from the current repository while
// keeping class names unchanged, then notifies subscribers.
func (e *Engine) InvalidateAll() {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	for _, name := range e.sheet.ClassNames() {
		old, ok := e.entries[name]
		if !ok {
			continue
		}
		entry := e.buildLocked(name, old.Key, old.States)
		e.entries[name] = entry
		e.sheet.Put(name, entry.CSS)
	}
	e.mu.Unlock()

	e.log.Debug("styles invalidated", map[string]any{"generation": gen})
	e.invalidated.Emit(gen)
}

// SetRepository swaps the theme and rebuilds every rule.
func (e *Engine) SetRepository(repo theme.Repository) {
	e.mu.Lock()
	e.repo = repo
	e.mu.Unlock()
	e.InvalidateAll()
}

// Generation returns the theme generation, bumped by InvalidateAll.
func (e *Engine) Generation() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generation
}

// Len returns the number of cached entries.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.entries)
}

// Sheet returns the managed stylesheet.
func (e *Engine) Sheet() *Sheet {
	return e.sheet
}

// OnInvalidated subscribes fn to theme-wide invalidations. It receives the
// new generation.
func (e *Engine) OnInvalidated(fn func(generation uint64)) func() {
	return e.invalidated.Add(fn)
}
