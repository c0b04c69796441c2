package style

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/five82/lattice/internal/logging"
	"github.com/five82/lattice/internal/theme"
)

// countingRepo wraps a repository and counts lookups.
type countingRepo struct {
	mu      sync.Mutex
	inner   theme.Repository
	lookups int
}

func (r *countingRepo) Lookup(key string, states []string) (theme.Appearance, error) {
	r.mu.Lock()
	r.lookups++
	r.mu.Unlock()
	return r.inner.Lookup(key, states)
}

type failingRepo struct{}

func (failingRepo) Lookup(string, []string) (theme.Appearance, error) {
	return theme.Appearance{}, errors.New("theme asset missing")
}

// malformedRepo returns a decorator that cannot produce insets.
type malformedRepo struct{}

func (malformedRepo) Lookup(string, []string) (theme.Appearance, error) {
	return theme.Appearance{Decorator: &theme.Decorator{Width: theme.Insets{Left: -3}}}, nil
}

func newEngine(t *testing.T) (*Engine, *countingRepo) {
	t.Helper()
	repo := &countingRepo{inner: theme.NewStaticRepository(theme.Builtin("Nightfox"))}
	return NewEngine(repo, Options{}), repo
}

func TestResolveClass_IndependentOfInsertionOrder(t *testing.T) {
	e, _ := newEngine(t)

	a := States{}
	a["focused"] = true
	a["invalid"] = false
	b := States{}
	b["invalid"] = false
	b["focused"] = true

	require.Equal(t, e.ResolveClass("textfield", a), e.ResolveClass("textfield", b))
	require.Equal(t, "lt-textfield--focused", e.ResolveClass("textfield", a))
}

func TestResolveClass_DropsFalsyAndDefaultStates(t *testing.T) {
	e, _ := newEngine(t)

	got := e.ResolveClass(theme.AppearanceRow, States{"selected": true, "odd": true, "default": true, "editing": false})
	require.Equal(t, "lt-table-row--odd--selected", got)
	require.Equal(t, "lt-table-row", e.ResolveClass(theme.AppearanceRow, nil))
}

func TestResolve_CachesSynthesizedRule(t *testing.T) {
	e, repo := newEngine(t)

	for range 10 {
		e.ResolveClass(theme.AppearanceCell, States{"focused": true})
	}
	require.Equal(t, 1, repo.lookups)
	require.Equal(t, 1, e.Sheet().Len())

	rule, ok := e.Sheet().Rule("lt-table-cell--focused")
	require.True(t, ok)
	require.Equal(t, "#29394f", rule.Properties["background-color"])
	require.Equal(t, "1px solid #212e3f", rule.Properties["border-right"])
	require.Equal(t, "2px 6px 2px 6px", rule.Properties["padding"])
}

func TestResolve_TerminalStyle(t *testing.T) {
	e, _ := newEngine(t)
	entry := e.Resolve(theme.AppearanceHeaderCell, nil)
	require.True(t, entry.Terminal.GetBold())
	require.False(t, entry.Degraded)
}

func TestInvalidateAll_KeepsClassNamesAndRebuildsRules(t *testing.T) {
	e, _ := newEngine(t)

	names := []string{
		e.ResolveClass(theme.AppearanceRow, States{"odd": true}),
		e.ResolveClass(theme.AppearanceCell, States{"selected": true}),
	}
	before, _ := e.Sheet().Rule(names[0])

	var gens []uint64
	e.OnInvalidated(func(g uint64) { gens = append(gens, g) })

	e.SetRepository(theme.NewStaticRepository(theme.Builtin("Slate")))

	require.Equal(t, []uint64{1}, gens)
	require.Equal(t, names, e.Sheet().ClassNames())
	require.Equal(t, names[0], e.ResolveClass(theme.AppearanceRow, States{"odd": true}))

	after, _ := e.Sheet().Rule(names[0])
	require.NotEqual(t, before.Properties["background-color"], after.Properties["background-color"])
	require.Equal(t, "#1e293b", after.Properties["background-color"])
	require.Equal(t, uint64(1), e.Resolve(theme.AppearanceRow, States{"odd": true}).Generation)
}

func TestResolve_UnknownAppearanceDegrades(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := logging.New(logging.Options{Level: "warn", Writer: buf})
	require.NoError(t, err)

	e := NewEngine(failingRepo{}, Options{
		DefaultCSS: map[string]string{"color": "black"},
		Logger:     log,
	})

	entry := e.Resolve("spinner", States{"busy": true})
	require.True(t, entry.Degraded)
	require.Equal(t, "lt-spinner--busy", entry.ClassName)
	require.Equal(t, map[string]string{"color": "black"}, entry.CSS)

	e.Resolve("spinner", States{"busy": true})
	require.Equal(t, 1, strings.Count(buf.String(), "theme lookup failed"))

	insets, err := e.BorderInsets("spinner", nil)
	require.NoError(t, err)
	require.True(t, insets.IsZero())
}

func TestResolve_NilRepository(t *testing.T) {
	e := NewEngine(nil, Options{})
	require.True(t, e.Resolve("table", nil).Degraded)
}

func TestBorderInsets(t *testing.T) {
	e, _ := newEngine(t)

	insets, err := e.BorderInsets(theme.AppearanceCell, nil)
	require.NoError(t, err)
	require.Equal(t, theme.Insets{Right: 1, Bottom: 1}, insets)

	insets, err = e.BorderInsets(theme.AppearanceCell, States{"invalid": true})
	require.NoError(t, err)
	require.Equal(t, theme.Insets{Right: 1, Bottom: 2}, insets)

	bad := NewEngine(malformedRepo{}, Options{})
	_, err = bad.BorderInsets("cell", nil)
	require.ErrorIs(t, err, theme.ErrMalformedDecorator)
}

func TestSheetCSS(t *testing.T) {
	e := NewEngine(theme.NewStaticRepository(theme.Builtin("Nightfox")), Options{Prefix: "g-"})
	e.ResolveClass(theme.AppearanceFocusIndicator, nil)

	css := e.Sheet().CSS()
	require.True(t, strings.HasPrefix(css, ".g-table-focus-indicator {"))
	require.Contains(t, css, "border-top: 2px solid #719cd6;")
}

func TestClassName_Escaping(t *testing.T) {
	e, _ := newEngine(t)
	require.Equal(t, "lt-table-cell", e.ClassName("table-cell", nil))
	require.Equal(t, "lt-_000047rid_000020cell", e.ClassName("Grid cell", nil))
	require.Equal(t, "lt-a_00002eb_00005fc", e.ClassName("a.b_c", nil))
	require.Equal(t, "lt-_00002da_00002d_00002db_00002d", e.ClassName("-a--b-", nil))
}

func TestClassName_DistinctPairsNeverCollide(t *testing.T) {
	e, _ := newEngine(t)
	pairs := []struct {
		key    string
		states States
	}{
		{"table-cell", States{"focused": true}},
		{"table-cell--focused", nil},
		{"table-cell-", States{"focused": true}},
		{"table-cell", States{"-focused": true}},
		{"table", States{"cell--focused": true}},
		{"Table-Cell", nil},
		{"table-cell", nil},
		{"table_cell", nil},
		{"", States{"table-cell": true}},
	}
	seen := map[string]string{}
	for _, p := range pairs {
		name := e.ClassName(p.key, p.states)
		label := p.key + " " + strings.Join(p.states.Active(), ",")
		if prev, ok := seen[name]; ok {
			t.Fatalf("%q and %q share class %q", prev, label, name)
		}
		seen[name] = label
	}
}

func TestResolve_DegradedKeyDoesNotShadowValidOne(t *testing.T) {
	e, _ := newEngine(t)

	bad := e.Resolve("Table-Cell", nil)
	require.True(t, bad.Degraded)

	good := e.Resolve(theme.AppearanceCell, nil)
	require.False(t, good.Degraded)
	require.NotEqual(t, bad.ClassName, good.ClassName)
	require.Equal(t, "1px solid #212e3f", good.CSS["border-right"])

	focused := e.Resolve(theme.AppearanceCell, States{"focused": true})
	lookalike := e.Resolve("table-cell--focused", nil)
	require.NotEqual(t, focused.ClassName, lookalike.ClassName)
	require.False(t, focused.Degraded)
	require.True(t, lookalike.Degraded)
	require.Equal(t, "#29394f", focused.CSS["background-color"])
}

func TestResolve_ConcurrentAccess(t *testing.T) {
	e, repo := newEngine(t)
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.ResolveClass(theme.AppearanceRow, States{"odd": i%2 == 1})
		}()
	}
	wg.Wait()
	require.Equal(t, 2, e.Len())
	require.Equal(t, 2, repo.lookups)
}
