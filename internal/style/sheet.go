package style

import (
	"maps"
	"slices"
	"strings"
	"sync"
)

// Rule is one class rule of the managed stylesheet.
type Rule struct {
	ClassName  string
	Properties map[string]string
}

// Text renders the rule as CSS with properties in lexical order.
func (r Rule) Text() string {
	var b strings.Builder
	b.WriteString(".")
	b.WriteString(r.ClassName)
	b.WriteString(" {")
	for _, k := range slices.Sorted(maps.Keys(r.Properties)) {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(r.Properties[k])
		b.WriteString(";")
	}
	b.WriteString(" }")
	return b.String()
}

// Sheet is the stylesheet managed by an Engine. Rules keep the position of
// their first insertion; replacing a rule keeps its slot.
type Sheet struct {
	mu    sync.RWMutex
	order []string
	rules map[string]Rule
}

func newSheet() *Sheet {
	return &Sheet{rules: make(map[string]Rule)}
}

// Put inserts or replaces the rule for className.
func (s *Sheet) Put(className string, props map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[className]; !ok {
		s.order = append(s.order, className)
	}
	s.rules[className] = Rule{ClassName: className, Properties: maps.Clone(props)}
}

// Rule returns the rule for className.
func (s *Sheet) Rule(className string) (Rule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[className]
	if !ok {
		return Rule{}, false
	}
	r.Properties = maps.Clone(r.Properties)
	return r, true
}

// Len returns the number of rules.
func (s *Sheet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// ClassNames lists rule class names in insertion order.
func (s *Sheet) ClassNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// CSS renders the whole sheet, one rule per line.
func (s *Sheet) CSS() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var b strings.Builder
	for _, name := range s.order {
		b.WriteString(s.rules[name].Text())
		b.WriteString("\n")
	}
	return b.String()
}
