package focus

// Offsets caches the top offset of each row given a default height and
// per-row overrides. Tops are computed lazily and a height change discards
// only the cached suffix after the changed row. Offsets is not safe for
// concurrent use.
type Offsets struct {
	def     int
	heights map[int]int
	last    int // highest overridden row, -1 when none
	tops    []int
}

// NewOffsets returns offsets where every row is def tall.
func NewOffsets(def int) *Offsets {
	return &Offsets{def: max(def, 0), heights: make(map[int]int), last: -1}
}

// Height returns the height of row.
func (o *Offsets) Height(row int) int {
	if h, ok := o.heights[row]; ok {
		return h
	}
	return o.def
}

// Top returns the sum of the heights of the rows before row.
func (o *Offsets) Top(row int) int {
	if row <= 0 {
		return 0
	}
	// Past the last override every row has the default height.
	limit := o.last + 1
	if row > limit {
		return o.Top(limit) + (row-limit)*o.def
	}
	if len(o.tops) == 0 {
		o.tops = append(o.tops, 0)
	}
	for len(o.tops) <= row {
		i := len(o.tops) - 1
		o.tops = append(o.tops, o.tops[i]+o.Height(i))
	}
	return o.tops[row]
}

// Set overrides the height of row and reports whether it changed.
func (o *Offsets) Set(row, height int) bool {
	if row < 0 {
		return false
	}
	height = max(height, 0)
	if o.Height(row) == height {
		return false
	}
	o.heights[row] = height
	if row > o.last {
		o.last = row
	}
	if len(o.tops) > row+1 {
		o.tops = o.tops[:row+1]
	}
	return true
}

// SetDefault changes the default height and drops every cached top.
func (o *Offsets) SetDefault(height int) bool {
	height = max(height, 0)
	if height == o.def {
		return false
	}
	o.def = height
	o.tops = o.tops[:0]
	return true
}

// Clear drops the overrides of the rows in the inclusive range and reports
// whether any existed.
func (o *Offsets) Clear(first, last int) bool {
	first = max(first, 0)
	if last < first || first > o.last {
		return false
	}
	changed := false
	for row := range o.heights {
		if row >= first && row <= last {
			delete(o.heights, row)
			changed = true
		}
	}
	if !changed {
		return false
	}
	if last >= o.last {
		o.last = -1
		for row := range o.heights {
			o.last = max(o.last, row)
		}
	}
	switch {
	case o.last < 0:
		o.tops = o.tops[:0]
	case len(o.tops) > first+1:
		o.tops = o.tops[:first+1]
	}
	return true
}

// Reset drops all overrides.
func (o *Offsets) Reset() {
	clear(o.heights)
	o.last = -1
	o.tops = o.tops[:0]
}

// Cached returns how many tops are currently cached.
func (o *Offsets) Cached() int {
	return len(o.tops)
}
