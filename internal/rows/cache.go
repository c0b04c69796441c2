package rows

import (
	"context"
	"math"
	"reflect"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/five82/lattice/internal/logging"
	"github.com/five82/lattice/internal/notify"
)

const (
	// DefaultMaxBlocks is the number of resident blocks kept before the oldest
	// ones are evicted.
	DefaultMaxBlocks = 100
	// DefaultMaxBlockRows caps the size of a block produced by merging.
	DefaultMaxBlockRows = 200
)

// AllCols is the column range reported when a whole row changed.
var AllCols = Range{First: 0, Last: math.MaxInt32}

// Options tune a Cache.
type Options struct {
	MaxBlocks    int
	MaxBlockRows int
	Logger       *logging.Logger
}

// Stats counts cache activity since construction.
type Stats struct {
	RowFetches   int
	RowsFetched  int
	CountFetches int
	Discarded    int
	Evictions    int
}

type block struct {
	first int
	last  int
	seq   uint64
	rows  []*RowRecord
}

func (b *block) span() Range { return Range{First: b.first, Last: b.last} }

// Cache keeps a sparse, block-granular copy of a remote row model.
//
// Fetches run without the lock held. Their results are applied in a single
// critical section and only if the generation captured when the fetch began
// is still current; cancellation, invalidation and sort changes all bump it.
type Cache struct {
	transport Transport
	storeID   string
	maxBlocks int
	maxRows   int
	log       *logging.Logger

	mu         sync.Mutex
	blocks     []*block // sorted by first, never overlapping
	seq        uint64
	generation uint64
	active     bool
	activeGen  uint64
	sortIndex  int
	sortDir    SortDirection

	count      int
	countValid bool
	countGen   uint64
	countGroup singleflight.Group

	stats Stats

	dropped []Range // reported to dropListeners once the lock is released

	dataListeners   notify.Listeners[DataChanged]
	heightListeners notify.Listeners[RowHeightChanged]
	dropListeners   notify.Listeners[Range]
}

// NewCache builds a Cache reading from transport for the given store.
func NewCache(transport Transport, storeID string, opts Options) *Cache {
	maxBlocks := opts.MaxBlocks
	if maxBlocks <= 0 {
		maxBlocks = DefaultMaxBlocks
	}
	maxRows := opts.MaxBlockRows
	if maxRows <= 0 {
		maxRows = DefaultMaxBlockRows
	}
	return &Cache{
		transport: transport,
		storeID:   storeID,
		maxBlocks: maxBlocks,
		maxRows:   maxRows,
		log:       opts.Logger.With("rows"),
		sortIndex: -1,
	}
}

// StoreID returns the remote store this cache reads from.
func (c *Cache) StoreID() string {
	return c.storeID
}

// RowCount returns the total number of rows, fetching it on first use.
// Concurrent callers share a single transport request.
func (c *Cache) RowCount(ctx context.Context) (int, error) {
	if c.transport == nil {
		return 0, ErrNoTransport
	}
	c.mu.Lock()
	if c.countValid {
		n := c.count
		c.mu.Unlock()
		return n, nil
	}
	gen := c.countGen
	c.mu.Unlock()

	// The shared request must not die with whichever caller started it.
	shared := context.WithoutCancel(ctx)
	ch := c.countGroup.DoChan("count", func() (any, error) {
		c.mu.Lock()
		c.stats.CountFetches++
		c.mu.Unlock()
		return c.transport.RowCount(shared, c.storeID)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	v, err := res.Val, res.Err
	if err != nil {
		c.log.Debug("row count fetch failed", map[string]any{"error": err.Error()})
		return 0, &TransportError{Op: "count", Store: c.storeID, Err: err}
	}
	n := v.(int)

	c.mu.Lock()
	if gen == c.countGen {
		c.count = n
		c.countValid = true
	}
	c.mu.Unlock()
	return n, nil
}

// InvalidateRowCount forgets the cached row count.
func (c *Cache) InvalidateRowCount() {
	c.mu.Lock()
	c.countValid = false
	c.countGen++
	c.mu.Unlock()
	c.countGroup.Forget("count")
}

// Rows returns copies of the resident records in the inclusive range
// [first, last], fetching every missing sub-range first. Rows past the end of
// the model are absent from the result.
func (c *Cache) Rows(ctx context.Context, first, last int) ([]RowRecord, error) {
	if first < 0 || last < first {
		return nil, ErrInvalidRange
	}

	c.mu.Lock()
	if c.countValid {
		if first >= c.count {
			c.mu.Unlock()
			return nil, nil
		}
		last = min(last, c.count-1)
	}
	gaps := c.missingLocked(first, last)
	if len(gaps) == 0 {
		out := c.collectLocked(first, last)
		c.mu.Unlock()
		return out, nil
	}
	if c.transport == nil {
		c.mu.Unlock()
		return nil, ErrNoTransport
	}
	c.generation++
	gen := c.generation
	c.active = true
	c.activeGen = gen
	sortIndex, sortDir := c.sortIndex, c.sortDir
	// Blocks created by this call, and those already inside the requested
	// range, survive eviction until the call has collected its rows.
	keep := protection{from: c.seq + 1, span: Range{First: first, Last: last}}
	c.mu.Unlock()

	for _, gap := range gaps {
		q := Query{First: gap.First, Last: gap.Last, SortIndex: sortIndex, SortDirection: sortDir}
		c.log.Debug("fetching rows", map[string]any{"first": gap.First, "last": gap.Last})
		records, err := c.transport.Rows(ctx, c.storeID, q)

		c.mu.Lock()
		c.stats.RowFetches++
		if err != nil {
			c.finishLocked(gen)
			c.mu.Unlock()
			return nil, &TransportError{Op: "rows", Store: c.storeID, Range: gap, Err: err}
		}
		if gen != c.generation {
			c.stats.Discarded++
			c.mu.Unlock()
			c.log.Debug("discarding superseded rows", map[string]any{"first": gap.First, "last": gap.Last})
			return nil, ErrSuperseded
		}
		c.insertLocked(gap, records, keep)
		c.unlockAndNotify()
	}

	c.mu.Lock()
	c.finishLocked(gen)
	out := c.collectLocked(first, last)
	c.mu.Unlock()
	return out, nil
}

// CancelPending discards the result of the in-flight row fetch, if any, and
// reports whether one existed. The network request itself is not aborted.
func (c *Cache) CancelPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	wasActive := c.active && c.activeGen == c.generation
	c.generation++
	c.active = false
	return wasActive
}

// Pending reports whether a row fetch is in flight and still current.
func (c *Cache) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active && c.activeGen == c.generation
}

// SetSort changes the sort parameters sent with every fetch. Resident rows
// are dropped since their order no longer matches the server's.
func (c *Cache) SetSort(columnIndex int, ascending bool) {
	dir := SortDescending
	if ascending {
		dir = SortAscending
	}
	c.setSort(columnIndex, dir)
}

// ClearSort removes any sort parameters.
func (c *Cache) ClearSort() {
	c.setSort(-1, SortNone)
}

func (c *Cache) setSort(index int, dir SortDirection) {
	c.mu.Lock()
	if c.sortIndex == index && c.sortDir == dir {
		c.mu.Unlock()
		return
	}
	c.sortIndex = index
	c.sortDir = dir
	c.dropLocked(Range{First: 0, Last: math.MaxInt})
	c.unlockAndNotify()
	c.log.Debug("sort changed", map[string]any{"column": index, "direction": dir.String()})
}

// Sort returns the current sort parameters.
func (c *Cache) Sort() (int, SortDirection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortIndex, c.sortDir
}

// Invalidate drops every resident block and the cached row count.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.dropLocked(Range{First: 0, Last: math.MaxInt})
	c.countValid = false
	c.countGen++
	c.unlockAndNotify()
	c.countGroup.Forget("count")
}

// InvalidateRange drops resident rows in the inclusive range so that the next
// read fetches them again.
func (c *Cache) InvalidateRange(first, last int) {
	if last < first {
		return
	}
	c.mu.Lock()
	c.dropLocked(Range{First: max(first, 0), Last: last})
	c.unlockAndNotify()
}

// Resident reports whether row is currently cached.
func (c *Cache) Resident(row int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupLocked(row) != nil
}

// Row returns a copy of a resident row.
func (c *Cache) Row(row int) (RowRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec := c.lookupLocked(row)
	if rec == nil {
		return RowRecord{}, false
	}
	return rec.Clone(), true
}

// Blocks lists the resident block spans in index order.
func (c *Cache) Blocks() []Range {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Range, len(c.blocks))
	for i, b := range c.blocks {
		out[i] = b.span()
	}
	return out
}

// Stats returns a copy of the activity counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// unlockAndNotify releases the lock, then reports the rows dropped while it
// was held.
func (c *Cache) unlockAndNotify() {
	dropped := c.dropped
	c.dropped = nil
	c.mu.Unlock()
	for _, r := range dropped {
		c.dropListeners.Emit(r)
	}
}

func (c *Cache) finishLocked(gen uint64) {
	if c.activeGen == gen {
		c.active = false
	}
}

// missingLocked returns the sub-ranges of [first, last] not covered by any
// resident block.
func (c *Cache) missingLocked(first, last int) []Range {
	var gaps []Range
	cursor := first
	for _, b := range c.blocks {
		if b.last < cursor {
			continue
		}
		if b.first > last {
			break
		}
		if b.first > cursor {
			gaps = append(gaps, Range{First: cursor, Last: b.first - 1})
		}
		cursor = b.last + 1
		if cursor > last {
			break
		}
	}
	if cursor <= last {
		gaps = append(gaps, Range{First: cursor, Last: last})
	}
	return gaps
}

func (c *Cache) collectLocked(first, last int) []RowRecord {
	out := make([]RowRecord, 0, last-first+1)
	for _, b := range c.blocks {
		if b.last < first {
			continue
		}
		if b.first > last {
			break
		}
		lo := max(first, b.first) - b.first
		hi := min(last, b.last) - b.first
		for _, rec := range b.rows[lo : hi+1] {
			out = append(out, rec.Clone())
		}
	}
	return out
}

func (c *Cache) lookupLocked(row int) *RowRecord {
	i := sort.Search(len(c.blocks), func(i int) bool { return c.blocks[i].last >= row })
	if i == len(c.blocks) || c.blocks[i].first > row {
		return nil
	}
	b := c.blocks[i]
	return b.rows[row-b.first]
}

// protection marks blocks eviction must skip: those with seq >= from and
// those overlapping span.
type protection struct {
	from uint64
	span Range
}

func (p protection) covers(b *block) bool {
	return b.seq >= p.from || b.span().Overlaps(p.span)
}

// insertLocked stores records fetched for gap as new blocks, merges blocks
// that became contiguous and evicts the oldest unprotected blocks past the
// cap.
func (c *Cache) insertLocked(gap Range, records []RowRecord, keep protection) {
	n := min(len(records), gap.Len())
	c.stats.RowsFetched += n
	if n == 0 {
		return
	}
	for start := 0; start < n; start += c.maxRows {
		end := min(start+c.maxRows, n)
		c.seq++
		b := &block{first: gap.First + start, last: gap.First + end - 1, seq: c.seq}
		b.rows = make([]*RowRecord, 0, end-start)
		for i := start; i < end; i++ {
			rec := records[i].Clone()
			rec.Index = gap.First + i
			b.rows = append(b.rows, &rec)
		}
		c.blocks = append(c.blocks, b)
	}
	sort.Slice(c.blocks, func(i, j int) bool { return c.blocks[i].first < c.blocks[j].first })
	c.mergeLocked()
	c.evictLocked(keep)
}

func (c *Cache) mergeLocked() {
	if len(c.blocks) < 2 {
		return
	}
	merged := c.blocks[:1]
	for _, b := range c.blocks[1:] {
		prev := merged[len(merged)-1]
		if prev.last+1 == b.first && (b.last-prev.first+1) <= c.maxRows {
			rowsCopy := make([]*RowRecord, 0, b.last-prev.first+1)
			rowsCopy = append(rowsCopy, prev.rows...)
			rowsCopy = append(rowsCopy, b.rows...)
			merged[len(merged)-1] = &block{
				first: prev.first,
				last:  b.last,
				seq:   max(prev.seq, b.seq),
				rows:  rowsCopy,
			}
			continue
		}
		merged = append(merged, b)
	}
	c.blocks = merged
}

// evictLocked removes the oldest blocks until at most maxBlocks remain or
// only protected blocks are left.
func (c *Cache) evictLocked(keep protection) {
	for len(c.blocks) > c.maxBlocks {
		oldest := -1
		for i, b := range c.blocks {
			if keep.covers(b) {
				continue
			}
			if oldest < 0 || b.seq < c.blocks[oldest].seq {
				oldest = i
			}
		}
		if oldest < 0 {
			return
		}
		c.log.Debug("evicting block", map[string]any{"first": c.blocks[oldest].first, "last": c.blocks[oldest].last})
		c.dropped = append(c.dropped, c.blocks[oldest].span())
		c.blocks = append(c.blocks[:oldest], c.blocks[oldest+1:]...)
		c.stats.Evictions++
	}
}

// dropLocked removes rows in r from the block map, splitting blocks that
// straddle its edges, and supersedes any in-flight fetch.
func (c *Cache) dropLocked(r Range) {
	kept := c.blocks[:0:0]
	for _, b := range c.blocks {
		if !b.span().Overlaps(r) {
			kept = append(kept, b)
			continue
		}
		c.dropped = append(c.dropped, Range{First: max(b.first, r.First), Last: min(b.last, r.Last)})
		if b.first < r.First {
			kept = append(kept, &block{
				first: b.first,
				last:  r.First - 1,
				seq:   b.seq,
				rows:  b.rows[:r.First-b.first],
			})
		}
		if b.last > r.Last {
			kept = append(kept, &block{
				first: r.Last + 1,
				last:  b.last,
				seq:   b.seq,
				rows:  b.rows[r.Last+1-b.first:],
			})
		}
	}
	c.blocks = kept
	c.generation++
	c.active = false
}

// SetCellValue updates a resident cell. It reports whether the stored value
// changed; only then is DataChanged raised.
func (c *Cache) SetCellValue(row, col int, value CellValue) bool {
	c.mu.Lock()
	rec := c.lookupLocked(row)
	if rec == nil {
		c.mu.Unlock()
		return false
	}
	if old, ok := rec.Data[col]; ok && reflect.DeepEqual(old, value) {
		c.mu.Unlock()
		return false
	}
	if rec.Data == nil {
		rec.Data = make(map[int]CellValue)
	}
	rec.Data[col] = value
	c.mu.Unlock()

	c.dataListeners.Emit(DataChanged{Rows: Range{First: row, Last: row}, Cols: Range{First: col, Last: col}})
	return true
}

// SetRowStyle replaces the shared style of a resident row.
func (c *Cache) SetRowStyle(row int, style *RowStyle) bool {
	c.mu.Lock()
	rec := c.lookupLocked(row)
	if rec == nil || reflect.DeepEqual(rec.Style, style) {
		c.mu.Unlock()
		return false
	}
	rec.Style = style.Clone()
	c.mu.Unlock()

	c.dataListeners.Emit(DataChanged{Rows: Range{First: row, Last: row}, Cols: AllCols})
	return true
}

// SetCellStyle replaces the style overrides of a single resident cell. An
// empty style removes the overrides.
func (c *Cache) SetCellStyle(row, col int, style StyleMap) bool {
	c.mu.Lock()
	rec := c.lookupLocked(row)
	if rec == nil {
		c.mu.Unlock()
		return false
	}
	old, had := rec.CellStyles[col]
	if len(style) == 0 {
		if !had {
			c.mu.Unlock()
			return false
		}
		delete(rec.CellStyles, col)
	} else {
		if had && reflect.DeepEqual(old, style) {
			c.mu.Unlock()
			return false
		}
		if rec.CellStyles == nil {
			rec.CellStyles = make(map[int]StyleMap)
		}
		rec.CellStyles[col] = style.Clone()
	}
	c.mu.Unlock()

	c.dataListeners.Emit(DataChanged{Rows: Range{First: row, Last: row}, Cols: Range{First: col, Last: col}})
	return true
}

// SetCellError sets or, with an empty message, clears a cell's validation error.
func (c *Cache) SetCellError(row, col int, msg string) bool {
	return c.setCellText(row, col, msg, func(r *RowRecord) *map[int]string { return &r.Errors })
}

// SetCellTooltip sets or, with an empty text, clears a cell's tooltip.
func (c *Cache) SetCellTooltip(row, col int, text string) bool {
	return c.setCellText(row, col, text, func(r *RowRecord) *map[int]string { return &r.Tooltips })
}

func (c *Cache) setCellText(row, col int, text string, field func(*RowRecord) *map[int]string) bool {
	c.mu.Lock()
	rec := c.lookupLocked(row)
	if rec == nil {
		c.mu.Unlock()
		return false
	}
	m := field(rec)
	old, had := (*m)[col]
	switch {
	case text == "" && !had:
		c.mu.Unlock()
		return false
	case text == "":
		delete(*m, col)
	case had && old == text:
		c.mu.Unlock()
		return false
	default:
		if *m == nil {
			*m = make(map[int]string)
		}
		(*m)[col] = text
	}
	c.mu.Unlock()

	c.dataListeners.Emit(DataChanged{Rows: Range{First: row, Last: row}, Cols: Range{First: col, Last: col}})
	return true
}

// SetRowHeight stores a server-pushed height for a resident row and raises
// RowHeightChanged when it differs from the current one.
func (c *Cache) SetRowHeight(row, height int) bool {
	c.mu.Lock()
	rec := c.lookupLocked(row)
	if rec == nil || (rec.Height != nil && *rec.Height == height) {
		c.mu.Unlock()
		return false
	}
	h := height
	rec.Height = &h
	effective := rec.EffectiveHeight(height)
	c.mu.Unlock()

	c.heightListeners.Emit(RowHeightChanged{Row: row, Height: effective})
	return true
}

// OnDataChanged subscribes fn to resident-row mutations. The returned
// function removes the subscription.
func (c *Cache) OnDataChanged(fn func(DataChanged)) func() {
	return c.dataListeners.Add(fn)
}

// OnRowHeightChanged subscribes fn to row height changes.
func (c *Cache) OnRowHeightChanged(fn func(RowHeightChanged)) func() {
	return c.heightListeners.Add(fn)
}

// OnRowsDropped subscribes fn to rows leaving the cache through eviction,
// invalidation or a sort change. Records fetched for those rows later may
// differ from the ones dropped.
func (c *Cache) OnRowsDropped(fn func(Range)) func() {
	return c.dropListeners.Add(fn)
}
