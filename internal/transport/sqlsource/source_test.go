package sqlsource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/five82/lattice/internal/columns"
	"github.com/five82/lattice/internal/rows"
)

func seeded(t *testing.T, n int) *Source {
	t.Helper()
	src, err := Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	require.NoError(t, src.Seed(context.Background(), "orders", n))
	return src
}

func TestRowCountAndColumns(t *testing.T) {
	src := seeded(t, 25)
	ctx := context.Background()

	n, err := src.RowCount(ctx, "orders")
	require.NoError(t, err)
	require.Equal(t, 25, n)

	cols, err := src.Columns(ctx, "orders")
	require.NoError(t, err)
	names := make([]string, 0, len(cols))
	kinds := make([]columns.Kind, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
		kinds = append(kinds, c.Kind())
	}
	require.Equal(t, []string{"id", "name", "qty", "active", "created"}, names)
	require.Equal(t, []columns.Kind{columns.KindNumber, columns.KindText, columns.KindNumber, columns.KindBoolean, columns.KindDate}, kinds)
}

func TestRowsCarryMetadata(t *testing.T) {
	src := seeded(t, 25)
	got, err := src.Rows(context.Background(), "orders", rows.Query{First: 0, Last: 5, SortIndex: -1})
	require.NoError(t, err)
	require.Len(t, got, 6)

	require.Equal(t, 0, got[0].Index)
	require.EqualValues(t, 1, got[0].Data[0])
	require.Equal(t, "Group 1", got[0].Data[1])
	require.NotNil(t, got[0].Style)
	require.Equal(t, "group-header", got[0].Style.Renderer)

	require.Nil(t, got[1].Style)
	require.Equal(t, "quantity exceeds stock", got[3].Errors[2])
	require.Nil(t, got[2].Errors)
	require.NotNil(t, got[4].Height)
	require.Equal(t, 2, *got[4].Height)
	require.Equal(t, "imported from legacy system", got[5].Tooltips[1])
	require.Len(t, got[1].Data, 5, "metadata columns are not cells")
}

func TestRowsSortAndPaging(t *testing.T) {
	src := seeded(t, 25)
	ctx := context.Background()

	got, err := src.Rows(ctx, "orders", rows.Query{First: 0, Last: 2, SortIndex: 0, SortDirection: rows.SortDescending})
	require.NoError(t, err)
	require.EqualValues(t, 25, got[0].Data[0])
	require.EqualValues(t, 23, got[2].Data[0])

	got, err = src.Rows(ctx, "orders", rows.Query{First: 20, Last: 40, SortIndex: 0, SortDirection: rows.SortAscending})
	require.NoError(t, err)
	require.Len(t, got, 5)
	require.Equal(t, 20, got[0].Index)
	require.EqualValues(t, 21, got[0].Data[0])

	// Out of range sort columns fall back to insertion order.
	got, err = src.Rows(ctx, "orders", rows.Query{First: 0, Last: 0, SortIndex: 99, SortDirection: rows.SortDescending})
	require.NoError(t, err)
	require.EqualValues(t, 1, got[0].Data[0])
}

func TestErrors(t *testing.T) {
	src := seeded(t, 3)
	ctx := context.Background()

	_, err := src.RowCount(ctx, "nope")
	require.ErrorIs(t, err, rows.ErrUnknownStore)
	_, err = src.Rows(ctx, "nope", rows.Query{First: 0, Last: 1})
	require.ErrorIs(t, err, rows.ErrUnknownStore)
	_, err = src.Rows(ctx, "orders", rows.Query{First: 3, Last: 1})
	require.ErrorIs(t, err, rows.ErrInvalidRange)
}

func TestServesRowCache(t *testing.T) {
	src := seeded(t, 120)
	cache := rows.NewCache(src, "orders", rows.Options{})
	ctx := context.Background()

	n, err := cache.RowCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 120, n)

	got, err := cache.Rows(ctx, 100, 150)
	require.NoError(t, err)
	require.Len(t, got, 20)

	cache.SetSort(1, true)
	got, err = cache.Rows(ctx, 0, 0)
	require.NoError(t, err)
	require.Equal(t, "Group 1", got[0].Data[1])
}

func TestReseedDropsCachedSchema(t *testing.T) {
	src := seeded(t, 3)
	ctx := context.Background()
	_, err := src.Columns(ctx, "orders")
	require.NoError(t, err)

	_, err = src.DB().ExecContext(ctx, `ALTER TABLE orders ADD COLUMN extra TEXT`)
	require.NoError(t, err)
	cols, _ := src.Columns(ctx, "orders")
	require.Len(t, cols, 5, "schema is cached")

	src.Forget("orders")
	cols, _ = src.Columns(ctx, "orders")
	require.Len(t, cols, 6)
}

func TestSchema(t *testing.T) {
	src := seeded(t, 1)
	infos, err := src.Schema(context.Background(), "orders")
	require.NoError(t, err)
	require.Equal(t, []columns.Info{
		{Name: "id", Kind: columns.KindNumber},
		{Name: "name", Kind: columns.KindText},
		{Name: "qty", Kind: columns.KindNumber},
		{Name: "active", Kind: columns.KindBoolean},
		{Name: "created", Kind: columns.KindDate},
	}, infos)

	_, err = src.Schema(context.Background(), "nope")
	require.ErrorIs(t, err, rows.ErrUnknownStore)
}
