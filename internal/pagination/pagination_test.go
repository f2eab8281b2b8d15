package pagination_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ksred/order-bot/internal/pagination"
	"github.com/ksred/order-bot/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceLister struct {
	orders  []types.Order // newest first
	calls   [][2]int
	failErr error
}

func newSliceLister(n int) *sliceLister {
	l := &sliceLister{}
	for id := n; id >= 1; id-- {
		l.orders = append(l.orders, types.Order{ID: uint(id)})
	}
	return l
}

func (l *sliceLister) CountOrders(ctx context.Context) (int64, error) {
	if l.failErr != nil {
		return 0, l.failErr
	}
	return int64(len(l.orders)), nil
}

func (l *sliceLister) ListOrders(ctx context.Context, limit, offset int) ([]types.Order, error) {
	l.calls = append(l.calls, [2]int{limit, offset})
	if offset >= len(l.orders) {
		return nil, nil
	}
	end := offset + limit
	if end > len(l.orders) {
		end = len(l.orders)
	}
	return l.orders[offset:end], nil
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total int64
		per   int
		want  int
	}{
		{0, 5, 1},
		{1, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{11, 5, 3},
		{3, 0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pagination.TotalPages(tt.total, tt.per), "total=%d per=%d", tt.total, tt.per)
	}
}

func TestPageFetchesSlice(t *testing.T) {
	lister := newSliceLister(12)
	engine := pagination.NewEngine(lister, 5)

	page, err := engine.Page(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, page.Number)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, int64(12), page.Total)
	assert.Equal(t, [][2]int{{5, 5}}, lister.calls)
	require.Len(t, page.Orders, 5)
	assert.Equal(t, uint(7), page.Orders[0].ID)
	assert.True(t, page.HasPrev())
	assert.True(t, page.HasNext())
	assert.Equal(t, "2/3", page.Indicator())
}

func TestPageNavigationBounds(t *testing.T) {
	engine := pagination.NewEngine(newSliceLister(7), 5)

	first, err := engine.Page(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, first.HasPrev())
	assert.True(t, first.HasNext())

	last, err := engine.Page(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, last.HasPrev())
	assert.False(t, last.HasNext())
	assert.Len(t, last.Orders, 2)
}

func TestEmptyListHasOnePage(t *testing.T) {
	engine := pagination.NewEngine(newSliceLister(0), 5)

	page, err := engine.Page(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, page.TotalPages)
	assert.Empty(t, page.Orders)
	assert.False(t, page.HasPrev())
	assert.False(t, page.HasNext())
}

func TestPagesCoverEveryOrderOnce(t *testing.T) {
	lister := newSliceLister(23)
	engine := pagination.NewEngine(lister, 4)
	seen := map[uint]int{}

	first, err := engine.Page(context.Background(), 1)
	require.NoError(t, err)
	for n := 1; n <= first.TotalPages; n++ {
		page, err := engine.Page(context.Background(), n)
		require.NoError(t, err)
		for _, o := range page.Orders {
			seen[o.ID]++
		}
	}

	assert.Len(t, seen, 23)
	for id, count := range seen {
		assert.Equal(t, 1, count, "order %d", id)
	}
}

func TestPageCountError(t *testing.T) {
	lister := newSliceLister(3)
	lister.failErr = errors.New("db closed")
	engine := pagination.NewEngine(lister, 5)

	_, err := engine.Page(context.Background(), 1)

	assert.ErrorIs(t, err, lister.failErr)
}

func TestDefaultPerPage(t *testing.T) {
	assert.Equal(t, pagination.DefaultPerPage, pagination.NewEngine(newSliceLister(0), 0).PerPage())
}
