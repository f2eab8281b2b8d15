package pagination

import (
	"context"
	"fmt"

	"github.com/ksred/order-bot/internal/types"
)

// DefaultPerPage is used when the engine is created with a non-positive page size
const DefaultPerPage = 5

// Lister is the slice of the store the engine reads from
type Lister interface {
	CountOrders(ctx context.Context) (int64, error)
	ListOrders(ctx context.Context, limit, offset int) ([]types.Order, error)
}

// Page is one bounded window over the orders, newest first
type Page struct {
	Number     int
	TotalPages int
	Total      int64
	Orders     []types.Order
}

// HasPrev reports whether a previous page control should be offered
func (p Page) HasPrev() bool {
	return p.Number > 1
}

// HasNext reports whether a next page control should be offered
func (p Page) HasNext() bool {
	return p.Number < p.TotalPages
}

// Indicator is the non-interactive "current/total" label
func (p Page) Indicator() string {
	return fmt.Sprintf("%d/%d", p.Number, p.TotalPages)
}

// Engine derives pages from a page number and the current order count
type Engine struct {
	lister  Lister
	perPage int
}

func NewEngine(lister Lister, perPage int) *Engine {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return &Engine{lister: lister, perPage: perPage}
}

// PerPage returns the page size
func (e *Engine) PerPage() int {
	return e.perPage
}

// TotalPages is ceil(total/perPage), never less than one
func TotalPages(total int64, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 1
	}
	pages := int((total + int64(perPage) - 1) / int64(perPage))
	if pages < 1 {
		return 1
	}
	return pages
}

// Page fetches page number (1-based). Numbers past the end are not rejected and yield
// an empty slice; numbers below one are read as the first page.
func (e *Engine) Page(ctx context.Context, number int) (Page, error) {
	if number < 1 {
		number = 1
	}

	total, err := e.lister.CountOrders(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("failed to count orders: %w", err)
	}

	orders, err := e.lister.ListOrders(ctx, e.perPage, (number-1)*e.perPage)
	if err != nil {
		return Page{}, fmt.Errorf("failed to list orders: %w", err)
	}

	return Page{
		Number:     number,
		TotalPages: TotalPages(total, e.perPage),
		Total:      total,
		Orders:     orders,
	}, nil
}
