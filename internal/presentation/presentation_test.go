package presentation_test

import (
	"testing"
	"time"

	"github.com/ksred/order-bot/internal/conversation"
	"github.com/ksred/order-bot/internal/pagination"
	"github.com/ksred/order-bot/internal/presentation"
	"github.com/ksred/order-bot/internal/types"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestOrderDetails(t *testing.T) {
	order := &types.Order{
		ID:            1,
		Name:          "Book <hardcover>",
		Platform:      &types.Platform{ID: 1, Name: "Amazon"},
		Link:          strPtr("https://example.com/?a=1&b=2"),
		PaymentStatus: "Paid",
		Comment:       strPtr("gift"),
		Created:       time.Date(2024, 3, 1, 22, 30, 0, 0, time.UTC),
	}

	text := presentation.OrderDetails(order, presentation.FixedZone(3))

	assert.Contains(t, text, "<b>🏷️ Book &lt;hardcover&gt;</b>")
	assert.Contains(t, text, "02.03.2024 01:30")
	assert.Contains(t, text, "<b>Platform:</b> Amazon")
	assert.Contains(t, text, `<a href="https://example.com/?a=1&amp;b=2">`)
	assert.Contains(t, text, "💳 Paid")
	assert.Contains(t, text, "<i>gift</i>")
}

func TestOrderDetailsPlaceholders(t *testing.T) {
	order := &types.Order{ID: 2, Name: "Lamp", PaymentStatus: "Pending", Created: time.Now().UTC()}

	text := presentation.OrderDetails(order, nil)

	assert.Contains(t, text, types.RemovedPlatformName)
	assert.Contains(t, text, "(no link)")
	assert.Contains(t, text, "(empty)")
}

func TestDraftReview(t *testing.T) {
	text := presentation.DraftReview(conversation.Draft{Name: "Book", PlatformName: "Amazon"})

	assert.Contains(t, text, "<b>Name:</b> Book")
	assert.Contains(t, text, "<b>Platform:</b> Amazon")
	assert.Contains(t, text, "<b>Status:</b> Pending")
	assert.Contains(t, text, "(no link)")
	assert.Contains(t, text, "(empty)")
}

func TestPlatformList(t *testing.T) {
	assert.Contains(t, presentation.PlatformList(nil), "No platforms yet.")

	text := presentation.PlatformList([]types.Platform{{ID: 4, Name: "Amazon"}, {ID: 9, Name: "eBay"}})
	assert.Contains(t, text, "1. Amazon")
	assert.Contains(t, text, "2. eBay")
}

func TestOrderListHeader(t *testing.T) {
	assert.Equal(t, "📋 No orders yet.", presentation.OrderListHeader(pagination.Page{Number: 1, TotalPages: 1}))
	assert.Contains(t, presentation.OrderListHeader(pagination.Page{Number: 2, TotalPages: 3, Total: 12}), "page 2 of 3")
}

func TestFieldTexts(t *testing.T) {
	assert.Equal(t, "Payment status", presentation.FieldLabel(types.FieldPaymentStatus))
	assert.Contains(t, presentation.AskFieldValue(types.FieldLink), "<b>link</b>")
	assert.Equal(t, "✅ Comment cleared.", presentation.FieldUpdated(types.FieldComment, true))
	assert.Equal(t, "The report spreadsheet is not configured.", presentation.SheetLink(""))
}
