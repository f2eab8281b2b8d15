// Package presentation renders orders, drafts and platforms as Telegram HTML text.
// Everything here is a pure function of its arguments.
package presentation

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/ksred/order-bot/internal/conversation"
	"github.com/ksred/order-bot/internal/pagination"
	"github.com/ksred/order-bot/internal/types"
)

const (
	separator     = "➖➖➖➖➖"
	emptyMarker   = "<em>(empty)</em>"
	noLinkMarker  = "<em>(no link)</em>"
	detailsLayout = "02.01.2006 15:04"
)

// FixedZone returns the display zone for a whole-hour UTC offset
func FixedZone(offsetHours int) *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", offsetHours), offsetHours*3600)
}

// OrderDetails renders the order card. A dangling platform reference is shown as removed.
func OrderDetails(order *types.Order, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	platform := types.RemovedPlatformName
	if name, ok := order.PlatformName(); ok {
		platform = html.EscapeString(name)
	}

	link := noLinkMarker
	if order.Link != nil && *order.Link != "" {
		link = fmt.Sprintf("<a href=\"%s\">🔗 Open</a>", html.EscapeString(*order.Link))
	}

	comment := emptyMarker
	if order.Comment != nil && *order.Comment != "" {
		comment = "<i>" + html.EscapeString(*order.Comment) + "</i>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>🏷️ %s</b>\n", html.EscapeString(order.Name))
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "▪️ <b>Date:</b> %s\n", order.Created.In(loc).Format(detailsLayout))
	fmt.Fprintf(&b, "▪️ <b>Platform:</b> %s\n", platform)
	fmt.Fprintf(&b, "▪️ <b>Link:</b> %s\n", link)
	fmt.Fprintf(&b, "▪️ <b>Status:</b> 💳 %s\n", html.EscapeString(order.PaymentStatus))
	fmt.Fprintf(&b, "▪️ <b>Comment:</b> %s", comment)
	return b.String()
}

// DraftReview renders the wizard's review screen
func DraftReview(d conversation.Draft) string {
	link := noLinkMarker
	if d.Link != nil && *d.Link != "" {
		link = html.EscapeString(*d.Link)
	}

	comment := emptyMarker
	if d.Comment != nil && *d.Comment != "" {
		comment = html.EscapeString(*d.Comment)
	}

	status := d.PaymentStatus
	if status == "" {
		status = types.DefaultPaymentStatus
	}

	var b strings.Builder
	b.WriteString("<b>👀 Please check the order before saving:</b>\n")
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "▪️ <b>Name:</b> %s\n", html.EscapeString(d.Name))
	fmt.Fprintf(&b, "▪️ <b>Platform:</b> %s\n", html.EscapeString(d.PlatformName))
	fmt.Fprintf(&b, "▪️ <b>Link:</b> %s\n", link)
	fmt.Fprintf(&b, "▪️ <b>Status:</b> %s\n", html.EscapeString(status))
	fmt.Fprintf(&b, "▪️ <b>Comment:</b> %s", comment)
	return b.String()
}

// PlatformList renders a numbered list of platforms
func PlatformList(platforms []types.Platform) string {
	if len(platforms) == 0 {
		return "<b>Platforms</b>\n\nNo platforms yet."
	}

	var b strings.Builder
	b.WriteString("<b>Platforms</b>\n")
	for i, p := range platforms {
		fmt.Fprintf(&b, "\n%d. %s", i+1, html.EscapeString(p.Name))
	}
	return b.String()
}

// OrderListHeader is the text above the order buttons
func OrderListHeader(page pagination.Page) string {
	if page.Total == 0 {
		return "📋 No orders yet."
	}
	return fmt.Sprintf("📋 <b>Orders</b> (%d total, page %d of %d)", page.Total, page.Number, page.TotalPages)
}

// OrderButton is the label of an order's button in the list
func OrderButton(order types.Order) string {
	return "🏷️ " + order.Name
}

var fieldLabels = map[types.OrderField]string{
	types.FieldName:          "Name",
	types.FieldPlatform:      "Platform",
	types.FieldLink:          "Link",
	types.FieldPaymentStatus: "Payment status",
	types.FieldComment:       "Comment",
}

// FieldLabel is the human name of an editable field
func FieldLabel(field types.OrderField) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}
	return string(field)
}

// AskFieldValue prompts for a new value of field
func AskFieldValue(field types.OrderField) string {
	if field == types.FieldPlatform {
		return "Choose the new platform:"
	}
	return fmt.Sprintf("Send the new value for <b>%s</b>:", strings.ToLower(FieldLabel(field)))
}

// FieldUpdated confirms a committed single-field edit
func FieldUpdated(field types.OrderField, cleared bool) string {
	if cleared {
		return fmt.Sprintf("✅ %s cleared.", FieldLabel(field))
	}
	return fmt.Sprintf("✅ %s updated.", FieldLabel(field))
}

// PlatformExists reports a platform name collision
func PlatformExists(name string) string {
	return fmt.Sprintf("⚠️ A platform named <b>%s</b> already exists. Send another name or /cancel.", html.EscapeString(name))
}

// PlatformAdded confirms a new platform
func PlatformAdded(p *types.Platform) string {
	return fmt.Sprintf("✅ Platform <b>%s</b> added.", html.EscapeString(p.Name))
}

// OrderSaved confirms a saved draft
func OrderSaved(order *types.Order) string {
	return fmt.Sprintf("✅ Order <b>%s</b> saved.", html.EscapeString(order.Name))
}

// DeleteOrderPrompt asks to confirm an order deletion
func DeleteOrderPrompt(order *types.Order) string {
	return fmt.Sprintf("Delete order <b>%s</b>? This cannot be undone.", html.EscapeString(order.Name))
}

// SheetLink points at the report spreadsheet
func SheetLink(url string) string {
	if url == "" {
		return "The report spreadsheet is not configured."
	}
	return fmt.Sprintf("📊 <a href=\"%s\">Open the report spreadsheet</a>", html.EscapeString(url))
}
