package bot

import (
	"github.com/ksred/order-bot/internal/pagination"
	"github.com/ksred/order-bot/internal/presentation"
	"github.com/ksred/order-bot/internal/types"
)

func button(text, action string, param ...interface{}) Button {
	return Button{Text: text, Data: mustEncode(action, param...)}
}

func row(buttons ...Button) []Button {
	return buttons
}

// column lays buttons out in rows of width
func column(buttons []Button, width int) Keyboard {
	var kb Keyboard
	for len(buttons) > 0 {
		n := width
		if n > len(buttons) {
			n = len(buttons)
		}
		kb = append(kb, buttons[:n])
		buttons = buttons[n:]
	}
	return kb
}

var cancelRow = row(button("❌ Cancel", CbCancel))

func mainMenuKeyboard() Keyboard {
	return Keyboard{
		row(button("📝 Create order", CbCreateOrder)),
		row(button("📋 View orders", CbOrders, 1)),
		row(button("⚙️ Manage platforms", CbPlatforms)),
	}
}

// ordersKeyboard lists one button per order, then the navigation row
func ordersKeyboard(page pagination.Page) Keyboard {
	var kb Keyboard
	for _, o := range page.Orders {
		kb = append(kb, row(button(presentation.OrderButton(o), CbOrder, o.ID)))
	}
	kb = append(kb, navigationRow(page))
	kb = append(kb, row(button("⬅️ Back to menu", CbMainMenu)))
	return kb
}

func navigationRow(page pagination.Page) []Button {
	var nav []Button
	if page.HasPrev() {
		nav = append(nav, button("⬅️", CbOrders, page.Number-1))
	}
	nav = append(nav, button("📄 "+page.Indicator(), CbNoop))
	if page.HasNext() {
		nav = append(nav, button("➡️", CbOrders, page.Number+1))
	}
	return nav
}

func orderDetailsKeyboard(orderID uint) Keyboard {
	return Keyboard{
		row(button("✏️ Edit", CbOrderEdit, orderID), button("🗑️ Delete", CbOrderDelete, orderID)),
		row(button("⬅️ Back to orders", CbOrders, 1)),
	}
}

func deleteConfirmKeyboard(orderID uint) Keyboard {
	return Keyboard{
		row(button("✅ Yes, delete", CbOrderDeleteOK, orderID), button("⬅️ No, back", CbOrder, orderID)),
	}
}

func platformMenuKeyboard() Keyboard {
	return Keyboard{
		row(button("➕ Add platform", CbPlatformAdd), button("➖ Delete platform", CbPlatformDelMenu)),
		row(button("⬅️ Back to menu", CbMainMenu)),
	}
}

// platformPickerKeyboard offers every platform followed by the given trailing row
func platformPickerKeyboard(platforms []types.Platform, last []Button) Keyboard {
	buttons := make([]Button, 0, len(platforms))
	for _, p := range platforms {
		buttons = append(buttons, button(p.Name, CbPlatformPick, p.ID))
	}
	return append(column(buttons, 2), last)
}

func deletePlatformKeyboard(platforms []types.Platform) Keyboard {
	var kb Keyboard
	for _, p := range platforms {
		kb = append(kb, row(button("❌ "+p.Name, CbPlatformDelete, p.ID)))
	}
	return append(kb, row(button("⬅️ Back", CbPlatforms)))
}

func skipKeyboard() Keyboard {
	return Keyboard{row(button("➡️ Skip", CbSkip)), cancelRow}
}

func reviewKeyboard() Keyboard {
	return Keyboard{
		row(button("✅ Save", CbSave)),
		row(button("✏️ Change a field", CbEditDraft)),
		cancelRow,
	}
}

// fieldChooserKeyboard lists editable fields; back returns to the review screen or the order card
func fieldChooserKeyboard(back Button) Keyboard {
	buttons := make([]Button, 0, len(types.EditableFields))
	for _, f := range types.EditableFields {
		buttons = append(buttons, button(presentation.FieldLabel(f), CbField, f))
	}
	return append(column(buttons, 2), row(back))
}

// valueKeyboard accompanies a new-value prompt
func valueKeyboard(field types.OrderField, platforms []types.Platform, back Button) Keyboard {
	if field == types.FieldPlatform {
		return platformPickerKeyboard(platforms, row(back))
	}
	if field == types.FieldName {
		return Keyboard{row(back)}
	}
	return Keyboard{row(button("🗑️ Leave empty", CbLeaveEmpty)), row(back)}
}
