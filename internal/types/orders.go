package types

import (
	"fmt"
	"time"
)

// DefaultPaymentStatus is stored when an order is saved without a payment status.
const DefaultPaymentStatus = "Pending"

// RemovedPlatformName is shown wherever an order's platform no longer resolves.
const RemovedPlatformName = "🗑️ Removed"

// Platform is a marketplace or source an order is associated with.
type Platform struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	Name    string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Created time.Time `gorm:"autoCreateTime" json:"created"`
}

// Order is a tracked purchase. Platform is nil when the referenced platform no longer exists.
type Order struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	PlatformID    uint      `gorm:"not null;index" json:"platform_id"`
	Platform      *Platform `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"platform,omitempty"`
	Link          *string   `gorm:"size:255" json:"link"`
	PaymentStatus string    `gorm:"size:50;not null;default:Pending" json:"payment_status"`
	Comment       *string   `gorm:"size:500" json:"comment"`
	Created       time.Time `gorm:"autoCreateTime" json:"created"`
}

// PlatformName returns the referenced platform's name, or ok=false when it was removed.
func (o *Order) PlatformName() (string, bool) {
	if o.Platform == nil {
		return "", false
	}
	return o.Platform.Name, true
}

// OrderField names a user-editable order field.
type OrderField string

const (
	FieldName          OrderField = "name"
	FieldPlatform      OrderField = "platform"
	FieldLink          OrderField = "link"
	FieldPaymentStatus OrderField = "payment_status"
	FieldComment       OrderField = "comment"
)

// EditableFields is the order in which fields are offered for editing.
var EditableFields = []OrderField{FieldName, FieldPlatform, FieldLink, FieldPaymentStatus, FieldComment}

// ParseOrderField validates a field name coming from a callback payload.
func ParseOrderField(s string) (OrderField, error) {
	for _, f := range EditableFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown order field %q", s)
}

// Optional reports whether the field may be left empty.
func (f OrderField) Optional() bool {
	return f == FieldLink || f == FieldComment
}

// OrderPatch holds the columns an update touches, keyed by column name.
// Absent keys are left untouched; a nil value clears the column.
type OrderPatch map[string]interface{}

func (p OrderPatch) SetName(name string) OrderPatch {
	p["name"] = name
	return p
}

func (p OrderPatch) SetPlatformID(id uint) OrderPatch {
	p["platform_id"] = id
	return p
}

func (p OrderPatch) SetLink(link *string) OrderPatch {
	p["link"] = nullable(link)
	return p
}

// SetPaymentStatus falls back to DefaultPaymentStatus when status is cleared.
func (p OrderPatch) SetPaymentStatus(status *string) OrderPatch {
	if status == nil || *status == "" {
		p["payment_status"] = DefaultPaymentStatus
		return p
	}
	p["payment_status"] = *status
	return p
}

func (p OrderPatch) SetComment(comment *string) OrderPatch {
	p["comment"] = nullable(comment)
	return p
}

// SetText applies a free-text value to one of the text fields.
func (p OrderPatch) SetText(field OrderField, value *string) (OrderPatch, error) {
	switch field {
	case FieldName:
		if value == nil {
			return p.SetName(""), nil
		}
		return p.SetName(*value), nil
	case FieldLink:
		return p.SetLink(value), nil
	case FieldPaymentStatus:
		return p.SetPaymentStatus(value), nil
	case FieldComment:
		return p.SetComment(value), nil
	}
	return p, fmt.Errorf("field %q does not take text", field)
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
