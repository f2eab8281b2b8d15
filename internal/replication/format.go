package replication

import (
	"strconv"
	"time"

	"github.com/ksred/order-bot/internal/types"
)

const timestampLayout = "02.01.2006 15:04:05"

var (
	OrderHeaders    = []interface{}{"Order ID", "Name", "Platform", "Link", "Payment status", "Comment", "Created"}
	PlatformHeaders = []interface{}{"Platform ID", "Name", "Created"}
)

// FormatOrderRow renders an order as a report row with its creation time shown in loc
func FormatOrderRow(order types.Order, loc *time.Location) []interface{} {
	platform, ok := order.PlatformName()
	if !ok {
		platform = types.RemovedPlatformName
	}

	return []interface{}{
		order.ID,
		order.Name,
		platform,
		deref(order.Link),
		order.PaymentStatus,
		deref(order.Comment),
		FormatTimestamp(order.Created, loc),
	}
}

// FormatPlatformRow renders a platform as a report row
func FormatPlatformRow(platform types.Platform, loc *time.Location) []interface{} {
	return []interface{}{platform.ID, platform.Name, FormatTimestamp(platform.Created, loc)}
}

// FormatTimestamp renders t in loc as DD.MM.YYYY HH:MM:SS. Stored timestamps are UTC.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(timestampLayout)
}

func rowKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
