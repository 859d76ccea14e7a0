package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"
)

// ErrInvalidCurrency is returned by ResolveCurrency for codes that are not ISO 4217.
var ErrInvalidCurrency = errors.New("invalid ISO 4217 currency code")

// OrEmpty returns *s, or "" when s is nil.
func OrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NewTagged builds an event that carries only a tag.
func NewTagged(name EventName, tag *string) Event {
	return Event{Name: name, Tag: OrEmpty(tag)}
}

// NewSearch builds a Search event.
func NewSearch(tag, searchString *string) Event {
	ev := NewTagged(Search, tag)
	s := OrEmpty(searchString)
	ev.SearchString = &s
	return ev
}

// NewContent builds a ViewContent, AddToWishList or AddToCart event.
func NewContent(name EventName, tag, contentID *string) Event {
	ev := NewTagged(name, tag)
	id := OrEmpty(contentID)
	ev.ContentID = &id
	return ev
}

// NewPurchase builds a Purchase or InAppPurchase event. The currency must already be
// resolved; see ResolveCurrency. Non-finite prices are stored as 0.
func NewPurchase(name EventName, tag *string, totalQuantity int, totalPrice float64, cur string, products []LineItem) Event {
	ev := NewTagged(name, tag)
	items := make([]LineItem, len(products))
	copy(items, products)
	for i := range items {
		items[i].Price = finiteOrZero(items[i].Price)
	}
	totalPrice = finiteOrZero(totalPrice)
	ev.Purchase = &PurchaseData{
		TotalQuantity: totalQuantity,
		TotalPrice:    totalPrice,
		Currency:      cur,
		Products:      items,
	}
	return ev
}

// ResolveCurrency maps an optional caller-supplied code to an ISO 4217 code.
// nil or blank yields DefaultCurrency. An unrecognized code yields DefaultCurrency
// together with ErrInvalidCurrency so callers can log it.
func ResolveCurrency(code *string) (string, error) {
	if code == nil || strings.TrimSpace(*code) == "" {
		return DefaultCurrency, nil
	}
	u, err := currency.ParseISO(strings.TrimSpace(*code))
	if err != nil {
		return DefaultCurrency, fmt.Errorf("%w: %q", ErrInvalidCurrency, *code)
	}
	return u.String(), nil
}

// LineItemFromMap converts a loosely typed product record into a LineItem.
// Fields that are missing or of the wrong type take their zero value.
func LineItemFromMap(m map[string]any) LineItem {
	var li LineItem
	if m == nil {
		return li
	}
	if s, ok := m["id"].(string); ok {
		li.ID = s
	}
	if s, ok := m["name"].(string); ok {
		li.Name = s
	}
	if n, ok := AsFloat(m["quantity"]); ok {
		li.Quantity = TruncInt(n)
	}
	if n, ok := AsFloat(m["price"]); ok {
		li.Price = n
	}
	return li
}

// AsFloat accepts any finite Go numeric value. Strings are not parsed and NaN or
// infinities are rejected, since sinks cannot encode them.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, isFinite(n)
	case float32:
		return float64(n), isFinite(float64(n))
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func finiteOrZero(f float64) float64 {
	if !isFinite(f) {
		return 0
	}
	return f
}

// TruncInt truncates toward zero. NaN becomes 0 and out-of-range values saturate.
func TruncInt(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	}
	return int(math.Trunc(f))
}
