package domain

// EventName identifies one of the fixed conversion events the tracker accepts.
type EventName string

const (
	CompleteRegistration EventName = "CompleteRegistration"
	Login                EventName = "Login"
	Search               EventName = "Search"
	ViewContent          EventName = "ViewContent"
	AddToWishList        EventName = "AddToWishList"
	AddToCart            EventName = "AddToCart"
	ViewCart             EventName = "ViewCart"
	Purchase             EventName = "Purchase"
	InAppPurchase        EventName = "InAppPurchase"
	Participation        EventName = "Participation"
	Preparation          EventName = "Preparation"
	SignUp               EventName = "SignUp"
	Tutorial             EventName = "Tutorial"
	MissionComplete      EventName = "MissionComplete"
)

// EventNames lists every supported event in catalog order.
var EventNames = []EventName{
	CompleteRegistration, Login, Search, ViewContent, AddToWishList, AddToCart, ViewCart,
	Purchase, InAppPurchase, Participation, Preparation, SignUp, Tutorial, MissionComplete,
}

// Event is the record handed to the tracker and written to sinks.
// Variant fields are nil for events that do not carry them; when set they are never
// nil-valued strings, so an empty search string still reaches the sink as "".
type Event struct {
	EventID   string    `json:"event_id" msgpack:"event_id"`
	TrackID   string    `json:"track_id" msgpack:"track_id"`
	Platform  string    `json:"platform" msgpack:"platform"`
	Timestamp int64     `json:"timestamp" msgpack:"timestamp"` // epoch millis
	Name      EventName `json:"event" msgpack:"event"`
	Tag       string    `json:"tag" msgpack:"tag"`

	SearchString *string       `json:"search_string,omitempty" msgpack:"search_string,omitempty"`
	ContentID    *string       `json:"content_id,omitempty" msgpack:"content_id,omitempty"`
	Purchase     *PurchaseData `json:"purchase,omitempty" msgpack:"purchase,omitempty"`
}

// LineItem is one product of a purchase.
type LineItem struct {
	ID       string  `json:"id" msgpack:"id"`
	Name     string  `json:"name" msgpack:"name"`
	Quantity int     `json:"quantity" msgpack:"quantity"`
	Price    float64 `json:"price" msgpack:"price"`
}

// PurchaseData is the aggregate carried by Purchase and InAppPurchase events.
type PurchaseData struct {
	TotalQuantity int        `json:"total_quantity" msgpack:"total_quantity"`
	TotalPrice    float64    `json:"total_price" msgpack:"total_price"`
	Currency      string     `json:"currency" msgpack:"currency"`
	Products      []LineItem `json:"products" msgpack:"products"`
}

// DefaultCurrency is used when a purchase names no currency (Korean market).
const DefaultCurrency = "KRW"

// IsPurchase reports whether the event carries a purchase aggregate.
func (n EventName) IsPurchase() bool {
	return n == Purchase || n == InAppPurchase
}

// HasSearchString reports whether the event carries search_string.
func (n EventName) HasSearchString() bool { return n == Search }

// HasContentID reports whether the event carries content_id.
func (n EventName) HasContentID() bool {
	switch n {
	case ViewContent, AddToWishList, AddToCart:
		return true
	}
	return false
}
