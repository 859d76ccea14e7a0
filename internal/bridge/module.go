package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"example.com/kakaoad/internal/domain"
)

// ModuleName is the name the host uses to look the module up.
const ModuleName = "ExpoKakaoAd"

// ErrUnknownFunction is returned by Call for names the module does not define.
var ErrUnknownFunction = errors.New("unknown module function")

// ArgError reports an argument the host passed that cannot be converted.
type ArgError struct {
	Function string
	domain.FieldError
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("%s: argument %s", e.Function, e.FieldError.Error())
}

// Function converts positional host arguments into a facade call.
type Function func(args []any) error

// Module exposes a Facade under the host-visible function names.
type Module struct {
	facade *Facade
	fns    map[string]Function
}

func NewModule(f *Facade) *Module {
	m := &Module{facade: f, fns: make(map[string]Function)}
	m.define()
	return m
}

func (m *Module) Facade() *Facade { return m.facade }

// Activate is the module's only asynchronous function.
func (m *Module) Activate(ctx context.Context) { m.facade.Activate(ctx) }

// Functions lists the synchronous function names, sorted.
func (m *Module) Functions() []string {
	names := make([]string, 0, len(m.fns))
	for n := range m.fns {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Call invokes a synchronous function by name.
func (m *Module) Call(name string, args []any) error {
	fn, ok := m.fns[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return fn(args)
}

func (m *Module) tagged(send func(tag *string)) Function {
	return func(args []any) error {
		send(optString(args, 0))
		return nil
	}
}

func (m *Module) tagged2(send func(tag, s *string)) Function {
	return func(args []any) error {
		send(optString(args, 0), optString(args, 1))
		return nil
	}
}

func (m *Module) define() {
	f := m.facade
	m.fns["sendCompleteRegistrationEvent"] = m.tagged(f.SendCompleteRegistrationEvent)
	m.fns["sendLoginEvent"] = m.tagged(f.SendLoginEvent)
	m.fns["sendSearchEvent"] = m.tagged2(f.SendSearchEvent)
	m.fns["sendViewContentEvent"] = m.tagged2(f.SendViewContentEvent)
	m.fns["sendAddToWishListEvent"] = m.tagged2(f.SendAddToWishListEvent)
	m.fns["sendAddToCartEvent"] = m.tagged2(f.SendAddToCartEvent)
	m.fns["sendViewCartEvent"] = m.tagged(f.SendViewCartEvent)
	m.fns["sendPurchaseEvent"] = m.purchase("sendPurchaseEvent", domain.Purchase, func(p purchaseArgs) error {
		f.SendPurchaseEvent(p.tag, p.totalQuantity, p.totalPrice, p.currency, p.products)
		return nil
	})
	m.fns["sendInAppPurchaseEvent"] = m.purchase("sendInAppPurchaseEvent", domain.InAppPurchase, func(p purchaseArgs) error {
		return f.SendInAppPurchaseEvent(p.tag, p.totalQuantity, p.totalPrice, p.currency, p.products)
	})
	m.fns["sendParticipationEvent"] = m.tagged(f.SendParticipationEvent)
	m.fns["sendPreparationEvent"] = m.tagged(f.SendPreparationEvent)
	m.fns["sendSignUpEvent"] = m.tagged(f.SendSignUpEvent)
	m.fns["sendTutorialEvent"] = m.tagged(f.SendTutorialEvent)
	m.fns["sendMissionCompleteEvent"] = m.tagged(f.SendMissionCompleteEvent)
}

type purchaseArgs struct {
	tag           *string
	totalQuantity int
	totalPrice    float64
	currency      *string
	products      []domain.LineItem
}

// purchase parses (tag, totalQuantity, totalPrice, currency, products). An event the
// platform does not provide is rejected before any argument is looked at.
func (m *Module) purchase(name string, event domain.EventName, call func(purchaseArgs) error) Function {
	return func(args []any) error {
		if err := m.facade.supported(event); err != nil {
			return err
		}
		qty, ok := domain.AsFloat(argAt(args, 1))
		if !ok {
			return &ArgError{Function: name, FieldError: domain.FieldError{Field: "totalQuantity", Msg: "required finite number"}}
		}
		price, ok := domain.AsFloat(argAt(args, 2))
		if !ok {
			return &ArgError{Function: name, FieldError: domain.FieldError{Field: "totalPrice", Msg: "required finite number"}}
		}
		raw, ok := argAt(args, 4).([]any)
		if !ok {
			return &ArgError{Function: name, FieldError: domain.FieldError{Field: "products", Msg: "required array"}}
		}
		products := make([]domain.LineItem, len(raw))
		for i, r := range raw {
			rec, _ := r.(map[string]any)
			products[i] = domain.LineItemFromMap(rec)
		}
		return call(purchaseArgs{
			tag:           optString(args, 0),
			totalQuantity: domain.TruncInt(qty),
			totalPrice:    price,
			currency:      optString(args, 3),
			products:      products,
		})
	}
}

func argAt(args []any, i int) any {
	if i < 0 || i >= len(args) {
		return nil
	}
	return args[i]
}

// optString treats missing, null and non-string arguments as absent.
func optString(args []any, i int) *string {
	if s, ok := argAt(args, i).(string); ok {
		return &s
	}
	return nil
}
