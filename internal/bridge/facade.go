// Package bridge implements the conversion-event module shared by every platform:
// argument defaults, record construction and activation. Platform packages only
// decide where the track ID lives and what happens before activation.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"example.com/kakaoad/internal/domain"
	"example.com/kakaoad/internal/tracker"
)

// ErrUnsupported is returned for events the platform does not provide.
var ErrUnsupported = errors.New("operation not supported on this platform")

// Platform captures what differs between native realizations.
type Platform interface {
	Name() string
	// LoadTrackID returns the configured track ID, or "" when none is configured.
	LoadTrackID(ctx context.Context) (string, error)
	// BeforeActivate runs once per activation attempt and must return even when the
	// host never answers.
	BeforeActivate(ctx context.Context)
	Supports(name domain.EventName) bool
}

// Sender is the tracker surface the facade needs.
type Sender interface {
	IsInitialized() bool
	Init(trackID string) bool
	Send(ev domain.Event)
}

var _ Sender = (*tracker.Tracker)(nil)

type Facade struct {
	platform Platform
	sender   Sender
	logger   *slog.Logger

	activateMu sync.Mutex
}

func NewFacade(p Platform, s Sender, logger *slog.Logger) *Facade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Facade{
		platform: p,
		sender:   s,
		logger:   logger.With("component", "bridge", "platform", p.Name()),
	}
}

func (f *Facade) Platform() string { return f.platform.Name() }

// Initialized reports whether a track ID was bound by a previous Activate.
func (f *Facade) Initialized() bool { return f.sender.IsInitialized() }

// Activate initializes the tracker once. A missing track ID leaves the tracker
// uninitialized so that later sends are dropped silently. It never fails.
func (f *Facade) Activate(ctx context.Context) {
	f.activateMu.Lock()
	defer f.activateMu.Unlock()

	if f.sender.IsInitialized() {
		f.logger.Debug("already activated")
		return
	}

	f.platform.BeforeActivate(ctx)

	trackID, err := f.platform.LoadTrackID(ctx)
	if err != nil {
		f.logger.Warn("track id unavailable", "err", err)
		return
	}
	if trackID == "" {
		f.logger.Info("no track id configured, events will not be collected")
		return
	}
	f.sender.Init(trackID)
}

// supported returns ErrUnsupported for events the platform does not provide.
func (f *Facade) supported(name domain.EventName) error {
	if !f.platform.Supports(name) {
		f.logger.Warn("unsupported event", "event", name)
		return ErrUnsupported
	}
	return nil
}

func (f *Facade) send(ev domain.Event) error {
	if err := f.supported(ev.Name); err != nil {
		return err
	}
	f.sender.Send(ev)
	return nil
}

func (f *Facade) sendTagged(name domain.EventName, tag *string) {
	_ = f.send(domain.NewTagged(name, tag))
}

func (f *Facade) SendCompleteRegistrationEvent(tag *string) {
	f.sendTagged(domain.CompleteRegistration, tag)
}

func (f *Facade) SendLoginEvent(tag *string) { f.sendTagged(domain.Login, tag) }

func (f *Facade) SendSearchEvent(tag, searchString *string) {
	_ = f.send(domain.NewSearch(tag, searchString))
}

func (f *Facade) SendViewContentEvent(tag, contentID *string) {
	_ = f.send(domain.NewContent(domain.ViewContent, tag, contentID))
}

func (f *Facade) SendAddToWishListEvent(tag, contentID *string) {
	_ = f.send(domain.NewContent(domain.AddToWishList, tag, contentID))
}

func (f *Facade) SendAddToCartEvent(tag, contentID *string) {
	_ = f.send(domain.NewContent(domain.AddToCart, tag, contentID))
}

func (f *Facade) SendViewCartEvent(tag *string) { f.sendTagged(domain.ViewCart, tag) }

func (f *Facade) SendPurchaseEvent(tag *string, totalQuantity int, totalPrice float64, currency *string, products []domain.LineItem) {
	_ = f.sendPurchase(domain.Purchase, tag, totalQuantity, totalPrice, currency, products)
}

// SendInAppPurchaseEvent returns ErrUnsupported on platforms without in-app purchase
// tracking; nothing is sent in that case.
func (f *Facade) SendInAppPurchaseEvent(tag *string, totalQuantity int, totalPrice float64, currency *string, products []domain.LineItem) error {
	return f.sendPurchase(domain.InAppPurchase, tag, totalQuantity, totalPrice, currency, products)
}

func (f *Facade) sendPurchase(name domain.EventName, tag *string, totalQuantity int, totalPrice float64, currency *string, products []domain.LineItem) error {
	if err := f.supported(name); err != nil {
		return err
	}
	cur, err := domain.ResolveCurrency(currency)
	if err != nil {
		f.logger.Warn("falling back to default currency", "err", err, "currency", cur)
	}
	return f.send(domain.NewPurchase(name, tag, totalQuantity, totalPrice, cur, products))
}

// SendParticipationEvent records a lead. Recommended tags: PreBooking, Consulting,
// DrivingTest, LoanLimitCheck, InsuranceCheck.
func (f *Facade) SendParticipationEvent(tag *string) { f.sendTagged(domain.Participation, tag) }

func (f *Facade) SendPreparationEvent(tag *string) { f.sendTagged(domain.Preparation, tag) }

// SendSignUpEvent records a sign-up or enrollment. Recommended tags: SignUp,
// Subscription, CardIssuance, OpeningAccount, LoanApplication.
func (f *Facade) SendSignUpEvent(tag *string) { f.sendTagged(domain.SignUp, tag) }

func (f *Facade) SendTutorialEvent(tag *string) { f.sendTagged(domain.Tutorial, tag) }

func (f *Facade) SendMissionCompleteEvent(tag *string) {
	f.sendTagged(domain.MissionComplete, tag)
}
