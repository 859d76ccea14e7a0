// Package ios is the iOS realization of the conversion-event module. The track ID is
// read from Info.plist when the module is created, activation waits for the app
// tracking prompt, and in-app purchase events are not available.
package ios

import (
	"context"
	"log/slog"
	"time"

	"example.com/kakaoad/internal/domain"
	"example.com/kakaoad/internal/trackid"
)

const Name = "ios"

// PromptMinMajorVersion is the first OS version that shows the tracking prompt.
const PromptMinMajorVersion = 14

type Options struct {
	InfoPlistPath string
	// OSMajorVersion below PromptMinMajorVersion skips the prompt. Zero means current.
	OSMajorVersion int
	Authorizer     Authorizer
	// PromptTimeout bounds the wait for an answer. Zero waits until ctx is done.
	PromptTimeout time.Duration
}

type Platform struct {
	opts    Options
	logger  *slog.Logger
	trackID string
	err     error
}

func New(opts Options, logger *slog.Logger) *Platform {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.OSMajorVersion == 0 {
		opts.OSMajorVersion = PromptMinMajorVersion
	}
	if opts.Authorizer == nil {
		opts.Authorizer = StaticAuthorizer(NotDetermined)
	}
	p := &Platform{opts: opts, logger: logger.With("component", "platform", "platform", Name)}
	p.trackID, p.err = trackid.FromInfoPlist(opts.InfoPlistPath, trackid.InfoPlistKey)
	if p.err != nil {
		p.logger.Warn("info plist unreadable", "path", opts.InfoPlistPath, "err", p.err)
	}
	return p
}

func (p *Platform) Name() string { return Name }

func (p *Platform) LoadTrackID(context.Context) (string, error) { return p.trackID, p.err }

// BeforeActivate asks for tracking authorization. The answer is logged only; a prompt
// that times out counts as not determined.
func (p *Platform) BeforeActivate(ctx context.Context) {
	if p.opts.OSMajorVersion < PromptMinMajorVersion {
		p.logger.Debug("tracking prompt skipped", "os_major", p.opts.OSMajorVersion)
		return
	}
	status := p.requestAuthorization(ctx)
	p.logger.Info("tracking authorization", "status", status.String())
}

func (p *Platform) requestAuthorization(ctx context.Context) AuthorizationStatus {
	if p.opts.PromptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.PromptTimeout)
		defer cancel()
	}
	answer := make(chan AuthorizationStatus, 1)
	go func() { answer <- p.opts.Authorizer.RequestTrackingAuthorization(ctx) }()

	select {
	case s := <-answer:
		return s
	case <-ctx.Done():
		p.logger.Warn("tracking prompt unanswered", "err", ctx.Err())
		return NotDetermined
	}
}

func (p *Platform) Supports(name domain.EventName) bool {
	return name != domain.InAppPurchase
}
