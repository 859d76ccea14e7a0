// Package android is the Android realization of the conversion-event module. The track
// ID comes from the kakao_ad_track_id string resource and every event is supported.
package android

import (
	"context"
	"log/slog"
	"sync"

	"example.com/kakaoad/internal/domain"
	"example.com/kakaoad/internal/trackid"
)

const Name = "android"

type Platform struct {
	resourcePath string
	logger       *slog.Logger

	once    sync.Once
	trackID string
	err     error
}

// New reads the track ID lazily from the strings.xml file at resourcePath.
func New(resourcePath string, logger *slog.Logger) *Platform {
	if logger == nil {
		logger = slog.Default()
	}
	return &Platform{
		resourcePath: resourcePath,
		logger:       logger.With("component", "platform", "platform", Name),
	}
}

func (p *Platform) Name() string { return Name }

func (p *Platform) LoadTrackID(context.Context) (string, error) {
	p.once.Do(func() {
		p.trackID, p.err = trackid.FromStringsXML(p.resourcePath, trackid.ResourceName)
		if p.err == nil && p.trackID == "" {
			p.logger.Info("string resource not found", "name", trackid.ResourceName, "path", p.resourcePath)
		}
	})
	return p.trackID, p.err
}

// BeforeActivate is a no-op; Android has no tracking permission prompt.
func (p *Platform) BeforeActivate(context.Context) {}

func (p *Platform) Supports(domain.EventName) bool { return true }
