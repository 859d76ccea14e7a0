package ios

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"example.com/kakaoad/internal/bridge"
	"example.com/kakaoad/internal/domain"
	"example.com/kakaoad/internal/ingest"
	"example.com/kakaoad/internal/sink/memory"
	"example.com/kakaoad/internal/tracker"
)

const plistBody = `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0">
<dict>
  <key>KAKAO_AD_TRACK_ID</key>
  <string>track-i</string>
</dict>
</plist>`

func writePlist(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "Info.plist")
	if err := os.WriteFile(p, []byte(plistBody), 0o644); err != nil {
		t.Fatalf("write plist: %v", err)
	}
	return p
}

func setup(t *testing.T, opts Options) (*bridge.Module, *memory.Sink) {
	t.Helper()
	mem := memory.New()
	ig := ingest.NewIngestor(mem, 100, 1, 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ig.Start(ctx)

	tr := tracker.New(Name, ig, nil)
	return bridge.NewModule(bridge.NewFacade(New(opts, nil), tr, nil)), mem
}

func activateWithin(t *testing.T, m *bridge.Module, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		m.Activate(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("activate did not complete")
	}
}

func TestActivateCompletesForEveryOutcome(t *testing.T) {
	for _, s := range []AuthorizationStatus{Authorized, Denied, NotDetermined, Restricted, Unknown} {
		t.Run(s.String(), func(t *testing.T) {
			m, _ := setup(t, Options{InfoPlistPath: writePlist(t), Authorizer: StaticAuthorizer(s)})
			activateWithin(t, m, time.Second)
			if !m.Facade().Initialized() {
				t.Errorf("tracker must be activated regardless of %s", s)
			}
		})
	}
}

func TestActivateUnansweredPromptTimesOut(t *testing.T) {
	block := AuthorizerFunc(func(ctx context.Context) AuthorizationStatus {
		<-ctx.Done()
		return Unknown
	})
	m, _ := setup(t, Options{InfoPlistPath: writePlist(t), Authorizer: block, PromptTimeout: 20 * time.Millisecond})
	activateWithin(t, m, time.Second)
	if !m.Facade().Initialized() {
		t.Error("tracker must be activated after prompt timeout")
	}
}

func TestPromptOnlyOnFirstActivation(t *testing.T) {
	var prompts atomic.Int32
	auth := AuthorizerFunc(func(context.Context) AuthorizationStatus {
		prompts.Add(1)
		return Authorized
	})
	m, _ := setup(t, Options{InfoPlistPath: writePlist(t), Authorizer: auth})
	m.Activate(context.Background())
	m.Activate(context.Background())
	if got := prompts.Load(); got != 1 {
		t.Errorf("expected one prompt, got %d", got)
	}
}

func TestPromptSkippedBeforeVersion14(t *testing.T) {
	var prompts atomic.Int32
	auth := AuthorizerFunc(func(context.Context) AuthorizationStatus {
		prompts.Add(1)
		return Authorized
	})
	m, _ := setup(t, Options{InfoPlistPath: writePlist(t), Authorizer: auth, OSMajorVersion: 13})
	m.Activate(context.Background())
	if prompts.Load() != 0 {
		t.Error("prompt must be skipped below iOS 14")
	}
	if !m.Facade().Initialized() {
		t.Error("tracker must still be activated")
	}
}

func TestInAppPurchaseUnsupported(t *testing.T) {
	m, mem := setup(t, Options{InfoPlistPath: writePlist(t), Authorizer: StaticAuthorizer(Authorized)})
	m.Activate(context.Background())

	err := m.Call("sendInAppPurchaseEvent", []any{nil, 1.0, 1.0, nil, []any{}})
	if !errors.Is(err, bridge.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if err := m.Call("sendPurchaseEvent", []any{nil, 1.0, 1000.0, "KRW", []any{}}); err != nil {
		t.Fatalf("purchase should be supported: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	mem.WaitFor(ctx, 1)
	time.Sleep(30 * time.Millisecond)
	got := mem.Events()
	if len(got) != 1 || got[0].Name != domain.Purchase || got[0].TrackID != "track-i" {
		t.Errorf("expected only the purchase event, got %+v", got)
	}
}

func TestMissingPlistIsInert(t *testing.T) {
	m, _ := setup(t, Options{InfoPlistPath: filepath.Join(t.TempDir(), "Info.plist"), Authorizer: StaticAuthorizer(Denied)})
	activateWithin(t, m, time.Second)
	if m.Facade().Initialized() {
		t.Error("no track id: tracker must stay uninitialized")
	}
}

func TestParseAuthorizationStatus(t *testing.T) {
	for _, s := range []AuthorizationStatus{NotDetermined, Restricted, Denied, Authorized, Unknown} {
		got, err := ParseAuthorizationStatus(s.String())
		if err != nil || got != s {
			t.Errorf("round trip %s: got %v err=%v", s, got, err)
		}
	}
	if _, err := ParseAuthorizationStatus("maybe"); err == nil {
		t.Error("expected error for unknown status")
	}
}
