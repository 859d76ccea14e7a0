package transporthttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"example.com/kakaoad/internal/bridge"
	"example.com/kakaoad/internal/config"
	"example.com/kakaoad/internal/domain"
	"example.com/kakaoad/internal/ingest"
	"example.com/kakaoad/internal/platform/android"
	"example.com/kakaoad/internal/platform/ios"
	"example.com/kakaoad/internal/sink/memory"
	"example.com/kakaoad/internal/tracker"
)

type testServer struct {
	srv *httptest.Server
	mem *memory.Sink
}

func newTestServer(t *testing.T, cfg config.Config, ready func(context.Context) error) *testServer {
	t.Helper()
	dir := t.TempDir()
	stringsPath := filepath.Join(dir, "strings.xml")
	plistPath := filepath.Join(dir, "Info.plist")
	if err := os.WriteFile(stringsPath, []byte(`<resources><string name="kakao_ad_track_id">track-a</string></resources>`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(plistPath, []byte(`<?xml version="1.0"?><plist version="1.0"><dict><key>KAKAO_AD_TRACK_ID</key><string>track-i</string></dict></plist>`), 0o644); err != nil {
		t.Fatal(err)
	}

	mem := memory.New()
	ig := ingest.NewIngestor(mem, 100, 1, 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ig.Start(ctx)

	modules := map[string]*bridge.Module{
		android.Name: bridge.NewModule(bridge.NewFacade(android.New(stringsPath, nil), tracker.New(android.Name, ig, nil), nil)),
		ios.Name: bridge.NewModule(bridge.NewFacade(
			ios.New(ios.Options{InfoPlistPath: plistPath, Authorizer: ios.StaticAuthorizer(ios.Denied)}, nil),
			tracker.New(ios.Name, ig, nil), nil)),
	}
	deps := &ServerDeps{Cfg: cfg, Modules: modules, Ready: ready}
	srv := httptest.NewServer(deps.Router())
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, mem: mem}
}

func (ts *testServer) post(t *testing.T, path, body string, hdr map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

func (ts *testServer) waitEvents(t *testing.T, n int) []domain.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return ts.mem.WaitFor(ctx, n)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil)
	resp, err := http.Get(ts.srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestReadyzReportsSinkFailure(t *testing.T) {
	ts := newTestServer(t, config.Config{}, func(context.Context) error { return errors.New("db down") })
	resp, err := http.Get(ts.srv.URL + "/readyz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestActivateThenPurchase(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil)

	resp := ts.post(t, "/v1/android/activate", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activate: expected 200, got %d", resp.StatusCode)
	}
	if m := decode(t, resp); m["initialized"] != true {
		t.Errorf("expected initialized=true, got %v", m)
	}

	body := `{"args":[null,1,1000.0,"KRW",[{"id":"product_1","name":"Test","quantity":1,"price":1000.0}]]}`
	resp = ts.post(t, "/v1/android/functions/sendPurchaseEvent", body, nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	got := ts.waitEvents(t, 1)
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	ev := got[0]
	if ev.Tag != "" || ev.TrackID != "track-a" || ev.Purchase == nil {
		t.Fatalf("unexpected event: %+v", ev)
	}
	p := ev.Purchase
	if p.TotalQuantity != 1 || p.TotalPrice != 1000.0 || p.Currency != "KRW" {
		t.Errorf("unexpected aggregate: %+v", p)
	}
	if len(p.Products) != 1 || p.Products[0] != (domain.LineItem{ID: "product_1", Name: "Test", Quantity: 1, Price: 1000.0}) {
		t.Errorf("unexpected products: %+v", p.Products)
	}
}

func TestSearchWithoutBody(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil)
	ts.post(t, "/v1/ios/activate", "", nil)

	resp := ts.post(t, "/v1/ios/functions/sendSearchEvent", "", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	got := ts.waitEvents(t, 1)
	if len(got) != 1 || got[0].SearchString == nil || *got[0].SearchString != "" || got[0].Tag != "" {
		t.Errorf("unexpected events: %+v", got)
	}
}

func TestInAppPurchaseOnIOSIs501(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil)
	ts.post(t, "/v1/ios/activate", "", nil)

	resp := ts.post(t, "/v1/ios/functions/sendInAppPurchaseEvent", `{"args":[null,1,1,null,[]]}`, nil)
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("expected problem json, got %q", ct)
	}

	resp = ts.post(t, "/v1/ios/functions/sendInAppPurchaseEvent", `{"args":[null,"one"]}`, nil)
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("malformed args: expected 501, got %d", resp.StatusCode)
	}
}

func TestArgumentErrorIs400(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil)
	resp := ts.post(t, "/v1/android/functions/sendPurchaseEvent", `{"args":[null,"one"]}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	m := decode(t, resp)
	errs, _ := m["errors"].(map[string]any)
	if _, ok := errs["totalQuantity"]; !ok {
		t.Errorf("expected totalQuantity error, got %v", m)
	}
}

func TestUnknownFunctionAndPlatform(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil)
	if resp := ts.post(t, "/v1/android/functions/sendNothing", `{"args":[]}`, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown function: expected 404, got %d", resp.StatusCode)
	}
	if resp := ts.post(t, "/v1/web/functions/sendLoginEvent", `{"args":[]}`, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown platform: expected 404, got %d", resp.StatusCode)
	}
}

func TestInvalidJSON(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil)
	if resp := ts.post(t, "/v1/android/functions/sendLoginEvent", `{"argz":[]}`, nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown field, got %d", resp.StatusCode)
	}
}

func TestRequireJSONContentType(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil)
	resp := ts.post(t, "/v1/android/functions/sendLoginEvent", `{"args":[]}`, map[string]string{"Content-Type": "text/plain"})
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", resp.StatusCode)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := config.Config{APIKeys: map[string]struct{}{"secret": {}}}
	ts := newTestServer(t, cfg, nil)
	if resp := ts.post(t, "/v1/android/activate", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", resp.StatusCode)
	}
	if resp := ts.post(t, "/v1/android/activate", "", map[string]string{"X-API-Key": "secret"}); resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with key, got %d", resp.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, config.Config{RateLimitCallsPerMin: 1}, nil)
	if resp := ts.post(t, "/v1/android/functions/sendLoginEvent", `{"args":[]}`, nil); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first call: expected 202, got %d", resp.StatusCode)
	}
	resp := ts.post(t, "/v1/android/functions/sendLoginEvent", `{"args":[]}`, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second call: expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestListModules(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil)
	resp, err := http.Get(ts.srv.URL + "/v1/modules")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	m := decode(t, resp)
	mods, _ := m["modules"].([]any)
	if len(mods) != 2 {
		t.Fatalf("expected 2 modules, got %v", m)
	}
	first := mods[0].(map[string]any)
	if first["platform"] != "android" || first["name"] != bridge.ModuleName {
		t.Errorf("unexpected first module: %v", first)
	}
}
