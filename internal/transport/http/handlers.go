package transporthttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"example.com/kakaoad/internal/bridge"
	"example.com/kakaoad/internal/config"
)

type ServerDeps struct {
	Cfg config.Config
	// Modules maps a platform name ("android", "ios") to its module.
	Modules map[string]*bridge.Module
	// Ready reports sink readiness; nil means always ready.
	Ready  func(ctx context.Context) error
	Now    func() time.Time
	Logger *slog.Logger
}

func (d *ServerDeps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

type callReq struct {
	Args []any `json:"args"`
}

// decodeJSONStrict decodes v from the body; an empty body leaves v untouched.
func decodeJSONStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// --- Health ---

func (d *ServerDeps) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (d *ServerDeps) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if d.Ready != nil {
		if err := d.Ready(r.Context()); err != nil {
			d.logger().Warn("readiness check failed", "err", err)
			WriteProblem(w, http.StatusServiceUnavailable, "not ready", "sink not reachable", nil)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// --- Module ---

func (d *ServerDeps) module(w http.ResponseWriter, r *http.Request) (*bridge.Module, bool) {
	platform := chi.URLParam(r, "platform")
	m, ok := d.Modules[platform]
	if !ok {
		WriteProblem(w, http.StatusNotFound, "unknown platform", "no module for platform "+platform, nil)
		return nil, false
	}
	return m, true
}

type moduleInfo struct {
	Name        string   `json:"name"`
	Platform    string   `json:"platform"`
	Initialized bool     `json:"initialized"`
	Functions   []string `json:"functions"`
}

func (d *ServerDeps) HandleListModules(w http.ResponseWriter, r *http.Request) {
	out := make([]moduleInfo, 0, len(d.Modules))
	for platform, m := range d.Modules {
		out = append(out, moduleInfo{
			Name:        bridge.ModuleName,
			Platform:    platform,
			Initialized: m.Facade().Initialized(),
			Functions:   m.Functions(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	writeJSON(w, http.StatusOK, map[string]any{"modules": out})
}

func (d *ServerDeps) HandleActivate(w http.ResponseWriter, r *http.Request) {
	defer DrainBody(r)
	m, ok := d.module(w, r)
	if !ok {
		return
	}
	m.Activate(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "activated",
		"initialized": m.Facade().Initialized(),
	})
}

func (d *ServerDeps) HandleCall(w http.ResponseWriter, r *http.Request) {
	defer DrainBody(r)
	m, ok := d.module(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")

	var req callReq
	if err := decodeJSONStrict(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid json", err.Error(), nil)
		return
	}

	err := m.Call(name, req.Args)
	var argErr *bridge.ArgError
	switch {
	case err == nil:
	case errors.As(err, &argErr):
		WriteProblem(w, http.StatusBadRequest, "invalid arguments", argErr.Error(),
			map[string][]string{argErr.Field: {argErr.Msg}})
		return
	case errors.Is(err, bridge.ErrUnknownFunction):
		WriteProblem(w, http.StatusNotFound, "unknown function", err.Error(), nil)
		return
	case errors.Is(err, bridge.ErrUnsupported):
		WriteProblem(w, http.StatusNotImplemented, "unsupported operation", name+" is not available on "+m.Facade().Platform(), nil)
		return
	default:
		d.logger().Error("module call failed", "function", name, "err", err)
		WriteProblem(w, http.StatusInternalServerError, "call failed", err.Error(), nil)
		return
	}

	d.logger().Debug("module call", "platform", m.Facade().Platform(), "function", name, "args", len(req.Args))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// --- Serve OpenAPI (convenience) ---

func (d *ServerDeps) HandleOpenAPI(w http.ResponseWriter, r *http.Request) {
	wd, _ := os.Getwd()
	p := filepath.Join(wd, "api", "openapi.yaml")
	http.ServeFile(w, r, p)
}

// --- Router ---

func (d *ServerDeps) Router() http.Handler {
	now := d.Now
	if now == nil {
		now = time.Now
	}

	r := chi.NewRouter()
	r.Get("/healthz", d.HandleHealthz)
	r.Get("/readyz", d.HandleReadyz)
	r.Get("/openapi.yaml", d.HandleOpenAPI)

	r.Route("/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(d.Cfg.APIKeys))
		r.Get("/modules", d.HandleListModules)

		r.Group(func(r chi.Router) {
			r.Use(BodyLimit(d.Cfg.MaxBodyBytes), RequireJSON)
			r.Post("/{platform}/activate", d.HandleActivate)
			r.With(RateLimitPerMinute(d.Cfg.RateLimitCallsPerMin, now)).
				Post("/{platform}/functions/{name}", d.HandleCall)
		})
	})
	return r
}
