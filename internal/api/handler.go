// Package api exposes scenes, presets and crosshair queries over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/inamate/crosshair/internal/collect"
	"github.com/inamate/crosshair/internal/crosshair"
	"github.com/inamate/crosshair/internal/geometry"
	"github.com/inamate/crosshair/internal/preset"
	"github.com/inamate/crosshair/internal/scene"
	"github.com/inamate/crosshair/internal/typeid"
)

// SceneSource resolves a live scene by id.
type SceneSource interface {
	Scene(ctx context.Context, sceneID string) (*scene.Scene, error)
}

// StoreSource loads a fresh scene from a store on every call.
type StoreSource struct {
	Store scene.Store
}

func (s StoreSource) Scene(ctx context.Context, sceneID string) (*scene.Scene, error) {
	doc, err := s.Store.Get(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	return scene.New(doc), nil
}

type Handler struct {
	store   scene.Store
	scenes  SceneSource
	presets *preset.Registry

	// OnSaved, when set, receives every document written through PUT,
	// stamped with its new version.
	OnSaved func(doc *scene.Document)
}

func NewHandler(store scene.Store, scenes SceneSource, presets *preset.Registry) *Handler {
	if scenes == nil {
		scenes = StoreSource{Store: store}
	}
	if presets == nil {
		presets = preset.NewRegistry(nil)
	}
	return &Handler{store: store, scenes: scenes, presets: presets}
}

// Routes registers the API on r.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/scenes", h.ListScenes).Methods("GET")
	r.HandleFunc("/scenes", h.CreateScene).Methods("POST")
	r.HandleFunc("/scenes/{sceneId}", h.GetScene).Methods("GET")
	r.HandleFunc("/scenes/{sceneId}", h.PutScene).Methods("PUT")
	r.HandleFunc("/scenes/{sceneId}/collect", h.Collect).Methods("POST")
	r.HandleFunc("/scenes/{sceneId}/region", h.Region).Methods("POST")
	r.HandleFunc("/presets", h.ListPresets).Methods("GET")
	r.HandleFunc("/presets/{name}", h.GetPreset).Methods("GET")
}

type createSceneRequest struct {
	Name   string `json:"name"`
	Sample bool   `json:"sample"`
}

// crosshairRequest describes a crosshair by preset and inline overrides.
type crosshairRequest struct {
	Preset string             `json:"preset,omitempty"`
	Config crosshair.Config   `json:"config"`
	Types  []scene.ObjectType `json:"types,omitempty"`
}

type collectResponse struct {
	State     crosshair.State                     `json:"state"`
	Order     []scene.ObjectType                  `json:"order"`
	Collected map[scene.ObjectType][]scene.Object `json:"collected"`
}

type regionResponse struct {
	State  crosshair.State `json:"state"`
	Bounds geometry.Rect   `json:"bounds"`
	Center geometry.Point  `json:"center"`
}

func (h *Handler) ListScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := h.store.List(r.Context())
	if err != nil {
		slog.Error("list scenes failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, scenes)
}

func (h *Handler) CreateScene(w http.ResponseWriter, r *http.Request) {
	var req createSceneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	id := typeid.NewSceneID()
	doc := scene.NewEmptyDocument(id, req.Name)
	if req.Sample {
		doc = scene.NewSampleDocument(id)
		doc.Name = req.Name
	}
	version, err := h.store.Put(r.Context(), doc)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	doc.Version = version
	writeJSON(w, http.StatusCreated, doc.Summary())
}

func (h *Handler) GetScene(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Get(r.Context(), mux.Vars(r)["sceneId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) PutScene(w http.ResponseWriter, r *http.Request) {
	sceneID := mux.Vars(r)["sceneId"]

	var doc scene.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if doc.ID != "" && doc.ID != sceneID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scene id mismatch"})
		return
	}
	doc.ID = sceneID
	if doc.Grid.Size <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "grid size must be positive"})
		return
	}

	version, err := h.store.Put(r.Context(), &doc)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	doc.Version = version
	if h.OnSaved != nil {
		h.OnSaved(&doc)
	}
	writeJSON(w, http.StatusOK, map[string]int{"version": version})
}

func (h *Handler) Collect(w http.ResponseWriter, r *http.Request) {
	sc, st, req, ok := h.resolveCrosshair(w, r)
	if !ok {
		return
	}
	types := req.Types
	if len(types) == 0 {
		types = []scene.ObjectType{scene.TypeToken}
	}

	res := collect.CollectTypes(sc, st, types, nil)
	out := collectResponse{
		State:     st,
		Order:     res.Keys(),
		Collected: make(map[scene.ObjectType][]scene.Object, res.Len()),
	}
	for _, typ := range res.Keys() {
		out.Collected[typ], _ = res.Get(typ)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Region(w http.ResponseWriter, r *http.Request) {
	sc, st, _, ok := h.resolveCrosshair(w, r)
	if !ok {
		return
	}
	region, err := geometry.BuildRegion(st.Shape, sc.Grid())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, regionResponse{
		State:  st,
		Bounds: region.Bounds(),
		Center: region.Center(),
	})
}

// resolveCrosshair loads the scene named in the path and builds the
// requested crosshair state on its grid.
func (h *Handler) resolveCrosshair(w http.ResponseWriter, r *http.Request) (*scene.Scene, crosshair.State, crosshairRequest, bool) {
	var req crosshairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return nil, crosshair.State{}, req, false
	}

	sc, err := h.scenes.Scene(r.Context(), mux.Vars(r)["sceneId"])
	if err != nil {
		handleServiceError(w, err)
		return nil, crosshair.State{}, req, false
	}

	cfg, err := h.presets.Resolve(req.Preset, req.Config)
	if err != nil {
		handleServiceError(w, err)
		return nil, crosshair.State{}, req, false
	}
	st, err := cfg.State(sc.Grid(), geometry.Point{})
	if err != nil {
		handleServiceError(w, err)
		return nil, crosshair.State{}, req, false
	}
	return sc, st, req, true
}

func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.presets.Names())
}

func (h *Handler) GetPreset(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.presets.Get(mux.Vars(r)["name"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scene.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "scene not found"})
	case errors.Is(err, preset.ErrUnknownPreset):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, geometry.ErrUnsupportedShapeKind), errors.Is(err, crosshair.ErrInvalidConfig):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
