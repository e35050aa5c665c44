package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/brunobiangulo/healthmap"
	"github.com/brunobiangulo/healthmap/entity"
)

type handler struct {
	engine healthmap.Engine
}

func newHandler(e healthmap.Engine) *handler {
	return &handler{engine: e}
}

func newMux(h *handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /api/graph", h.handleGraph)
	mux.HandleFunc("GET /api/entities", h.handleListEntities)
	mux.HandleFunc("GET /api/entities/{slug}", h.handleGetEntity)
	mux.HandleFunc("POST /api/entities", h.handleAddEntity)
	mux.HandleFunc("DELETE /api/entities/{slug}", h.handleDeleteEntity)
	mux.HandleFunc("POST /api/entities/{slug}/refresh", h.handleRefreshEntity)
	mux.HandleFunc("POST /api/infer", h.handleInfer)
	return mux
}

// GET /api/graph
func (h *handler) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, err := h.engine.Graph(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "building graph failed")
		slog.Error("graph error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// GET /api/entities
func (h *handler) handleListEntities(w http.ResponseWriter, r *http.Request) {
	names, err := h.engine.ListEntities(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list entities")
		slog.Error("list entities error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entities": names,
	})
}

// GET /api/entities/{slug}
func (h *handler) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	rec, err := h.engine.GetEntity(r.Context(), slug)
	if err != nil {
		if errors.Is(err, healthmap.ErrEntityNotFound) {
			writeError(w, http.StatusNotFound, "entity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load entity")
		slog.Error("get entity error", "entity", slug, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// POST /api/entities
// Accepts a full entity record. ?force=1 overwrites an existing one;
// without it a duplicate is a conflict.
func (h *handler) handleAddEntity(w http.ResponseWriter, r *http.Request) {
	var rec entity.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(rec.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	force := r.URL.Query().Get("force") == "1"
	if err := h.engine.AddEntity(r.Context(), &rec, force); err != nil {
		if errors.Is(err, healthmap.ErrEntityExists) {
			writeError(w, http.StatusConflict, "entity already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to save entity")
		slog.Error("add entity error", "entity", rec.Name, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "saved",
		"entity": rec.Name,
	})
}

// DELETE /api/entities/{slug}
func (h *handler) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if err := h.engine.DeleteEntity(r.Context(), slug); err != nil {
		if errors.Is(err, healthmap.ErrEntityNotFound) {
			writeError(w, http.StatusNotFound, "entity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "delete failed")
		slog.Error("delete error", "entity", slug, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// POST /api/entities/{slug}/refresh
// Re-runs the research pipeline for a stored entity. ?force=1 discards
// the stored record instead of merging into it.
func (h *handler) handleRefreshEntity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	// Resolve the slug to the stored record first: the pipeline wants
	// the display name, not the file name.
	slug := r.PathValue("slug")
	rec, err := h.engine.GetEntity(ctx, slug)
	if err != nil {
		if errors.Is(err, healthmap.ErrEntityNotFound) {
			writeError(w, http.StatusNotFound, "entity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load entity")
		slog.Error("refresh error", "entity", slug, "error", err)
		return
	}

	var opts []healthmap.ProcessOption
	if r.URL.Query().Get("force") == "1" {
		opts = append(opts, healthmap.WithForce())
	}

	updated, err := h.engine.ProcessEntity(ctx, rec.Name, opts...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "refresh failed")
		slog.Error("refresh error", "entity", rec.Name, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// POST /api/infer
func (h *handler) handleInfer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	changed, err := h.engine.InferRelationships(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "inference failed")
		slog.Error("infer error", "error", err)
		return
	}

	names := make([]string, 0, len(changed))
	for _, rec := range changed {
		names = append(names, rec.Name)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"updated": names,
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
