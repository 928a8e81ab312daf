package api

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"target-onchain-shopify-app/internal/application"
	"target-onchain-shopify-app/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// FrameHandler serves the frame admin API and the public scan endpoints
type FrameHandler struct {
	frames *application.FrameService
	logger zerolog.Logger
}

// NewFrameHandler creates a new frame handler
func NewFrameHandler(frames *application.FrameService, logger zerolog.Logger) *FrameHandler {
	return &FrameHandler{frames: frames, logger: logger}
}

// frameForm is the body of POST /app/frames/{id}
type frameForm struct {
	domain.FrameInput
	Action string `json:"action"`
}

// List returns the session shop's frames
func (h *FrameHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := domain.SessionFromContext(r.Context())
		frames, err := h.frames.List(r.Context(), session)
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"frames": frames})
	}
}

// Get returns one frame, or the blank template for "new"
func (h *FrameHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := domain.SessionFromContext(r.Context())
		frame, err := h.frames.Get(r.Context(), session, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
		writeJSON(w, http.StatusOK, frame)
	}
}

// Save creates, updates or deletes a frame depending on the submitted action
func (h *FrameHandler) Save() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		session := domain.SessionFromContext(ctx)
		id := chi.URLParam(r, "id")

		form, err := decodeFrameForm(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		if form.Action == "delete" {
			if err := h.frames.Delete(ctx, session, id); err != nil {
				writeError(w, err, h.logger)
				return
			}
			http.Redirect(w, r, "/app/frames/home", http.StatusSeeOther)
			return
		}

		frame, err := h.frames.Save(ctx, session, id, form.FrameInput)
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/app/frames/%d", frame.ID), http.StatusSeeOther)
	}
}

// Delete removes a frame
func (h *FrameHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := domain.SessionFromContext(r.Context())
		if err := h.frames.Delete(r.Context(), session, chi.URLParam(r, "id")); err != nil {
			writeError(w, err, h.logger)
			return
		}
		http.Redirect(w, r, "/app/frames/home", http.StatusSeeOther)
	}
}

// Scan counts a scan and redirects to the frame's destination
func (h *FrameHandler) Scan() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		destination, err := h.frames.Scan(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
		http.Redirect(w, r, destination, http.StatusFound)
	}
}

// Image serves the frame graphic
func (h *FrameHandler) Image() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svg, err := h.frames.Image(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=300")
		w.Write(svg)
	}
}

func decodeFrameForm(r *http.Request) (*frameForm, error) {
	form := &frameForm{}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(form); err != nil {
			return nil, fmt.Errorf("invalid request body: %w", err)
		}
		return form, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form: %w", err)
	}
	form.Action = r.PostForm.Get("action")
	form.Title = r.PostForm.Get("title")
	form.Image = r.PostForm.Get("image")
	form.Button = r.PostForm.Get("button")
	form.ProductID = r.PostForm.Get("productId")
	form.ProductVariantID = r.PostForm.Get("productVariantId")
	form.ProductHandle = r.PostForm.Get("productHandle")
	form.Destination = r.PostForm.Get("destination")
	return form, nil
}
