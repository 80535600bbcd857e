package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-media/pkg/mediastore"
)

const maxUploadBytes = 100 << 20 // 100 MiB

// MediaHandler handles HTTP requests for media using pkg/mediastore
type MediaHandler struct {
	service mediastore.Service
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(service mediastore.Service) *MediaHandler {
	return &MediaHandler{service: service}
}

// Routes returns the routes for media and avatars
func (h *MediaHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(WithRequestAuth)

	r.Route("/media/{entityID}", func(r chi.Router) {
		r.Post("/", h.UploadMedia)
		r.Route("/{mediaID}", func(r chi.Router) {
			r.Get("/", h.DownloadMedia)
			r.Get("/metadata", h.GetMedia)
			r.Put("/", h.UpdateMedia)
			r.Delete("/", h.DeleteMedia)
		})
	})

	r.Route("/{entityID}/avatar", func(r chi.Router) {
		r.Get("/", h.GetAvatar)
		r.Post("/", h.SetAvatar)
	})

	return r
}

// ErrResponse is the JSON error body
type ErrResponse struct {
	Error string `json:"error"`
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, mediastore.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, mediastore.ErrAuthUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, mediastore.ErrMediaNotFound), errors.Is(err, mediastore.ErrAvatarNotFound):
		status = http.StatusNotFound
	case errors.Is(err, mediastore.ErrMediaExists):
		status = http.StatusConflict
	case errors.Is(err, mediastore.ErrCorruptMedia), errors.Is(err, mediastore.ErrInvalidID):
		status = http.StatusBadRequest
	}

	render.Status(r, status)
	render.JSON(w, r, ErrResponse{Error: err.Error()})
}

// uploadForm reads the multipart upload: the "file" part plus optional
// "id", "title" and "description" fields.
type uploadForm struct {
	mediaID     string
	fileName    string
	title       string
	description string
	file        io.ReadCloser
}

func parseUploadForm(r *http.Request, requireFile bool) (*uploadForm, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, err
	}

	form := &uploadForm{
		mediaID:     r.FormValue("id"),
		title:       r.FormValue("title"),
		description: r.FormValue("description"),
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if requireFile {
			return nil, err
		}
	} else {
		form.file = file
		form.fileName = header.Filename
	}

	return form, nil
}

// UploadMedia creates a new media object for the entity
func (h *MediaHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	form, err := parseUploadForm(r, true)
	if err != nil {
		slog.Error("Invalid upload form", "entity_id", entityID, "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrResponse{Error: "file part is required"})
		return
	}
	defer form.file.Close()

	result, err := h.service.UploadMedia(r.Context(), mediastore.UploadMediaRequest{
		Auth:        AuthFromContext(r.Context()),
		EntityID:    entityID,
		MediaID:     form.mediaID,
		FileName:    form.fileName,
		Title:       form.title,
		Description: form.description,
		Content:     form.file,
	})
	if err != nil {
		slog.Error("Failed to upload media", "entity_id", entityID, "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Media uploaded", "entity_id", entityID, "media_id", result.Media.ID, "degraded", result.Degraded)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// GetMedia returns the media record
func (h *MediaHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	mediaID := chi.URLParam(r, "mediaID")

	media, err := h.service.GetMedia(r.Context(), entityID, mediaID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, media)
}

// DownloadMedia streams the media bytes
func (h *MediaHandler) DownloadMedia(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	mediaID := chi.URLParam(r, "mediaID")

	rc, media, err := h.service.DownloadMedia(r.Context(), entityID, mediaID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", media.MimeType)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("Failed to stream media", "entity_id", entityID, "media_id", mediaID, "error", err)
	}
}

// UpdateMedia patches the record and optionally replaces the content
func (h *MediaHandler) UpdateMedia(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	mediaID := chi.URLParam(r, "mediaID")

	form, err := parseUploadForm(r, false)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrResponse{Error: err.Error()})
		return
	}

	req := mediastore.UpdateMediaRequest{
		Auth:     AuthFromContext(r.Context()),
		EntityID: entityID,
		MediaID:  mediaID,
		FileName: form.fileName,
	}
	if _, ok := r.MultipartForm.Value["title"]; ok {
		req.Title = &form.title
	}
	if _, ok := r.MultipartForm.Value["description"]; ok {
		req.Description = &form.description
	}
	if form.file != nil {
		defer form.file.Close()
		req.Content = form.file
	}

	result, err := h.service.UpdateMedia(r.Context(), req)
	if err != nil {
		slog.Error("Failed to update media", "entity_id", entityID, "media_id", mediaID, "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Media updated", "entity_id", entityID, "media_id", mediaID, "degraded", result.Degraded)
	render.JSON(w, r, result)
}

// DeleteMedia removes the media object
func (h *MediaHandler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	mediaID := chi.URLParam(r, "mediaID")

	result, err := h.service.DeleteMedia(r.Context(), mediastore.DeleteMediaRequest{
		Auth:     AuthFromContext(r.Context()),
		EntityID: entityID,
		MediaID:  mediaID,
	})
	if err != nil {
		slog.Error("Failed to delete media", "entity_id", entityID, "media_id", mediaID, "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Media deleted", "entity_id", entityID, "media_id", mediaID, "degraded", result.Degraded)
	render.JSON(w, r, result)
}

// GetAvatar returns the entity's current avatar record
func (h *MediaHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	media, err := h.service.GetAvatar(r.Context(), entityID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, media)
}

// SetAvatar uploads a new avatar for the entity, superseding any prior one.
// A form without a file part patches the current avatar's metadata instead.
func (h *MediaHandler) SetAvatar(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	form, err := parseUploadForm(r, false)
	if err != nil {
		slog.Error("Invalid avatar form", "entity_id", entityID, "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrResponse{Error: err.Error()})
		return
	}
	if form.file == nil {
		h.updateAvatarMetadata(w, r, entityID, form)
		return
	}
	defer form.file.Close()

	result, err := h.service.SetAvatar(r.Context(), mediastore.SetAvatarRequest{
		Auth:        AuthFromContext(r.Context()),
		EntityID:    entityID,
		MediaID:     form.mediaID,
		FileName:    form.fileName,
		Title:       form.title,
		Description: form.description,
		Content:     form.file,
	})
	if err != nil {
		slog.Error("Failed to set avatar", "entity_id", entityID, "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Avatar set", "entity_id", entityID, "media_id", result.Media.ID, "degraded", result.Degraded)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// updateAvatarMetadata patches the current avatar's title and description.
func (h *MediaHandler) updateAvatarMetadata(w http.ResponseWriter, r *http.Request, entityID string, form *uploadForm) {
	avatar, err := h.service.GetAvatar(r.Context(), entityID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	req := mediastore.UpdateMediaRequest{
		Auth:     AuthFromContext(r.Context()),
		EntityID: entityID,
		MediaID:  avatar.ID,
	}
	if _, ok := r.MultipartForm.Value["title"]; ok {
		req.Title = &form.title
	}
	if _, ok := r.MultipartForm.Value["description"]; ok {
		req.Description = &form.description
	}

	result, err := h.service.UpdateMedia(r.Context(), req)
	if err != nil {
		slog.Error("Failed to update avatar metadata", "entity_id", entityID, "media_id", avatar.ID, "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Avatar metadata updated", "entity_id", entityID, "media_id", avatar.ID, "degraded", result.Degraded)
	render.JSON(w, r, result)
}
