package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/erazemk/turtlealbum/internal/blob"
	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/imaging"
	"github.com/erazemk/turtlealbum/internal/media"
	"github.com/erazemk/turtlealbum/internal/metrics"
	"github.com/erazemk/turtlealbum/internal/model"
	"github.com/erazemk/turtlealbum/internal/store"
)

// Upload limits.
const (
	maxUploadBytes = 64 << 20
	maxMemoryBytes = 32 << 20
)

// ImagesHandler handles breeder images and serves stored blobs.
type ImagesHandler struct {
	DB      *db.DB
	Blobs   blob.Store
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Upload handles POST /api/products/{id}/images. All files are processed and
// stored before any row is written; a bad file fails the whole request.
func (h *ImagesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	b, err := store.GetBreeder(ctx, h.DB, chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, h.Logger, err, "failed to get product")
		return
	}
	if b == nil {
		jsonError(w, http.StatusNotFound, "product not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxMemoryBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		jsonError(w, http.StatusBadRequest, "no images provided")
		return
	}
	typ := r.FormValue("type")
	if typ != "" && typ != model.ImageTypeMain && typ != model.ImageTypeGallery {
		jsonError(w, http.StatusBadRequest, "type must be main or gallery")
		return
	}

	var saved []*media.Stored
	var keys []string
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			media.Discard(ctx, h.Blobs, keys)
			jsonError(w, http.StatusBadRequest, "failed to read "+fh.Filename)
			return
		}
		s, err := media.Save(ctx, h.Blobs, b.Code, fh.Filename, f)
		f.Close()
		if err != nil {
			media.Discard(ctx, h.Blobs, keys)
			switch {
			case errors.Is(err, imaging.ErrUnsupported):
				jsonError(w, http.StatusBadRequest, fmt.Sprintf("%s: image must be JPEG, PNG or WebP", fh.Filename))
				return
			case errors.Is(err, imaging.ErrTooLarge):
				jsonError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", fh.Filename, err))
				return
			}
			h.Logger.Error("storing image", zap.String("file", fh.Filename), zap.Error(err))
			jsonError(w, http.StatusBadRequest, fmt.Sprintf("%s: failed to process image", fh.Filename))
			return
		}
		saved = append(saved, s)
		keys = append(keys, s.Keys...)
	}

	var created []model.Image
	err = h.DB.InTx(ctx, func(tx *db.Tx) error {
		created = created[:0]
		for i, s := range saved {
			in := store.NewImage{
				URL:      s.URL,
				Alt:      fmt.Sprintf("%s - %s", b.Code, files[i].Filename),
				Variants: s.Variants,
			}
			if i == 0 {
				in.Type = typ
			} else if typ != "" {
				in.Type = model.ImageTypeGallery
			}
			img, err := store.AddImageTx(ctx, tx, b.ID, in)
			if err != nil {
				return err
			}
			created = append(created, *img)
		}
		return nil
	})
	if err != nil {
		media.Discard(ctx, h.Blobs, keys)
		storeError(w, h.Logger, err, "failed to save images")
		return
	}

	h.Metrics.ImagesUploaded(len(created))
	h.Logger.Info("images uploaded",
		zap.String("user", GetClaims(ctx).Username), zap.String("code", b.Code), zap.Int("count", len(created)))
	jsonResponse(w, http.StatusCreated, map[string]any{"images": created})
}

// Delete handles DELETE /api/products/{id}/images/{imageId}.
func (h *ImagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	img, err := store.DeleteImage(ctx, h.DB, chi.URLParam(r, "id"), chi.URLParam(r, "imageId"))
	if err != nil {
		storeError(w, h.Logger, err, "image")
		return
	}
	if err := media.Remove(ctx, h.Blobs, *img); err != nil {
		h.Logger.Warn("removing image blobs", zap.String("image_id", img.ID), zap.Error(err))
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image deleted"})
}

// SetMain handles PUT /api/products/{id}/images/{imageId}/set-main.
func (h *ImagesHandler) SetMain(w http.ResponseWriter, r *http.Request) {
	if err := store.SetMainImage(r.Context(), h.DB, chi.URLParam(r, "id"), chi.URLParam(r, "imageId")); err != nil {
		storeError(w, h.Logger, err, "image")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "main image updated"})
}

// Reorder handles PUT /api/products/{id}/images/reorder.
func (h *ImagesHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var order []model.ImageOrder
	if err := decodeJSON(r, &order); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(order) == 0 {
		jsonError(w, http.StatusBadRequest, "no images to reorder")
		return
	}

	id := chi.URLParam(r, "id")
	if err := store.ReorderImages(r.Context(), h.DB, id, order); err != nil {
		storeError(w, h.Logger, err, "image")
		return
	}
	images, err := store.ListImages(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, h.Logger, err, "failed to list images")
		return
	}
	jsonResponse(w, http.StatusOK, images)
}

// ServeBlob handles GET /images/*.
func (h *ImagesHandler) ServeBlob(w http.ResponseWriter, r *http.Request) {
	rest := chi.URLParam(r, "*")
	if rest == "" || strings.Contains(rest, "..") || strings.Contains(rest, "\\") {
		jsonError(w, http.StatusBadRequest, "invalid image path")
		return
	}
	h.serve(w, r, strings.TrimPrefix(media.URLPrefix, "/")+rest)
}

// ServeFile handles GET /api/images/{filename}, which serves a top-level
// blob such as a logo or QR code.
func (h *ImagesHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		jsonError(w, http.StatusBadRequest, "invalid filename")
		return
	}
	h.serve(w, r, name)
}

func (h *ImagesHandler) serve(w http.ResponseWriter, r *http.Request, key string) {
	info, rc, err := h.Blobs.Get(r.Context(), key)
	if errors.Is(err, blob.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "image not found")
		return
	}
	if err != nil {
		h.Logger.Error("reading blob", zap.String("key", key), zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to read image")
		return
	}
	defer rc.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if !info.LastModified.IsZero() {
		w.Header().Set("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
	}
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.Logger.Debug("writing blob", zap.String("key", key), zap.Error(err))
	}
}
