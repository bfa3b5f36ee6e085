package api

import (
	"bytes"
	"errors"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/turtlealbum/internal/blob"
	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/importer"
	"github.com/erazemk/turtlealbum/internal/metrics"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ImportHandler handles batch import of breeders from Excel plus an image ZIP.
type ImportHandler struct {
	DB      *db.DB
	Blobs   blob.Store
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Limits  importer.Limits
}

// Import handles POST /api/products/batch-import.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.Limits.MaxBytes+maxUploadBytes)
	if err := r.ParseMultipartForm(maxMemoryBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	excel, excelHeader, err := r.FormFile("file")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "excel file required")
		return
	}
	defer excel.Close()
	if !strings.EqualFold(path.Ext(excelHeader.Filename), ".xlsx") {
		jsonError(w, http.StatusBadRequest, "only .xlsx files are supported")
		return
	}

	var archive *importer.Archive
	if zipFile, zipHeader, err := r.FormFile("images"); err == nil {
		defer zipFile.Close()
		if !strings.EqualFold(path.Ext(zipHeader.Filename), ".zip") {
			jsonError(w, http.StatusBadRequest, "images must be a .zip file")
			return
		}
		archive, err = importer.OpenArchive(zipFile, zipHeader.Size, h.Limits)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		jsonError(w, http.StatusBadRequest, "invalid images upload")
		return
	}

	im := &importer.Importer{DB: h.DB, Blobs: h.Blobs, Logger: h.Logger}
	res, err := im.Run(r.Context(), excel, archive)
	if err != nil {
		if errors.Is(err, importer.ErrMissingColumns) {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		if r.Context().Err() != nil {
			h.Logger.Warn("import cancelled", zap.Error(err))
			return
		}
		jsonError(w, http.StatusBadRequest, "invalid excel file: "+err.Error())
		return
	}

	h.Metrics.ImportFinished(res.Imported, res.Failed)
	h.Logger.Info("batch import",
		zap.String("user", GetClaims(r.Context()).Username),
		zap.Int("total", res.Total), zap.Int("imported", res.Imported), zap.Int("failed", res.Failed))
	jsonResponse(w, http.StatusOK, res)
}

// Template handles GET /api/products/batch-import/template.
func (h *ImportHandler) Template(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := importer.WriteTemplate(&buf); err != nil {
		h.Logger.Error("writing import template", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to build template")
		return
	}

	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", `attachment; filename="breeder_import_template.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
