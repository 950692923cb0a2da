package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/akave-ai/consultlog/internal/csvcodec"
	"github.com/akave-ai/consultlog/internal/report"
	"github.com/akave-ai/consultlog/internal/response"
	"github.com/akave-ai/consultlog/internal/storage"
	"github.com/akave-ai/consultlog/internal/store"
)

// SubmissionReader is the read side of the submissions store.
type SubmissionReader interface {
	ReadAll(ctx context.Context) (csvcodec.Document, error)
	Raw(ctx context.Context) ([]byte, error)
}

// AdminHandler serves the password-protected viewer, export and archive
// endpoints. Authentication happens in middleware before these run.
type AdminHandler struct {
	Reader   SubmissionReader
	Archiver *storage.Archiver
	Logger   zerolog.Logger
	// BasePath is where the admin routes are mounted ("/admin" or "" on the
	// dedicated admin listener).
	BasePath string
	Now      func() time.Time
}

func (h *AdminHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Dashboard renders the HTML report (GET /admin).
func (h *AdminHandler) Dashboard(c echo.Context) error {
	doc, err := h.Reader.ReadAll(c.Request().Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("read submissions")
		return c.String(http.StatusInternalServerError, "Failed to read submissions")
	}
	var buf bytes.Buffer
	if len(doc.Headers) == 0 {
		err = report.RenderEmpty(&buf)
	} else {
		err = report.Render(&buf, report.Build(doc), strings.TrimSuffix(h.BasePath, "/")+"/download")
	}
	if err != nil {
		h.Logger.Error().Err(err).Msg("render dashboard")
		return c.String(http.StatusInternalServerError, "Failed to render dashboard")
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// Records returns the decoded records and summary as JSON (GET /admin/records).
func (h *AdminHandler) Records(c echo.Context) error {
	doc, err := h.Reader.ReadAll(c.Request().Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("read submissions")
		return response.InternalError(c, "read submissions failed", err.Error())
	}
	return response.OK(c, report.Build(doc), "")
}

// Download sends the raw CSV as an attachment (GET /admin/download).
func (h *AdminHandler) Download(c echo.Context) error {
	raw, err := h.Reader.Raw(c.Request().Context())
	if errors.Is(err, store.ErrNotFound) {
		return c.String(http.StatusNotFound, "No submissions found")
	}
	if err != nil {
		h.Logger.Error().Err(err).Msg("read submissions file")
		return c.String(http.StatusInternalServerError, "Failed to read submissions")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+DownloadFilename(h.now())+`"`)
	return c.Blob(http.StatusOK, "text/csv", raw)
}

// DownloadFilename names an export taken at t.
func DownloadFilename(t time.Time) string {
	return "consultations-" + t.UTC().Format("2006-01-02") + ".csv"
}

// Archive uploads a snapshot of the file to O3 (POST /admin/archive).
func (h *AdminHandler) Archive(c echo.Context) error {
	info, err := h.Archiver.Snapshot(c.Request().Context())
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		return response.BadRequest(c, "O3 not configured", err.Error())
	case errors.Is(err, store.ErrNotFound):
		return response.NotFound(c, "No submissions found", err.Error())
	case err != nil:
		h.Logger.Error().Err(err).Msg("archive snapshot")
		return response.InternalError(c, "archive failed", err.Error())
	}
	h.Logger.Info().Str("key", info.Key).Int64("bytes", info.Size).Msg("archived submissions")
	return response.Created(c, info, "archived")
}

// Archives lists stored snapshots (GET /admin/archives).
func (h *AdminHandler) Archives(c echo.Context) error {
	list, err := h.Archiver.List(c.Request().Context())
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		return response.OK(c, map[string]any{"objects": []storage.ObjectInfo{}}, "O3 not configured")
	case err != nil:
		return response.InternalError(c, "list archives failed", err.Error())
	}
	if list == nil {
		list = []storage.ObjectInfo{}
	}
	return response.OK(c, map[string]any{"objects": list}, "")
}

// ArchiveContent sends one stored snapshot back as CSV
// (GET /admin/archives/<key>).
func (h *AdminHandler) ArchiveContent(c echo.Context) error {
	key := c.Param("*")
	if key == "" {
		return response.BadRequest(c, "missing key", "archive key is required")
	}
	data, err := h.Archiver.Get(c.Request().Context(), key)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		return response.BadRequest(c, "O3 not configured", err.Error())
	case errors.Is(err, storage.ErrOutsideArchive), errors.Is(err, storage.ErrObjectNotFound):
		return response.NotFound(c, "archive not found", err.Error())
	case err != nil:
		h.Logger.Error().Err(err).Str("key", key).Msg("get archive")
		return response.InternalError(c, "get archive failed", err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+path.Base(key)+`"`)
	return c.Blob(http.StatusOK, "text/csv", data)
}
