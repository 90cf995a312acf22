// Package server provides HTTP handlers and server setup for the media
// analysis service.
package server

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"mediacheck/internal/analyze"
	"mediacheck/internal/auditlog"
	"mediacheck/internal/core"
	"mediacheck/internal/web"
)

// Analyzer runs the analysis pipeline for one upload.
type Analyzer interface {
	Analyze(ctx context.Context, up analyze.Upload) (*core.AnalysisResponse, error)
}

// Handler holds the HTTP handlers
type Handler struct {
	analyzer Analyzer
	assets   fs.FS
	static   http.Handler
}

// NewHandler creates a handler serving assets from fsys.
func NewHandler(analyzer Analyzer, fsys fs.FS) *Handler {
	h := &Handler{
		analyzer: analyzer,
		assets:   fsys,
	}
	if sub, err := web.Static(fsys); err == nil {
		h.static = http.FileServer(http.FS(sub))
	}
	return h
}

// Analyze handles POST /analyze
//
// @Summary      Analyze an uploaded media file
// @Description  Validates type and size, forwards the file to the detection service and waits for its verdict.
// @Tags         analyze
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Image, video or audio file"
// @Success      200  {object}  core.AnalysisResponse
// @Failure      400  {object}  core.Error
// @Failure      500  {object}  core.Error
// @Router       /analyze [post]
func (h *Handler) Analyze(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return err
		}
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return handleError(c, core.NewValidationError("file is required"))
		}
		return handleError(c, core.NewValidationError("invalid multipart form: "+err.Error()))
	}

	file, err := fh.Open()
	if err != nil {
		return handleError(c, core.NewOperationalError(err.Error(), err))
	}
	defer func() {
		_ = file.Close() //nolint:errcheck
	}()

	resp, err := h.analyzer.Analyze(c.Request().Context(), analyze.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Index handles GET /
func (h *Handler) Index(c echo.Context) error {
	page, err := fs.ReadFile(h.assets, web.IndexFile)
	if err != nil {
		return echo.ErrNotFound
	}
	return c.HTMLBlob(http.StatusOK, page)
}

// Static handles GET /static/*
func (h *Handler) Static(c echo.Context) error {
	if h.static == nil {
		return echo.ErrNotFound
	}
	name := strings.TrimPrefix(path.Clean("/"+c.Param("*")), "/")
	if name == "" || name == "." {
		return echo.ErrNotFound
	}
	req := c.Request().Clone(c.Request().Context())
	req.URL.Path = "/" + name
	h.static.ServeHTTP(c.Response(), req)
	return nil
}

// Health handles GET /health
//
// @Summary      Liveness check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleError converts service errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	svcErr := core.AsOperational(err)
	auditlog.EnrichEntryWithError(c, string(svcErr.Type), svcErr.Message)
	return c.JSON(svcErr.HTTPStatusCode(), svcErr.ToJSON())
}
