package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"mediacheck/internal/core"
	"mediacheck/internal/media"
)

// headerPeekLimit bounds how much of a rejected body is read to find the
// upload's file name.
const headerPeekLimit = 64 * 1024

// errorHandler renders errors that never reached a handler, such as an
// unknown route or a body over the size limit, in the same shape as
// handleError.
func errorHandler(limits media.Limits, bodyLimit int64) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		svcErr := serviceError(c.Request(), err, limits, bodyLimit)
		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(svcErr.HTTPStatusCode())
		} else {
			writeErr = c.JSON(svcErr.HTTPStatusCode(), svcErr.ToJSON())
		}
		if writeErr != nil {
			slog.Error("failed to write error response", "error", writeErr)
		}
	}
}

func serviceError(req *http.Request, err error, limits media.Limits, bodyLimit int64) *core.Error {
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		return core.AsOperational(err)
	}
	if httpErr.Code == http.StatusRequestEntityTooLarge {
		return oversizedUpload(req, limits, bodyLimit)
	}

	message, ok := httpErr.Message.(string)
	if !ok || message == "" {
		message = http.StatusText(httpErr.Code)
	}
	errType := core.ErrorTypeValidation
	if httpErr.Code >= http.StatusInternalServerError {
		errType = core.ErrorTypeOperational
	}
	return &core.Error{
		Type:       errType,
		Message:    message,
		StatusCode: httpErr.Code,
		Err:        err,
	}
}

// oversizedUpload describes a body rejected by the size limit. When the
// multipart headers are still unread, the declared file name selects the
// category so the message matches the per-category check.
func oversizedUpload(req *http.Request, limits media.Limits, bodyLimit int64) *core.Error {
	if name := uploadFileName(req); name != "" {
		ft, err := media.ResolveType(name)
		if err != nil {
			return core.AsOperational(err)
		}
		if err := limits.Check(ft, req.ContentLength); err != nil {
			svcErr := core.AsOperational(err)
			svcErr.StatusCode = http.StatusRequestEntityTooLarge
			return svcErr
		}
	}

	return &core.Error{
		Type:       core.ErrorTypeValidation,
		Message:    fmt.Sprintf("request body exceeds %sMB limit", formatMiB(bodyLimit)),
		StatusCode: http.StatusRequestEntityTooLarge,
	}
}

// uploadFileName reads just enough of a multipart body to find the name of
// the "file" part. It returns "" when the body is not multipart or has
// already been consumed.
func uploadFileName(req *http.Request) string {
	if req.Body == nil {
		return ""
	}
	mediaType, params, err := mime.ParseMediaType(req.Header.Get(echo.HeaderContentType))
	if err != nil || mediaType != echo.MIMEMultipartForm || params["boundary"] == "" {
		return ""
	}

	mr := multipart.NewReader(io.LimitReader(req.Body, headerPeekLimit), params["boundary"])
	for {
		part, err := mr.NextPart()
		if err != nil {
			return ""
		}
		if part.FormName() == "file" {
			return part.FileName()
		}
	}
}

func formatMiB(n int64) string {
	return strconv.FormatFloat(float64(n)/float64(media.MiB), 'f', -1, 64)
}
