package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mediacheck/internal/analyze"
	"mediacheck/internal/core"
)

// mockAnalyzer implements Analyzer for testing
type mockAnalyzer struct {
	response *core.AnalysisResponse
	err      error

	calls    int
	filename string
	body     []byte
	ctxID    string
}

func (m *mockAnalyzer) Analyze(ctx context.Context, up analyze.Upload) (*core.AnalysisResponse, error) {
	m.calls++
	m.filename = up.Filename
	m.ctxID = core.GetRequestID(ctx)
	if up.Body != nil {
		m.body, _ = io.ReadAll(up.Body)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	} else if err := w.WriteField("note", "no file here"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/analyze", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestAnalyze_Success(t *testing.T) {
	mock := &mockAnalyzer{
		response: &core.AnalysisResponse{
			Status: "AUTHENTIC",
			Score:  0.12,
			Models: []core.ModelSummary{
				{Name: "m1", Status: "AUTHENTIC", Score: 0.1},
			},
			MediaID:   "med-1",
			RequestID: "req-1",
			FileType:  core.FileTypeImage,
		},
	}
	srv := New(mock, nil)

	req := multipartRequest(t, "file", "photo.PNG", []byte("png-bytes"))
	req.Header.Set("X-Request-ID", "trace-1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	want := `{"status":"AUTHENTIC","score":0.12,"models":[{"name":"m1","status":"AUTHENTIC","score":0.1}],"media_id":"med-1","request_id":"req-1","file_type":"image"}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("unexpected body:\n got: %s\nwant: %s", got, want)
	}
	if mock.filename != "photo.PNG" {
		t.Errorf("expected filename photo.PNG, got %q", mock.filename)
	}
	if string(mock.body) != "png-bytes" {
		t.Errorf("expected upload body to reach analyzer, got %q", mock.body)
	}
	if mock.ctxID != "trace-1" {
		t.Errorf("expected request ID in context, got %q", mock.ctxID)
	}
}

func TestAnalyze_MissingFile(t *testing.T) {
	tests := []struct {
		name string
		req  func(t *testing.T) *http.Request
	}{
		{
			name: "multipart without file field",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "", "", nil)
			},
		},
		{
			name: "wrong field name",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "upload", "a.png", []byte("x"))
			},
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockAnalyzer{}
			srv := New(mock, nil)

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, tt.req(t))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body["detail"] != "file is required" {
				t.Errorf("expected detail %q, got %q", "file is required", body["detail"])
			}
			if mock.calls != 0 {
				t.Error("analyzer must not be called")
			}
		})
	}
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedType   string
		expectedDetail string
	}{
		{
			name:           "validation error passes through",
			err:            core.NewValidationError("unsupported file type: .txt"),
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
			expectedDetail: "unsupported file type: .txt",
		},
		{
			name:           "size limit",
			err:            core.NewValidationError("file size exceeds 20MB limit for audio files"),
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
			expectedDetail: "file size exceeds 20MB limit for audio files",
		},
		{
			name:           "operational error",
			err:            core.NewOperationalError("connection refused", nil),
			expectedStatus: http.StatusInternalServerError,
			expectedType:   "operational_error",
			expectedDetail: "connection refused",
		},
		{
			name:           "plain error becomes operational",
			err:            errors.New("disk full"),
			expectedStatus: http.StatusInternalServerError,
			expectedType:   "operational_error",
			expectedDetail: "disk full",
		},
		{
			name:           "upstream error becomes operational",
			err:            core.NewAuthenticationError("Invalid API key"),
			expectedStatus: http.StatusInternalServerError,
			expectedType:   "operational_error",
			expectedDetail: "Invalid API key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(&mockAnalyzer{err: tt.err}, nil)

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, multipartRequest(t, "file", "a.mp3", []byte("x")))

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			var body map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if len(body) != 2 {
				t.Errorf("expected exactly detail and type, got %v", body)
			}
			if body["type"] != tt.expectedType {
				t.Errorf("expected type %q, got %v", tt.expectedType, body["type"])
			}
			if body["detail"] != tt.expectedDetail {
				t.Errorf("expected detail %q, got %v", tt.expectedDetail, body["detail"])
			}
		})
	}
}

func TestAnalyze_BodyLimit(t *testing.T) {
	const declared = 261 * 1024 * 1024

	tests := []struct {
		name           string
		cfg            *Config
		filename       string
		contentType    string
		contentLength  int64
		expectedStatus int
		expectedDetail string
	}{
		{
			name:           "video over default body limit names its category",
			filename:       "movie.mp4",
			contentLength:  declared,
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedDetail: "file size exceeds 250MB limit for video files",
		},
		{
			name:           "unsupported type over body limit",
			filename:       "notes.txt",
			contentLength:  declared,
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "unsupported file type: .txt",
		},
		{
			name:           "body that is not multipart",
			contentType:    "application/octet-stream",
			contentLength:  declared,
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedDetail: "request body exceeds 260MB limit",
		},
		{
			name:           "under category limit but over configured body limit",
			cfg:            &Config{BodySizeLimit: 512 * 1024},
			filename:       "photo.png",
			contentLength:  600 * 1024,
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedDetail: "request body exceeds 0.5MB limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockAnalyzer{}
			srv := New(mock, tt.cfg)

			req := multipartRequest(t, "file", tt.filename, []byte("head of a large upload"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			req.ContentLength = tt.contentLength

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if mock.calls != 0 {
				t.Error("analyzer must not be called")
			}

			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode error body %q: %v", rec.Body.String(), err)
			}
			if body["type"] != "validation_error" {
				t.Errorf("expected type validation_error, got %q", body["type"])
			}
			if body["detail"] != tt.expectedDetail {
				t.Errorf("expected detail %q, got %q", tt.expectedDetail, body["detail"])
			}
			if _, ok := body["message"]; ok {
				t.Errorf("echo's default error body leaked: %s", rec.Body.String())
			}
		})
	}
}

func TestUnknownRoute_ErrorShape(t *testing.T) {
	srv := New(&mockAnalyzer{}, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body["type"] != "validation_error" || body["detail"] != "Not Found" {
		t.Errorf("unexpected error body: %v", body)
	}
}

func TestHealth(t *testing.T) {
	srv := New(&mockAnalyzer{}, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}
