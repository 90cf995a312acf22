package detector

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mediacheck/internal/core"
	"mediacheck/internal/httpclient"
	"mediacheck/internal/pkg/apiclient"
)

const (
	presignedEndpoint = "/api/files/aws-presigned"
	resultEndpoint    = "/api/media/users/"
)

// Client is a single-request detector instance.
type Client struct {
	api    *apiclient.Client
	config Config

	cleanupOnce sync.Once
}

var _ core.Detector = (*Client)(nil)

// New creates a detector instance with its own HTTP transport.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	apiCfg := apiclient.DefaultConfig(cfg.BaseURL)
	apiCfg.MaxRetries = cfg.MaxRetries

	return &Client{
		api: apiclient.New(httpclient.NewHTTPClient(&cfg.HTTP), apiCfg, func(req *http.Request) {
			req.Header.Set("X-API-KEY", cfg.APIKey)
		}),
		config: cfg,
	}
}

type presignedRequest struct {
	FileName string `json:"fileName"`
}

type presignedResponse struct {
	Code     string `json:"code"`
	Response struct {
		SignedURL string `json:"signedUrl"`
	} `json:"response"`
	RequestID string `json:"requestId"`
	MediaID   string `json:"mediaId"`
}

// Upload requests a presigned URL for the file, then PUTs the bytes to it.
func (c *Client) Upload(ctx context.Context, path string) (*core.UploadReceipt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file for upload: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file for upload: %w", err)
	}

	fileName := filepath.Base(path)
	var presigned presignedResponse
	err = c.api.Do(ctx, apiclient.Request{
		Method:   http.MethodPost,
		Endpoint: presignedEndpoint,
		Body:     presignedRequest{FileName: fileName},
	}, &presigned)
	if err != nil {
		return nil, err
	}

	if presigned.Response.SignedURL == "" || presigned.RequestID == "" {
		return nil, core.NewUpstreamError(http.StatusBadGateway, "upload response is missing signed URL or request ID", nil)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName)))
	if err := c.api.Upload(ctx, presigned.Response.SignedURL, f, info.Size(), contentType); err != nil {
		return nil, err
	}

	return &core.UploadReceipt{
		RequestID: presigned.RequestID,
		MediaID:   presigned.MediaID,
	}, nil
}

// GetResult polls the job until the service reports a terminal status.
// A 404 while polling means the job is not visible yet and is retried on
// the next tick.
func (c *Client) GetResult(ctx context.Context, requestID string) (*core.Verdict, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request ID is required")
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		resp, err := c.api.DoRaw(ctx, apiclient.Request{
			Method:   http.MethodGet,
			Endpoint: resultEndpoint + url.PathEscape(requestID),
		})
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if err == nil {
			verdict, done, parseErr := parseResult(resp.Body)
			if parseErr != nil {
				return nil, parseErr
			}
			if done {
				return verdict, nil
			}
		}

		if c.config.MaxPollAttempts > 0 && attempt >= c.config.MaxPollAttempts {
			return nil, core.NewUpstreamError(http.StatusGatewayTimeout,
				fmt.Sprintf("analysis of request %s did not complete after %d polls", requestID, attempt), nil)
		}
		timer.Reset(c.config.PollInterval)
	}
}

// Cleanup closes the instance's pooled connections. Safe to call multiple times.
func (c *Client) Cleanup() error {
	c.cleanupOnce.Do(c.api.CloseIdleConnections)
	return nil
}

func isNotFound(err error) bool {
	var svcErr *core.Error
	return errors.As(err, &svcErr) && svcErr.StatusCode == http.StatusNotFound
}

// Factory hands out a fresh Client per request.
type Factory struct {
	config Config
}

// NewFactory creates a factory for cfg.
func NewFactory(cfg Config) *Factory {
	return &Factory{config: cfg.withDefaults()}
}

// NewDetector implements core.DetectorFactory.
func (f *Factory) NewDetector() (core.Detector, error) {
	return New(f.config), nil
}
