package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"wearsync/internal/models"
	"wearsync/internal/providers"
	"wearsync/internal/storage"
	"wearsync/internal/structures"

	json "github.com/goccy/go-json"
)

// HTTPUploadGateway posts the combined payload as zstd-compressed JSON. The
// invocation id doubles as idempotency key so a retried upload of the same
// invocation can be recognised by the backend.
type HTTPUploadGateway struct {
	url        string
	token      string
	client     *http.Client
	compressor storage.CompressorInterface
	logger     providers.Logger
}

func NewHTTPUploadGateway(conf *structures.Config, compressor storage.CompressorInterface, logger providers.Logger) *HTTPUploadGateway {
	return &HTTPUploadGateway{
		url:        conf.Connection.UploadURL,
		token:      conf.Connection.AccessToken,
		client:     &http.Client{Timeout: conf.Connection.RequestTimeout},
		compressor: compressor,
		logger:     logger,
	}
}

func (g *HTTPUploadGateway) Upload(ctx context.Context, payload *models.UploadPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	body, err := g.compressor.Compress(raw)
	if err != nil {
		return fmt.Errorf("compress payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", g.compressor.ContentEncoding())
	req.Header.Set("Idempotency-Key", payload.InvocationID)
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", g.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: http.MethodPost, Path: g.url, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	g.logger.Debugf(providers.TypeUpload, "[%s] payload %d bytes (%d compressed) accepted with %d",
		payload.InvocationID, len(raw), len(body), resp.StatusCode)
	return nil
}
