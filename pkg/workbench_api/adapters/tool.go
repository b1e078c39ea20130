package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
)

// toolAdapter fronts an external tool-provider API. Those sources have no
// SQL surface at all: only the connection test is supported, every other
// capability fails with an unsupported-operation error.
type toolAdapter struct {
	endpoint string
	client   *http.Client
}

func newToolAdapter(source *models.DataSource) (Adapter, error) {
	var cfg struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.Unmarshal(source.ConfigJSON, &cfg); err != nil || cfg.Endpoint == "" {
		return nil, NewPermission("tool source has no endpoint configured", err)
	}
	return &toolAdapter{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (a *toolAdapter) TestConnection(ctx context.Context) (*ConnectionStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint, nil)
	if err != nil {
		return nil, NewTransient("could not build tool request", err)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return &ConnectionStatus{Success: false, Error: err.Error(), LatencyMs: latency}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, NewPermission(fmt.Sprintf("tool endpoint returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		return &ConnectionStatus{
			Success:   false,
			Error:     fmt.Sprintf("tool endpoint returned %d", resp.StatusCode),
			LatencyMs: latency,
		}, nil
	}
	return &ConnectionStatus{Success: true, LatencyMs: latency}, nil
}

func (a *toolAdapter) GetSchema(ctx context.Context) (*Schema, error) {
	return nil, NewUnsupported("getSchema", models.SourceTypeTool)
}

func (a *toolAdapter) ExecuteQuery(ctx context.Context, sql string, params map[string]any) (*QueryResult, error) {
	return nil, NewUnsupported("executeQuery", models.SourceTypeTool)
}

func (a *toolAdapter) PreviewTable(ctx context.Context, name string) (*QueryResult, error) {
	return nil, NewUnsupported("previewTable", models.SourceTypeTool)
}

func (a *toolAdapter) Disconnect() error { return nil }
