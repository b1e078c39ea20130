package adapters_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/adapters"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
)

func TestForSource_UnknownTypeRejected(t *testing.T) {
	registry := adapters.NewRegistry()

	_, err := registry.ForSource(&models.DataSource{ID: "s1", Type: "mongodb"})
	require.Error(t, err)

	var adapterErr *adapters.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, adapters.KindUnsupported, adapterErr.Kind)
}

func TestForSource_PostgresNeedsDSN(t *testing.T) {
	registry := adapters.NewRegistry()

	_, err := registry.ForSource(&models.DataSource{
		ID:         "s1",
		Type:       models.SourceTypePostgres,
		ConfigJSON: []byte(`{}`),
	})
	require.Error(t, err)

	var adapterErr *adapters.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, adapters.KindPermission, adapterErr.Kind)
}

func sheetSource() *models.DataSource {
	return &models.DataSource{
		ID:   "sheet1",
		Type: models.SourceTypeSheet,
		ConfigJSON: []byte(`{
			"tableName": "leads",
			"columns": [{"name": "email", "type": "text"}, {"name": "score", "type": "number"}],
			"rows": [["a@example.org", 10], ["b@example.org", 3]]
		}`),
	}
}

func TestSheetAdapter_SchemaAndPreview(t *testing.T) {
	registry := adapters.NewRegistry()
	adapter, err := registry.ForSource(sheetSource())
	require.NoError(t, err)
	ctx := context.Background()

	status, err := adapter.TestConnection(ctx)
	require.NoError(t, err)
	assert.True(t, status.Success)

	schema, err := adapter.GetSchema(ctx)
	require.NoError(t, err)
	require.Len(t, schema.Tables, 1)
	assert.Equal(t, "leads", schema.Tables[0].Name)
	assert.Len(t, schema.Tables[0].Columns, 2)

	preview, err := adapter.PreviewTable(ctx, "leads")
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "score"}, preview.Columns)
	assert.Len(t, preview.Rows, 2)
}

func TestSheetAdapter_ExecuteQueryUnsupported(t *testing.T) {
	registry := adapters.NewRegistry()
	adapter, err := registry.ForSource(sheetSource())
	require.NoError(t, err)

	_, err = adapter.ExecuteQuery(context.Background(), "SELECT 1", nil)
	require.Error(t, err)

	var adapterErr *adapters.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, adapters.KindUnsupported, adapterErr.Kind)
}

func toolSource(endpoint string) *models.DataSource {
	return &models.DataSource{
		ID:         "tool1",
		Type:       models.SourceTypeTool,
		ConfigJSON: []byte(`{"endpoint": "` + endpoint + `"}`),
	}
}

func TestToolAdapter_TestConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := adapters.NewRegistry()
	adapter, err := registry.ForSource(toolSource(server.URL))
	require.NoError(t, err)

	status, err := adapter.TestConnection(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Success)
}

func TestToolAdapter_UnauthorizedIsPermissionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	registry := adapters.NewRegistry()
	adapter, err := registry.ForSource(toolSource(server.URL))
	require.NoError(t, err)

	_, err = adapter.TestConnection(context.Background())
	require.Error(t, err)

	var adapterErr *adapters.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, adapters.KindPermission, adapterErr.Kind)
}

func TestToolAdapter_QuerySurfaceUnsupported(t *testing.T) {
	registry := adapters.NewRegistry()
	adapter, err := registry.ForSource(toolSource("http://localhost:0"))
	require.NoError(t, err)
	ctx := context.Background()

	for _, call := range []func() error{
		func() error { _, err := adapter.GetSchema(ctx); return err },
		func() error { _, err := adapter.ExecuteQuery(ctx, "SELECT 1", nil); return err },
		func() error { _, err := adapter.PreviewTable(ctx, "t"); return err },
	} {
		err := call()
		require.Error(t, err)
		var adapterErr *adapters.AdapterError
		require.ErrorAs(t, err, &adapterErr)
		assert.Equal(t, adapters.KindUnsupported, adapterErr.Kind)
	}
}
