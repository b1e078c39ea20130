package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
)

// sheetAdapter serves a spreadsheet-backed virtual table from the snapshot
// stored in the source config. Schema discovery and preview work; arbitrary
// SQL does not, so ExecuteQuery fails with an unsupported-operation error.
type sheetAdapter struct {
	name    string
	columns []Column
	rows    [][]any
}

type sheetConfig struct {
	TableName string     `json:"tableName"`
	Columns   []sheetCol `json:"columns"`
	Rows      [][]any    `json:"rows"`
}

type sheetCol struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func newSheetAdapter(source *models.DataSource) (Adapter, error) {
	var cfg sheetConfig
	if err := json.Unmarshal(source.ConfigJSON, &cfg); err != nil {
		return nil, NewPermission("sheet source config is not readable", err)
	}
	if cfg.TableName == "" {
		cfg.TableName = source.Name
	}

	columns := make([]Column, 0, len(cfg.Columns))
	for _, c := range cfg.Columns {
		t := c.Type
		if t == "" {
			t = "text"
		}
		columns = append(columns, Column{Name: c.Name, Type: t, Nullable: true})
	}
	return &sheetAdapter{name: cfg.TableName, columns: columns, rows: cfg.Rows}, nil
}

func (a *sheetAdapter) TestConnection(ctx context.Context) (*ConnectionStatus, error) {
	if len(a.columns) == 0 {
		return &ConnectionStatus{Success: false, Error: "sheet snapshot has no columns"}, nil
	}
	return &ConnectionStatus{Success: true, LatencyMs: 0}, nil
}

func (a *sheetAdapter) GetSchema(ctx context.Context) (*Schema, error) {
	return &Schema{
		Tables:        []Table{{Name: a.name, Columns: a.columns}},
		LastRefreshed: time.Now(),
	}, nil
}

func (a *sheetAdapter) ExecuteQuery(ctx context.Context, sql string, params map[string]any) (*QueryResult, error) {
	return nil, NewUnsupported("executeQuery", models.SourceTypeSheet)
}

func (a *sheetAdapter) PreviewTable(ctx context.Context, name string) (*QueryResult, error) {
	if name != a.name {
		return nil, NewTransient(fmt.Sprintf("unknown sheet table %q", name), nil)
	}
	cols := make([]string, len(a.columns))
	for i, c := range a.columns {
		cols[i] = c.Name
	}
	rows := a.rows
	if len(rows) > previewRowLimit {
		rows = rows[:previewRowLimit]
	}
	return &QueryResult{Columns: cols, Rows: rows}, nil
}

func (a *sheetAdapter) Disconnect() error { return nil }
