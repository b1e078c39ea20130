package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const previewRowLimit = 50

// postgresAdapter executes opaque SQL against a relational backend over a
// shared database/sql pool. The pool is owned by the registry; Disconnect
// releases it for this source.
type postgresAdapter struct {
	db      *sql.DB
	release func()
}

func (a *postgresAdapter) TestConnection(ctx context.Context) (*ConnectionStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	start := time.Now()
	if err := a.db.PingContext(ctx); err != nil {
		return &ConnectionStatus{
			Success:   false,
			Error:     err.Error(),
			LatencyMs: time.Since(start).Milliseconds(),
		}, nil
	}
	return &ConnectionStatus{Success: true, LatencyMs: time.Since(start).Milliseconds()}, nil
}

func (a *postgresAdapter) GetSchema(ctx context.Context) (*Schema, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position`)
	if err != nil {
		return nil, classifyBackendErr("schema discovery failed", err)
	}
	defer rows.Close()

	var tables []Table
	var current *Table
	for rows.Next() {
		var table, column, dataType, nullable string
		if err := rows.Scan(&table, &column, &dataType, &nullable); err != nil {
			return nil, NewTransient("schema row scan failed", err)
		}
		if current == nil || current.Name != table {
			tables = append(tables, Table{Name: table})
			current = &tables[len(tables)-1]
		}
		current.Columns = append(current.Columns, Column{
			Name:     column,
			Type:     dataType,
			Nullable: strings.EqualFold(nullable, "YES"),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, NewTransient("schema iteration failed", err)
	}

	return &Schema{Tables: tables, LastRefreshed: time.Now()}, nil
}

func (a *postgresAdapter) ExecuteQuery(ctx context.Context, query string, params map[string]any) (*QueryResult, error) {
	bound, args := bindNamedParams(query, params)
	rows, err := a.db.QueryContext(ctx, bound, args...)
	if err != nil {
		return nil, classifyBackendErr("query execution failed", err)
	}
	defer rows.Close()

	return collectRows(rows)
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

func (a *postgresAdapter) PreviewTable(ctx context.Context, name string) (*QueryResult, error) {
	if !identifierPattern.MatchString(name) {
		return nil, &AdapterError{Kind: KindPermission, Message: fmt.Sprintf("invalid table name %q", name)}
	}
	rows, err := a.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", name, previewRowLimit))
	if err != nil {
		return nil, classifyBackendErr("table preview failed", err)
	}
	defer rows.Close()

	return collectRows(rows)
}

func (a *postgresAdapter) Disconnect() error {
	a.release()
	return nil
}

var namedParamPattern = regexp.MustCompile(`:([a-zA-Z_][a-zA-Z0-9_]*)`)

// bindNamedParams rewrites :name placeholders to $n ordinals and returns
// the positional argument list. Names without a bound value are left as-is
// so the backend reports them instead of us guessing.
func bindNamedParams(query string, params map[string]any) (string, []any) {
	if len(params) == 0 {
		return query, nil
	}

	var args []any
	ordinals := make(map[string]string, len(params))
	bound := namedParamPattern.ReplaceAllStringFunc(query, func(m string) string {
		name := m[1:]
		v, ok := params[name]
		if !ok {
			return m
		}
		if ord, seen := ordinals[name]; seen {
			return ord
		}
		args = append(args, v)
		ord := fmt.Sprintf("$%d", len(args))
		ordinals[name] = ord
		return ord
	})
	return bound, args
}

func collectRows(rows *sql.Rows) (*QueryResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, NewTransient("could not read result columns", err)
	}

	result := &QueryResult{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, NewTransient("result row scan failed", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, NewTransient("result iteration failed", err)
	}
	return result, nil
}

// classifyBackendErr sorts driver errors into the permission/transient
// split the engine cares about.
func classifyBackendErr(msg string, err error) *AdapterError {
	text := strings.ToLower(err.Error())
	if strings.Contains(text, "permission denied") ||
		strings.Contains(text, "password authentication") ||
		strings.Contains(text, "access denied") {
		return NewPermission(msg, err)
	}
	return NewTransient(msg, err)
}
