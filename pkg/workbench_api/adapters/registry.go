package adapters

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"golang.org/x/sync/singleflight"
)

// Factory builds an adapter for one data source. Factories are registered
// at startup; the registry never branches on source type outside this map.
type Factory func(source *models.DataSource) (Adapter, error)

// Registry resolves a DataSource to an Adapter. Postgres connection pools
// are cached per source id and built under a singleflight group, so
// concurrent first callers share one pool instead of racing to open two.
// Adapter values themselves are cheap wrappers built fresh per call.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	pools     map[string]poolEntry
	group     singleflight.Group
}

// poolEntry remembers the DSN a pool was opened with, so a config change
// on the source swaps the pool instead of serving the stale one.
type poolEntry struct {
	dsn string
	db  *sql.DB
}

func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		pools:     make(map[string]poolEntry),
	}
	r.Register(models.SourceTypePostgres, r.newPostgresAdapter)
	r.Register(models.SourceTypeSheet, newSheetAdapter)
	r.Register(models.SourceTypeTool, newToolAdapter)
	return r
}

// Register installs a factory for a source type, replacing any previous one.
func (r *Registry) Register(sourceType string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[sourceType] = f
}

// ForSource returns a fresh adapter for the given source.
func (r *Registry) ForSource(source *models.DataSource) (Adapter, error) {
	r.mu.RLock()
	f, ok := r.factories[source.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, NewUnsupported("source type "+source.Type, source.Type)
	}
	return f(source)
}

func (r *Registry) newPostgresAdapter(source *models.DataSource) (Adapter, error) {
	var cfg struct {
		DSN string `json:"dsn"`
	}
	if err := json.Unmarshal(source.ConfigJSON, &cfg); err != nil || cfg.DSN == "" {
		return nil, NewPermission("postgres source has no usable dsn", err)
	}

	pool, err := r.pool(source.ID, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return &postgresAdapter{db: pool, release: func() { r.dropPool(source.ID) }}, nil
}

func (r *Registry) pool(sourceID, dsn string) (*sql.DB, error) {
	r.mu.RLock()
	entry, ok := r.pools[sourceID]
	r.mu.RUnlock()
	if ok && entry.dsn == dsn {
		return entry.db, nil
	}

	v, err, _ := r.group.Do(sourceID, func() (interface{}, error) {
		r.mu.RLock()
		entry, ok := r.pools[sourceID]
		r.mu.RUnlock()
		if ok && entry.dsn == dsn {
			return entry.db, nil
		}
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, NewTransient(fmt.Sprintf("open connection for source %s", sourceID), err)
		}
		r.mu.Lock()
		stale, had := r.pools[sourceID]
		r.pools[sourceID] = poolEntry{dsn: dsn, db: db}
		r.mu.Unlock()
		if had {
			_ = stale.db.Close()
		}
		return db, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sql.DB), nil
}

func (r *Registry) dropPool(sourceID string) {
	r.mu.Lock()
	entry, ok := r.pools[sourceID]
	delete(r.pools, sourceID)
	r.mu.Unlock()
	if ok {
		_ = entry.db.Close()
	}
}
