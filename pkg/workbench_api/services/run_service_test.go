package services_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/adapters"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/database"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/repositories"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	workspace repositories.WorkspaceRepository
	artifacts repositories.ArtifactRepository
	runs      repositories.RunRepository
	channels  repositories.DeliveryRepository
}

func setupEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return &testEnv{
		workspace: repositories.NewWorkspaceRepository(db),
		artifacts: repositories.NewArtifactRepository(db),
		runs:      repositories.NewRunRepository(db),
		channels:  repositories.NewDeliveryRepository(db),
	}
}

// seedWorkspace creates org1 with a project, a postgres source and a
// query spec, and returns the spec id.
func seedWorkspace(t *testing.T, env *testEnv) string {
	ctx := context.Background()
	require.NoError(t, env.workspace.SaveOrganization(ctx, &models.Organization{ID: "org1", Name: "Acme", CreatedAt: time.Now()}))
	require.NoError(t, env.workspace.SaveProject(ctx, &models.Project{ID: "p1", OrganizationID: "org1", Name: "Analytics", CreatedAt: time.Now()}))
	require.NoError(t, env.workspace.SaveDataSource(ctx, &models.DataSource{
		ID: "s1", OrganizationID: "org1", Type: models.SourceTypePostgres, Name: "warehouse",
		ConfigJSON: []byte(`{"dsn":"postgres://localhost/test"}`), CreatedAt: time.Now(),
	}))
	require.NoError(t, env.workspace.SaveQuerySpec(ctx, &models.QuerySpec{
		ID: "q1", OrganizationID: "org1", ProjectID: "p1", SourceID: "s1",
		Name: "one", SQLText: "SELECT 1", CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))
	return "q1"
}

// seedKPI creates a kpi artifact bound to the seeded query spec.
func seedKPI(t *testing.T, env *testEnv) *models.Artifact {
	specID := seedWorkspace(t, env)
	svc := services.NewArtifactService(env.artifacts, env.workspace)
	created, err := svc.CreateArtifact(context.Background(), &models.CreateArtifactInput{
		OrganizationID: "org1",
		ProjectID:      "p1",
		Type:           models.ArtifactTypeKPI,
		Name:           "row count",
		QuerySpecID:    &specID,
	})
	require.NoError(t, err)
	return &created.Artifact
}

// stubGateway hands out a fixed adapter regardless of the source.
type stubGateway struct {
	adapter adapters.Adapter
	err     error
}

func (g *stubGateway) ForSource(source *models.DataSource) (adapters.Adapter, error) {
	return g.adapter, g.err
}

// stubAdapter implements adapters.Adapter with a pluggable ExecuteQuery.
type stubAdapter struct {
	execute func(ctx context.Context, sql string, params map[string]any) (*adapters.QueryResult, error)
}

func (a *stubAdapter) TestConnection(ctx context.Context) (*adapters.ConnectionStatus, error) {
	return &adapters.ConnectionStatus{Success: true}, nil
}
func (a *stubAdapter) GetSchema(ctx context.Context) (*adapters.Schema, error) {
	return &adapters.Schema{}, nil
}
func (a *stubAdapter) ExecuteQuery(ctx context.Context, sql string, params map[string]any) (*adapters.QueryResult, error) {
	return a.execute(ctx, sql, params)
}
func (a *stubAdapter) PreviewTable(ctx context.Context, name string) (*adapters.QueryResult, error) {
	return nil, adapters.NewUnsupported("previewTable", "stub")
}
func (a *stubAdapter) Disconnect() error { return nil }

func newRunService(env *testEnv, adapter adapters.Adapter) *services.RunService {
	return services.NewRunService(env.runs, env.artifacts, env.workspace, &stubGateway{adapter: adapter})
}

func TestRunArtifact_Success(t *testing.T) {
	env := setupEnv(t)
	artifact := seedKPI(t, env)
	svc := newRunService(env, &stubAdapter{
		execute: func(ctx context.Context, sql string, params map[string]any) (*adapters.QueryResult, error) {
			assert.Equal(t, "SELECT 1", sql)
			return &adapters.QueryResult{Columns: []string{"?column?"}, Rows: [][]any{{int64(1)}}}, nil
		},
	})

	run, err := svc.RunArtifact(context.Background(), &models.TriggerRunInput{
		ArtifactID:     artifact.ID,
		OrganizationID: "org1",
		TriggerType:    models.TriggerManual,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	require.NotNil(t, run.CompletedAt)
	assert.False(t, run.CompletedAt.Before(run.StartedAt))
	assert.Equal(t, *artifact.CurrentVersionID, run.VersionID)

	var meta models.RunResultMeta
	require.NoError(t, json.Unmarshal(run.ResultMetaJSON, &meta))
	assert.Equal(t, 1, meta.RowCount)
	assert.Equal(t, []string{"?column?"}, meta.Columns)
}

func TestRunArtifact_AdapterTimeoutRecordedAsFailedRun(t *testing.T) {
	env := setupEnv(t)
	artifact := seedKPI(t, env)
	svc := newRunService(env, &stubAdapter{
		execute: func(ctx context.Context, sql string, params map[string]any) (*adapters.QueryResult, error) {
			return nil, adapters.NewTransient("query timed out", context.DeadlineExceeded)
		},
	})

	run, err := svc.RunArtifact(context.Background(), &models.TriggerRunInput{
		ArtifactID:     artifact.ID,
		OrganizationID: "org1",
		TriggerType:    models.TriggerAPI,
	})
	require.NoError(t, err, "adapter failures resolve into a failed run, not an error")
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorText, "timed out")
	assert.Contains(t, run.ErrorText, adapters.KindTransient)
	require.NotNil(t, run.CompletedAt)
	assert.False(t, run.CompletedAt.Before(run.StartedAt))
}

func TestRunArtifact_UnsupportedOperationIsFatal(t *testing.T) {
	env := setupEnv(t)
	artifact := seedKPI(t, env)
	svc := newRunService(env, &stubAdapter{
		execute: func(ctx context.Context, sql string, params map[string]any) (*adapters.QueryResult, error) {
			return nil, adapters.NewUnsupported("executeQuery", models.SourceTypeTool)
		},
	})

	run, err := svc.RunArtifact(context.Background(), &models.TriggerRunInput{
		ArtifactID:     artifact.ID,
		OrganizationID: "org1",
		TriggerType:    models.TriggerChat,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorText, adapters.KindUnsupported)
}

func TestRunArtifact_InvalidTriggerFailsBeforeAnyRow(t *testing.T) {
	env := setupEnv(t)
	artifact := seedKPI(t, env)
	svc := newRunService(env, &stubAdapter{})

	_, err := svc.RunArtifact(context.Background(), &models.TriggerRunInput{
		ArtifactID:     artifact.ID,
		OrganizationID: "org1",
		TriggerType:    "cron",
	})
	require.Error(t, err)

	runs, lerr := env.runs.ListRuns(context.Background(), artifact.ID, "org1")
	require.NoError(t, lerr)
	assert.Len(t, runs, 0)
}

func TestRunArtifact_WrongOrgIsNotFound(t *testing.T) {
	env := setupEnv(t)
	artifact := seedKPI(t, env)
	svc := newRunService(env, &stubAdapter{})

	_, err := svc.RunArtifact(context.Background(), &models.TriggerRunInput{
		ArtifactID:     artifact.ID,
		OrganizationID: "other-org",
		TriggerType:    models.TriggerManual,
	})
	require.Error(t, err)
}

func TestRunArtifact_ConcurrentCallersShareOneRun(t *testing.T) {
	env := setupEnv(t)
	artifact := seedKPI(t, env)

	entered := make(chan struct{})
	release := make(chan struct{})
	svc := newRunService(env, &stubAdapter{
		execute: func(ctx context.Context, sql string, params map[string]any) (*adapters.QueryResult, error) {
			close(entered)
			<-release
			return &adapters.QueryResult{Columns: []string{"c"}, Rows: [][]any{{1}}}, nil
		},
	})

	input := &models.TriggerRunInput{
		ArtifactID:     artifact.ID,
		OrganizationID: "org1",
		TriggerType:    models.TriggerManual,
	}

	type outcome struct {
		run *models.ArtifactRun
		err error
	}
	winnerDone := make(chan outcome, 1)
	go func() {
		run, err := svc.RunArtifact(context.Background(), input)
		winnerDone <- outcome{run, err}
	}()

	<-entered
	// Second caller while the first is mid-query: must observe the same run.
	loser, err := svc.RunArtifact(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, loser.Status)

	close(release)
	got := <-winnerDone
	require.NoError(t, got.err)
	winner := got.run
	assert.Equal(t, winner.ID, loser.ID)
	assert.Equal(t, models.RunStatusSucceeded, winner.Status)
}

// contestedRunRepo rejects the first n inserts as duplicates while
// FindActiveRun keeps coming back empty, the shape of losing to a winner
// that completes before the re-read.
type contestedRunRepo struct {
	repositories.RunRepository
	rejects int
}

func (r *contestedRunRepo) InsertPending(ctx context.Context, run *models.ArtifactRun) error {
	if r.rejects > 0 {
		r.rejects--
		return repositories.ErrDuplicateActiveRun
	}
	return r.RunRepository.InsertPending(ctx, run)
}

func TestRunArtifact_RetriesUntilInsertLands(t *testing.T) {
	env := setupEnv(t)
	artifact := seedKPI(t, env)
	contested := &contestedRunRepo{RunRepository: env.runs, rejects: 2}
	svc := services.NewRunService(contested, env.artifacts, env.workspace, &stubGateway{
		adapter: &stubAdapter{
			execute: func(ctx context.Context, sql string, params map[string]any) (*adapters.QueryResult, error) {
				return &adapters.QueryResult{Columns: []string{"c"}, Rows: [][]any{{1}}}, nil
			},
		},
	})

	run, err := svc.RunArtifact(context.Background(), &models.TriggerRunInput{
		ArtifactID:     artifact.ID,
		OrganizationID: "org1",
		TriggerType:    models.TriggerManual,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	assert.Equal(t, 0, contested.rejects)
}

func TestRunArtifact_RunIsPinnedToTriggerVersion(t *testing.T) {
	env := setupEnv(t)
	artifact := seedKPI(t, env)
	svc := newRunService(env, &stubAdapter{
		execute: func(ctx context.Context, sql string, params map[string]any) (*adapters.QueryResult, error) {
			return &adapters.QueryResult{Columns: []string{"c"}, Rows: [][]any{}}, nil
		},
	})

	run, err := svc.RunArtifact(context.Background(), &models.TriggerRunInput{
		ArtifactID:     artifact.ID,
		OrganizationID: "org1",
		TriggerType:    models.TriggerManual,
	})
	require.NoError(t, err)
	pinned := run.VersionID

	// Re-version the artifact; the recorded run keeps the old version id.
	artifactSvc := services.NewArtifactService(env.artifacts, env.workspace)
	_, err = artifactSvc.CreateVersion(context.Background(), &models.CreateVersionInput{
		ArtifactID:     artifact.ID,
		OrganizationID: "org1",
		Notes:          "second",
	})
	require.NoError(t, err)

	got, err := svc.GetRun(context.Background(), run.ID, "org1")
	require.NoError(t, err)
	assert.Equal(t, pinned, got.VersionID)
}

func TestReclaimStuckRuns_Service(t *testing.T) {
	env := setupEnv(t)
	artifact := seedKPI(t, env)
	svc := newRunService(env, &stubAdapter{})
	ctx := context.Background()

	run := &models.ArtifactRun{
		ID:             "stuck-run",
		OrganizationID: "org1",
		ArtifactID:     artifact.ID,
		VersionID:      *artifact.CurrentVersionID,
		TriggerType:    models.TriggerManual,
		StartedAt:      time.Now().Add(-time.Hour),
	}
	require.NoError(t, env.runs.InsertPending(ctx, run))
	require.NoError(t, env.runs.MarkRunning(ctx, run.ID))

	count, err := svc.ReclaimStuckRuns(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := svc.GetRun(ctx, run.ID, "org1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, got.Status)
	assert.Contains(t, got.ErrorText, "staleness threshold")
}
