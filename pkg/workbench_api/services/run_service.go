package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/teris-io/shortid"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/adapters"
	problem "github.com/workbench-hq/workbench-api/pkg/workbench_api/helpers/problem"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/repositories"
	"gorm.io/datatypes"
)

// AdapterGateway resolves a data source to an adapter. The engine never
// branches on backend type; swapping an adapter never touches this code.
type AdapterGateway interface {
	ForSource(source *models.DataSource) (adapters.Adapter, error)
}

// RunService is the execution engine: it resolves an artifact's current
// version, dispatches the bound query through the adapter gateway and
// records the outcome as a run. Per-run state machine:
// pending -> running -> succeeded | failed, forward only.
type RunService struct {
	runs      repositories.RunRepository
	artifacts repositories.ArtifactRepository
	workspace repositories.WorkspaceRepository
	gateway   AdapterGateway
}

func NewRunService(
	runs repositories.RunRepository,
	artifacts repositories.ArtifactRepository,
	workspace repositories.WorkspaceRepository,
	gateway AdapterGateway,
) *RunService {
	return &RunService{runs: runs, artifacts: artifacts, workspace: workspace, gateway: gateway}
}

// RunArtifact executes the artifact's current version and returns the
// terminal run row, or the existing run when one is already in flight for
// the artifact. Validation failures surface before any run row is
// written; adapter failures always land in a terminal failed run.
func (s *RunService) RunArtifact(ctx context.Context, in *models.TriggerRunInput) (*models.ArtifactRun, error) {
	if !models.IsValidTriggerType(in.TriggerType) {
		return nil, problem.NewBadRequest("triggerType", fmt.Sprintf("invalid trigger type %q", in.TriggerType),
			problem.InvalidParam{Name: "triggerType", Reason: "must be one of chat, manual, api, delivery"})
	}

	artifact, err := s.artifacts.GetArtifact(ctx, in.ArtifactID, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, problem.NewNotFound(in.ArtifactID, "artifact not found in this organization")
	}
	if artifact.Archived {
		return nil, problem.NewBadRequest(in.ArtifactID, "archived artifacts cannot be run")
	}
	if artifact.CurrentVersionID == nil {
		return nil, problem.NewInternalServerError("artifact has no current version")
	}

	version, err := s.artifacts.GetVersion(ctx, *artifact.CurrentVersionID)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, problem.NewNotFound(*artifact.CurrentVersionID, "current version not found")
	}
	if version.QuerySpecID == nil {
		return nil, problem.NewBadRequest(artifact.ID, "artifact version has no query spec bound; nothing to execute")
	}

	spec, err := s.workspace.GetQuerySpec(ctx, *version.QuerySpecID, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if spec == nil {
		return nil, problem.NewNotFound(*version.QuerySpecID, "query spec not found in this organization")
	}

	source, err := s.workspace.GetDataSource(ctx, spec.SourceID, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, problem.NewNotFound(spec.SourceID, "data source not found in this organization")
	}

	// Dedupe: at most one non-terminal run per artifact. The conditional
	// insert below is the race-safe gate; this read just avoids burning a
	// row id in the common case.
	if existing, err := s.runs.FindActiveRun(ctx, artifact.ID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	run := &models.ArtifactRun{
		ID:             shortid.MustGenerate(),
		OrganizationID: in.OrganizationID,
		ArtifactID:     artifact.ID,
		VersionID:      version.ID,
		TriggerType:    in.TriggerType,
		StartedAt:      time.Now(),
	}
	// Losing the conditional insert always resolves to the winner's row.
	// When the winner completes between our insert and the re-read, the
	// dedupe key is free again and the next insert attempt can land, so
	// the loop never surfaces a duplicate to the caller.
	for {
		err := s.runs.InsertPending(ctx, run)
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrDuplicateActiveRun) {
			return nil, err
		}
		winner, ferr := s.runs.FindActiveRun(ctx, artifact.ID)
		if ferr != nil {
			return nil, ferr
		}
		if winner != nil {
			return winner, nil
		}
	}

	if err := s.runs.MarkRunning(ctx, run.ID); err != nil {
		return nil, err
	}

	s.execute(ctx, run, version, spec, source, in.ParamsJSON)

	final, err := s.runs.GetRun(ctx, run.ID, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if final == nil {
		return nil, problem.NewInternalServerError("run row disappeared after execution")
	}
	return final, nil
}

// execute drives the adapter call and always moves the run to a terminal
// state; adapter errors are recorded, never propagated.
func (s *RunService) execute(ctx context.Context, run *models.ArtifactRun, version *models.ArtifactVersion, spec *models.QuerySpec, source *models.DataSource, overrides datatypes.JSON) {
	result, elapsed, err := s.dispatch(ctx, spec, source, overrides)
	if err != nil {
		errorText := classifyRunError(err)
		log.Printf("[run] run=%s artifact=%s failed: %s", run.ID, run.ArtifactID, errorText)
		if cerr := s.runs.CompleteRun(ctx, run.ID, models.RunStatusFailed, nil, errorText); cerr != nil {
			log.Printf("[run] run=%s could not record failure: %v", run.ID, cerr)
		}
		return
	}

	meta := models.RunResultMeta{
		RowCount:        len(result.Rows),
		Columns:         result.Columns,
		ExecutionTimeMs: elapsed.Milliseconds(),
	}
	metaJSON, merr := json.Marshal(meta)
	if merr != nil {
		metaJSON = []byte(`{}`)
	}
	if cerr := s.runs.CompleteRun(ctx, run.ID, models.RunStatusSucceeded, metaJSON, ""); cerr != nil {
		log.Printf("[run] run=%s could not record success: %v", run.ID, cerr)
	}
}

func (s *RunService) dispatch(ctx context.Context, spec *models.QuerySpec, source *models.DataSource, overrides datatypes.JSON) (*adapters.QueryResult, time.Duration, error) {
	adapter, err := s.gateway.ForSource(source)
	if err != nil {
		return nil, 0, err
	}

	params := mergeParams(spec.ParametersJSON, overrides)
	start := time.Now()
	result, err := adapter.ExecuteQuery(ctx, spec.SQLText, params)
	return result, time.Since(start), err
}

// mergeParams overlays runtime overrides on the spec's stored defaults.
func mergeParams(defaults, overrides datatypes.JSON) map[string]any {
	params := map[string]any{}
	if len(defaults) > 0 {
		_ = json.Unmarshal(defaults, &params)
	}
	if len(overrides) > 0 {
		var o map[string]any
		if err := json.Unmarshal(overrides, &o); err == nil {
			for k, v := range o {
				params[k] = v
			}
		}
	}
	return params
}

func classifyRunError(err error) string {
	var aerr *adapters.AdapterError
	if errors.As(err, &aerr) {
		return aerr.Error()
	}
	return "internal: " + err.Error()
}

func (s *RunService) GetRun(ctx context.Context, id, orgID string) (*models.ArtifactRun, error) {
	return s.runs.GetRun(ctx, id, orgID)
}

func (s *RunService) ListRuns(ctx context.Context, artifactID, orgID string) ([]models.ArtifactRun, error) {
	artifact, err := s.artifacts.GetArtifact(ctx, artifactID, orgID)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, problem.NewNotFound(artifactID, "artifact not found in this organization")
	}
	return s.runs.ListRuns(ctx, artifactID, orgID)
}

// ReclaimStuckRuns fails runs left in running past the staleness
// threshold, e.g. after a process crash mid-execution.
func (s *RunService) ReclaimStuckRuns(ctx context.Context, staleAfter time.Duration) (int64, error) {
	cutoff := time.Now().Add(-staleAfter)
	errorText := fmt.Sprintf("transient: run timed out after exceeding the %s staleness threshold", staleAfter)
	count, err := s.runs.ReclaimStuckRuns(ctx, cutoff, errorText)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Printf("[watchdog] reclaimed %d stuck run(s)", count)
	}
	return count, nil
}
