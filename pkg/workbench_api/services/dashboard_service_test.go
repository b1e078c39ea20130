package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	problem "github.com/workbench-hq/workbench-api/pkg/workbench_api/helpers/problem"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/services"
)

// seedArtifact creates an artifact of the given type in org1.
func seedArtifact(t *testing.T, env *testEnv, artifactType, name string) *models.Artifact {
	svc := services.NewArtifactService(env.artifacts, env.workspace)
	created, err := svc.CreateArtifact(context.Background(), &models.CreateArtifactInput{
		OrganizationID: "org1",
		ProjectID:      "p1",
		Type:           artifactType,
		Name:           name,
	})
	require.NoError(t, err)
	return &created.Artifact
}

func TestAddItem_SelfEmbedRejected(t *testing.T) {
	env := setupEnv(t)
	seedWorkspace(t, env)
	dashboard := seedArtifact(t, env, models.ArtifactTypeDashboard, "overview")
	svc := services.NewDashboardService(env.artifacts)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, &models.AddItemInput{
		DashboardArtifactID: dashboard.ID,
		OrganizationID:      "org1",
		ChildArtifactID:     dashboard.ID,
	})
	require.Error(t, err)
	apiErr, ok := err.(problem.APIError)
	require.True(t, ok)
	assert.Equal(t, 400, apiErr.Status)

	// Nothing was inserted.
	items, err := env.artifacts.ListItems(ctx, dashboard.ID)
	require.NoError(t, err)
	assert.Len(t, items, 0)
}

func TestAddItem_NonDashboardParentRejected(t *testing.T) {
	env := setupEnv(t)
	seedWorkspace(t, env)
	kpi := seedArtifact(t, env, models.ArtifactTypeKPI, "revenue")
	chart := seedArtifact(t, env, models.ArtifactTypeChart, "trend")
	svc := services.NewDashboardService(env.artifacts)

	_, err := svc.AddItem(context.Background(), &models.AddItemInput{
		DashboardArtifactID: kpi.ID,
		OrganizationID:      "org1",
		ChildArtifactID:     chart.ID,
	})
	require.Error(t, err)
	apiErr, ok := err.(problem.APIError)
	require.True(t, ok)
	assert.Equal(t, 400, apiErr.Status)
}

func TestAddItem_CycleRejected(t *testing.T) {
	env := setupEnv(t)
	seedWorkspace(t, env)
	dashA := seedArtifact(t, env, models.ArtifactTypeDashboard, "A")
	dashB := seedArtifact(t, env, models.ArtifactTypeDashboard, "B")
	dashC := seedArtifact(t, env, models.ArtifactTypeDashboard, "C")
	svc := services.NewDashboardService(env.artifacts)
	ctx := context.Background()

	// A -> B -> C is fine.
	_, err := svc.AddItem(ctx, &models.AddItemInput{
		DashboardArtifactID: dashA.ID, OrganizationID: "org1", ChildArtifactID: dashB.ID,
	})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, &models.AddItemInput{
		DashboardArtifactID: dashB.ID, OrganizationID: "org1", ChildArtifactID: dashC.ID,
	})
	require.NoError(t, err)

	// C -> A would close the loop transitively.
	_, err = svc.AddItem(ctx, &models.AddItemInput{
		DashboardArtifactID: dashC.ID, OrganizationID: "org1", ChildArtifactID: dashA.ID,
	})
	require.Error(t, err)
	apiErr, ok := err.(problem.APIError)
	require.True(t, ok)
	assert.Equal(t, 400, apiErr.Status)

	// B -> A directly is likewise refused.
	_, err = svc.AddItem(ctx, &models.AddItemInput{
		DashboardArtifactID: dashB.ID, OrganizationID: "org1", ChildArtifactID: dashA.ID,
	})
	require.Error(t, err)
}

func TestAddItem_PinnedVersionMustBelongToChild(t *testing.T) {
	env := setupEnv(t)
	seedWorkspace(t, env)
	dashboard := seedArtifact(t, env, models.ArtifactTypeDashboard, "overview")
	kpi := seedArtifact(t, env, models.ArtifactTypeKPI, "revenue")
	other := seedArtifact(t, env, models.ArtifactTypeChart, "trend")
	svc := services.NewDashboardService(env.artifacts)

	_, err := svc.AddItem(context.Background(), &models.AddItemInput{
		DashboardArtifactID: dashboard.ID,
		OrganizationID:      "org1",
		ChildArtifactID:     kpi.ID,
		ChildVersionID:      other.CurrentVersionID,
	})
	require.Error(t, err)
	apiErr, ok := err.(problem.APIError)
	require.True(t, ok)
	assert.Equal(t, 400, apiErr.Status)
}

func TestListItems_PinnedVersionSurvivesReversioning(t *testing.T) {
	env := setupEnv(t)
	seedWorkspace(t, env)
	dashboard := seedArtifact(t, env, models.ArtifactTypeDashboard, "overview")
	pinnedChild := seedArtifact(t, env, models.ArtifactTypeKPI, "revenue")
	floatingChild := seedArtifact(t, env, models.ArtifactTypeChart, "trend")
	dashSvc := services.NewDashboardService(env.artifacts)
	artifactSvc := services.NewArtifactService(env.artifacts, env.workspace)
	ctx := context.Background()

	pinnedVersion := *pinnedChild.CurrentVersionID
	_, err := dashSvc.AddItem(ctx, &models.AddItemInput{
		DashboardArtifactID: dashboard.ID,
		OrganizationID:      "org1",
		ChildArtifactID:     pinnedChild.ID,
		ChildVersionID:      &pinnedVersion,
	})
	require.NoError(t, err)
	_, err = dashSvc.AddItem(ctx, &models.AddItemInput{
		DashboardArtifactID: dashboard.ID,
		OrganizationID:      "org1",
		ChildArtifactID:     floatingChild.ID,
	})
	require.NoError(t, err)

	// Both children move to a new version.
	for _, id := range []string{pinnedChild.ID, floatingChild.ID} {
		_, err = artifactSvc.CreateVersion(ctx, &models.CreateVersionInput{
			ArtifactID: id, OrganizationID: "org1", Notes: "v2",
		})
		require.NoError(t, err)
	}

	resolved, err := dashSvc.ListItems(ctx, &models.ListItemsParams{
		DashboardArtifactID: dashboard.ID,
		OrganizationID:      "org1",
	})
	require.NoError(t, err)
	require.Len(t, resolved, 2)

	byChild := map[string]models.ResolvedItem{}
	for _, r := range resolved {
		byChild[r.Child.ID] = r
	}

	pinned := byChild[pinnedChild.ID]
	require.NotNil(t, pinned.ResolvedVersion)
	assert.Equal(t, pinnedVersion, pinned.ResolvedVersion.ID)

	floating := byChild[floatingChild.ID]
	require.NotNil(t, floating.ResolvedVersion)
	assert.NotEqual(t, *floatingChild.CurrentVersionID, floating.ResolvedVersion.ID,
		"unpinned edge follows the child, which has moved on")
	assert.Equal(t, "v2", floating.ResolvedVersion.Notes)
}

func TestRemoveItem_NotFound(t *testing.T) {
	env := setupEnv(t)
	seedWorkspace(t, env)
	dashboard := seedArtifact(t, env, models.ArtifactTypeDashboard, "overview")
	svc := services.NewDashboardService(env.artifacts)

	err := svc.RemoveItem(context.Background(), &models.ItemParams{
		DashboardArtifactID: dashboard.ID,
		ItemID:              "no-such-item",
		OrganizationID:      "org1",
	})
	require.Error(t, err)
	apiErr, ok := err.(problem.APIError)
	require.True(t, ok)
	assert.Equal(t, 404, apiErr.Status)
}
