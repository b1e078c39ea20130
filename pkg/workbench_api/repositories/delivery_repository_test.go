package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/repositories"
)

func newChannel(orgID string, nextRunAt time.Time) *models.DeliveryChannel {
	return &models.DeliveryChannel{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		ArtifactID:     "a1",
		Type:           models.ChannelTypeWebhook,
		ScheduleCron:   "0 * * * *",
		NextRunAt:      nextRunAt,
		Enabled:        true,
		CreatedAt:      time.Now(),
	}
}

func TestDueChannels_SelectsOnlyDue(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewDeliveryRepository(db)
	ctx := context.Background()
	now := time.Now()

	due := newChannel("org1", now.Add(-time.Minute))
	require.NoError(t, repo.SaveChannel(ctx, due))

	future := newChannel("org1", now.Add(time.Hour))
	require.NoError(t, repo.SaveChannel(ctx, future))

	disabled := newChannel("org1", now.Add(-time.Minute))
	disabled.Enabled = false
	require.NoError(t, repo.SaveChannel(ctx, disabled))

	got, err := repo.DueChannels(ctx, nil, 10, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, due.ID, got[0].ID)
}

func TestDueChannels_RespectsLimitAndOrg(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewDeliveryRepository(db)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.SaveChannel(ctx, newChannel("org1", now.Add(-time.Duration(i+1)*time.Minute))))
	}
	require.NoError(t, repo.SaveChannel(ctx, newChannel("org2", now.Add(-time.Minute))))

	got, err := repo.DueChannels(ctx, nil, 3, now)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	org2 := "org2"
	got, err = repo.DueChannels(ctx, &org2, 10, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "org2", got[0].OrganizationID)
}

func TestMarkChannelRun_AdvancesSchedule(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewDeliveryRepository(db)
	ctx := context.Background()
	now := time.Now()

	channel := newChannel("org1", now.Add(-time.Minute))
	require.NoError(t, repo.SaveChannel(ctx, channel))

	next := now.Add(time.Hour)
	require.NoError(t, repo.MarkChannelRun(ctx, channel.ID, now, next, "send failed"))

	got, err := repo.GetChannel(ctx, channel.ID, "org1")
	require.NoError(t, err)
	require.NotNil(t, got.LastRunAt)
	assert.Equal(t, "send failed", got.LastError)
	assert.WithinDuration(t, next, got.NextRunAt, time.Second)

	due, err := repo.DueChannels(ctx, nil, 10, now)
	require.NoError(t, err)
	assert.Len(t, due, 0)
}
