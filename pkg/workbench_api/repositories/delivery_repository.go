package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"gorm.io/gorm"
)

// DeliveryRepository owns the recurring delivery channels.
type DeliveryRepository interface {
	SaveChannel(ctx context.Context, channel *models.DeliveryChannel) error
	GetChannel(ctx context.Context, id, orgID string) (*models.DeliveryChannel, error)
	ListChannels(ctx context.Context, p *models.ListDeliveryChannelsParams) ([]models.DeliveryChannel, error)
	DeleteChannel(ctx context.Context, id, orgID string) error
	DueChannels(ctx context.Context, orgID *string, limit int, now time.Time) ([]models.DeliveryChannel, error)
	MarkChannelRun(ctx context.Context, id string, ranAt, nextRunAt time.Time, lastError string) error
}

type deliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

func (r *deliveryRepository) SaveChannel(ctx context.Context, channel *models.DeliveryChannel) error {
	return r.db.WithContext(ctx).Save(channel).Error
}

func (r *deliveryRepository) GetChannel(ctx context.Context, id, orgID string) (*models.DeliveryChannel, error) {
	var channel models.DeliveryChannel
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&channel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &channel, nil
}

func (r *deliveryRepository) ListChannels(ctx context.Context, p *models.ListDeliveryChannelsParams) ([]models.DeliveryChannel, error) {
	q := r.db.WithContext(ctx).Where("organization_id = ?", p.OrganizationID)
	if p.ArtifactID != nil {
		q = q.Where("artifact_id = ?", *p.ArtifactID)
	}

	var channels []models.DeliveryChannel
	if err := q.Order("created_at ASC").Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}

func (r *deliveryRepository) DeleteChannel(ctx context.Context, id, orgID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		Delete(&models.DeliveryChannel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DueChannels selects up to limit enabled channels whose next_run_at has
// passed, oldest first. Channels not yet due are left untouched.
func (r *deliveryRepository) DueChannels(ctx context.Context, orgID *string, limit int, now time.Time) ([]models.DeliveryChannel, error) {
	q := r.db.WithContext(ctx).
		Where("enabled = ? AND next_run_at <= ?", true, now)
	if orgID != nil {
		q = q.Where("organization_id = ?", *orgID)
	}

	var channels []models.DeliveryChannel
	err := q.Order("next_run_at ASC").Limit(limit).Find(&channels).Error
	if err != nil {
		return nil, err
	}
	return channels, nil
}

func (r *deliveryRepository) MarkChannelRun(ctx context.Context, id string, ranAt, nextRunAt time.Time, lastError string) error {
	return r.db.WithContext(ctx).Model(&models.DeliveryChannel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_run_at": &ranAt,
			"next_run_at": nextRunAt,
			"last_error":  lastError,
		}).Error
}
