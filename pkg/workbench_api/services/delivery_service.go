package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/delivery"
	problem "github.com/workbench-hq/workbench-api/pkg/workbench_api/helpers/problem"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/repositories"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	defaultSweepLimit = 20
	maxSweepLimit     = 100
)

// DeliveryService owns recurring delivery channels and the due-channel
// sweep that drives the execution engine on their behalf.
type DeliveryService struct {
	channels      repositories.DeliveryRepository
	artifacts     repositories.ArtifactRepository
	runs          *RunService
	senders       delivery.Senders
	maxConcurrent int64
}

func NewDeliveryService(
	channels repositories.DeliveryRepository,
	artifacts repositories.ArtifactRepository,
	runs *RunService,
	senders delivery.Senders,
	maxConcurrent int64,
) *DeliveryService {
	if maxConcurrent < 1 {
		maxConcurrent = 2
	}
	return &DeliveryService{
		channels:      channels,
		artifacts:     artifacts,
		runs:          runs,
		senders:       senders,
		maxConcurrent: maxConcurrent,
	}
}

func (s *DeliveryService) CreateChannel(ctx context.Context, in *models.CreateDeliveryChannelInput) (*models.DeliveryChannel, error) {
	if in.Type != models.ChannelTypeWebhook && in.Type != models.ChannelTypeEmail {
		return nil, problem.NewBadRequest("type", fmt.Sprintf("invalid channel type %q", in.Type),
			problem.InvalidParam{Name: "type", Reason: "must be webhook or email"})
	}

	schedule, err := cron.ParseStandard(in.ScheduleCron)
	if err != nil {
		return nil, problem.NewBadRequest("scheduleCron", fmt.Sprintf("invalid cron schedule: %v", err),
			problem.InvalidParam{Name: "scheduleCron", Reason: "must be a standard 5-field cron expression"})
	}

	artifact, err := s.artifacts.GetArtifact(ctx, in.ArtifactID, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, problem.NewNotFound(in.ArtifactID, "artifact not found in this organization")
	}

	now := time.Now()
	channel := &models.DeliveryChannel{
		ID:             uuid.New().String(),
		OrganizationID: in.OrganizationID,
		ArtifactID:     in.ArtifactID,
		Type:           in.Type,
		ConfigJSON:     in.ConfigJSON,
		ScheduleCron:   in.ScheduleCron,
		NextRunAt:      schedule.Next(now),
		Enabled:        true,
		CreatedAt:      now,
	}
	if err := s.channels.SaveChannel(ctx, channel); err != nil {
		return nil, err
	}
	return channel, nil
}

func (s *DeliveryService) ListChannels(ctx context.Context, p *models.ListDeliveryChannelsParams) ([]models.DeliveryChannel, error) {
	return s.channels.ListChannels(ctx, p)
}

func (s *DeliveryService) DeleteChannel(ctx context.Context, id, orgID string) error {
	channel, err := s.channels.GetChannel(ctx, id, orgID)
	if err != nil {
		return err
	}
	if channel == nil {
		return problem.NewNotFound(id, "delivery channel not found in this organization")
	}
	return s.channels.DeleteChannel(ctx, id, orgID)
}

// RunDueChannels processes up to limit due channels with a capped parallel
// fan-out. One channel's failure is recorded and never aborts the rest.
func (s *DeliveryService) RunDueChannels(ctx context.Context, orgID *string, limit int) (*models.DeliverySweepReport, error) {
	if limit < 1 {
		limit = defaultSweepLimit
	}
	if limit > maxSweepLimit {
		limit = maxSweepLimit
	}

	due, err := s.channels.DueChannels(ctx, orgID, limit, time.Now())
	if err != nil {
		return nil, err
	}

	report := &models.DeliverySweepReport{Attempted: len(due)}
	var mu sync.Mutex

	sem := semaphore.NewWeighted(s.maxConcurrent)
	g, gctx := errgroup.WithContext(ctx)
	var acquireErr error
	for _, channel := range due {
		channel := channel // capture

		if err := sem.Acquire(gctx, 1); err != nil {
			// Launched goroutines still hold the report; drain them
			// before returning.
			acquireErr = err
			break
		}
		g.Go(func() error {
			defer sem.Release(1)

			cerr := s.processChannel(gctx, &channel)

			mu.Lock()
			defer mu.Unlock()
			if cerr != nil {
				report.Failed++
				report.Errors = append(report.Errors, *cerr)
			} else {
				report.Succeeded++
			}
			return nil // channel failures are recorded, never propagated
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if acquireErr != nil {
		return nil, acquireErr
	}
	return report, nil
}

// processChannel runs the channel's artifact, hands the outcome to the
// sender and advances the schedule regardless of the result.
func (s *DeliveryService) processChannel(ctx context.Context, channel *models.DeliveryChannel) *models.ChannelError {
	ranAt := time.Now()
	cerr := s.deliver(ctx, channel)

	lastError := ""
	if cerr != nil {
		lastError = cerr.Error
		log.Printf("[delivery] channel=%s stage=%s error=%s", channel.ID, cerr.Stage, cerr.Error)
	}
	if err := s.channels.MarkChannelRun(ctx, channel.ID, ranAt, s.nextRun(channel, ranAt), lastError); err != nil {
		log.Printf("[delivery] channel=%s could not persist sweep outcome: %v", channel.ID, err)
	}
	return cerr
}

func (s *DeliveryService) deliver(ctx context.Context, channel *models.DeliveryChannel) *models.ChannelError {
	run, err := s.runs.RunArtifact(ctx, &models.TriggerRunInput{
		ArtifactID:     channel.ArtifactID,
		OrganizationID: channel.OrganizationID,
		TriggerType:    models.TriggerDelivery,
	})
	if err != nil {
		return &models.ChannelError{ChannelID: channel.ID, Stage: "run", Error: err.Error()}
	}
	if run.Status == models.RunStatusFailed {
		return &models.ChannelError{ChannelID: channel.ID, Stage: "run", Error: run.ErrorText}
	}

	sender, ok := s.senders[channel.Type]
	if !ok {
		return &models.ChannelError{ChannelID: channel.ID, Stage: "send", Error: fmt.Sprintf("no sender registered for type %q", channel.Type)}
	}

	artifact, err := s.artifacts.GetArtifact(ctx, channel.ArtifactID, channel.OrganizationID)
	if err != nil {
		return &models.ChannelError{ChannelID: channel.ID, Stage: "send", Error: err.Error()}
	}
	artifactName := channel.ArtifactID
	if artifact != nil {
		artifactName = artifact.Name
	}

	result, err := sender.Send(ctx, channel, &delivery.Content{
		ArtifactID:   channel.ArtifactID,
		ArtifactName: artifactName,
		RunID:        run.ID,
		Status:       run.Status,
		ResultMeta:   run.ResultMetaJSON,
		CompletedAt:  run.CompletedAt,
	})
	if err != nil {
		return &models.ChannelError{ChannelID: channel.ID, Stage: "send", Error: err.Error()}
	}
	if !result.Success {
		return &models.ChannelError{ChannelID: channel.ID, Stage: "send", Error: result.Error}
	}
	return nil
}

func (s *DeliveryService) nextRun(channel *models.DeliveryChannel, after time.Time) time.Time {
	schedule, err := cron.ParseStandard(channel.ScheduleCron)
	if err != nil {
		// Schedule went bad after creation; push an hour out so the sweep
		// does not spin on it.
		return after.Add(time.Hour)
	}
	return schedule.Next(after)
}
