package delivery

import (
	"context"
	"time"

	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"gorm.io/datatypes"
)

// Content is the run outcome handed to a delivery channel.
type Content struct {
	ArtifactID   string         `json:"artifactId"`
	ArtifactName string         `json:"artifactName"`
	RunID        string         `json:"runId"`
	Status       string         `json:"status"`
	ResultMeta   datatypes.JSON `json:"resultMeta,omitempty"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
}

type SendResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Sender is the delivery-channel collaborator: it moves content out of the
// system and reports whether the hand-off worked. Transports live behind
// this interface; the scheduler never knows which one it is talking to.
type Sender interface {
	Send(ctx context.Context, channel *models.DeliveryChannel, content *Content) (*SendResult, error)
}

// Senders maps a channel type to its transport.
type Senders map[string]Sender
