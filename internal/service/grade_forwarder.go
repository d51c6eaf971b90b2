package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
)

// GradeReconciledEventType names the event emitted for reconciled slots.
const GradeReconciledEventType = "grade.reconciled"

// ReconciledGrade is the final mark of one slot handed to the host grading pipeline.
type ReconciledGrade struct {
	Slot       int     `json:"slot"`
	Mark       string  `json:"mark"`
	GradeFinal float64 `json:"grade_final"`
	HeadRuled  bool    `json:"head_ruled"`
}

// GradeReconciledEvent carries every slot of one batch that newly reached a final grade.
type GradeReconciledEvent struct {
	Type     string            `json:"type"`
	Source   string            `json:"source"`
	UsageID  uint              `json:"usage_id"`
	Role     string            `json:"role"`
	GraderID uint              `json:"grader_id"`
	Grades   []ReconciledGrade `json:"grades"`
	SentAt   time.Time         `json:"sent_at"`
}

// GradeForwarder pushes reconciled grades to the host's grade submission flow.
type GradeForwarder interface {
	Forward(ctx context.Context, grader Grader, usageID uint, records []models.GradeRecord) error
}

type gradeForwarder struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
	now          func() time.Time
}

// NewGradeForwarder publishes to Redis pub/sub and NATS; either transport may be nil.
func NewGradeForwarder(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) GradeForwarder {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":reconciled"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".reconciled"
	}

	return &gradeForwarder{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "grade_forwarder").Logger(),
		now:          time.Now,
	}
}

func (f *gradeForwarder) Forward(ctx context.Context, grader Grader, usageID uint, records []models.GradeRecord) error {
	if len(records) == 0 {
		return nil
	}

	event := GradeReconciledEvent{
		Type:     GradeReconciledEventType,
		Source:   f.nodeID,
		UsageID:  usageID,
		Role:     string(grader.Role),
		GraderID: grader.ID,
		Grades:   make([]ReconciledGrade, 0, len(records)),
		SentAt:   f.now().UTC(),
	}
	for _, record := range records {
		if record.GradeFinal == nil {
			continue
		}
		event.Grades = append(event.Grades, ReconciledGrade{
			Slot:       record.Slot,
			Mark:       dto.FormatMark(*record.GradeFinal),
			GradeFinal: *record.GradeFinal,
			HeadRuled:  record.HeadRuled(),
		})
	}
	if len(event.Grades) == 0 {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	if f.redis != nil && f.redisChannel != "" {
		if err := f.redis.Publish(ctx, f.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if f.nats != nil && f.natsSubject != "" {
		if err := f.nats.Publish(f.natsSubject, payload); err != nil {
			errs = append(errs, err)
		} else if err := f.nats.FlushTimeout(2 * time.Second); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		f.logger.Error().Err(err).Uint("usage_id", usageID).Msg("failed to forward reconciled grades")
		return err
	}

	f.logger.Debug().Uint("usage_id", usageID).Int("grades", len(event.Grades)).Msg("reconciled grades forwarded")
	return nil
}
