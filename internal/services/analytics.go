package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	redisclient "github.com/yungbote/angie-backend/internal/clients/redis"
	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/repos"
	"github.com/yungbote/angie-backend/internal/types"
)

var eventNameRe = regexp.MustCompile(`^[a-z0-9_\.]{3,64}$`)

const maxBatchEvents = 200

// AnalyticsService records structured turn events. Record is best-effort:
// storage or bus failures are logged and swallowed so a turn never fails on
// analytics. Ingest is the validated entry point for client-submitted batches
// and does surface errors.
type AnalyticsService interface {
	Record(ctx context.Context, profileID uuid.UUID, events []types.TurnEvent)
	Ingest(ctx context.Context, profileID uuid.UUID, events []types.TurnEvent) (int, error)
}

type analyticsService struct {
	db     *gorm.DB
	log    *logger.Logger
	events repos.UserEventRepo
	bus    redisclient.TurnBus
}

// NewAnalyticsService accepts a nil bus; events then only land in postgres.
func NewAnalyticsService(db *gorm.DB, baseLog *logger.Logger, events repos.UserEventRepo, bus redisclient.TurnBus) AnalyticsService {
	return &analyticsService{
		db:     db,
		log:    baseLog.With("service", "AnalyticsService"),
		events: events,
		bus:    bus,
	}
}

func (s *analyticsService) Record(ctx context.Context, profileID uuid.UUID, events []types.TurnEvent) {
	if len(events) == 0 {
		return
	}
	rows := make([]*types.UserEvent, 0, len(events))
	for _, event := range events {
		props, err := json.Marshal(event.Props)
		if err != nil {
			s.log.Warn("Dropping event with unserializable props", "event", event.Name, "error", err)
			continue
		}
		rows = append(rows, &types.UserEvent{
			ProfileID: profileID,
			Name:      event.Name,
			Props:     datatypes.JSON(props),
		})
	}
	if _, err := s.events.Create(ctx, nil, rows); err != nil {
		s.log.Warn("Analytics write failed", "events", len(rows), "error", err)
	}
	s.publish(ctx, profileID, events)
}

func (s *analyticsService) publish(ctx context.Context, profileID uuid.UUID, events []types.TurnEvent) {
	if s.bus == nil {
		return
	}
	for _, event := range events {
		err := s.bus.Publish(ctx, redisclient.TurnMessage{
			ProfileID: profileID.String(),
			Name:      event.Name,
			Props:     event.Props,
			At:        time.Now().UTC(),
		})
		if err != nil {
			s.log.Warn("Turn bus publish failed", "event", event.Name, "error", err)
		}
	}
}

func (s *analyticsService) Ingest(ctx context.Context, profileID uuid.UUID, events []types.TurnEvent) (int, error) {
	if profileID == uuid.Nil {
		return 0, fmt.Errorf("not authenticated")
	}
	if len(events) == 0 {
		return 0, nil
	}
	if len(events) > maxBatchEvents {
		return 0, fmt.Errorf("too many events (max %d)", maxBatchEvents)
	}

	rows := make([]*types.UserEvent, 0, len(events))
	for i, event := range events {
		name := strings.TrimSpace(strings.ToLower(event.Name))
		if !eventNameRe.MatchString(name) {
			return 0, fmt.Errorf("invalid event name at index %d", i)
		}
		props, err := json.Marshal(event.Props)
		if err != nil {
			return 0, fmt.Errorf("invalid event props at index %d: %w", i, err)
		}
		rows = append(rows, &types.UserEvent{
			ProfileID: profileID,
			Name:      name,
			Props:     datatypes.JSON(props),
		})
	}

	created, err := s.events.Create(ctx, nil, rows)
	if err != nil {
		s.log.Warn("Event ingest failed", "error", err)
		return 0, err
	}
	return len(created), nil
}
