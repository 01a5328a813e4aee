package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/repos"
	"github.com/yungbote/angie-backend/internal/types"
)

// LessonRunService persists turn outcomes (feedback, error annotations)
// against the active lesson run.
type LessonRunService interface {
	EnsureRun(ctx context.Context, profileID uuid.UUID, plan *types.Plan) (*types.LessonRun, error)
	RecordFeedback(ctx context.Context, lessonID string, feedback *types.TaskFeedback) error
}

type lessonRunService struct {
	db     *gorm.DB
	log    *logger.Logger
	runs   repos.LessonRunRepo
	errors repos.ErrorLogRepo
}

func NewLessonRunService(db *gorm.DB, baseLog *logger.Logger, runs repos.LessonRunRepo, errorLogs repos.ErrorLogRepo) LessonRunService {
	return &lessonRunService{
		db:     db,
		log:    baseLog.With("service", "LessonRunService"),
		runs:   runs,
		errors: errorLogs,
	}
}

func (s *lessonRunService) EnsureRun(ctx context.Context, profileID uuid.UUID, plan *types.Plan) (*types.LessonRun, error) {
	var structures, vocab []string
	for _, target := range plan.Targets {
		switch target.Type {
		case types.TargetStructure:
			structures = append(structures, target.ID)
		case types.TargetVocab:
			vocab = append(vocab, target.ID)
		}
	}
	structuresJSON, _ := json.Marshal(structures)
	vocabJSON, _ := json.Marshal(vocab)

	run, err := s.runs.Ensure(ctx, nil, &types.LessonRun{
		LessonID:         plan.LessonID,
		ProfileID:        profileID,
		TargetStructures: datatypes.JSON(structuresJSON),
		TargetVocab:      datatypes.JSON(vocabJSON),
	})
	if err != nil {
		return nil, fmt.Errorf("ensure lesson run: %w", err)
	}
	return run, nil
}

func (s *lessonRunService) RecordFeedback(ctx context.Context, lessonID string, feedback *types.TaskFeedback) error {
	run, err := s.runs.GetByLessonID(ctx, nil, lessonID)
	if err != nil {
		return fmt.Errorf("load lesson run: %w", err)
	}
	if run == nil {
		return nil
	}

	feedbackJSON, err := json.Marshal(feedback.Feedback)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}
	if err := s.runs.UpdateFeedback(ctx, nil, lessonID, datatypes.JSON(feedbackJSON)); err != nil {
		return fmt.Errorf("persist feedback: %w", err)
	}

	if len(feedback.Feedback.Errors) == 0 {
		return nil
	}
	entries := make([]*types.ErrorLog, 0, len(feedback.Feedback.Errors))
	for _, fbErr := range feedback.Feedback.Errors {
		entries = append(entries, &types.ErrorLog{
			ProfileID:   run.ProfileID,
			LessonRunID: run.ID,
			ErrorType:   strings.ToUpper(string(fbErr.Type)),
			Snippet:     fbErr.Snippet,
			Correction:  fbErr.Correction,
			Severity:    fbErr.Severity,
		})
	}
	if _, err := s.errors.Create(ctx, nil, entries); err != nil {
		return fmt.Errorf("append error log: %w", err)
	}
	return nil
}
