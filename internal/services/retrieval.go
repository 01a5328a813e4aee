package services

import (
	"context"
	"math"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/repos"
	"github.com/yungbote/angie-backend/internal/types"
)

var cefrPrefixRe = regexp.MustCompile(`^[A-C][1-2]$`)

const (
	maxPedagogyDocs   = 5
	maxPersonalMemory = 5
	pedagogyDocScore  = 0.8
)

type RetrievalService interface {
	Retrieve(ctx context.Context, plan *types.Plan) (*types.RetrievalResult, error)
}

type retrievalService struct {
	db     *gorm.DB
	log    *logger.Logger
	docs   repos.KbDocRepo
	runs   repos.LessonRunRepo
	errors repos.ErrorLogRepo
}

func NewRetrievalService(db *gorm.DB, baseLog *logger.Logger, docs repos.KbDocRepo, runs repos.LessonRunRepo, errors repos.ErrorLogRepo) RetrievalService {
	return &retrievalService{
		db:     db,
		log:    baseLog.With("service", "RetrievalService"),
		docs:   docs,
		runs:   runs,
		errors: errors,
	}
}

// Retrieve is a pure read. Store errors degrade to an empty (still valid)
// result rather than failing the turn.
func (s *retrievalService) Retrieve(ctx context.Context, plan *types.Plan) (*types.RetrievalResult, error) {
	result := &types.RetrievalResult{
		PersonalMemory: []types.ScoredDoc{},
		PedagogyDocs:   []types.ScoredDoc{},
	}

	topics := vocabTopics(plan.Targets)
	cefr := cefrPrefix(plan.Targets)

	docs, err := s.docs.Search(ctx, nil, topics, cefr, maxPedagogyDocs)
	if err != nil {
		s.log.Warn("Pedagogy doc retrieval failed, continuing with empty docs", "lesson_id", plan.LessonID, "error", err)
	} else {
		for _, doc := range docs {
			result.PedagogyDocs = append(result.PedagogyDocs, types.ScoredDoc{
				ID:      doc.ExternalRef,
				Content: string(doc.Content),
				Score:   pedagogyDocScore,
			})
		}
	}

	entries := s.recentErrors(ctx, plan.LessonID)
	for rank, entry := range entries {
		result.PersonalMemory = append(result.PersonalMemory, types.ScoredDoc{
			ID:      entry.ID.String(),
			Content: entry.Snippet + " → " + entry.Correction,
			Score:   math.Max(0.2, 1-0.1*float64(rank)),
		})
	}

	return result, nil
}

func (s *retrievalService) recentErrors(ctx context.Context, lessonID string) []*types.ErrorLog {
	run, err := s.runs.GetByLessonID(ctx, nil, lessonID)
	if err != nil {
		s.log.Warn("Lesson run lookup failed during retrieval", "lesson_id", lessonID, "error", err)
		return nil
	}
	if run == nil {
		return nil
	}
	entries, err := s.errors.GetRecentByRunID(ctx, nil, run.ID, maxPersonalMemory)
	if err != nil {
		s.log.Warn("Error log retrieval failed, continuing with empty memory", "lesson_id", lessonID, "error", err)
		return nil
	}
	return entries
}

func vocabTopics(targets []types.Target) []string {
	var topics []string
	for _, target := range targets {
		if target.Type == types.TargetVocab {
			topics = append(topics, target.ID)
		}
	}
	return topics
}

// cefrPrefix extracts a CEFR level like "A2" from target ids of the form
// "A2.past_simple"; the first match wins.
func cefrPrefix(targets []types.Target) string {
	for _, target := range targets {
		prefix, _, _ := strings.Cut(target.ID, ".")
		if cefrPrefixRe.MatchString(prefix) {
			return prefix
		}
	}
	return ""
}
