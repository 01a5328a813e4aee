package services

import (
	"math"
	"strings"

	"github.com/yungbote/angie-backend/internal/logger"
)

type PronunciationAnalysis struct {
	Score float64  `json:"score"`
	Hints []string `json:"hints"`
}

// PronunciationService scores spoken-form quality from the transcript alone.
// It stands in for an acoustic model; the score shape (word-count proxy,
// capped at 0.95) is intentional so downstream thresholds stay stable when a
// real scorer is swapped in.
type PronunciationService interface {
	Analyze(transcript string) PronunciationAnalysis
}

type pronunciationService struct {
	log *logger.Logger
}

func NewPronunciationService(baseLog *logger.Logger) PronunciationService {
	return &pronunciationService{log: baseLog.With("service", "PronunciationService")}
}

func (s *pronunciationService) Analyze(transcript string) PronunciationAnalysis {
	if strings.TrimSpace(transcript) == "" {
		return PronunciationAnalysis{
			Score: 0.4,
			Hints: []string{"Speak a little louder so I can capture your audio."},
		}
	}
	wordCount := len(strings.Fields(transcript))
	return PronunciationAnalysis{
		Score: math.Min(0.95, 0.6+0.01*float64(wordCount)),
		Hints: []string{
			"Watch final /d/ consonant release in 'didn't'.",
			"Keep your intonation falling at sentence endings.",
		},
	}
}
