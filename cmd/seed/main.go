package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gorm.io/datatypes"

	"github.com/yungbote/angie-backend/internal/db"
	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/repos"
	"github.com/yungbote/angie-backend/internal/types"
)

// Seeds the knowledge base and lesson templates used by a fresh install.
// Safe to run repeatedly.
func main() {
	log, err := logger.New("development")
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	kbDocRepo := repos.NewKbDocRepo(thePG, log)
	lessonTemplateRepo := repos.NewLessonTemplateRepo(thePG, log)

	ctx := context.Background()

	docContent, err := json.Marshal(map[string]any{
		"title": "Past simple: negatives",
		"body":  "Use did not + base verb. 'I didn't go', never 'I didn't went'.",
		"examples": []string{
			"I didn't go to the market yesterday.",
			"She didn't travel last summer.",
		},
	})
	if err != nil {
		log.Error("Marshal kb doc content failed", "error", err)
		os.Exit(1)
	}
	if err := kbDocRepo.UpsertByExternalRef(ctx, nil, &types.KbDoc{
		ExternalRef: "kb://a2/past_simple",
		CEFR:        "A2",
		Topic:       "travel_a2",
		Kind:        "grammar_note",
		Content:     datatypes.JSON(docContent),
	}); err != nil {
		log.Error("Seed kb doc failed", "error", err)
		os.Exit(1)
	}
	log.Info("Seeded kb doc", "external_ref", "kb://a2/past_simple")

	stages := []types.Stage{
		{ID: "warmup", Kind: types.StageDialogue, Goal: "ease into the topic", Prompt: "Tell me about your last trip."},
		{ID: "input", Kind: types.StageModeling, Goal: "model the target structure", Materials: &types.StageMaterials{KbRefs: []string{"kb://a2/past_simple"}}},
		{ID: "task", Kind: types.StageRoleplay, Goal: "produce the target structure", Prompt: "You are at a hotel reception. Check in and describe your journey.", Timeouts: &types.StageTimeouts{Soft: 10000, Hard: 20000}},
		{ID: "feedback", Kind: types.StageFormative, Goal: "correct and consolidate"},
		{ID: "review", Kind: types.StageSRS, Goal: "queue review items"},
	}
	stagesRaw, err := json.Marshal(stages)
	if err != nil {
		log.Error("Marshal template stages failed", "error", err)
		os.Exit(1)
	}
	if err := lessonTemplateRepo.Upsert(ctx, nil, &types.LessonTemplate{
		CEFR:   "A2",
		Topic:  "travel_a2",
		Stages: datatypes.JSON(stagesRaw),
	}); err != nil {
		log.Error("Seed lesson template failed", "error", err)
		os.Exit(1)
	}
	log.Info("Seeded lesson template", "cefr", "A2", "topic", "travel_a2")
}
