package service

import (
	"context"
	"testing"

	"github.com/rfpforge/backend/internal/model"
	"github.com/rfpforge/backend/internal/service/prompt"
	"github.com/rfpforge/backend/internal/service/statemachine"
)

func newArchitect(env *testEnv) *ArchitectService {
	return NewArchitectService(env.gateway, env.projects, env.sections, env.bus)
}

func TestArchitectGenerateStructure(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, string(statemachine.StagePracticesGapGathered))
	svc := newArchitect(env)

	env.gateway.responses[prompt.PhaseArchitect] = `{
		"document_title": "Data Center RFP",
		"sections": [
			{"title": "Introduction", "description_intent": "frame the project and its drivers",
			 "subsections": [{"title": "Background", "description_intent": "history and current state"}, {"title": "Objectives"}]},
			{"title": "Scope of Work", "subsections": []}
		]
	}`

	sections, err := svc.GenerateStructure(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("generate structure error: %v", err)
	}
	// 两级目录拍平：Introduction, Background, Objectives, Scope of Work
	if len(sections) != 4 {
		t.Fatalf("expected 4 flattened sections, got %d", len(sections))
	}
	for i, sec := range sections {
		want := (i + 1) * 10
		if sec.Sequence != want {
			t.Fatalf("expected sequence %d at index %d, got %d", want, i, sec.Sequence)
		}
		if sec.GenerationStatus != string(statemachine.GenerationPending) {
			t.Fatalf("expected pending status, got %s", sec.GenerationStatus)
		}
	}
	if sections[1].Title != "Background" {
		t.Fatalf("expected subsection flattened after parent, got %s", sections[1].Title)
	}
	// 写作意图随章节落库，缺省为空
	if sections[0].DescriptionIntent != "frame the project and its drivers" {
		t.Fatalf("expected section intent persisted, got %q", sections[0].DescriptionIntent)
	}
	if sections[1].DescriptionIntent != "history and current state" {
		t.Fatalf("expected subsection intent persisted, got %q", sections[1].DescriptionIntent)
	}
	if sections[2].DescriptionIntent != "" {
		t.Fatalf("expected empty intent when model omits it, got %q", sections[2].DescriptionIntent)
	}

	loaded, _ := env.projects.Get(project.ID)
	if loaded.DocumentTitle != "Data Center RFP" {
		t.Fatalf("expected document title updated, got %q", loaded.DocumentTitle)
	}
	if loaded.TOCJson == "" {
		t.Fatalf("expected toc json cached")
	}
	if loaded.CurrentStage != string(statemachine.StageSectionsGenerated) {
		t.Fatalf("expected stage sections_generated, got %s", loaded.CurrentStage)
	}
}

func TestArchitectRegenerateReplacesSections(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, string(statemachine.StageSectionsGenerated))
	svc := newArchitect(env)

	old := &model.DocumentSection{ProjectID: project.ID, Title: "旧章节", Sequence: 10}
	if err := env.sections.Create(old); err != nil {
		t.Fatalf("seed section error: %v", err)
	}

	env.gateway.responses[prompt.PhaseArchitect] = `{
		"document_title": "Regenerated",
		"sections": [{"title": "Fresh Section"}]
	}`

	sections, err := svc.GenerateStructure(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("regenerate error: %v", err)
	}
	if len(sections) != 1 || sections[0].Title != "Fresh Section" {
		t.Fatalf("expected full replacement, got %+v", sections)
	}

	all, _ := env.sections.GetByProject(project.ID)
	if len(all) != 1 {
		t.Fatalf("old sections must be wiped, got %d", len(all))
	}
	loaded, _ := env.projects.Get(project.ID)
	if loaded.CurrentStage != string(statemachine.StageSectionsGenerated) {
		t.Fatalf("regeneration must not re-transition, got %s", loaded.CurrentStage)
	}
}

func TestArchitectFallbackOnBrokenResponse(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, string(statemachine.StagePracticesGapGathered))
	svc := newArchitect(env)

	env.gateway.responses[prompt.PhaseArchitect] = "not json at all"

	sections, err := svc.GenerateStructure(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("generate structure error: %v", err)
	}
	if len(sections) != 1 || sections[0].Title != "Executive Summary" {
		t.Fatalf("expected executive summary fallback, got %+v", sections)
	}

	loaded, _ := env.projects.Get(project.ID)
	if loaded.CurrentStage != string(statemachine.StageSectionsGenerated) {
		t.Fatalf("fallback still advances stage, got %s", loaded.CurrentStage)
	}
}

func TestArchitectRejectsWrongStage(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, "draft")
	svc := newArchitect(env)

	if _, err := svc.GenerateStructure(context.Background(), project.ID); err == nil {
		t.Fatalf("expected stage error")
	}
}
