package service

import (
	"errors"
	"testing"

	"github.com/rfpforge/backend/internal/model"
	"github.com/rfpforge/backend/internal/service/statemachine"
)

func newPublishService(env *testEnv) *PublishService {
	return NewPublishService(env.projects, env.sections, env.diagrams, env.published)
}

func TestPublishSnapshot(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, string(statemachine.StageDocumentLocked))
	project.DocumentTitle = "Data Center RFP"
	if err := env.projects.Save(project); err != nil {
		t.Fatalf("save project error: %v", err)
	}
	svc := newPublishService(env)

	section := &model.DocumentSection{
		ProjectID: project.ID, Title: "Scope", ContentHTML: "<p>scope</p>", Sequence: 10,
		GenerationStatus: string(statemachine.GenerationSuccess),
	}
	if err := env.sections.Create(section); err != nil {
		t.Fatalf("seed section error: %v", err)
	}
	if err := env.diagrams.Create(&model.SectionDiagram{
		SectionID: section.ID, Title: "拓扑图", Image: []byte("png"),
	}); err != nil {
		t.Fatalf("seed diagram error: %v", err)
	}
	// 未成图的占位不进快照
	if err := env.diagrams.Create(&model.SectionDiagram{SectionID: section.ID, Title: "空图"}); err != nil {
		t.Fatalf("seed diagram error: %v", err)
	}

	published, err := svc.Publish(project.ID)
	if err != nil {
		t.Fatalf("publish error: %v", err)
	}
	if published.Token == "" {
		t.Fatalf("expected token assigned")
	}
	if published.Title != "Data Center RFP" {
		t.Fatalf("expected document title, got %q", published.Title)
	}

	loaded, err := svc.GetByToken(published.Token)
	if err != nil {
		t.Fatalf("get by token error: %v", err)
	}
	if len(loaded.Sections) != 1 {
		t.Fatalf("expected 1 published section, got %d", len(loaded.Sections))
	}
	if loaded.Sections[0].ContentHTML != "<p>scope</p>" {
		t.Fatalf("unexpected snapshot content")
	}
	if len(loaded.Sections[0].Diagrams) != 1 {
		t.Fatalf("expected only rendered diagrams, got %d", len(loaded.Sections[0].Diagrams))
	}

	// 快照与在编文档解耦：发布后修改章节不影响快照
	section.ContentHTML = "<p>edited later</p>"
	if err := env.sections.Save(section); err != nil {
		t.Fatalf("edit section error: %v", err)
	}
	loaded, _ = svc.GetByToken(published.Token)
	if loaded.Sections[0].ContentHTML != "<p>scope</p>" {
		t.Fatalf("snapshot must not follow edits")
	}
}

func TestPublishRejectsUnlockedStage(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, string(statemachine.StageImagesGenerated))
	svc := newPublishService(env)

	if _, err := svc.Publish(project.ID); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage, got %v", err)
	}
}

func TestPublishRejectsEmptyDocument(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, string(statemachine.StageDocumentLocked))
	svc := newPublishService(env)

	if _, err := svc.Publish(project.ID); err == nil {
		t.Fatalf("expected error for empty document")
	}
}

func TestPublishHistory(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, string(statemachine.StageDocumentLocked))
	svc := newPublishService(env)

	if err := env.sections.Create(&model.DocumentSection{
		ProjectID: project.ID, Title: "S", ContentHTML: "<p>v1</p>", Sequence: 10,
	}); err != nil {
		t.Fatalf("seed section error: %v", err)
	}

	first, err := svc.Publish(project.ID)
	if err != nil {
		t.Fatalf("publish error: %v", err)
	}
	second, err := svc.Publish(project.ID)
	if err != nil {
		t.Fatalf("second publish error: %v", err)
	}
	if first.Token == second.Token {
		t.Fatalf("each publication must get its own token")
	}

	history, err := svc.ListByProject(project.ID)
	if err != nil {
		t.Fatalf("history error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 publications, got %d", len(history))
	}
}
