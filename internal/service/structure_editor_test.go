package service

import (
	"errors"
	"strconv"
	"testing"

	"github.com/rfpforge/backend/internal/model"
	"github.com/rfpforge/backend/internal/service/statemachine"
)

func TestStructureEditorApplyEdit(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, string(statemachine.StageSectionsGenerated))
	editor := NewStructureEditor(env.projects, env.sections)

	seeded := []model.DocumentSection{
		{ProjectID: project.ID, Title: "Introduction", Sequence: 10},
		{ProjectID: project.ID, Title: "Scope", Sequence: 20},
		{ProjectID: project.ID, Title: "Obsolete", Sequence: 30},
	}
	if err := env.sections.CreateBatch(seeded); err != nil {
		t.Fatalf("seed sections error: %v", err)
	}
	all, _ := env.sections.GetByProject(project.ID)

	mapping, err := editor.ApplyEdit(project.ID, []SectionEdit{
		{ID: strconv.Itoa(int(all[0].ID)), Title: "Introduction (revised)", Sequence: 10},
		{ID: "new_a1", Title: "Evaluation Criteria", Sequence: 15},
		{ID: strconv.Itoa(int(all[1].ID)), Title: "Scope", Sequence: 20},
	})
	if err != nil {
		t.Fatalf("apply edit error: %v", err)
	}
	// 占位 ID 换发真实 ID
	newID, ok := mapping["new_a1"]
	if !ok || newID == 0 {
		t.Fatalf("expected placeholder remapped, got %v", mapping)
	}

	result, _ := env.sections.GetByProject(project.ID)
	if len(result) != 3 {
		t.Fatalf("expected 3 sections after edit, got %d", len(result))
	}
	if result[0].Title != "Introduction (revised)" {
		t.Fatalf("expected title updated, got %s", result[0].Title)
	}
	if result[1].ID != newID || result[1].GenerationStatus != string(statemachine.GenerationPending) {
		t.Fatalf("expected new pending section at sequence 15, got %+v", result[1])
	}
	// 编辑列表里缺席的 Obsolete 被删除
	for _, sec := range result {
		if sec.Title == "Obsolete" {
			t.Fatalf("expected absent section deleted")
		}
	}
}

func TestStructureEditorRejectsLockedDocument(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, string(statemachine.StageDocumentLocked))
	editor := NewStructureEditor(env.projects, env.sections)

	_, err := editor.ApplyEdit(project.ID, []SectionEdit{{ID: "new_x", Title: "T", Sequence: 10}})
	if !errors.Is(err, ErrDocumentLocked) {
		t.Fatalf("expected ErrDocumentLocked, got %v", err)
	}
	if err := editor.SaveContent(project.ID, []SectionContentEdit{{ID: 1, ContentHTML: "x"}}); !errors.Is(err, ErrDocumentLocked) {
		t.Fatalf("expected ErrDocumentLocked on content save, got %v", err)
	}
}

func TestStructureEditorSaveContent(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, string(statemachine.StageContentGenerated))
	editor := NewStructureEditor(env.projects, env.sections)

	section := &model.DocumentSection{
		ProjectID: project.ID, Title: "章节", Sequence: 10,
		GenerationStatus: string(statemachine.GenerationFailed), ErrorMsg: "boom",
	}
	if err := env.sections.Create(section); err != nil {
		t.Fatalf("seed section error: %v", err)
	}

	if err := editor.SaveContent(project.ID, []SectionContentEdit{
		{ID: section.ID, ContentHTML: "<p>人工修订</p>"},
	}); err != nil {
		t.Fatalf("save content error: %v", err)
	}
	loaded, _ := env.sections.Get(section.ID)
	if loaded.ContentHTML != "<p>人工修订</p>" {
		t.Fatalf("expected content saved, got %q", loaded.ContentHTML)
	}
	// 人工补救后清除失败状态
	if loaded.GenerationStatus != string(statemachine.GenerationSuccess) || loaded.ErrorMsg != "" {
		t.Fatalf("expected failure cleared, got %+v", loaded)
	}
}

func TestStructureEditorRejectsForeignSection(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, string(statemachine.StageContentGenerated))
	other := env.createProject(t, string(statemachine.StageContentGenerated))
	editor := NewStructureEditor(env.projects, env.sections)

	section := &model.DocumentSection{ProjectID: other.ID, Title: "别家章节", Sequence: 10}
	if err := env.sections.Create(section); err != nil {
		t.Fatalf("seed section error: %v", err)
	}

	if err := editor.SaveContent(project.ID, []SectionContentEdit{
		{ID: section.ID, ContentHTML: "x"},
	}); err == nil {
		t.Fatalf("expected cross-project rejection")
	}
}
