package repository

import (
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rfpforge/backend/internal/model"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db error: %v", err)
	}
	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	return db
}

func TestProjectRepositoryStageUpdate(t *testing.T) {
	db := openTestDB(t, &model.Project{}, &model.Domain{})
	repo := NewProjectRepository(db)

	project := &model.Project{Name: "智慧园区弱电系统", Description: "园区弱电总包招标"}
	if err := repo.Create(project); err != nil {
		t.Fatalf("create project error: %v", err)
	}

	loaded, err := repo.Get(project.ID)
	if err != nil {
		t.Fatalf("get project error: %v", err)
	}
	if loaded.CurrentStage != "draft" {
		t.Fatalf("expected default stage draft, got %s", loaded.CurrentStage)
	}

	if err := repo.UpdateStage(project.ID, "initialized"); err != nil {
		t.Fatalf("update stage error: %v", err)
	}

	loaded, err = repo.Get(project.ID)
	if err != nil {
		t.Fatalf("reload project error: %v", err)
	}
	if loaded.CurrentStage != "initialized" {
		t.Fatalf("expected stage initialized, got %s", loaded.CurrentStage)
	}
}

func TestProjectRepositoryNotFound(t *testing.T) {
	db := openTestDB(t, &model.Project{}, &model.Domain{})
	repo := NewProjectRepository(db)

	_, err := repo.Get(999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProjectRepositoryGetWithDetails(t *testing.T) {
	db := openTestDB(t, &model.Project{}, &model.Domain{}, &model.FormInput{},
		&model.PracticeInput{}, &model.DocumentSection{}, &model.SectionDiagram{})
	repo := NewProjectRepository(db)

	project := &model.Project{Name: "数据中心机电"}
	if err := repo.Create(project); err != nil {
		t.Fatalf("create project error: %v", err)
	}

	inputs := []model.FormInput{
		{ProjectID: project.ID, FieldKey: "budget", InputFields: model.InputFields{Label: "预算", Sequence: 2}},
		{ProjectID: project.ID, FieldKey: "timeline", InputFields: model.InputFields{Label: "工期", Sequence: 1}},
	}
	if err := db.Create(&inputs).Error; err != nil {
		t.Fatalf("create inputs error: %v", err)
	}

	section := model.DocumentSection{ProjectID: project.ID, Title: "概述", Sequence: 10}
	if err := db.Create(&section).Error; err != nil {
		t.Fatalf("create section error: %v", err)
	}
	diagram := model.SectionDiagram{SectionID: section.ID, Title: "系统拓扑"}
	if err := db.Create(&diagram).Error; err != nil {
		t.Fatalf("create diagram error: %v", err)
	}

	loaded, err := repo.GetWithDetails(project.ID)
	if err != nil {
		t.Fatalf("GetWithDetails error: %v", err)
	}
	if len(loaded.FormInputs) != 2 {
		t.Fatalf("expected 2 form inputs, got %d", len(loaded.FormInputs))
	}
	if loaded.FormInputs[0].FieldKey != "timeline" {
		t.Fatalf("expected inputs ordered by sequence, got %s first", loaded.FormInputs[0].FieldKey)
	}
	if len(loaded.Sections) != 1 || len(loaded.Sections[0].Diagrams) != 1 {
		t.Fatalf("expected section with diagram preloaded")
	}
}
