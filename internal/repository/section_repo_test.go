package repository

import (
	"testing"
	"time"

	"github.com/rfpforge/backend/internal/model"
)

func TestSectionRepositoryDeleteByProjectCascades(t *testing.T) {
	db := openTestDB(t, &model.DocumentSection{}, &model.SectionDiagram{})
	repo := NewSectionRepository(db)

	sections := []model.DocumentSection{
		{ProjectID: 1, Title: "概述", Sequence: 10},
		{ProjectID: 1, Title: "技术要求", Sequence: 20},
		{ProjectID: 2, Title: "其他项目章节", Sequence: 10},
	}
	if err := repo.CreateBatch(sections); err != nil {
		t.Fatalf("CreateBatch error: %v", err)
	}

	diagram := model.SectionDiagram{SectionID: sections[0].ID, Title: "拓扑图"}
	if err := db.Create(&diagram).Error; err != nil {
		t.Fatalf("create diagram error: %v", err)
	}

	if err := repo.DeleteByProject(1); err != nil {
		t.Fatalf("DeleteByProject error: %v", err)
	}

	var sectionCount, diagramCount int64
	db.Model(&model.DocumentSection{}).Count(&sectionCount)
	db.Model(&model.SectionDiagram{}).Count(&diagramCount)
	if sectionCount != 1 {
		t.Fatalf("expected 1 surviving section, got %d", sectionCount)
	}
	if diagramCount != 0 {
		t.Fatalf("expected diagrams cascaded, got %d", diagramCount)
	}
}

func TestSectionRepositoryCleanupStuck(t *testing.T) {
	db := openTestDB(t, &model.DocumentSection{})
	repo := NewSectionRepository(db)

	stale := model.DocumentSection{ProjectID: 1, Title: "卡住章节", GenerationStatus: "generating"}
	if err := db.Create(&stale).Error; err != nil {
		t.Fatalf("create section error: %v", err)
	}
	// 回拨 updated_at 模拟长时间未更新
	old := time.Now().Add(-2 * time.Hour)
	if err := db.Model(&model.DocumentSection{}).Where("id = ?", stale.ID).
		Update("updated_at", old).Error; err != nil {
		t.Fatalf("backdate error: %v", err)
	}

	fresh := model.DocumentSection{ProjectID: 1, Title: "正常章节", GenerationStatus: "generating"}
	if err := db.Create(&fresh).Error; err != nil {
		t.Fatalf("create section error: %v", err)
	}

	affected, err := repo.CleanupStuckSections(time.Hour)
	if err != nil {
		t.Fatalf("CleanupStuckSections error: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 affected, got %d", affected)
	}

	var reloaded model.DocumentSection
	if err := db.First(&reloaded, stale.ID).Error; err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if reloaded.GenerationStatus != "failed" || reloaded.ErrorMsg == "" {
		t.Fatalf("expected stale section marked failed, got %s", reloaded.GenerationStatus)
	}
}
