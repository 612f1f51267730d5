package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rfpforge/backend/internal/model"
	"github.com/rfpforge/backend/internal/repository"
	"github.com/rfpforge/backend/internal/service/statemachine"
	"k8s.io/klog/v2"
)

// 新建章节的占位 ID 前缀，前端在保存前用它标记未落库的行
const newSectionPrefix = "new_"

// StructureEditor 用户侧的文档结构/内容编辑
type StructureEditor struct {
	projectRepo repository.ProjectRepository
	sectionRepo repository.SectionRepository
}

func NewStructureEditor(projectRepo repository.ProjectRepository, sectionRepo repository.SectionRepository) *StructureEditor {
	return &StructureEditor{
		projectRepo: projectRepo,
		sectionRepo: sectionRepo,
	}
}

// SectionEdit 一条结构编辑项
// ID 为数字字符串（已有章节）或 "new_xxx" 占位（新章节）
type SectionEdit struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Sequence int    `json:"sequence"`
}

// SectionContentEdit 一条内容编辑项
type SectionContentEdit struct {
	ID          uint   `json:"id"`
	ContentHTML string `json:"content_html"`
}

// ApplyEdit 应用结构编辑：更新已有章节、创建占位章节、按差集删除缺席章节
// 返回 占位ID -> 真实ID 的映射
func (e *StructureEditor) ApplyEdit(projectID uint, edits []SectionEdit) (map[string]uint, error) {
	project, err := e.projectRepo.Get(projectID)
	if err != nil {
		return nil, err
	}
	if statemachine.IsLocked(statemachine.ProjectStage(project.CurrentStage)) {
		return nil, ErrDocumentLocked
	}

	existing, err := e.sectionRepo.GetByProject(projectID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*model.DocumentSection, len(existing))
	for i := range existing {
		byID[existing[i].ID] = &existing[i]
	}

	mapping := make(map[string]uint)
	kept := make(map[uint]bool)

	for _, edit := range edits {
		title := strings.TrimSpace(edit.Title)
		if title == "" {
			return nil, fmt.Errorf("section title must not be empty")
		}

		if strings.HasPrefix(edit.ID, newSectionPrefix) {
			section := &model.DocumentSection{
				ProjectID:        projectID,
				Title:            title,
				Sequence:         edit.Sequence,
				GenerationStatus: string(statemachine.GenerationPending),
			}
			if err := e.sectionRepo.Create(section); err != nil {
				return nil, err
			}
			mapping[edit.ID] = section.ID
			kept[section.ID] = true
			continue
		}

		id64, err := strconv.ParseUint(edit.ID, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid section id %q", edit.ID)
		}
		section, ok := byID[uint(id64)]
		if !ok {
			return nil, fmt.Errorf("%w: section %s", repository.ErrNotFound, edit.ID)
		}

		if section.Title != title || section.Sequence != edit.Sequence {
			section.Title = title
			section.Sequence = edit.Sequence
			if err := e.sectionRepo.Save(section); err != nil {
				return nil, err
			}
		}
		kept[section.ID] = true
	}

	// 差集删除：编辑列表里没有的旧章节视为被用户移除
	for id := range byID {
		if !kept[id] {
			if err := e.sectionRepo.Delete(id); err != nil {
				return nil, err
			}
			klog.V(6).Infof("结构编辑删除章节: projectID=%d, sectionID=%d", projectID, id)
		}
	}

	klog.V(6).Infof("结构编辑完成: projectID=%d, sections=%d, created=%d", projectID, len(edits), len(mapping))
	return mapping, nil
}

// SaveContent 保存章节内容编辑
func (e *StructureEditor) SaveContent(projectID uint, edits []SectionContentEdit) error {
	project, err := e.projectRepo.Get(projectID)
	if err != nil {
		return err
	}
	if statemachine.IsLocked(statemachine.ProjectStage(project.CurrentStage)) {
		return ErrDocumentLocked
	}

	for _, edit := range edits {
		section, err := e.sectionRepo.Get(edit.ID)
		if err != nil {
			return err
		}
		if section.ProjectID != projectID {
			return fmt.Errorf("section %d does not belong to project %d", edit.ID, projectID)
		}
		section.ContentHTML = edit.ContentHTML
		if strings.TrimSpace(edit.ContentHTML) != "" {
			section.GenerationStatus = string(statemachine.GenerationSuccess)
			section.ErrorMsg = ""
		}
		if err := e.sectionRepo.Save(section); err != nil {
			return err
		}
	}
	return nil
}
