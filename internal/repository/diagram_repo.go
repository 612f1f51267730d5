package repository

import (
	"errors"

	"github.com/rfpforge/backend/internal/model"
	"gorm.io/gorm"
)

type diagramRepository struct {
	db *gorm.DB
}

func NewDiagramRepository(db *gorm.DB) DiagramRepository {
	return &diagramRepository{db: db}
}

func (r *diagramRepository) Create(diagram *model.SectionDiagram) error {
	return r.db.Create(diagram).Error
}

func (r *diagramRepository) GetBySection(sectionID uint) ([]model.SectionDiagram, error) {
	var diagrams []model.SectionDiagram
	err := r.db.Where("section_id = ?", sectionID).Find(&diagrams).Error
	return diagrams, err
}

// GetByProject 取项目全部图示，经章节表关联
func (r *diagramRepository) GetByProject(projectID uint) ([]model.SectionDiagram, error) {
	var diagrams []model.SectionDiagram
	err := r.db.
		Joins("JOIN document_sections ON document_sections.id = section_diagrams.section_id").
		Where("document_sections.project_id = ?", projectID).
		Find(&diagrams).Error
	return diagrams, err
}

func (r *diagramRepository) Get(id uint) (*model.SectionDiagram, error) {
	var diagram model.SectionDiagram
	err := r.db.First(&diagram, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &diagram, nil
}

func (r *diagramRepository) Save(diagram *model.SectionDiagram) error {
	return r.db.Save(diagram).Error
}

func (r *diagramRepository) DeleteBySection(sectionID uint) error {
	return r.db.Where("section_id = ?", sectionID).Delete(&model.SectionDiagram{}).Error
}
