package repository

import (
	"errors"

	"github.com/rfpforge/backend/internal/model"
	"gorm.io/gorm"
)

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(project *model.Project) error {
	return r.db.Create(project).Error
}

func (r *projectRepository) List() ([]model.Project, error) {
	var projects []model.Project
	err := r.db.Preload("Domain").Order("created_at desc").Find(&projects).Error
	return projects, err
}

func (r *projectRepository) Get(id uint) (*model.Project, error) {
	var project model.Project
	err := r.db.Preload("Domain").First(&project, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

// GetWithDetails 加载项目及其访谈字段与章节（含图示），供状态查询与发布使用
func (r *projectRepository) GetWithDetails(id uint) (*model.Project, error) {
	var project model.Project
	err := r.db.
		Preload("Domain").
		Preload("FormInputs", func(db *gorm.DB) *gorm.DB { return db.Order("sequence") }).
		Preload("PracticeInputs", func(db *gorm.DB) *gorm.DB { return db.Order("sequence") }).
		Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("sequence") }).
		Preload("Sections.Diagrams").
		First(&project, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) Save(project *model.Project) error {
	return r.db.Save(project).Error
}

func (r *projectRepository) UpdateStage(id uint, stage string) error {
	return r.db.Model(&model.Project{}).Where("id = ?", id).
		Update("current_stage", stage).Error
}

func (r *projectRepository) Delete(id uint) error {
	return r.db.Delete(&model.Project{}, id).Error
}
