package repository

import (
	"errors"

	"github.com/rfpforge/backend/internal/model"
	"gorm.io/gorm"
)

type publishedRepository struct {
	db *gorm.DB
}

func NewPublishedRepository(db *gorm.DB) PublishedRepository {
	return &publishedRepository{db: db}
}

// Create 在一个事务内写入快照及其章节与图示
func (r *publishedRepository) Create(published *model.PublishedRFP) error {
	return r.db.Create(published).Error
}

func (r *publishedRepository) GetByToken(token string) (*model.PublishedRFP, error) {
	var published model.PublishedRFP
	err := r.db.
		Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("sequence") }).
		Preload("Sections.Diagrams").
		Where("token = ?", token).First(&published).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &published, nil
}

func (r *publishedRepository) GetByProject(projectID uint) ([]model.PublishedRFP, error) {
	var published []model.PublishedRFP
	err := r.db.Where("project_id = ?", projectID).
		Order("published_at desc").Find(&published).Error
	return published, err
}
