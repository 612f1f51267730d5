package repository

import (
	"github.com/rfpforge/backend/internal/model"
	"gorm.io/gorm"
)

type customFieldRepository struct {
	db *gorm.DB
}

func NewCustomFieldRepository(db *gorm.DB) CustomFieldRepository {
	return &customFieldRepository{db: db}
}

func (r *customFieldRepository) Create(field *model.CustomField) error {
	return r.db.Create(field).Error
}

func (r *customFieldRepository) GetActiveByPhase(phase string) ([]model.CustomField, error) {
	var fields []model.CustomField
	err := r.db.Where("phase = ? AND active = ?", phase, true).
		Order("sequence").Find(&fields).Error
	return fields, err
}

func (r *customFieldRepository) List() ([]model.CustomField, error) {
	var fields []model.CustomField
	err := r.db.Order("phase, sequence").Find(&fields).Error
	return fields, err
}

func (r *customFieldRepository) Save(field *model.CustomField) error {
	return r.db.Save(field).Error
}

func (r *customFieldRepository) Delete(id uint) error {
	return r.db.Delete(&model.CustomField{}, id).Error
}
