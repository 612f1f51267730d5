package repository

import (
	"errors"

	"github.com/rfpforge/backend/internal/model"
	"gorm.io/gorm"
)

type formInputRepository struct {
	db *gorm.DB
}

func NewFormInputRepository(db *gorm.DB) FormInputRepository {
	return &formInputRepository{db: db}
}

func (r *formInputRepository) Create(input *model.FormInput) error {
	return r.db.Create(input).Error
}

func (r *formInputRepository) CreateBatch(inputs []model.FormInput) error {
	if len(inputs) == 0 {
		return nil
	}
	return r.db.Create(&inputs).Error
}

func (r *formInputRepository) GetByProject(projectID uint) ([]model.FormInput, error) {
	var inputs []model.FormInput
	err := r.db.Where("project_id = ?", projectID).
		Order("round_number, sequence").Find(&inputs).Error
	return inputs, err
}

func (r *formInputRepository) Get(id uint) (*model.FormInput, error) {
	var input model.FormInput
	err := r.db.First(&input, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &input, nil
}

func (r *formInputRepository) Save(input *model.FormInput) error {
	return r.db.Save(input).Error
}

// ExistingKeys 返回项目已存在的 field_key 集合，用于物化去重
func (r *formInputRepository) ExistingKeys(projectID uint) (map[string]bool, error) {
	var keys []string
	err := r.db.Model(&model.FormInput{}).Where("project_id = ?", projectID).
		Pluck("field_key", &keys).Error
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(keys))
	for _, k := range keys {
		existing[k] = true
	}
	return existing, nil
}

func (r *formInputRepository) DeleteByProject(projectID uint) error {
	return r.db.Where("project_id = ?", projectID).Delete(&model.FormInput{}).Error
}
