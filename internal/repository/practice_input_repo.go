package repository

import (
	"errors"

	"github.com/rfpforge/backend/internal/model"
	"gorm.io/gorm"
)

type practiceInputRepository struct {
	db *gorm.DB
}

func NewPracticeInputRepository(db *gorm.DB) PracticeInputRepository {
	return &practiceInputRepository{db: db}
}

func (r *practiceInputRepository) Create(input *model.PracticeInput) error {
	return r.db.Create(input).Error
}

func (r *practiceInputRepository) CreateBatch(inputs []model.PracticeInput) error {
	if len(inputs) == 0 {
		return nil
	}
	return r.db.Create(&inputs).Error
}

func (r *practiceInputRepository) GetByProject(projectID uint) ([]model.PracticeInput, error) {
	var inputs []model.PracticeInput
	err := r.db.Where("project_id = ?", projectID).
		Order("round_number, sequence").Find(&inputs).Error
	return inputs, err
}

func (r *practiceInputRepository) Get(id uint) (*model.PracticeInput, error) {
	var input model.PracticeInput
	err := r.db.First(&input, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &input, nil
}

func (r *practiceInputRepository) Save(input *model.PracticeInput) error {
	return r.db.Save(input).Error
}

func (r *practiceInputRepository) ExistingKeys(projectID uint) (map[string]bool, error) {
	var keys []string
	err := r.db.Model(&model.PracticeInput{}).Where("project_id = ?", projectID).
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

func (r *practiceInputRepository) DeleteByProject(projectID uint) error {
	return r.db.Where("project_id = ?", projectID).Delete(&model.PracticeInput{}).Error
}
