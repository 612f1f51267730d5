package repository

import (
	"errors"

	"github.com/rfpforge/backend/internal/model"
	"gorm.io/gorm"
)

type aiLogRepository struct {
	db *gorm.DB
}

func NewAILogRepository(db *gorm.DB) AILogRepository {
	return &aiLogRepository{db: db}
}

func (r *aiLogRepository) Create(log *model.AIRequestLog) error {
	return r.db.Create(log).Error
}

func (r *aiLogRepository) Get(id uint) (*model.AIRequestLog, error) {
	var log model.AIRequestLog
	err := r.db.First(&log, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &log, nil
}

func (r *aiLogRepository) GetByRequestID(requestID string) (*model.AIRequestLog, error) {
	var log model.AIRequestLog
	err := r.db.Where("request_id = ?", requestID).First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &log, nil
}

func (r *aiLogRepository) Save(log *model.AIRequestLog) error {
	return r.db.Save(log).Error
}

func (r *aiLogRepository) GetByProject(projectID uint) ([]model.AIRequestLog, error) {
	var logs []model.AIRequestLog
	err := r.db.Where("project_id = ?", projectID).Order("created_at desc").Find(&logs).Error
	return logs, err
}
