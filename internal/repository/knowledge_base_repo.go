package repository

import (
	"errors"

	"github.com/rfpforge/backend/internal/model"
	"gorm.io/gorm"
)

type knowledgeBaseRepository struct {
	db *gorm.DB
}

func NewKnowledgeBaseRepository(db *gorm.DB) KnowledgeBaseRepository {
	return &knowledgeBaseRepository{db: db}
}

func (r *knowledgeBaseRepository) Create(kb *model.KnowledgeBase) error {
	return r.db.Create(kb).Error
}

// GetReadyByDomain 取领域下最新的可用知识库
func (r *knowledgeBaseRepository) GetReadyByDomain(domainID uint) (*model.KnowledgeBase, error) {
	var kb model.KnowledgeBase
	err := r.db.Where("domain_id = ? AND state = ?", domainID, "ready").
		Order("updated_at desc").First(&kb).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &kb, nil
}

func (r *knowledgeBaseRepository) List() ([]model.KnowledgeBase, error) {
	var kbs []model.KnowledgeBase
	err := r.db.Order("updated_at desc").Find(&kbs).Error
	return kbs, err
}

func (r *knowledgeBaseRepository) Save(kb *model.KnowledgeBase) error {
	return r.db.Save(kb).Error
}
