package repository

import (
	"errors"
	"strings"

	"github.com/rfpforge/backend/internal/model"
	"gorm.io/gorm"
)

type domainRepository struct {
	db *gorm.DB
}

func NewDomainRepository(db *gorm.DB) DomainRepository {
	return &domainRepository{db: db}
}

func (r *domainRepository) Create(domain *model.Domain) error {
	return r.db.Create(domain).Error
}

func (r *domainRepository) List() ([]model.Domain, error) {
	var domains []model.Domain
	err := r.db.Order("name").Find(&domains).Error
	return domains, err
}

func (r *domainRepository) Get(id uint) (*model.Domain, error) {
	var domain model.Domain
	err := r.db.First(&domain, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &domain, nil
}

// GetByName 忽略大小写匹配领域名称
func (r *domainRepository) GetByName(name string) (*model.Domain, error) {
	var domain model.Domain
	err := r.db.Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&domain).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &domain, nil
}

func (r *domainRepository) Save(domain *model.Domain) error {
	return r.db.Save(domain).Error
}
