package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/rfpforge/backend/internal/model"
	"gorm.io/gorm"
)

type sectionRepository struct {
	db *gorm.DB
}

func NewSectionRepository(db *gorm.DB) SectionRepository {
	return &sectionRepository{db: db}
}

func (r *sectionRepository) Create(section *model.DocumentSection) error {
	return r.db.Create(section).Error
}

func (r *sectionRepository) CreateBatch(sections []model.DocumentSection) error {
	if len(sections) == 0 {
		return nil
	}
	return r.db.Create(&sections).Error
}

func (r *sectionRepository) GetByProject(projectID uint) ([]model.DocumentSection, error) {
	var sections []model.DocumentSection
	err := r.db.Where("project_id = ?", projectID).Order("sequence").Find(&sections).Error
	return sections, err
}

func (r *sectionRepository) Get(id uint) (*model.DocumentSection, error) {
	var section model.DocumentSection
	err := r.db.First(&section, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &section, nil
}

func (r *sectionRepository) GetWithDiagrams(id uint) (*model.DocumentSection, error) {
	var section model.DocumentSection
	err := r.db.Preload("Diagrams").First(&section, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &section, nil
}

func (r *sectionRepository) Save(section *model.DocumentSection) error {
	return r.db.Save(section).Error
}

func (r *sectionRepository) Delete(id uint) error {
	if err := r.db.Where("section_id = ?", id).Delete(&model.SectionDiagram{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&model.DocumentSection{}, id).Error
}

// DeleteByProject 结构重建前清空旧章节及其图示
func (r *sectionRepository) DeleteByProject(projectID uint) error {
	var ids []uint
	if err := r.db.Model(&model.DocumentSection{}).Where("project_id = ?", projectID).
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) > 0 {
		if err := r.db.Where("section_id IN ?", ids).Delete(&model.SectionDiagram{}).Error; err != nil {
			return err
		}
	}
	return r.db.Where("project_id = ?", projectID).Delete(&model.DocumentSection{}).Error
}

// CleanupStuckSections 清理卡在 generating/queued 的章节（超过指定时间未完成）
// 服务重启后残留的生成中章节由此兜底标记为失败
func (r *sectionRepository) CleanupStuckSections(timeout time.Duration) (int64, error) {
	cutoff := time.Now().Add(-timeout)
	result := r.db.Model(&model.DocumentSection{}).
		Where("generation_status IN ? AND updated_at < ?", []string{"queued", "generating"}, cutoff).
		Updates(map[string]interface{}{
			"generation_status": "failed",
			"error_msg":         fmt.Sprintf("生成超时（超过 %v），已自动标记为失败", timeout),
		})
	return result.RowsAffected, result.Error
}
