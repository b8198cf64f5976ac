package audit

import (
	"encoding/json"
	"fmt"

	"hastane-stok-backend/internal/models"

	"gorm.io/gorm"
)

// Service: mutasyonların denetim izi. Nil servis üzerinde Write çağrılabilir
// (no-op), bu sayede kayıt tutmak istemeyen testler boş geçebilir.
type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{DB: db} }

type LogOptions struct {
	Actor       string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

func (s *Service) Write(opts LogOptions) error {
	if s == nil || s.DB == nil {
		return nil
	}

	// Boş string yerine "null" JSON saklıyoruz.
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	entry := models.AuditLog{
		Actor:       opts.Actor,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := s.DB.Create(&entry).Error; err != nil {
		return fmt.Errorf("denetim kaydı yazılamadı: %w", err)
	}
	return nil
}

// List: en yeni kayıttan eskiye doğru. entityType boşsa hepsi.
func (s *Service) List(entityType string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := s.DB.Order("created_at DESC, id DESC").Limit(limit)
	if entityType != "" {
		q = q.Where("entity_type = ?", entityType)
	}
	var logs []models.AuditLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
