package session

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"hastane-stok-backend/internal/audit"
	"hastane-stok-backend/internal/identity"
	"hastane-stok-backend/internal/ledger"
	"hastane-stok-backend/internal/models"

	"gorm.io/gorm"
)

// Service: fiziksel sayım oturumlarının durum makinesi.
//
//	planned -> in_progress -> {completed | cancelled}
//
// planned isteğe bağlıdır (oturum doğrudan in_progress açılabilir); completed
// ve cancelled terminaldir. Sayım kayıtları yalnızca in_progress durumunda
// (planned ilk kayıtla terfi eder) kabul edilir.
type Service struct {
	DB       *gorm.DB
	Ledger   *ledger.Service
	Resolver *identity.Resolver
	Audit    *audit.Service
}

func NewService(db *gorm.DB, led *ledger.Service, res *identity.Resolver, aud *audit.Service) *Service {
	return &Service{DB: db, Ledger: led, Resolver: res, Audit: aud}
}

type CreateSessionInput struct {
	InvoiceNo     string
	CountedBy     string
	CreatedBy     string
	SessionStatus models.MaterialStatusFilter // sayılabilecek malzeme durumu (boş = tümü)
	CountDate     time.Time
	Notes         string
	Planned       bool // true ise oturum planned açılır, ilk sayımla in_progress olur
}

func (s *Service) CreateSession(in CreateSessionInput) (*models.StockCountSession, error) {
	if in.CountDate.IsZero() {
		in.CountDate = time.Now()
	}

	no, err := s.nextSessionNo(in.CountDate)
	if err != nil {
		return nil, err
	}

	status := models.SessionInProgress
	if in.Planned {
		status = models.SessionPlanned
	}

	sess := models.StockCountSession{
		SessionNo:     no,
		InvoiceNo:     in.InvoiceNo,
		CountDate:     in.CountDate,
		CountedBy:     in.CountedBy,
		CreatedBy:     in.CreatedBy,
		SessionStatus: in.SessionStatus,
		Status:        status,
		Notes:         in.Notes,
	}
	if err := s.DB.Create(&sess).Error; err != nil {
		return nil, fmt.Errorf("sayım oturumu oluşturulamadı: %w", err)
	}

	_ = s.Audit.Write(audit.LogOptions{
		Actor: in.CreatedBy, EntityType: "count_session", EntityID: sess.ID,
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("Sayım oturumu açıldı: %s", sess.SessionNo),
		After:       sess,
	})
	return &sess, nil
}

// nextSessionNo: OSG-{yıl}-{ay}-{sıra}. Sıra, aynı takvim ayına ait mevcut
// oturum numaraları taranarak bulunur; ayrı bir sayaç tutulmaz.
func (s *Service) nextSessionNo(countDate time.Time) (string, error) {
	prefix := fmt.Sprintf("OSG-%04d-%02d-", countDate.Year(), int(countDate.Month()))
	var count int64
	err := s.DB.Model(&models.StockCountSession{}).
		Where("session_no LIKE ?", prefix+"%").
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%03d", prefix, count+1), nil
}

func (s *Service) GetSession(id uint) (*models.StockCountSession, error) {
	var sess models.StockCountSession
	err := s.DB.First(&sess, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// countable: oturum sayım kabul edebilir durumda mı? planned ise in_progress'e
// terfi ettirir (ilk sayım kaydıyla otomatik geçiş).
func (s *Service) countable(sess *models.StockCountSession) error {
	switch sess.Status {
	case models.SessionInProgress:
		return nil
	case models.SessionPlanned:
		sess.Status = models.SessionInProgress
		return s.DB.Model(sess).Update("status", models.SessionInProgress).Error
	default:
		return models.ErrInvalidSessionStatus
	}
}

// RecordQuickScan: hızlı sayım — çözülen her okutma oturum içinde o malzemeye
// +1 yazar. Stok finalize'a kadar DEĞİŞMEZ; kayıtlar bekletilir. Çözülemeyen
// kod ErrUnresolved ile döner, çağıran önce yeni malzeme kaydı açmalıdır.
func (s *Service) RecordQuickScan(sessionID uint, code, countedBy string) (*models.CountEvent, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, models.ErrInvalidSessionStatus
	}

	mat, err := s.Resolver.Resolve(code, sess.SessionStatus)
	if err != nil {
		return nil, err
	}

	if err := s.countable(sess); err != nil {
		return nil, err
	}

	return s.Ledger.ApplyCount(ledger.CountInput{
		SessionID:  sess.ID,
		MaterialID: mat.ID,
		Quantity:   1,
		Mode:       models.CountModeAccumulate,
		CountedBy:  countedBy,
	})
}

// RecordControlledCount: kontrollü sayım — operatör malzemeyi seçip mutlak
// miktarı girer. Bu bir fiziksel sayım düzeltmesidir: stok hemen sayılan
// miktara EŞİTLENİR, beklemez.
func (s *Service) RecordControlledCount(sessionID, materialID uint, qty int, countedBy string) (*models.CountEvent, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, models.ErrInvalidSessionStatus
	}

	mat, err := s.Ledger.GetMaterial(materialID)
	if err != nil {
		return nil, err
	}
	// Kapsam dışı malzeme bu oturumda sayılamaz.
	if !sess.SessionStatus.Matches(mat.Status) {
		return nil, models.ErrInvalidSessionStatus
	}

	if err := s.countable(sess); err != nil {
		return nil, err
	}

	return s.Ledger.ApplyCount(ledger.CountInput{
		SessionID:  sess.ID,
		MaterialID: mat.ID,
		Quantity:   qty,
		Mode:       models.CountModeReplace,
		CountedBy:  countedBy,
	})
}

// FinalizeSession: birikmiş hızlı sayımları stoğa uygular, oturumu completed
// yapar ve TotalProductsCounted kopyasını dondurur. Uygulama ve durum geçişi
// tek transaction içindedir; yarım finalize görünmez.
func (s *Service) FinalizeSession(sessionID uint, actor string) (*models.StockCountSession, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.SessionInProgress {
		return nil, models.ErrInvalidSessionStatus
	}

	// Kilit sırası için ön okuma; asıl toplamlar transaction içinde yeniden
	// hesaplanır.
	totals, err := s.Ledger.AccumulatedTotals(sess.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	now := time.Now()
	var frozenTotal int64
	err = s.Ledger.WithMaterialLocks(ids, func(tx *gorm.DB) error {
		// Durum geçişi koşullu: yarışan ikinci bir finalize ya da cancel bu
		// satırı 0 etkiyle görür ve hiçbir birikim ikinci kez uygulanmaz.
		res := tx.Model(&models.StockCountSession{}).
			Where("id = ? AND status = ?", sess.ID, models.SessionInProgress).
			Update("status", models.SessionCompleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrInvalidSessionStatus
		}

		// Uygulanacak toplamlar aynı transaction içinde bekleyen kayıtlardan
		// yeniden hesaplanır; ön okumadan sonra giren okutmalar kaybolmaz.
		type row struct {
			MaterialID uint
			Total      int
		}
		var rows []row
		if err := tx.Model(&models.CountEvent{}).
			Select("material_id, SUM(counted_quantity) AS total").
			Where("session_id = ? AND mode = ? AND applied_at IS NULL", sess.ID, models.CountModeAccumulate).
			Group("material_id").
			Scan(&rows).Error; err != nil {
			return err
		}

		for _, r := range rows {
			// Atomik artış; oturum sırasında silinmiş malzeme 0 satır etkiler.
			if err := tx.Model(&models.Material{}).
				Where("id = ?", r.MaterialID).
				Update("current_stock", gorm.Expr("current_stock + ?", r.Total)).Error; err != nil {
				return err
			}
		}

		// Bekleyen kayıtları uygulanmış işaretle.
		if err := tx.Model(&models.CountEvent{}).
			Where("session_id = ? AND mode = ? AND applied_at IS NULL", sess.ID, models.CountModeAccumulate).
			Update("applied_at", now).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.CountEvent{}).
			Select("COALESCE(SUM(counted_quantity), 0)").
			Where("session_id = ?", sess.ID).
			Scan(&frozenTotal).Error; err != nil {
			return err
		}

		return tx.Model(&models.StockCountSession{}).
			Where("id = ?", sess.ID).
			Update("total_products_counted", frozenTotal).Error
	})
	if err != nil {
		return nil, err
	}

	_ = s.Audit.Write(audit.LogOptions{
		Actor: actor, EntityType: "count_session", EntityID: sess.ID,
		Action:      models.AuditActionFinalize,
		Description: fmt.Sprintf("Sayım oturumu tamamlandı: %s (%d kalem)", sess.SessionNo, frozenTotal),
	})

	return s.GetSession(sess.ID)
}

// CancelSession: oturumu iptal eder. Uygulanmamış hızlı sayım birikimleri
// hiçbir zaman stoğa yazılmaz.
func (s *Service) CancelSession(sessionID uint, actor string) (*models.StockCountSession, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, models.ErrInvalidSessionStatus
	}

	// Koşullu geçiş: yarışan bir finalize araya girdiyse iptal edilemez.
	res := s.DB.Model(&models.StockCountSession{}).
		Where("id = ? AND status IN ?", sess.ID, []models.SessionStatus{models.SessionPlanned, models.SessionInProgress}).
		Update("status", models.SessionCancelled)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, models.ErrInvalidSessionStatus
	}

	_ = s.Audit.Write(audit.LogOptions{
		Actor: actor, EntityType: "count_session", EntityID: sess.ID,
		Action:      models.AuditActionCancel,
		Description: fmt.Sprintf("Sayım oturumu iptal edildi: %s", sess.SessionNo),
	})
	return s.GetSession(sess.ID)
}

type Summary struct {
	SessionID            uint
	SessionNo            string
	Status               models.SessionStatus
	TotalProductsCounted int
	TotalValue           float64
}

// GetSessionSummary: her çağrıda sayım kayıtlarından yeniden hesaplanır,
// asla önbellekten dönülmez.
func (s *Service) GetSessionSummary(sessionID uint) (*Summary, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	type agg struct {
		Total int
		Value float64
	}
	var a agg
	err = s.DB.Model(&models.CountEvent{}).
		Select("COALESCE(SUM(counted_quantity), 0) AS total, COALESCE(SUM(total_value), 0) AS value").
		Where("session_id = ?", sess.ID).
		Scan(&a).Error
	if err != nil {
		return nil, err
	}

	return &Summary{
		SessionID:            sess.ID,
		SessionNo:            sess.SessionNo,
		Status:               sess.Status,
		TotalProductsCounted: a.Total,
		TotalValue:           a.Value,
	}, nil
}

type SessionFilter struct {
	Status models.SessionStatus // boş = tümü
	Year   int
	Month  int
}

func (s *Service) ListSessions(f SessionFilter) ([]models.StockCountSession, error) {
	q := s.DB.Order("count_date DESC, id DESC")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Year > 0 && f.Month > 0 {
		q = q.Where("session_no LIKE ?", fmt.Sprintf("OSG-%04d-%02d-%%", f.Year, f.Month))
	} else if f.Year > 0 {
		q = q.Where("session_no LIKE ?", fmt.Sprintf("OSG-%04d-%%", f.Year))
	}
	var list []models.StockCountSession
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
