package ledger

import (
	"errors"
	"fmt"
	"time"

	"hastane-stok-backend/internal/audit"
	"hastane-stok-backend/internal/models"

	"gorm.io/gorm"
)

// Tek bir malzemenin kilidi için üst bekleme süresi. Dolarsa ErrBusy döner.
const DefaultLockTimeout = 5 * time.Second

// Service: stok defteri. Material.CurrentStock'u değiştiren TEK yer burasıdır;
// her mutasyon malzeme kilidi altında oku-değiştir-yaz olarak çalışır, farklı
// malzemeler birbirini beklemez.
type Service struct {
	DB          *gorm.DB
	Audit       *audit.Service
	LockTimeout time.Duration

	locks *lockTable
}

func NewService(db *gorm.DB, aud *audit.Service) *Service {
	return &Service{DB: db, Audit: aud, LockTimeout: DefaultLockTimeout, locks: newLockTable()}
}

func (s *Service) timeout() time.Duration {
	if s.LockTimeout <= 0 {
		return DefaultLockTimeout
	}
	return s.LockTimeout
}

type MaterialInput struct {
	Name         string
	Barcode      string
	Gtin         string
	Sn           string
	UdiCode      string
	AllBarcode   string
	Category     string
	SubCategory  string
	Unit         string
	UnitPrice    float64
	CurrentStock int
	MinStock     int
	Status       models.MaterialStatus
	Actor        string
}

// MaterialPatch: nil alanlar dokunulmaz. CurrentStock bilerek yok; stok
// yalnızca kullanım/giriş/sayım işlemleriyle değişir.
type MaterialPatch struct {
	Name        *string
	Barcode     *string
	Gtin        *string
	Sn          *string
	UdiCode     *string
	AllBarcode  *string
	Category    *string
	SubCategory *string
	Unit        *string
	UnitPrice   *float64
	MinStock    *int
	Status      *models.MaterialStatus
	Actor       string
}

func (s *Service) CreateMaterial(in MaterialInput) (*models.Material, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("malzeme adı zorunlu")
	}
	if in.UnitPrice < 0 || in.CurrentStock < 0 || in.MinStock < 0 {
		return nil, fmt.Errorf("fiyat ve stok alanları negatif olamaz")
	}
	if in.Status == "" {
		in.Status = models.MaterialStatusNormal
	}

	if in.Sn != "" {
		owner, err := s.snOwner(in.Sn, 0)
		if err != nil {
			return nil, err
		}
		if owner != nil {
			return nil, &models.DuplicateSerialError{Serial: in.Sn, OwnerName: owner.Name}
		}
	}

	m := models.Material{
		Name:         in.Name,
		Barcode:      in.Barcode,
		Gtin:         in.Gtin,
		Sn:           in.Sn,
		UdiCode:      in.UdiCode,
		AllBarcode:   in.AllBarcode,
		Category:     in.Category,
		SubCategory:  in.SubCategory,
		Unit:         in.Unit,
		UnitPrice:    in.UnitPrice,
		CurrentStock: in.CurrentStock,
		MinStock:     in.MinStock,
		Status:       in.Status,
	}
	if err := s.DB.Create(&m).Error; err != nil {
		// Yarışan iki kayıt ön kontrolden aynı anda geçebilir; son söz
		// veritabanındaki kısmi unique index'indir.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if owner, oerr := s.snOwner(in.Sn, 0); oerr == nil && owner != nil {
				return nil, &models.DuplicateSerialError{Serial: in.Sn, OwnerName: owner.Name}
			}
			return nil, models.ErrDuplicateSerial
		}
		return nil, fmt.Errorf("malzeme oluşturulamadı: %w", err)
	}

	_ = s.Audit.Write(audit.LogOptions{
		Actor: in.Actor, EntityType: "material", EntityID: m.ID,
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("Malzeme eklendi: %s", m.Name),
		After:       m,
	})
	return &m, nil
}

func (s *Service) UpdateMaterial(id uint, patch MaterialPatch) (*models.Material, error) {
	// Tanımlayıcı alan güncellemesi de malzeme kilidi altında çalışır; Save
	// yerine yalnızca yamalanan kolonlar yazılır ki okuma anındaki bayat
	// current_stock asla geri yazılmasın.
	if err := s.locks.acquire(id, s.timeout()); err != nil {
		return nil, err
	}
	defer s.locks.release(id)

	m, err := s.GetMaterial(id)
	if err != nil {
		return nil, err
	}
	before := *m

	// Seri numarası değişiyorsa benzersizlik yeniden kontrol edilir.
	if patch.Sn != nil && *patch.Sn != "" && *patch.Sn != m.Sn {
		owner, err := s.snOwner(*patch.Sn, id)
		if err != nil {
			return nil, err
		}
		if owner != nil {
			return nil, &models.DuplicateSerialError{Serial: *patch.Sn, OwnerName: owner.Name}
		}
	}

	cols := map[string]any{}
	if patch.Name != nil {
		m.Name = *patch.Name
		cols["name"] = *patch.Name
	}
	if patch.Barcode != nil {
		m.Barcode = *patch.Barcode
		cols["barcode"] = *patch.Barcode
	}
	if patch.Gtin != nil {
		m.Gtin = *patch.Gtin
		cols["gtin"] = *patch.Gtin
	}
	if patch.Sn != nil {
		m.Sn = *patch.Sn
		cols["sn"] = *patch.Sn
	}
	if patch.UdiCode != nil {
		m.UdiCode = *patch.UdiCode
		cols["udi_code"] = *patch.UdiCode
	}
	if patch.AllBarcode != nil {
		m.AllBarcode = *patch.AllBarcode
		cols["all_barcode"] = *patch.AllBarcode
	}
	if patch.Category != nil {
		m.Category = *patch.Category
		cols["category"] = *patch.Category
	}
	if patch.SubCategory != nil {
		m.SubCategory = *patch.SubCategory
		cols["sub_category"] = *patch.SubCategory
	}
	if patch.Unit != nil {
		m.Unit = *patch.Unit
		cols["unit"] = *patch.Unit
	}
	if patch.UnitPrice != nil {
		if *patch.UnitPrice < 0 {
			return nil, fmt.Errorf("birim fiyat negatif olamaz")
		}
		m.UnitPrice = *patch.UnitPrice
		cols["unit_price"] = *patch.UnitPrice
	}
	if patch.MinStock != nil {
		m.MinStock = *patch.MinStock
		cols["min_stock"] = *patch.MinStock
	}
	if patch.Status != nil {
		m.Status = *patch.Status
		cols["status"] = string(*patch.Status)
	}

	if len(cols) > 0 {
		err := s.DB.Model(&models.Material{}).Where("id = ?", id).Updates(cols).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			sn := m.Sn
			if owner, oerr := s.snOwner(sn, id); oerr == nil && owner != nil {
				return nil, &models.DuplicateSerialError{Serial: sn, OwnerName: owner.Name}
			}
			return nil, models.ErrDuplicateSerial
		}
		if err != nil {
			return nil, fmt.Errorf("malzeme güncellenemedi: %w", err)
		}
	}

	_ = s.Audit.Write(audit.LogOptions{
		Actor: patch.Actor, EntityType: "material", EntityID: m.ID,
		Action:      models.AuditActionUpdate,
		Description: fmt.Sprintf("Malzeme güncellendi: %s", m.Name),
		Before:      before, After: m,
	})
	return m, nil
}

// DeleteMaterial: geçmiş kullanım/giriş/sayım kayıtlarını SİLMEZ; denetim
// için askıda referansla kalırlar, okuma yolları buna dayanıklıdır.
func (s *Service) DeleteMaterial(id uint, actor string) error {
	m, err := s.GetMaterial(id)
	if err != nil {
		return err
	}
	if err := s.DB.Delete(&models.Material{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("malzeme silinemedi: %w", err)
	}
	_ = s.Audit.Write(audit.LogOptions{
		Actor: actor, EntityType: "material", EntityID: id,
		Action:      models.AuditActionDelete,
		Description: fmt.Sprintf("Malzeme silindi: %s", m.Name),
		Before:      m,
	})
	return nil
}

// snOwner: verilen seri numarasını taşıyan malzemeyi bulur (excludeID hariç).
// Boş seri numaraları benzersizlik kapsamı dışıdır, o yüzden kontrol burada,
// veritabanı kısıtında değil.
func (s *Service) snOwner(sn string, excludeID uint) (*models.Material, error) {
	var m models.Material
	err := s.DB.First(&m, "sn <> '' AND sn = ? AND id <> ?", sn, excludeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Service) GetMaterial(id uint) (*models.Material, error) {
	var m models.Material
	err := s.DB.First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type ListFilter struct {
	Status       models.MaterialStatusFilter
	Category     string
	Query        string // ad ya da tanımlayıcı alanlarda arama
	OnlyCritical bool   // current_stock <= min_stock
}

func (s *Service) ListMaterials(f ListFilter) ([]models.Material, error) {
	q := s.DB.Order("name ASC")
	if f.Status != models.MaterialStatusAll {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Query != "" {
		like := "%" + f.Query + "%"
		q = q.Where("name LIKE ? OR barcode LIKE ? OR gtin LIKE ? OR sn LIKE ?", like, like, like, like)
	}
	if f.OnlyCritical {
		q = q.Where("current_stock <= min_stock")
	}
	var list []models.Material
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ApplyUsage: hastaya kullanım. Event yazımı ve stok düşümü tek transaction.
func (s *Service) ApplyUsage(materialID uint, qty int, patientRef, actor string) (*models.UsageEvent, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("kullanım miktarı pozitif olmalı")
	}
	if err := s.locks.acquire(materialID, s.timeout()); err != nil {
		return nil, err
	}
	defer s.locks.release(materialID)

	var ev models.UsageEvent
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var m models.Material
		if err := tx.First(&m, "id = ?", materialID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return err
		}
		if m.CurrentStock < qty {
			return models.ErrInsufficientStock
		}
		ev = models.UsageEvent{
			MaterialID:       m.ID,
			Quantity:         qty,
			UnitPriceAtUsage: m.UnitPrice,
			TotalCost:        float64(qty) * m.UnitPrice,
			PatientRef:       patientRef,
			Timestamp:        time.Now(),
		}
		if err := tx.Create(&ev).Error; err != nil {
			return err
		}
		return tx.Model(&m).Update("current_stock", m.CurrentStock-qty).Error
	})
	if err != nil {
		return nil, err
	}

	_ = s.Audit.Write(audit.LogOptions{
		Actor: actor, EntityType: "usage_event", EntityID: ev.ID,
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("Kullanım: malzeme #%d, %d adet", materialID, qty),
		After:       ev,
	})
	return &ev, nil
}

// ReverseUsage: kullanım kaydını siler ve stoğu aynı miktarda geri yükler.
// Malzeme bu arada silinmişse yalnızca kayıt silinir.
func (s *Service) ReverseUsage(usageEventID uint, actor string) error {
	var ev models.UsageEvent
	if err := s.DB.First(&ev, "id = ?", usageEventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ErrNotFound
		}
		return err
	}

	if err := s.locks.acquire(ev.MaterialID, s.timeout()); err != nil {
		return err
	}
	defer s.locks.release(ev.MaterialID)

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.UsageEvent{}, "id = ?", ev.ID).Error; err != nil {
			return err
		}
		var m models.Material
		err := tx.First(&m, "id = ?", ev.MaterialID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // askıda referans: stok geri yüklenecek malzeme yok
		}
		if err != nil {
			return err
		}
		return tx.Model(&m).Update("current_stock", m.CurrentStock+ev.Quantity).Error
	})
	if err != nil {
		return err
	}

	_ = s.Audit.Write(audit.LogOptions{
		Actor: actor, EntityType: "usage_event", EntityID: ev.ID,
		Action:      models.AuditActionDelete,
		Description: fmt.Sprintf("Kullanım geri alındı: malzeme #%d, %d adet", ev.MaterialID, ev.Quantity),
		Before:      ev,
	})
	return nil
}

// ApplyReceipt: faturadan stok girişi.
func (s *Service) ApplyReceipt(materialID uint, qty int, invoiceRef, actor string) (*models.ReceiptEvent, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("giriş miktarı pozitif olmalı")
	}
	if err := s.locks.acquire(materialID, s.timeout()); err != nil {
		return nil, err
	}
	defer s.locks.release(materialID)

	var ev models.ReceiptEvent
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var m models.Material
		if err := tx.First(&m, "id = ?", materialID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return err
		}
		ev = models.ReceiptEvent{
			MaterialID: m.ID,
			Quantity:   qty,
			InvoiceRef: invoiceRef,
			Timestamp:  time.Now(),
		}
		if err := tx.Create(&ev).Error; err != nil {
			return err
		}
		return tx.Model(&m).Update("current_stock", m.CurrentStock+qty).Error
	})
	if err != nil {
		return nil, err
	}

	_ = s.Audit.Write(audit.LogOptions{
		Actor: actor, EntityType: "receipt_event", EntityID: ev.ID,
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("Stok girişi: malzeme #%d, %d adet (fatura: %s)", materialID, qty, invoiceRef),
		After:       ev,
	})
	return &ev, nil
}

type CountInput struct {
	SessionID  uint
	MaterialID uint
	Quantity   int
	Mode       models.CountMode
	CountedBy  string
}

// ApplyCount: sayım kaydı yazar.
//
// replace: fiziksel sayım düzeltmesi, stok = sayılan miktar ve hemen uygulanır.
// accumulate: hızlı sayım, kayıt bekletilir (AppliedAt boş); stok ancak oturum
// finalize edilirken toplu uygulanır.
func (s *Service) ApplyCount(in CountInput) (*models.CountEvent, error) {
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("sayım miktarı pozitif olmalı")
	}

	m, err := s.GetMaterial(in.MaterialID)
	if err != nil {
		return nil, err
	}

	ev := models.CountEvent{
		SessionID:        in.SessionID,
		MaterialID:       m.ID,
		CountedQuantity:  in.Quantity,
		UnitPriceAtCount: m.UnitPrice,
		TotalValue:       float64(in.Quantity) * m.UnitPrice,
		CountedBy:        in.CountedBy,
		Mode:             in.Mode,
		Status:           models.CountPending,
	}

	switch in.Mode {
	case models.CountModeAccumulate:
		if err := s.DB.Create(&ev).Error; err != nil {
			return nil, fmt.Errorf("sayım kaydı oluşturulamadı: %w", err)
		}
		return &ev, nil

	case models.CountModeReplace:
		if err := s.locks.acquire(m.ID, s.timeout()); err != nil {
			return nil, err
		}
		defer s.locks.release(m.ID)

		err := s.DB.Transaction(func(tx *gorm.DB) error {
			var cur models.Material
			if err := tx.First(&cur, "id = ?", m.ID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return models.ErrNotFound
				}
				return err
			}
			prev := cur.CurrentStock
			now := time.Now()
			ev.PreviousStock = &prev
			ev.AppliedAt = &now
			if err := tx.Create(&ev).Error; err != nil {
				return err
			}
			return tx.Model(&cur).Update("current_stock", in.Quantity).Error
		})
		if err != nil {
			return nil, err
		}
		return &ev, nil

	default:
		return nil, fmt.Errorf("bilinmeyen sayım modu: %q", in.Mode)
	}
}

// AccumulatedTotals: oturumun henüz stoğa uygulanmamış hızlı sayım
// toplamları, malzeme bazında.
func (s *Service) AccumulatedTotals(sessionID uint) (map[uint]int, error) {
	type row struct {
		MaterialID uint
		Total      int
	}
	var rows []row
	err := s.DB.Model(&models.CountEvent{}).
		Select("material_id, SUM(counted_quantity) AS total").
		Where("session_id = ? AND mode = ? AND applied_at IS NULL", sessionID, models.CountModeAccumulate).
		Group("material_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	totals := make(map[uint]int, len(rows))
	for _, r := range rows {
		totals[r.MaterialID] = r.Total
	}
	return totals, nil
}

// WithMaterialLocks: verilen malzemelerin tümünün kilidini alıp fn'i tek bir
// transaction içinde çalıştırır. Oturum finalize'ı bunun üzerinden geçer ki
// birikmiş sayımların uygulanması ya hep ya hiç olsun.
func (s *Service) WithMaterialLocks(ids []uint, fn func(tx *gorm.DB) error) error {
	if err := s.locks.acquireAll(ids, s.timeout()); err != nil {
		return err
	}
	defer s.locks.releaseAll(ids)
	return s.DB.Transaction(fn)
}
