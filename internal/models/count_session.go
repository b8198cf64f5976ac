package models

import "time"

type SessionStatus string

const (
	SessionPlanned    SessionStatus = "planned"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
)

// Terminal: bu durumdan başka duruma geçiş yok.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// StockCountSession: tek bir fiziksel sayım turu. SessionNo formatı
// OSG-{yıl}-{ay}-{sıra}; sıra aynı takvim ayındaki mevcut oturumlar
// taranarak türetilir, ayrı bir sayaç tutulmaz.
type StockCountSession struct {
	ID        uint   `gorm:"primaryKey"`
	SessionNo string `gorm:"size:20;uniqueIndex;not null"` // ör: OSG-2025-03-001
	InvoiceNo string `gorm:"size:100"`
	CountDate time.Time `gorm:"index;not null"`
	CountedBy string `gorm:"size:100"`
	CreatedBy string `gorm:"size:100"`
	// SessionStatus: oturumun sayabileceği malzeme durumu kapsamı (boş = tümü).
	SessionStatus MaterialStatusFilter `gorm:"size:20"`
	Status        SessionStatus        `gorm:"size:20;not null;default:'in_progress'"`
	Notes         string               `gorm:"size:500"`
	// Finalize anında dondurulan kopya. Özet her zaman event'lerden yeniden
	// hesaplanır, bu alan rapor ekranları için denormalize edilmiştir.
	TotalProductsCounted int `gorm:"not null;default:0"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type CountMode string

const (
	CountModeReplace    CountMode = "replace"    // kontrollü sayım: stok = sayılan miktar
	CountModeAccumulate CountMode = "accumulate" // hızlı sayım: finalize'a kadar biriktirilir
)

type CountEventStatus string

const (
	CountPending   CountEventStatus = "pending"
	CountApproved  CountEventStatus = "approved"
	CountRejected  CountEventStatus = "rejected"
	CountCorrected CountEventStatus = "corrected"
)

// CountEvent: bir oturum içindeki tek sayım kaydı.
type CountEvent struct {
	ID              uint `gorm:"primaryKey"`
	SessionID       uint `gorm:"index;not null"`
	MaterialID      uint `gorm:"index;not null"`
	CountedQuantity int  `gorm:"not null"`
	UnitPriceAtCount float64 `gorm:"not null"`
	TotalValue       float64 `gorm:"not null"` // CountedQuantity * UnitPriceAtCount
	CountedBy        string  `gorm:"size:100"`
	Mode             CountMode        `gorm:"size:20;not null"`
	Status           CountEventStatus `gorm:"size:20;not null;default:'pending'"`
	VerifiedBy       string           `gorm:"size:100"`
	VerifiedAt       *time.Time
	CorrectionNotes  string `gorm:"size:500"`
	// Replace modunda stoğa uygulanmadan önceki miktar. Analitik, mutlak
	// düzeltmelerin üzerinden geçmişi geriye doğru oynatırken bunu kullanır.
	PreviousStock *int
	// Stoğa uygulandığı an: replace için hemen, accumulate için finalize anı.
	// Null ise henüz uygulanmamış demektir.
	AppliedAt *time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
