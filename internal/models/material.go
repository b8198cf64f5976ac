package models

import "time"

type MaterialStatus string

const (
	MaterialStatusNormal   MaterialStatus = "normal"
	MaterialStatusKonsinye MaterialStatus = "konsinye" // konsinye (emanet) stok
	MaterialStatusIade     MaterialStatus = "iade"
	MaterialStatusFaturali MaterialStatus = "faturali"
)

// MaterialStatusFilter: sayım oturumunun kapsamı. Boş string = tüm durumlar.
type MaterialStatusFilter string

const MaterialStatusAll MaterialStatusFilter = ""

// Matches: malzeme bu kapsamın içinde mi?
func (f MaterialStatusFilter) Matches(s MaterialStatus) bool {
	return f == MaterialStatusAll || MaterialStatus(f) == s
}

// Material: hastane sarf malzemesi. CurrentStock yalnızca ledger servisi
// üzerinden değişir, handler'lar asla doğrudan yazmaz.
type Material struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:200;not null"`
	Barcode     string `gorm:"size:50;index"`
	Gtin        string `gorm:"size:14;index"`  // GTIN-14
	// Dolu ise global benzersiz; kısmi unique index boş string'leri dışarıda
	// bırakır, servis katmanı çakışmayı sahip adıyla raporlar.
	Sn          string `gorm:"size:100;uniqueIndex:idx_materials_sn,where:sn <> ''"`
	UdiCode     string `gorm:"size:100"`
	AllBarcode  string `gorm:"size:500"` // bileşik kod; virgülle ayrılmış liste olabilir
	Category    string `gorm:"size:100"`
	SubCategory string `gorm:"size:100"`
	Unit        string `gorm:"size:20"` // adet, kutu, ml vs.
	UnitPrice   float64 `gorm:"not null;default:0"`
	CurrentStock int    `gorm:"not null;default:0"` // hiçbir başarılı işlemden sonra negatif kalamaz
	MinStock    int     `gorm:"not null;default:0"` // kritik stok eşiği
	Status      MaterialStatus `gorm:"size:20;not null;default:'normal'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
