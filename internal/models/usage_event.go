package models

import "time"

// UsageEvent: hastaya kullanılan malzeme kaydı. Oluşturulduğu anda stoktan
// düşer, silindiğinde stok geri yüklenir. Birim fiyat kullanım anında
// dondurulur, sonradan malzeme fiyatı değişse de burası değişmez.
type UsageEvent struct {
	ID               uint `gorm:"primaryKey"`
	MaterialID       uint `gorm:"index;not null"` // malzeme silinmiş olabilir, okuma yolları buna dayanıklı
	Quantity         int  `gorm:"not null"`
	UnitPriceAtUsage float64 `gorm:"not null"`
	TotalCost        float64 `gorm:"not null"` // Quantity * UnitPriceAtUsage
	PatientRef       string  `gorm:"size:100;index"` // hasta dosya/protokol no
	Timestamp        time.Time `gorm:"index;not null"`
	CreatedAt        time.Time
}
