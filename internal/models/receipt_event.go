package models

import "time"

// ReceiptEvent: faturadan stok girişi. Oluşturulduğu anda stoğu artırır.
type ReceiptEvent struct {
	ID         uint `gorm:"primaryKey"`
	MaterialID uint `gorm:"index;not null"`
	Quantity   int  `gorm:"not null"`
	InvoiceRef string `gorm:"size:100;index"` // fatura no
	Timestamp  time.Time `gorm:"index;not null"`
	CreatedAt  time.Time
}
