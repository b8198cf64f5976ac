package models

import (
	"errors"
	"fmt"
)

// Çekirdek hata taksonomisi. Servisler sentinel döner, HTTP koduna çevirme
// işi handler katmanında kalır. Hepsi kurtarılabilir hatalardır.
var (
	ErrNotFound             = errors.New("kayıt bulunamadı")
	ErrInsufficientStock    = errors.New("yetersiz stok")
	ErrDuplicateSerial      = errors.New("seri numarası başka bir malzemeye kayıtlı")
	ErrInvalidSessionStatus = errors.New("oturum durumu bu işleme izin vermiyor")
	ErrUnresolved           = errors.New("kod hiçbir malzemeyle eşleşmedi")
	ErrBusy                 = errors.New("malzeme kilidi alınamadı, tekrar deneyin")
)

// DuplicateSerialError: seri numarası çakışması, sahibinin adını taşır.
// errors.Is(err, ErrDuplicateSerial) ile yakalanır.
type DuplicateSerialError struct {
	Serial    string
	OwnerName string
}

func (e *DuplicateSerialError) Error() string {
	return fmt.Sprintf("seri no %q zaten kayıtlı: %s", e.Serial, e.OwnerName)
}

func (e *DuplicateSerialError) Is(target error) bool { return target == ErrDuplicateSerial }
