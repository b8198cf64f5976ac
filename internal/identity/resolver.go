package identity

import (
	"errors"
	"strings"

	"hastane-stok-backend/internal/models"

	"gorm.io/gorm"
)

// Resolver: taranan/yazılan bir kodu en fazla bir malzemeye eşler.
//
// Eşleme önceliği (ilk eşleşen kazanır):
//  1. birebir seri numarası (sn)
//  2. birebir barcode / gtin / udi_code / all_barcode (bileşik kodda GTIN ve
//     türetilmiş barkod da denenir)
//  3. virgülle ayrılmış all_barcode listesinde üyelik
type Resolver struct {
	DB *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver { return &Resolver{DB: db} }

// Resolve: kodu çözer ve kapsam filtresini uygular.
//
// Dönebilecek hatalar: models.ErrUnresolved (eşleşme yok ya da kapsam dışı),
// *models.DuplicateSerialError (çözülen seri numarası başka malzemenin).
func (r *Resolver) Resolve(code string, scope models.MaterialStatusFilter) (*models.Material, error) {
	norm := Normalize(code)
	if norm == "" {
		return nil, models.ErrUnresolved
	}

	dec := Decode(norm)

	// 1) Seri numarası önceliklidir. Düz kodlar da seri numarası olabilir.
	snKey := dec.Sn
	if snKey == "" {
		snKey = norm
	}
	bySn, err := r.findOne("sn <> '' AND sn = ?", snKey)
	if err != nil {
		return nil, err
	}

	// 2) Diğer tanımlayıcı alanlar.
	var candidate *models.Material
	if dec.Sn != "" {
		// Bileşik koddan GTIN çıktı: taşıyıcı alanlarla ara.
		candidate, err = r.findOne("gtin = ? OR barcode = ? OR udi_code = ? OR all_barcode = ?", dec.Gtin, dec.Barcode, norm, norm)
	} else {
		candidate, err = r.findOne("barcode = ? OR gtin = ? OR udi_code = ? OR all_barcode = ?", norm, norm, norm, norm)
	}
	if err != nil {
		return nil, err
	}

	// Veri bütünlüğü koruması: çözülen seri numarası başka bir malzemeye
	// kayıtlıysa bu bir "bulunamadı" değil, çakışmadır.
	if dec.Sn != "" && bySn != nil && candidate != nil && bySn.ID != candidate.ID {
		return nil, &models.DuplicateSerialError{Serial: dec.Sn, OwnerName: bySn.Name}
	}

	match := bySn
	if match == nil {
		match = candidate
	}

	// 3) all_barcode virgüllü liste üyeliği.
	if match == nil {
		match, err = r.findInAllBarcodeList(norm)
		if err != nil {
			return nil, err
		}
	}

	if match == nil {
		return nil, models.ErrUnresolved
	}

	// Kapsam dışı eşleşme, eşleşme sayılmaz: konsinye malı "normal" oturumda
	// saydırmayı engeller.
	if !scope.Matches(match.Status) {
		return nil, models.ErrUnresolved
	}

	return match, nil
}

func (r *Resolver) findOne(query string, args ...any) (*models.Material, error) {
	var m models.Material
	err := r.DB.Where(query, args...).Order("id ASC").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Resolver) findInAllBarcodeList(code string) (*models.Material, error) {
	var list []models.Material
	if err := r.DB.Where("all_barcode LIKE ?", "%"+code+"%").Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	for i := range list {
		for _, part := range strings.Split(list[i].AllBarcode, ",") {
			if strings.TrimSpace(part) == code {
				return &list[i], nil
			}
		}
	}
	return nil, nil
}
