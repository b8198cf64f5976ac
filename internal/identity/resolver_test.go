package identity

import (
	"fmt"
	"testing"

	"hastane-stok-backend/internal/database"
	"hastane-stok-backend/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seed(t *testing.T, db *gorm.DB, m *models.Material) *models.Material {
	t.Helper()
	require.NoError(t, db.Create(m).Error)
	return m
}

func TestResolveSerialWinsOverBarcode(t *testing.T) {
	db := setupTestDB(t)
	r := NewResolver(db)

	a := seed(t, db, &models.Material{Name: "Kateter A", Sn: "X1"})
	seed(t, db, &models.Material{Name: "Kateter B", Barcode: "X1"})

	m, err := r.Resolve("X1", models.MaterialStatusAll)
	require.NoError(t, err)
	require.Equal(t, a.ID, m.ID)
}

func TestResolveIdentifierFields(t *testing.T) {
	db := setupTestDB(t)
	r := NewResolver(db)

	byBarcode := seed(t, db, &models.Material{Name: "Serum", Barcode: "8699546334455"})
	byGtin := seed(t, db, &models.Material{Name: "İğne", Gtin: "08680001112223"})
	byUdi := seed(t, db, &models.Material{Name: "Stent", UdiCode: "UDI-ABC/0042"})

	m, err := r.Resolve("8699546334455", models.MaterialStatusAll)
	require.NoError(t, err)
	require.Equal(t, byBarcode.ID, m.ID)

	m, err = r.Resolve("08680001112223", models.MaterialStatusAll)
	require.NoError(t, err)
	require.Equal(t, byGtin.ID, m.ID)

	m, err = r.Resolve("UDI-ABC/0042", models.MaterialStatusAll)
	require.NoError(t, err)
	require.Equal(t, byUdi.ID, m.ID)
}

func TestResolveCommaSeparatedAllBarcode(t *testing.T) {
	db := setupTestDB(t)
	r := NewResolver(db)

	m0 := seed(t, db, &models.Material{Name: "Sütur", AllBarcode: "111, 222,333"})

	m, err := r.Resolve("222", models.MaterialStatusAll)
	require.NoError(t, err)
	require.Equal(t, m0.ID, m.ID)

	// Liste üyeliği birebir olmalı; "22" eşleşmez.
	_, err = r.Resolve("22", models.MaterialStatusAll)
	require.ErrorIs(t, err, models.ErrUnresolved)
}

func TestResolveCompositeByGtin(t *testing.T) {
	db := setupTestDB(t)
	r := NewResolver(db)

	m0 := seed(t, db, &models.Material{Name: "İmplant", Gtin: "12345678901234"})

	m, err := r.Resolve("0112345678901234211234567890ABC", models.MaterialStatusAll)
	require.NoError(t, err)
	require.Equal(t, m0.ID, m.ID)
}

func TestResolveCompositeByUdiCode(t *testing.T) {
	db := setupTestDB(t)
	r := NewResolver(db)

	// Bileşik taşıyıcı string'in kendisi UDI alanında saklıysa da çözülmeli.
	code := "0108680001112223215ER1NO99"
	m0 := seed(t, db, &models.Material{Name: "Pacemaker", UdiCode: code})

	m, err := r.Resolve(code, models.MaterialStatusAll)
	require.NoError(t, err)
	require.Equal(t, m0.ID, m.ID)
}

func TestResolveDuplicateSerialConflict(t *testing.T) {
	db := setupTestDB(t)
	r := NewResolver(db)

	owner := seed(t, db, &models.Material{Name: "İmplant Eski", Sn: "1234567890ABC"})
	seed(t, db, &models.Material{Name: "İmplant Yeni", Gtin: "12345678901234"})

	_, err := r.Resolve("0112345678901234211234567890ABC", models.MaterialStatusAll)
	require.ErrorIs(t, err, models.ErrDuplicateSerial)

	var dup *models.DuplicateSerialError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, owner.Name, dup.OwnerName)
	require.Equal(t, "1234567890ABC", dup.Serial)
}

func TestResolveScopeFilter(t *testing.T) {
	db := setupTestDB(t)
	r := NewResolver(db)

	seed(t, db, &models.Material{Name: "Konsinye Stent", Barcode: "555", Status: models.MaterialStatusKonsinye})

	// Kapsam dışı eşleşme, eşleşme sayılmaz.
	_, err := r.Resolve("555", models.MaterialStatusFilter(models.MaterialStatusNormal))
	require.ErrorIs(t, err, models.ErrUnresolved)

	m, err := r.Resolve("555", models.MaterialStatusFilter(models.MaterialStatusKonsinye))
	require.NoError(t, err)
	require.Equal(t, "Konsinye Stent", m.Name)

	m, err = r.Resolve("555", models.MaterialStatusAll)
	require.NoError(t, err)
	require.Equal(t, "Konsinye Stent", m.Name)
}

func TestResolveUnknownCode(t *testing.T) {
	db := setupTestDB(t)
	r := NewResolver(db)

	_, err := r.Resolve("hic-yok", models.MaterialStatusAll)
	require.ErrorIs(t, err, models.ErrUnresolved)

	_, err = r.Resolve("   ", models.MaterialStatusAll)
	require.ErrorIs(t, err, models.ErrUnresolved)
}
