package analytics

import (
	"fmt"
	"testing"
	"time"

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

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.Local)
}

func pointByBucket(t *testing.T, points []TrendPoint, key string) TrendPoint {
	t.Helper()
	for _, p := range points {
		if p.Bucket == key {
			return p
		}
	}
	t.Fatalf("periyot bulunamadı: %s", key)
	return TrendPoint{}
}

func valueByBucket(t *testing.T, points []StockValuePoint, key string) StockValuePoint {
	t.Helper()
	for _, p := range points {
		if p.Bucket == key {
			return p
		}
	}
	t.Fatalf("periyot bulunamadı: %s", key)
	return StockValuePoint{}
}

func TestUsageTrendBucketsAndPeakSeason(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	m := models.Material{Name: "Enjektör", CurrentStock: 100, UnitPrice: 2}
	require.NoError(t, db.Create(&m).Error)

	for _, ev := range []models.UsageEvent{
		{MaterialID: m.ID, Quantity: 5, TotalCost: 10, Timestamp: at(2024, time.March, 10)},
		{MaterialID: m.ID, Quantity: 3, TotalCost: 6, Timestamp: at(2024, time.April, 2)},
		{MaterialID: m.ID, Quantity: 2, TotalCost: 4, Timestamp: at(2024, time.July, 1)},
	} {
		require.NoError(t, db.Create(&ev).Error)
	}

	trend, err := svc.GetUsageTrend(nil, 2024, GranularityMonth)
	require.NoError(t, err)
	require.Len(t, trend.Points, 12) // boş aylar da iskelette
	require.Equal(t, 10, trend.TotalQuantity)
	require.Equal(t, 20.0, trend.TotalCost)
	require.Equal(t, "İlkbahar", trend.PeakSeason) // Mart+Nisan 8 > Temmuz 2

	mart := pointByBucket(t, trend.Points, "2024-03")
	require.Equal(t, 5, mart.Quantity)
	require.Equal(t, 10.0, mart.TotalCost)
	require.Zero(t, pointByBucket(t, trend.Points, "2024-02").Quantity)
}

func TestUsageTrendFiltersByMaterial(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	a := models.Material{Name: "A"}
	b := models.Material{Name: "B"}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)

	require.NoError(t, db.Create(&models.UsageEvent{MaterialID: a.ID, Quantity: 4, Timestamp: at(2024, time.May, 5)}).Error)
	require.NoError(t, db.Create(&models.UsageEvent{MaterialID: b.ID, Quantity: 9, Timestamp: at(2024, time.May, 6)}).Error)

	trend, err := svc.GetUsageTrend(&a.ID, 2024, GranularityMonth)
	require.NoError(t, err)
	require.Equal(t, 4, trend.TotalQuantity)
}

func TestUsageTrendEmptyLedger(t *testing.T) {
	svc := NewService(setupTestDB(t))

	trend, err := svc.GetUsageTrend(nil, 2024, GranularityMonth)
	require.NoError(t, err)
	require.Len(t, trend.Points, 12)
	require.Zero(t, trend.TotalQuantity)
	require.Empty(t, trend.PeakSeason)
}

func TestStockValueTrendReplaysBackward(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	// Bugünkü stok 10; Haziran 2024'te 4 adet kullanılmış. Haziran öncesi
	// periyotlarda stok 14 olmalı.
	m := models.Material{Name: "Serum", CurrentStock: 10, UnitPrice: 2}
	require.NoError(t, db.Create(&m).Error)
	require.NoError(t, db.Create(&models.UsageEvent{
		MaterialID: m.ID, Quantity: 4, Timestamp: at(2024, time.June, 15),
	}).Error)

	trend, err := svc.GetStockValueTrend(2024, GranularityMonth)
	require.NoError(t, err)
	require.Len(t, trend.Points, 12)
	require.Equal(t, 28.0, valueByBucket(t, trend.Points, "2024-05").TotalValue) // 14 * 2
	require.Equal(t, 20.0, valueByBucket(t, trend.Points, "2024-06").TotalValue) // 10 * 2
	require.Equal(t, 20.0, valueByBucket(t, trend.Points, "2024-12").TotalValue)
}

func TestStockValueTrendReplaceAnchor(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	m := models.Material{Name: "Maske", CurrentStock: 5, UnitPrice: 1}
	require.NoError(t, db.Create(&m).Error)

	// Ağustos 2024'teki fiziksel sayım stoku 12'den 5'e düzeltmiş.
	applied := at(2024, time.August, 10)
	prev := 12
	require.NoError(t, db.Create(&models.CountEvent{
		SessionID: 1, MaterialID: m.ID, CountedQuantity: 5,
		Mode: models.CountModeReplace, Status: models.CountPending,
		PreviousStock: &prev, AppliedAt: &applied,
	}).Error)

	trend, err := svc.GetStockValueTrend(2024, GranularityMonth)
	require.NoError(t, err)
	require.Equal(t, 12.0, valueByBucket(t, trend.Points, "2024-07").TotalValue)
	require.Equal(t, 5.0, valueByBucket(t, trend.Points, "2024-08").TotalValue)
}

func TestStockValueTrendCriticalCount(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	// Ekim girişinden önce stok 2 <= min 3 idi; girişten sonra kritik değil.
	m := models.Material{Name: "Eldiven", CurrentStock: 20, MinStock: 3, UnitPrice: 1}
	require.NoError(t, db.Create(&m).Error)
	require.NoError(t, db.Create(&models.ReceiptEvent{
		MaterialID: m.ID, Quantity: 18, Timestamp: at(2024, time.October, 3),
	}).Error)

	trend, err := svc.GetStockValueTrend(2024, GranularityMonth)
	require.NoError(t, err)
	require.Equal(t, 1, valueByBucket(t, trend.Points, "2024-09").CriticalCount)
	require.Zero(t, valueByBucket(t, trend.Points, "2024-10").CriticalCount)
}

func TestYearlySummary(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	a := models.Material{Name: "A", CurrentStock: 10, UnitPrice: 2, MinStock: 1}
	b := models.Material{Name: "B", CurrentStock: 4, UnitPrice: 3, MinStock: 5}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)

	for _, ev := range []models.UsageEvent{
		{MaterialID: a.ID, Quantity: 1, TotalCost: 2, PatientRef: "P-1", Timestamp: at(2024, time.February, 1)},
		{MaterialID: a.ID, Quantity: 1, TotalCost: 2, PatientRef: "P-1", Timestamp: at(2024, time.March, 1)},
		{MaterialID: b.ID, Quantity: 2, TotalCost: 6, PatientRef: "P-2", Timestamp: at(2024, time.March, 2)},
		{MaterialID: b.ID, Quantity: 1, TotalCost: 3, Timestamp: at(2024, time.April, 9)}, // hasta kaydı yok
		{MaterialID: a.ID, Quantity: 1, TotalCost: 2, PatientRef: "P-3", Timestamp: at(2023, time.June, 1)},
	} {
		require.NoError(t, db.Create(&ev).Error)
	}

	sum, err := svc.GetYearlySummary(2024)
	require.NoError(t, err)
	require.Equal(t, int64(2), sum.MaterialCount)
	require.Equal(t, int64(2), sum.PatientCount) // P-1 ve P-2; 2023'teki P-3 sayılmaz
	require.Equal(t, 32.0, sum.TotalStockValue)  // 10*2 + 4*3
	require.Equal(t, int64(1), sum.CriticalStockCount)
	require.Equal(t, 13.0, sum.TotalUsageCost)
}

func TestYearlySummaryEmptyLedger(t *testing.T) {
	svc := NewService(setupTestDB(t))

	sum, err := svc.GetYearlySummary(2024)
	require.NoError(t, err)
	require.Zero(t, sum.MaterialCount)
	require.Zero(t, sum.PatientCount)
	require.Zero(t, sum.TotalStockValue)
	require.Zero(t, sum.TotalUsageCost)
}

func TestGranularityFallsBackToMonth(t *testing.T) {
	require.Equal(t, GranularityMonth, Granularity("saat").normalize())
	require.Equal(t, GranularityDay, GranularityDay.normalize())
}
