package analytics

import (
	"fmt"
	"sort"
	"time"

	"hastane-stok-backend/internal/models"

	"gorm.io/gorm"
)

// Service: defter üzerinde salt-okunur projeksiyonlar. Hiçbir metodu stok
// değiştirmez; her projeksiyon tek bir okuma transaction'ı içinde çalışır ki
// yazmalarla yarışırken tutarlı bir anlık görüntü görsün. Boş defter hata
// değildir, sıfırlanmış yapılar döner.
type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{DB: db} }

type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

func (g Granularity) normalize() Granularity {
	switch g {
	case GranularityDay, GranularityWeek, GranularityMonth, GranularityYear:
		return g
	default:
		return GranularityMonth
	}
}

// bucketKey: zaman damgasını periyot anahtarına indirger.
func bucketKey(t time.Time, g Granularity) string {
	switch g {
	case GranularityDay:
		return t.Format("2006-01-02")
	case GranularityWeek:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case GranularityYear:
		return t.Format("2006")
	default:
		return t.Format("2006-01")
	}
}

// Mevsim etiketi: Aralık-Şubat Kış, Mart-Mayıs İlkbahar,
// Haziran-Ağustos Yaz, Eylül-Kasım Sonbahar.
func seasonOf(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "Kış"
	case time.March, time.April, time.May:
		return "İlkbahar"
	case time.June, time.July, time.August:
		return "Yaz"
	default:
		return "Sonbahar"
	}
}

type bucket struct {
	Key string
	End time.Time // periyodun son anı (şimdiki zamanla sınırlı)
}

// yearBuckets: yılın periyot iskeleti, bugünden ileriye gitmez.
func yearBuckets(year int, g Granularity, now time.Time) []bucket {
	var out []bucket
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location())
	for d := start; d.Year() == year && !d.After(now); d = d.AddDate(0, 0, 1) {
		end := time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, d.Location())
		if end.After(now) {
			end = now
		}
		key := bucketKey(d, g)
		if len(out) > 0 && out[len(out)-1].Key == key {
			out[len(out)-1].End = end
			continue
		}
		out = append(out, bucket{Key: key, End: end})
	}
	return out
}

type TrendPoint struct {
	Bucket    string
	Quantity  int
	TotalCost float64
}

type UsageTrend struct {
	Year          int
	Granularity   Granularity
	MaterialID    *uint // nil = tüm malzemeler
	Points        []TrendPoint
	TotalQuantity int
	TotalCost     float64
	PeakSeason    string // en yüksek kullanımın olduğu mevsim; hiç kullanım yoksa boş
}

// GetUsageTrend: kullanım event'lerinin periyot bazında miktar/maliyet dökümü.
func (s *Service) GetUsageTrend(materialID *uint, year int, g Granularity) (*UsageTrend, error) {
	g = g.normalize()
	trend := &UsageTrend{Year: year, Granularity: g, MaterialID: materialID, Points: []TrendPoint{}}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location())
		to := from.AddDate(1, 0, 0)

		q := tx.Where("timestamp >= ? AND timestamp < ?", from, to)
		if materialID != nil {
			q = q.Where("material_id = ?", *materialID)
		}
		var events []models.UsageEvent
		if err := q.Order("timestamp ASC").Find(&events).Error; err != nil {
			return err
		}

		byKey := make(map[string]*TrendPoint)
		seasonQty := make(map[string]int)
		for _, ev := range events {
			key := bucketKey(ev.Timestamp, g)
			p, ok := byKey[key]
			if !ok {
				p = &TrendPoint{Bucket: key}
				byKey[key] = p
			}
			p.Quantity += ev.Quantity
			p.TotalCost += ev.TotalCost
			trend.TotalQuantity += ev.Quantity
			trend.TotalCost += ev.TotalCost
			seasonQty[seasonOf(ev.Timestamp.Month())] += ev.Quantity
		}

		// Yıl iskeletini boş periyotlar dahil doldur; böylece grafikte
		// kullanım olmayan aylar kaybolmaz.
		for _, b := range yearBuckets(year, g, now) {
			if p, ok := byKey[b.Key]; ok {
				trend.Points = append(trend.Points, *p)
				delete(byKey, b.Key)
			} else {
				trend.Points = append(trend.Points, TrendPoint{Bucket: b.Key})
			}
		}
		// İskelet dışında kalan (ör. gelecekteki tarihli) kayıtlar da görünsün.
		var rest []TrendPoint
		for _, p := range byKey {
			rest = append(rest, *p)
		}
		sort.Slice(rest, func(i, j int) bool { return rest[i].Bucket < rest[j].Bucket })
		trend.Points = append(trend.Points, rest...)

		best := 0
		for season, qty := range seasonQty {
			if qty > best {
				best = qty
				trend.PeakSeason = season
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trend, nil
}

type StockValuePoint struct {
	Bucket        string
	TotalValue    float64 // Σ stok × birim fiyat, periyot sonu itibarıyla
	CriticalCount int     // minStock eşiğinde ya da altındaki malzeme sayısı
}

type StockValueTrend struct {
	Year        int
	Granularity Granularity
	Points      []StockValuePoint
}

// Geriye oynatma için tek tip event görünümü.
type stockDelta struct {
	materialID uint
	t          time.Time
	qty        int  // pozitif: stok artışı olarak uygulanmıştı
	replace    bool // mutlak düzeltme; prev geri dönüş değeri
	prev       int
}

// GetStockValueTrend: her periyot sonundaki stok değeri. Periyot sonu stoku,
// bugünkü stoktan geriye doğru event'ler ters oynatılarak bulunur; replace
// modlu sayımlar PreviousStock ile çapa görevi görür.
func (s *Service) GetStockValueTrend(year int, g Granularity) (*StockValueTrend, error) {
	g = g.normalize()
	trend := &StockValueTrend{Year: year, Granularity: g, Points: []StockValuePoint{}}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		buckets := yearBuckets(year, g, now)
		if len(buckets) == 0 {
			return nil
		}
		earliest := buckets[0].End

		var materials []models.Material
		if err := tx.Find(&materials).Error; err != nil {
			return err
		}
		stocks := make(map[uint]int, len(materials))
		prices := make(map[uint]float64, len(materials))
		minStocks := make(map[uint]int, len(materials))
		for _, m := range materials {
			stocks[m.ID] = m.CurrentStock
			prices[m.ID] = m.UnitPrice
			minStocks[m.ID] = m.MinStock
		}

		deltas, err := collectDeltas(tx, earliest)
		if err != nil {
			return err
		}
		// Yeniden eskiye.
		sort.Slice(deltas, func(i, j int) bool { return deltas[i].t.After(deltas[j].t) })

		idx := 0
		points := make([]StockValuePoint, len(buckets))
		for bi := len(buckets) - 1; bi >= 0; bi-- {
			b := buckets[bi]
			// Periyot sonundan yeni olan her event'in etkisi geri alınır.
			for idx < len(deltas) && deltas[idx].t.After(b.End) {
				d := deltas[idx]
				idx++
				if _, known := stocks[d.materialID]; !known {
					continue // silinmiş malzeme: askıda referans, atla
				}
				if d.replace {
					stocks[d.materialID] = d.prev
				} else {
					stocks[d.materialID] -= d.qty
				}
			}
			p := StockValuePoint{Bucket: b.Key}
			for id, stock := range stocks {
				p.TotalValue += float64(stock) * prices[id]
				if stock <= minStocks[id] {
					p.CriticalCount++
				}
			}
			points[bi] = p
		}
		trend.Points = points
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trend, nil
}

// collectDeltas: cutoff'tan yeni tüm stok hareketlerini tek listede toplar.
func collectDeltas(tx *gorm.DB, cutoff time.Time) ([]stockDelta, error) {
	var deltas []stockDelta

	var usages []models.UsageEvent
	if err := tx.Where("timestamp > ?", cutoff).Find(&usages).Error; err != nil {
		return nil, err
	}
	for _, ev := range usages {
		deltas = append(deltas, stockDelta{materialID: ev.MaterialID, t: ev.Timestamp, qty: -ev.Quantity})
	}

	var receipts []models.ReceiptEvent
	if err := tx.Where("timestamp > ?", cutoff).Find(&receipts).Error; err != nil {
		return nil, err
	}
	for _, ev := range receipts {
		deltas = append(deltas, stockDelta{materialID: ev.MaterialID, t: ev.Timestamp, qty: ev.Quantity})
	}

	// Yalnızca stoğa uygulanmış sayımlar hareket sayılır.
	var counts []models.CountEvent
	if err := tx.Where("applied_at > ?", cutoff).Find(&counts).Error; err != nil {
		return nil, err
	}
	for _, ev := range counts {
		d := stockDelta{materialID: ev.MaterialID, t: *ev.AppliedAt, qty: ev.CountedQuantity}
		if ev.Mode == models.CountModeReplace && ev.PreviousStock != nil {
			d.replace = true
			d.prev = *ev.PreviousStock
		}
		deltas = append(deltas, d)
	}
	return deltas, nil
}

type YearlySummary struct {
	Year               int
	MaterialCount      int64
	PatientCount       int64 // yıl içinde malzeme kullanılan tekil hasta sayısı
	TotalStockValue    float64
	CriticalStockCount int64
	TotalUsageCost     float64
}

// GetYearlySummary: yılın düz toplamları.
func (s *Service) GetYearlySummary(year int) (*YearlySummary, error) {
	sum := &YearlySummary{Year: year}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.Now().Location())
		to := from.AddDate(1, 0, 0)

		if err := tx.Model(&models.Material{}).Count(&sum.MaterialCount).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.UsageEvent{}).
			Where("timestamp >= ? AND timestamp < ? AND patient_ref <> ''", from, to).
			Distinct("patient_ref").
			Count(&sum.PatientCount).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Material{}).
			Select("COALESCE(SUM(current_stock * unit_price), 0)").
			Scan(&sum.TotalStockValue).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Material{}).
			Where("current_stock <= min_stock").
			Count(&sum.CriticalStockCount).Error; err != nil {
			return err
		}
		return tx.Model(&models.UsageEvent{}).
			Select("COALESCE(SUM(total_cost), 0)").
			Where("timestamp >= ? AND timestamp < ?", from, to).
			Scan(&sum.TotalUsageCost).Error
	})
	if err != nil {
		return nil, err
	}
	return sum, nil
}
