package identity

import (
	"fmt"
	"strings"

	"golang.org/x/text/width"
)

// DecodeResult: taranan kodun çözümlenmiş hali.
type DecodeResult struct {
	Barcode    string // EAN-13 eşdeğeri (GTIN'in son 13 hanesi) ya da ham kod
	Gtin       string // (01) GTIN-14
	Sn         string // (21) seri numarası
	ExpiryDate string // (17) son kullanma, YYYYMM'e normalize edilmiş
	LotNumber  string // (10) lot numarası
}

// Sabit uzunluklu AI'lar ve veri uzunlukları. Bileşik kod sınırları sahada
// okuyucudan okuyucuya değişebildiği için tablo burada tek yerde duruyor.
var fixedAILengths = map[string]int{
	"01": 14, // GTIN-14
	"17": 6,  // son kullanma (YYMMDD)
}

// Değişken uzunluklu AI'ların üst sınırı.
var variableAILengths = map[string]int{
	"21": 20, // seri numarası
	"10": 20, // lot numarası
}

// Normalize: tarayıcıdan gelen kodu karşılaştırılabilir hale getirir.
// Bazı okuyucu/IME kombinasyonları tam genişlik rakam basıyor.
func Normalize(code string) string {
	return strings.TrimSpace(width.Narrow.String(code))
}

// Decode: taranan kodu çözer. Asla hata dönmez; bileşik kod olarak
// çözülemeyen her girdi düz barkod sayılır (Barcode = kodun kendisi).
func Decode(code string) DecodeResult {
	code = Normalize(code)
	if code == "" {
		return DecodeResult{}
	}

	// AI(01) ile başlayan ve 14 haneli GTIN'i barındıracak kadar uzun
	// kodlar bileşik koddur.
	if strings.HasPrefix(code, "01") && len(code) >= 2+fixedAILengths["01"] {
		if res, err := decodeAIString(code); err == nil {
			return res
		}
	}

	res := DecodeResult{Barcode: code}

	// Düz kodlar: 14 hane GTIN-14, 13 hane EAN-13, daha kısası başa sıfır
	// eklenerek GTIN'e tamamlanır.
	if isDigits(code) {
		switch {
		case len(code) == 14:
			res.Gtin = code
			res.Barcode = code[1:]
		case len(code) == 13:
			res.Gtin = "0" + code
		case len(code) < 13:
			res.Gtin = fmt.Sprintf("%014s", code)
		}
	}
	return res
}

// decodeAIString: AI+veri çiftlerini soldan sağa yürür.
func decodeAIString(code string) (DecodeResult, error) {
	var res DecodeResult
	i := 0
	n := len(code)

	for i < n {
		if n-i < 2 {
			break
		}
		ai := code[i : i+2]

		if l, ok := fixedAILengths[ai]; ok {
			if i+2+l > n {
				return res, fmt.Errorf("AI(%s) verisi eksik", ai)
			}
			val := code[i+2 : i+2+l]
			switch ai {
			case "01":
				res.Gtin = val
			case "17":
				// YYMMDD -> YYYYMM (DB saklama formatı)
				res.ExpiryDate = "20" + val[0:2] + val[2:4]
			}
			i += 2 + l
			continue
		}

		if max, ok := variableAILengths[ai]; ok {
			start := i + 2
			end := start
			for end < n && end-start < max {
				// Yalnızca "tam" bir sonraki AI değeri kesiyor: AI kodu ve
				// sabit verisinin tamamı kalan string'e sığıyorsa.
				if next := code[end:]; len(next) >= 2 {
					if l, fixed := fixedAILengths[next[:2]]; fixed && len(next) >= 2+l {
						break
					}
				}
				end++
			}
			val := code[start:end]
			switch ai {
			case "21":
				res.Sn = val
			case "10":
				res.LotNumber = val
			}
			i = end
			continue
		}

		// Tanınmayan AI: bir karakter atla ve devam et.
		i++
	}

	if res.Gtin == "" {
		return res, fmt.Errorf("bileşik kodda AI(01) GTIN bulunamadı")
	}

	// GS1-128/EAN-13 geleneği: barkod, GTIN'in son 13 hanesidir.
	res.Barcode = res.Gtin[len(res.Gtin)-13:]
	return res, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
