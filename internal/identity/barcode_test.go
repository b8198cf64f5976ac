package identity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeCompositeGtinAndSerial(t *testing.T) {
	res := Decode("0112345678901234211234567890ABC")
	require.Equal(t, "12345678901234", res.Gtin)
	require.Equal(t, "1234567890ABC", res.Sn)
	require.Equal(t, "2345678901234", res.Barcode)
}

func TestDecodeCompositeExpiryAndLot(t *testing.T) {
	res := Decode("01088698810054571724063010A123B")
	require.Equal(t, "08869881005457", res.Gtin)
	require.Equal(t, "202406", res.ExpiryDate)
	require.Equal(t, "A123B", res.LotNumber)
	require.Equal(t, "8869881005457", res.Barcode)
	require.Empty(t, res.Sn)
}

func TestDecodePlainCodes(t *testing.T) {
	// GTIN-14
	res := Decode("12345678901234")
	require.Equal(t, "12345678901234", res.Gtin)
	require.Equal(t, "2345678901234", res.Barcode)

	// EAN-13
	res = Decode("8699546334455")
	require.Equal(t, "08699546334455", res.Gtin)
	require.Equal(t, "8699546334455", res.Barcode)

	// Kısa kod başa sıfırla tamamlanır
	res = Decode("12345678")
	require.Equal(t, "00000012345678", res.Gtin)
	require.Equal(t, "12345678", res.Barcode)
}

func TestDecodeMalformedFallsBackToLiteral(t *testing.T) {
	// Rakam olmayan girdi hata üretmez, düz barkod sayılır.
	res := Decode("UDI-ABC/0042")
	require.Equal(t, "UDI-ABC/0042", res.Barcode)
	require.Empty(t, res.Gtin)
	require.Empty(t, res.Sn)

	// 01 ile başlayıp GTIN'i taşıyamayacak kadar kısa olan kod bileşik değildir.
	res = Decode("0112345")
	require.Equal(t, "0112345", res.Barcode)
}

func TestNormalizeNarrowsFullWidth(t *testing.T) {
	require.Equal(t, "12345", Normalize(" １２３４５ "))
}
