package identity

import (
	"errors"

	"hastane-stok-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type ResolveRequest struct {
	Code  string `json:"code"`
	Scope string `json:"scope"` // malzeme durumu filtresi, boş = tümü
}

type ResolveResponse struct {
	Resolved bool              `json:"resolved"`
	Material *models.Material  `json:"material,omitempty"`
	Decoded  DecodeResult      `json:"decoded"`
}

// POST /api/resolve — tarayıcıdan gelen ham kodu malzemeye çözer.
// Çözülemeyen kod hata değildir; resolved=false ile döner ki arayüz yeni
// malzeme kayıt akışını açabilsin. Seri numarası çakışması ise 409'dur.
func ResolveHandler(res *Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ResolveRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.Code == "" {
			return fiber.NewError(fiber.StatusBadRequest, "code zorunlu")
		}

		dec := Decode(body.Code)
		m, err := res.Resolve(body.Code, models.MaterialStatusFilter(body.Scope))
		if errors.Is(err, models.ErrUnresolved) {
			return c.JSON(ResolveResponse{Resolved: false, Decoded: dec})
		}
		if err != nil {
			return err
		}
		return c.JSON(ResolveResponse{Resolved: true, Material: m, Decoded: dec})
	}
}
