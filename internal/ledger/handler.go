package ledger

import (
	"strconv"

	"hastane-stok-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// İnce sunum katmanı: gövde ayrıştır, doğrula, servise devret. İş kuralı
// burada yaşamaz. Servis hataları main'deki ErrorHandler'da koda çevrilir.

func idParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz id")
	}
	return uint(id), nil
}

type CreateMaterialRequest struct {
	Name         string  `json:"name"`
	Barcode      string  `json:"barcode"`
	Gtin         string  `json:"gtin"`
	Sn           string  `json:"sn"`
	UdiCode      string  `json:"udi_code"`
	AllBarcode   string  `json:"all_barcode"`
	Category     string  `json:"category"`
	SubCategory  string  `json:"sub_category"`
	Unit         string  `json:"unit"`
	UnitPrice    float64 `json:"unit_price"`
	CurrentStock int     `json:"current_stock"`
	MinStock     int     `json:"min_stock"`
	Status       string  `json:"status"`
	Actor        string  `json:"actor"`
}

// POST /api/materials
func CreateMaterialHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateMaterialRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name zorunlu")
		}
		if body.UnitPrice < 0 || body.CurrentStock < 0 || body.MinStock < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "fiyat ve stok alanları negatif olamaz")
		}

		m, err := svc.CreateMaterial(MaterialInput{
			Name:         body.Name,
			Barcode:      body.Barcode,
			Gtin:         body.Gtin,
			Sn:           body.Sn,
			UdiCode:      body.UdiCode,
			AllBarcode:   body.AllBarcode,
			Category:     body.Category,
			SubCategory:  body.SubCategory,
			Unit:         body.Unit,
			UnitPrice:    body.UnitPrice,
			CurrentStock: body.CurrentStock,
			MinStock:     body.MinStock,
			Status:       models.MaterialStatus(body.Status),
			Actor:        body.Actor,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	}
}

type UpdateMaterialRequest struct {
	Name        *string  `json:"name"`
	Barcode     *string  `json:"barcode"`
	Gtin        *string  `json:"gtin"`
	Sn          *string  `json:"sn"`
	UdiCode     *string  `json:"udi_code"`
	AllBarcode  *string  `json:"all_barcode"`
	Category    *string  `json:"category"`
	SubCategory *string  `json:"sub_category"`
	Unit        *string  `json:"unit"`
	UnitPrice   *float64 `json:"unit_price"`
	MinStock    *int     `json:"min_stock"`
	Status      *string  `json:"status"`
	Actor       string   `json:"actor"`
}

// PUT /api/materials/:id
func UpdateMaterialHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		var body UpdateMaterialRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		patch := MaterialPatch{
			Name:        body.Name,
			Barcode:     body.Barcode,
			Gtin:        body.Gtin,
			Sn:          body.Sn,
			UdiCode:     body.UdiCode,
			AllBarcode:  body.AllBarcode,
			Category:    body.Category,
			SubCategory: body.SubCategory,
			Unit:        body.Unit,
			UnitPrice:   body.UnitPrice,
			MinStock:    body.MinStock,
			Actor:       body.Actor,
		}
		if body.Status != nil {
			st := models.MaterialStatus(*body.Status)
			patch.Status = &st
		}

		m, err := svc.UpdateMaterial(id, patch)
		if err != nil {
			return err
		}
		return c.JSON(m)
	}
}

// DELETE /api/materials/:id
func DeleteMaterialHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		if err := svc.DeleteMaterial(id, c.Query("actor")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/materials/:id
func GetMaterialHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		m, err := svc.GetMaterial(id)
		if err != nil {
			return err
		}
		return c.JSON(m)
	}
}

// GET /api/materials
func ListMaterialsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := svc.ListMaterials(ListFilter{
			Status:       models.MaterialStatusFilter(c.Query("status")),
			Category:     c.Query("category"),
			Query:        c.Query("q"),
			OnlyCritical: c.Query("critical") == "1",
		})
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

type UsageRequest struct {
	MaterialID uint   `json:"material_id"`
	Quantity   int    `json:"quantity"`
	PatientRef string `json:"patient_ref"`
	Actor      string `json:"actor"`
}

// POST /api/usage-events
func ApplyUsageHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UsageRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.MaterialID == 0 || body.Quantity <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "material_id zorunlu, quantity pozitif olmalı")
		}
		ev, err := svc.ApplyUsage(body.MaterialID, body.Quantity, body.PatientRef, body.Actor)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ev)
	}
}

// DELETE /api/usage-events/:id — kullanım kaydını geri alır, stok geri yüklenir.
func ReverseUsageHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		if err := svc.ReverseUsage(id, c.Query("actor")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

type ReceiptRequest struct {
	MaterialID uint   `json:"material_id"`
	Quantity   int    `json:"quantity"`
	InvoiceRef string `json:"invoice_ref"`
	Actor      string `json:"actor"`
}

// POST /api/receipt-events
func ApplyReceiptHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ReceiptRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.MaterialID == 0 || body.Quantity <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "material_id zorunlu, quantity pozitif olmalı")
		}
		ev, err := svc.ApplyReceipt(body.MaterialID, body.Quantity, body.InvoiceRef, body.Actor)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ev)
	}
}
