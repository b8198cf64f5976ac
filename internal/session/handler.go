package session

import (
	"strconv"
	"time"

	"hastane-stok-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

func idParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz id")
	}
	return uint(id), nil
}

type CreateSessionRequest struct {
	InvoiceNo     string `json:"invoice_no"`
	CountedBy     string `json:"counted_by"`
	CreatedBy     string `json:"created_by"`
	SessionStatus string `json:"session_status"` // sayım kapsamı: normal/konsinye/iade/faturali, boş = tümü
	CountDate     string `json:"count_date"`     // "2025-03-09", boş = bugün
	Notes         string `json:"notes"`
	Planned       bool   `json:"planned"`
}

// POST /api/count-sessions
func CreateSessionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSessionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		var countDate time.Time
		if body.CountDate != "" {
			d, err := time.Parse("2006-01-02", body.CountDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Tarih formatı 'YYYY-MM-DD' olmalı")
			}
			countDate = d
		}

		sess, err := svc.CreateSession(CreateSessionInput{
			InvoiceNo:     body.InvoiceNo,
			CountedBy:     body.CountedBy,
			CreatedBy:     body.CreatedBy,
			SessionStatus: models.MaterialStatusFilter(body.SessionStatus),
			CountDate:     countDate,
			Notes:         body.Notes,
			Planned:       body.Planned,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(sess)
	}
}

type QuickScanRequest struct {
	Code      string `json:"code"`
	CountedBy string `json:"counted_by"`
}

// POST /api/count-sessions/:id/quick-scan
func QuickScanHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		var body QuickScanRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.Code == "" {
			return fiber.NewError(fiber.StatusBadRequest, "code zorunlu")
		}
		ev, err := svc.RecordQuickScan(id, body.Code, body.CountedBy)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ev)
	}
}

type ControlledCountRequest struct {
	MaterialID uint   `json:"material_id"`
	Quantity   int    `json:"quantity"`
	CountedBy  string `json:"counted_by"`
}

// POST /api/count-sessions/:id/controlled-count
func ControlledCountHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		var body ControlledCountRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.MaterialID == 0 || body.Quantity <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "material_id zorunlu, quantity pozitif olmalı")
		}
		ev, err := svc.RecordControlledCount(id, body.MaterialID, body.Quantity, body.CountedBy)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ev)
	}
}

// POST /api/count-sessions/:id/finalize
func FinalizeSessionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		sess, err := svc.FinalizeSession(id, c.Query("actor"))
		if err != nil {
			return err
		}
		return c.JSON(sess)
	}
}

// POST /api/count-sessions/:id/cancel
func CancelSessionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		sess, err := svc.CancelSession(id, c.Query("actor"))
		if err != nil {
			return err
		}
		return c.JSON(sess)
	}
}

// GET /api/count-sessions/:id
func GetSessionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		sess, err := svc.GetSession(id)
		if err != nil {
			return err
		}
		return c.JSON(sess)
	}
}

// GET /api/count-sessions/:id/summary
func GetSessionSummaryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		sum, err := svc.GetSessionSummary(id)
		if err != nil {
			return err
		}
		return c.JSON(sum)
	}
}

// GET /api/count-sessions
func ListSessionsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		year, _ := strconv.Atoi(c.Query("year"))
		month, _ := strconv.Atoi(c.Query("month"))
		list, err := svc.ListSessions(SessionFilter{
			Status: models.SessionStatus(c.Query("status")),
			Year:   year,
			Month:  month,
		})
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}
