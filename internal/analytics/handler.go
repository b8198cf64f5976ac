package analytics

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func yearQuery(c *fiber.Ctx) (int, error) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year < 2000 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "year geçersiz")
	}
	return year, nil
}

// GET /api/analytics/usage-trend?year=2025&granularity=month&material_id=3
func UsageTrendHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		year, err := yearQuery(c)
		if err != nil {
			return err
		}
		var materialID *uint
		if v := c.Query("material_id"); v != "" {
			id, err := strconv.ParseUint(v, 10, 32)
			if err != nil || id == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "material_id geçersiz")
			}
			u := uint(id)
			materialID = &u
		}
		trend, err := svc.GetUsageTrend(materialID, year, Granularity(c.Query("granularity")))
		if err != nil {
			return err
		}
		return c.JSON(trend)
	}
}

// GET /api/analytics/stock-value-trend?year=2025&granularity=month
func StockValueTrendHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		year, err := yearQuery(c)
		if err != nil {
			return err
		}
		trend, err := svc.GetStockValueTrend(year, Granularity(c.Query("granularity")))
		if err != nil {
			return err
		}
		return c.JSON(trend)
	}
}

// GET /api/analytics/yearly-summary?year=2025
func YearlySummaryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		year, err := yearQuery(c)
		if err != nil {
			return err
		}
		sum, err := svc.GetYearlySummary(year)
		if err != nil {
			return err
		}
		return c.JSON(sum)
	}
}
