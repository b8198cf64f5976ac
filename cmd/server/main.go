package main

import (
	"errors"
	"log"
	"strings"

	"hastane-stok-backend/internal/analytics"
	"hastane-stok-backend/internal/audit"
	"hastane-stok-backend/internal/config"
	"hastane-stok-backend/internal/database"
	"hastane-stok-backend/internal/identity"
	"hastane-stok-backend/internal/ledger"
	"hastane-stok-backend/internal/models"
	"hastane-stok-backend/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
)

func main() {
	// .env varsa yükle; yoksa ortam değişkenleriyle devam.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Veritabanı açılamadı: %v", err)
	}
	log.Println("Veritabanı bağlantısı başarılı. Migration tamamlandı.")

	auditSvc := audit.NewService(db)
	ledgerSvc := ledger.NewService(db, auditSvc)
	ledgerSvc.LockTimeout = cfg.LockTimeout
	resolver := identity.NewResolver(db)
	sessionSvc := session.NewService(db, ledgerSvc, resolver, auditSvc)
	analyticsSvc := analytics.NewService(db)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			// Çekirdek hata taksonomisi -> HTTP durum kodu. Hepsi
			// kurtarılabilir; süreci düşürmezler.
			switch {
			case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrUnresolved):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, models.ErrDuplicateSerial),
				errors.Is(err, models.ErrInsufficientStock),
				errors.Is(err, models.ErrInvalidSessionStatus):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, models.ErrBusy):
				return c.Status(fiber.StatusLocked).JSON(fiber.Map{"error": err.Error()})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Beklenmeyen sunucu hatası",
			})
		},
	})

	// CORS origins'i virgülle ayrılmış string'den array'e çevir
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Kimlik çözümleme
	api.Post("/resolve", identity.ResolveHandler(resolver))

	// Malzeme yönetimi
	api.Post("/materials", ledger.CreateMaterialHandler(ledgerSvc))
	api.Get("/materials", ledger.ListMaterialsHandler(ledgerSvc))
	api.Get("/materials/:id", ledger.GetMaterialHandler(ledgerSvc))
	api.Put("/materials/:id", ledger.UpdateMaterialHandler(ledgerSvc))
	api.Delete("/materials/:id", ledger.DeleteMaterialHandler(ledgerSvc))

	// Kullanım ve stok girişi
	api.Post("/usage-events", ledger.ApplyUsageHandler(ledgerSvc))
	api.Delete("/usage-events/:id", ledger.ReverseUsageHandler(ledgerSvc))
	api.Post("/receipt-events", ledger.ApplyReceiptHandler(ledgerSvc))

	// Sayım oturumları
	api.Post("/count-sessions", session.CreateSessionHandler(sessionSvc))
	api.Get("/count-sessions", session.ListSessionsHandler(sessionSvc))
	api.Get("/count-sessions/:id", session.GetSessionHandler(sessionSvc))
	api.Post("/count-sessions/:id/quick-scan", session.QuickScanHandler(sessionSvc))
	api.Post("/count-sessions/:id/controlled-count", session.ControlledCountHandler(sessionSvc))
	api.Post("/count-sessions/:id/finalize", session.FinalizeSessionHandler(sessionSvc))
	api.Post("/count-sessions/:id/cancel", session.CancelSessionHandler(sessionSvc))
	api.Get("/count-sessions/:id/summary", session.GetSessionSummaryHandler(sessionSvc))

	// Analitik (salt okunur)
	api.Get("/analytics/usage-trend", analytics.UsageTrendHandler(analyticsSvc))
	api.Get("/analytics/stock-value-trend", analytics.StockValueTrendHandler(analyticsSvc))
	api.Get("/analytics/yearly-summary", analytics.YearlySummaryHandler(analyticsSvc))

	// Denetim kayıtları
	api.Get("/audit-logs", audit.ListAuditLogsHandler(auditSvc))

	log.Println("Server çalışıyor port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
