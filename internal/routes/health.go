package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody-vault/internal/vault"
)

// RegisterHealthRoutes adds liveness/readiness style endpoints. Readiness also
// fails when the vault's custody no longer backs its ledger.
func RegisterHealthRoutes(app *fiber.App, d Deps, v *vault.Vault) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := "ok"
		redisStatus := "ok"
		vaultStatus := "ok"

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
			}
		} else {
			dbStatus = "disabled"
		}
		if d.Cache != nil {
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		} else {
			redisStatus = "disabled"
		}
		report, err := v.Audit(ctx)
		switch {
		case err != nil:
			vaultStatus = err.Error()
		case !report.Healthy:
			vaultStatus = "unbacked"
		}

		status := http.StatusOK
		if (dbStatus != "ok" && dbStatus != "disabled") || (redisStatus != "ok" && redisStatus != "disabled") || vaultStatus != "ok" {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus, "vault": vaultStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
