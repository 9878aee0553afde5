package middleware

import (
	"errors"
	"net/http"

	"pharmacy-connector/internal/model"
	"pharmacy-connector/pkg/database"
	"pharmacy-connector/pkg/logger"
	"pharmacy-connector/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// APIKeyAuthMiddleware resolves the X-API-KEY header to an active pharmacy
// and binds it to the request context. Unknown and inactive keys answer
// with the same message so callers cannot probe for existing tenants.
func APIKeyAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)
		prometheus.RecordAuthAttempt()

		apiKey := c.Request().Header.Get("X-API-KEY")
		if apiKey == "" {
			log.Warn("Missing X-API-KEY header")
			prometheus.RecordAuthError()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}

		var pharmacy model.Pharmacy
		result := database.GetDB().Where("api_key = ? AND is_active = ?", apiKey, true).First(&pharmacy)
		if result.Error != nil {
			if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				log.Error("Failed to look up API key", zap.Error(result.Error))
			} else {
				log.Warn("Rejected unknown or inactive API key")
			}
			prometheus.RecordAuthError()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or inactive API key"})
		}

		// Store the acting pharmacy in context for later use
		c.Set("pharmacy", pharmacy)
		prometheus.RecordAuthSuccess()
		log.Info("Request authenticated",
			zap.Uint("pharmacy_id", pharmacy.ID),
			zap.String("pharmacy_name", pharmacy.Name))

		return next(c)
	}
}

// AdminAuthMiddleware gates the pharmacy management endpoints behind the
// operator key from configuration. Tenant API keys are not accepted here.
func AdminAuthMiddleware(adminKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			if adminKey == "" {
				log.Error("ADMIN_API_KEY is not configured, refusing pharmacy management request")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			if c.Request().Header.Get("X-ADMIN-KEY") != adminKey {
				log.Warn("Rejected invalid admin key")
				prometheus.RecordAuthError()
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid admin key"})
			}

			return next(c)
		}
	}
}

// PharmacyFromContext retrieves the acting pharmacy from the context.
// Returns false if the request was not authenticated.
func PharmacyFromContext(c echo.Context) (model.Pharmacy, bool) {
	pharmacy, ok := c.Get("pharmacy").(model.Pharmacy)
	return pharmacy, ok
}
