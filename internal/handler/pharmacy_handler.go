package handler

import (
	"net/http"
	"net/url"
	"time"

	"pharmacy-connector/internal/model"
	"pharmacy-connector/pkg/database"
	"pharmacy-connector/pkg/logger"
	"pharmacy-connector/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PharmacyRequest defines the structure for pharmacy creation/update
// requests. These endpoints sit behind the admin key, not tenant keys.
type PharmacyRequest struct {
	Name       string `json:"name"`
	APIKey     string `json:"api_key"`
	WebhookURL string `json:"webhook_url"`
	IsActive   *bool  `json:"is_active"`
}

func (r *PharmacyRequest) validate() fieldErrors {
	fields := fieldErrors{}
	requireString(r.Name, "name", 255, fields)
	requireString(r.APIKey, "api_key", 64, fields)
	if r.WebhookURL != "" {
		u, err := url.ParseRequestURI(r.WebhookURL)
		if err != nil || u.Host == "" {
			fields["webhook_url"] = "must be a valid URL"
		}
	}
	if len(fields) > 0 {
		return fields
	}
	return nil
}

// ListPharmacies handles retrieving all registered pharmacies
func ListPharmacies(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("pharmacies", "list")

	defer prometheus.TrackDBOperation("select")(time.Now())

	var pharmacies []model.Pharmacy
	result := database.GetDB().Find(&pharmacies)
	if result.Error != nil {
		log.Error("Failed to list pharmacies", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve pharmacies"})
	}

	log.Info("Pharmacies retrieved", zap.Int("count", len(pharmacies)))
	return c.JSON(http.StatusOK, pharmacies)
}

// GetPharmacy handles retrieving a single pharmacy by ID
func GetPharmacy(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("pharmacies", "get")

	id := c.Param("id")
	pharmacyID, ok := parseID(id)
	if !ok {
		log.Warn("Non-numeric pharmacy id", zap.String("pharmacy_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "pharmacy not found"})
	}

	var pharmacy model.Pharmacy
	result := database.GetDB().First(&pharmacy, pharmacyID)
	if result.Error != nil {
		log.Warn("Pharmacy not found", zap.String("pharmacy_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "pharmacy not found"})
	}

	return c.JSON(http.StatusOK, pharmacy)
}

// CreatePharmacy handles onboarding a new pharmacy
func CreatePharmacy(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("pharmacies", "create")

	var req PharmacyRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		if fields := bindFieldErrors(err); fields != nil {
			return validationError(c, fields)
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	if fields := req.validate(); fields != nil {
		log.Warn("Pharmacy validation failed", zap.Any("fields", fields))
		return validationError(c, fields)
	}

	// API keys are unique across all pharmacies
	var count int64
	database.GetDB().Model(&model.Pharmacy{}).Where("api_key = ?", req.APIKey).Count(&count)
	if count > 0 {
		log.Warn("Pharmacy with this API key already exists")
		return c.JSON(http.StatusConflict, echo.Map{"error": "pharmacy with this API key already exists"})
	}

	pharmacy := model.Pharmacy{
		Name:       req.Name,
		APIKey:     req.APIKey,
		WebhookURL: req.WebhookURL,
		IsActive:   true,
	}
	if req.IsActive != nil {
		pharmacy.IsActive = *req.IsActive
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	result := database.GetDB().Create(&pharmacy)
	if result.Error != nil {
		log.Error("Failed to create pharmacy",
			zap.String("name", req.Name),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create pharmacy"})
	}

	log.Info("Pharmacy created",
		zap.Uint("pharmacy_id", pharmacy.ID),
		zap.String("name", pharmacy.Name))
	return c.JSON(http.StatusCreated, pharmacy)
}

// UpdatePharmacy handles updating an existing pharmacy
func UpdatePharmacy(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("pharmacies", "update")

	id := c.Param("id")
	pharmacyID, ok := parseID(id)
	if !ok {
		log.Warn("Non-numeric pharmacy id", zap.String("pharmacy_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "pharmacy not found"})
	}

	var req PharmacyRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("pharmacy_id", id), zap.Error(err))
		if fields := bindFieldErrors(err); fields != nil {
			return validationError(c, fields)
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	if fields := req.validate(); fields != nil {
		log.Warn("Pharmacy validation failed", zap.Any("fields", fields))
		return validationError(c, fields)
	}

	var pharmacy model.Pharmacy
	result := database.GetDB().First(&pharmacy, pharmacyID)
	if result.Error != nil {
		log.Warn("Pharmacy not found for update", zap.String("pharmacy_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "pharmacy not found"})
	}

	// Check if the API key is changed and if the new key already exists
	if req.APIKey != pharmacy.APIKey {
		var count int64
		database.GetDB().Model(&model.Pharmacy{}).Where("api_key = ? AND id != ?", req.APIKey, pharmacyID).Count(&count)
		if count > 0 {
			log.Warn("Pharmacy with this API key already exists")
			return c.JSON(http.StatusConflict, echo.Map{"error": "pharmacy with this API key already exists"})
		}
	}

	pharmacy.Name = req.Name
	pharmacy.APIKey = req.APIKey
	pharmacy.WebhookURL = req.WebhookURL
	if req.IsActive != nil {
		pharmacy.IsActive = *req.IsActive
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	result = database.GetDB().Save(&pharmacy)
	if result.Error != nil {
		log.Error("Failed to update pharmacy",
			zap.String("pharmacy_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update pharmacy"})
	}

	log.Info("Pharmacy updated",
		zap.Uint("pharmacy_id", pharmacy.ID),
		zap.String("name", pharmacy.Name),
		zap.Bool("is_active", pharmacy.IsActive))
	return c.JSON(http.StatusOK, pharmacy)
}

// DeletePharmacy handles offboarding a pharmacy. All resources owned by
// the pharmacy are removed in the same transaction.
func DeletePharmacy(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("pharmacies", "delete")

	id := c.Param("id")
	pharmacyID, ok := parseID(id)
	if !ok {
		log.Warn("Non-numeric pharmacy id", zap.String("pharmacy_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "pharmacy not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	tx := database.GetDB().Begin()
	if tx.Error != nil {
		log.Error("Failed to begin transaction", zap.Error(tx.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	result := tx.Delete(&model.Pharmacy{}, pharmacyID)
	if result.Error != nil {
		tx.Rollback()
		log.Error("Failed to delete pharmacy",
			zap.String("pharmacy_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete pharmacy"})
	}

	if result.RowsAffected == 0 {
		tx.Rollback()
		log.Warn("Pharmacy not found for deletion", zap.String("pharmacy_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "pharmacy not found"})
	}

	// Cascade to every resource the pharmacy owns
	for _, owned := range []interface{}{
		&model.InventoryItem{},
		&model.Sale{},
		&model.Order{},
		&model.WebhookEvent{},
	} {
		if err := tx.Where("pharmacy_id = ?", pharmacyID).Delete(owned).Error; err != nil {
			tx.Rollback()
			log.Error("Failed to cascade pharmacy deletion",
				zap.String("pharmacy_id", id),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete pharmacy"})
		}
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	log.Info("Pharmacy deleted", zap.String("pharmacy_id", id))
	return c.NoContent(http.StatusNoContent)
}
