package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"pharmacy-connector/internal/middleware"
	"pharmacy-connector/internal/model"
	"pharmacy-connector/pkg/database"
	"pharmacy-connector/pkg/logger"
	"pharmacy-connector/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// WebhookEventRequest defines the structure for webhook event creation/update requests
type WebhookEventRequest struct {
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	Processed  *bool           `json:"processed"`
	PharmacyID *uint           `json:"pharmacy_id"`
}

func (r *WebhookEventRequest) validate(actingID uint) fieldErrors {
	fields := fieldErrors{}
	requireString(r.EventType, "event_type", 100, fields)
	if len(r.Payload) == 0 {
		fields["payload"] = "this field is required"
	} else if !json.Valid(r.Payload) {
		fields["payload"] = "must be valid JSON"
	}
	if r.PharmacyID != nil && *r.PharmacyID != actingID {
		fields["pharmacy_id"] = "ownership cannot be changed"
	}
	if len(fields) > 0 {
		return fields
	}
	return nil
}

// ListWebhookEvents handles retrieving the acting pharmacy's webhook events
func ListWebhookEvents(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("webhook_events", "list")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	query := database.GetDB().Where("pharmacy_id = ?", pharmacy.ID)

	// Filter by processed flag if specified
	processed := c.QueryParam("processed")
	if processed != "" {
		flag, err := strconv.ParseBool(processed)
		if err == nil {
			query = query.Where("processed = ?", flag)
			log.Info("Filtering webhook events by processed flag", zap.Bool("processed", flag))
		} else {
			log.Warn("Invalid processed parameter", zap.String("value", processed), zap.Error(err))
		}
	}

	defer prometheus.TrackDBOperation("select")(time.Now())

	var events []model.WebhookEvent
	result := query.Find(&events)
	if result.Error != nil {
		log.Error("Failed to list webhook events", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve webhook events"})
	}

	log.Info("Webhook events retrieved",
		zap.Uint("pharmacy_id", pharmacy.ID),
		zap.Int("count", len(events)))
	return c.JSON(http.StatusOK, events)
}

// GetWebhookEvent handles retrieving a single webhook event by ID
func GetWebhookEvent(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("webhook_events", "get")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id := c.Param("id")
	eventID, ok := parseID(id)
	if !ok {
		log.Warn("Non-numeric webhook event id", zap.String("event_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "webhook event not found"})
	}

	var event model.WebhookEvent
	result := database.GetDB().Where("pharmacy_id = ?", pharmacy.ID).First(&event, eventID)
	if result.Error != nil {
		log.Warn("Webhook event not found",
			zap.String("event_id", id),
			zap.Uint("pharmacy_id", pharmacy.ID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "webhook event not found"})
	}

	return c.JSON(http.StatusOK, event)
}

// CreateWebhookEvent handles recording a new webhook event. Events are
// stored and flagged unprocessed unless the payload says otherwise;
// nothing is dispatched from here.
func CreateWebhookEvent(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("webhook_events", "create")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req WebhookEventRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		if fields := bindFieldErrors(err); fields != nil {
			return validationError(c, fields)
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	if fields := req.validate(pharmacy.ID); fields != nil {
		log.Warn("Webhook event validation failed", zap.Any("fields", fields))
		return validationError(c, fields)
	}

	event := model.WebhookEvent{
		PharmacyID: pharmacy.ID,
		EventType:  req.EventType,
		Payload:    datatypes.JSON(req.Payload),
	}
	if req.Processed != nil {
		event.Processed = *req.Processed
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	result := database.GetDB().Create(&event)
	if result.Error != nil {
		log.Error("Failed to create webhook event",
			zap.String("event_type", req.EventType),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create webhook event"})
	}

	prometheus.RecordWebhookEventReceived(event.EventType)
	log.Info("Webhook event recorded",
		zap.Uint("event_id", event.ID),
		zap.String("event_type", event.EventType),
		zap.Uint("pharmacy_id", pharmacy.ID))
	return c.JSON(http.StatusCreated, event)
}

// UpdateWebhookEvent handles updating an existing webhook event,
// typically to flip the processed flag once a consumer handled it
func UpdateWebhookEvent(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("webhook_events", "update")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id := c.Param("id")
	eventID, ok := parseID(id)
	if !ok {
		log.Warn("Non-numeric webhook event id", zap.String("event_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "webhook event not found"})
	}

	var req WebhookEventRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("event_id", id), zap.Error(err))
		if fields := bindFieldErrors(err); fields != nil {
			return validationError(c, fields)
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	if fields := req.validate(pharmacy.ID); fields != nil {
		log.Warn("Webhook event validation failed", zap.Any("fields", fields))
		return validationError(c, fields)
	}

	var event model.WebhookEvent
	result := database.GetDB().Where("pharmacy_id = ?", pharmacy.ID).First(&event, eventID)
	if result.Error != nil {
		log.Warn("Webhook event not found for update",
			zap.String("event_id", id),
			zap.Uint("pharmacy_id", pharmacy.ID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "webhook event not found"})
	}

	event.EventType = req.EventType
	event.Payload = datatypes.JSON(req.Payload)
	if req.Processed != nil {
		event.Processed = *req.Processed
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	result = database.GetDB().Save(&event)
	if result.Error != nil {
		log.Error("Failed to update webhook event",
			zap.String("event_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update webhook event"})
	}

	log.Info("Webhook event updated",
		zap.Uint("event_id", event.ID),
		zap.Bool("processed", event.Processed))
	return c.JSON(http.StatusOK, event)
}

// DeleteWebhookEvent handles deleting a webhook event
func DeleteWebhookEvent(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("webhook_events", "delete")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id := c.Param("id")
	eventID, ok := parseID(id)
	if !ok {
		log.Warn("Non-numeric webhook event id", zap.String("event_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "webhook event not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	result := database.GetDB().Where("pharmacy_id = ?", pharmacy.ID).Delete(&model.WebhookEvent{}, eventID)
	if result.Error != nil {
		log.Error("Failed to delete webhook event",
			zap.String("event_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete webhook event"})
	}

	if result.RowsAffected == 0 {
		log.Warn("Webhook event not found for deletion",
			zap.String("event_id", id),
			zap.Uint("pharmacy_id", pharmacy.ID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "webhook event not found"})
	}

	log.Info("Webhook event deleted", zap.String("event_id", id))
	return c.NoContent(http.StatusNoContent)
}
