package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"pharmacy-connector/internal/middleware"
	"pharmacy-connector/internal/model"
	"pharmacy-connector/pkg/database"
	"pharmacy-connector/pkg/logger"
	"pharmacy-connector/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// OrderRequest defines the structure for order creation/update requests
type OrderRequest struct {
	OrderReference string          `json:"order_reference"`
	Status         string          `json:"status"`
	Items          json.RawMessage `json:"items"`
	TotalAmount    *string         `json:"total_amount"`
	PharmacyID     *uint           `json:"pharmacy_id"`
}

func (r *OrderRequest) validate(actingID uint) (decimal.Decimal, fieldErrors) {
	fields := fieldErrors{}
	requireString(r.OrderReference, "order_reference", 100, fields)
	requireString(r.Status, "status", 50, fields)
	if len(r.Items) == 0 {
		fields["items"] = "this field is required"
	} else if !json.Valid(r.Items) {
		fields["items"] = "must be valid JSON"
	}
	totalAmount := parseDecimal(r.TotalAmount, "total_amount", fields)
	if r.PharmacyID != nil && *r.PharmacyID != actingID {
		fields["pharmacy_id"] = "ownership cannot be changed"
	}
	if len(fields) > 0 {
		return totalAmount, fields
	}
	return totalAmount, nil
}

// ListOrders handles retrieving the acting pharmacy's orders
func ListOrders(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("orders", "list")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	query := database.GetDB().Where("pharmacy_id = ?", pharmacy.ID)

	// Filter by status if specified
	status := c.QueryParam("status")
	if status != "" {
		query = query.Where("status = ?", status)
		log.Info("Filtering orders by status", zap.String("status", status))
	}

	defer prometheus.TrackDBOperation("select")(time.Now())

	var orders []model.Order
	result := query.Find(&orders)
	if result.Error != nil {
		log.Error("Failed to list orders", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve orders"})
	}

	log.Info("Orders retrieved",
		zap.Uint("pharmacy_id", pharmacy.ID),
		zap.Int("count", len(orders)))
	return c.JSON(http.StatusOK, orders)
}

// GetOrder handles retrieving a single order by ID
func GetOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("orders", "get")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id := c.Param("id")
	orderID, ok := parseID(id)
	if !ok {
		log.Warn("Non-numeric order id", zap.String("order_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}

	var order model.Order
	result := database.GetDB().Where("pharmacy_id = ?", pharmacy.ID).First(&order, orderID)
	if result.Error != nil {
		log.Warn("Order not found",
			zap.String("order_id", id),
			zap.Uint("pharmacy_id", pharmacy.ID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}

	return c.JSON(http.StatusOK, order)
}

// CreateOrder handles creating a new order
func CreateOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("orders", "create")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req OrderRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		if fields := bindFieldErrors(err); fields != nil {
			return validationError(c, fields)
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	totalAmount, fields := req.validate(pharmacy.ID)
	if fields != nil {
		log.Warn("Order validation failed", zap.Any("fields", fields))
		return validationError(c, fields)
	}

	order := model.Order{
		PharmacyID:     pharmacy.ID,
		OrderReference: req.OrderReference,
		Status:         req.Status,
		Items:          datatypes.JSON(req.Items),
		TotalAmount:    totalAmount,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	result := database.GetDB().Create(&order)
	if result.Error != nil {
		log.Error("Failed to create order",
			zap.String("order_reference", req.OrderReference),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create order"})
	}

	log.Info("Order created",
		zap.Uint("order_id", order.ID),
		zap.String("order_reference", order.OrderReference),
		zap.Uint("pharmacy_id", pharmacy.ID))
	return c.JSON(http.StatusCreated, order)
}

// UpdateOrder handles updating an existing order
func UpdateOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("orders", "update")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id := c.Param("id")
	orderID, ok := parseID(id)
	if !ok {
		log.Warn("Non-numeric order id", zap.String("order_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}

	var req OrderRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("order_id", id), zap.Error(err))
		if fields := bindFieldErrors(err); fields != nil {
			return validationError(c, fields)
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	totalAmount, fields := req.validate(pharmacy.ID)
	if fields != nil {
		log.Warn("Order validation failed", zap.Any("fields", fields))
		return validationError(c, fields)
	}

	var order model.Order
	result := database.GetDB().Where("pharmacy_id = ?", pharmacy.ID).First(&order, orderID)
	if result.Error != nil {
		log.Warn("Order not found for update",
			zap.String("order_id", id),
			zap.Uint("pharmacy_id", pharmacy.ID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}

	oldStatus := order.Status

	order.OrderReference = req.OrderReference
	order.Status = req.Status
	order.Items = datatypes.JSON(req.Items)
	order.TotalAmount = totalAmount

	defer prometheus.TrackDBOperation("update")(time.Now())

	result = database.GetDB().Save(&order)
	if result.Error != nil {
		log.Error("Failed to update order",
			zap.String("order_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update order"})
	}

	log.Info("Order updated",
		zap.Uint("order_id", order.ID),
		zap.String("old_status", oldStatus),
		zap.String("new_status", order.Status))
	return c.JSON(http.StatusOK, order)
}

// DeleteOrder handles deleting an order
func DeleteOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("orders", "delete")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id := c.Param("id")
	orderID, ok := parseID(id)
	if !ok {
		log.Warn("Non-numeric order id", zap.String("order_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	result := database.GetDB().Where("pharmacy_id = ?", pharmacy.ID).Delete(&model.Order{}, orderID)
	if result.Error != nil {
		log.Error("Failed to delete order",
			zap.String("order_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete order"})
	}

	if result.RowsAffected == 0 {
		log.Warn("Order not found for deletion",
			zap.String("order_id", id),
			zap.Uint("pharmacy_id", pharmacy.ID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}

	log.Info("Order deleted", zap.String("order_id", id))
	return c.NoContent(http.StatusNoContent)
}
