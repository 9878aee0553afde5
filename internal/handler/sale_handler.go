package handler

import (
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

// SaleRequest defines the structure for sale creation/update requests
type SaleRequest struct {
	InventoryItemID *uint             `json:"inventory_item_id"`
	Quantity        *int              `json:"quantity"`
	TotalPrice      *string           `json:"total_price"`
	SaleTime        *time.Time        `json:"sale_time"`
	ExtraData       datatypes.JSONMap `json:"extra_data"`
	PharmacyID      *uint             `json:"pharmacy_id"`
}

func (r *SaleRequest) validate(actingID uint) (decimal.Decimal, fieldErrors) {
	fields := fieldErrors{}
	if r.Quantity == nil {
		fields["quantity"] = "this field is required"
	}
	if r.SaleTime == nil {
		fields["sale_time"] = "this field is required"
	}
	totalPrice := parseDecimal(r.TotalPrice, "total_price", fields)
	if r.PharmacyID != nil && *r.PharmacyID != actingID {
		fields["pharmacy_id"] = "ownership cannot be changed"
	}
	if len(fields) > 0 {
		return totalPrice, fields
	}
	return totalPrice, nil
}

// resolveItemReference verifies that a referenced inventory item exists
// and belongs to the acting pharmacy.
func resolveItemReference(itemID *uint, actingID uint, fields fieldErrors) fieldErrors {
	if itemID == nil {
		return fields
	}
	var count int64
	database.GetDB().Model(&model.InventoryItem{}).
		Where("id = ? AND pharmacy_id = ?", *itemID, actingID).
		Count(&count)
	if count == 0 {
		if fields == nil {
			fields = fieldErrors{}
		}
		fields["inventory_item_id"] = "referenced inventory item not found"
	}
	return fields
}

// ListSales handles retrieving the acting pharmacy's sales
func ListSales(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("sales", "list")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	query := database.GetDB().Where("pharmacy_id = ?", pharmacy.ID)

	// Filter by referenced inventory item if specified
	itemID := c.QueryParam("inventory_item_id")
	if itemID != "" {
		query = query.Where("inventory_item_id = ?", itemID)
		log.Info("Filtering sales by inventory item", zap.String("inventory_item_id", itemID))
	}

	defer prometheus.TrackDBOperation("select")(time.Now())

	var sales []model.Sale
	result := query.Find(&sales)
	if result.Error != nil {
		log.Error("Failed to list sales", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve sales"})
	}

	log.Info("Sales retrieved",
		zap.Uint("pharmacy_id", pharmacy.ID),
		zap.Int("count", len(sales)))
	return c.JSON(http.StatusOK, sales)
}

// GetSale handles retrieving a single sale by ID
func GetSale(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("sales", "get")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id := c.Param("id")
	saleID, ok := parseID(id)
	if !ok {
		log.Warn("Non-numeric sale id", zap.String("sale_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "sale not found"})
	}

	var sale model.Sale
	result := database.GetDB().Where("pharmacy_id = ?", pharmacy.ID).First(&sale, saleID)
	if result.Error != nil {
		log.Warn("Sale not found",
			zap.String("sale_id", id),
			zap.Uint("pharmacy_id", pharmacy.ID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "sale not found"})
	}

	return c.JSON(http.StatusOK, sale)
}

// CreateSale handles recording a new sale
func CreateSale(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("sales", "create")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req SaleRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		if fields := bindFieldErrors(err); fields != nil {
			return validationError(c, fields)
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	totalPrice, fields := req.validate(pharmacy.ID)
	fields = resolveItemReference(req.InventoryItemID, pharmacy.ID, fields)
	if fields != nil {
		log.Warn("Sale validation failed", zap.Any("fields", fields))
		return validationError(c, fields)
	}

	sale := model.Sale{
		PharmacyID:      pharmacy.ID,
		InventoryItemID: req.InventoryItemID,
		Quantity:        *req.Quantity,
		TotalPrice:      totalPrice,
		SaleTime:        *req.SaleTime,
		ExtraData:       req.ExtraData,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	result := database.GetDB().Create(&sale)
	if result.Error != nil {
		log.Error("Failed to create sale", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create sale"})
	}

	log.Info("Sale recorded",
		zap.Uint("sale_id", sale.ID),
		zap.Uint("pharmacy_id", pharmacy.ID))
	return c.JSON(http.StatusCreated, sale)
}

// UpdateSale handles updating an existing sale
func UpdateSale(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("sales", "update")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id := c.Param("id")
	saleID, ok := parseID(id)
	if !ok {
		log.Warn("Non-numeric sale id", zap.String("sale_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "sale not found"})
	}

	var req SaleRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("sale_id", id), zap.Error(err))
		if fields := bindFieldErrors(err); fields != nil {
			return validationError(c, fields)
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	totalPrice, fields := req.validate(pharmacy.ID)
	fields = resolveItemReference(req.InventoryItemID, pharmacy.ID, fields)
	if fields != nil {
		log.Warn("Sale validation failed", zap.Any("fields", fields))
		return validationError(c, fields)
	}

	var sale model.Sale
	result := database.GetDB().Where("pharmacy_id = ?", pharmacy.ID).First(&sale, saleID)
	if result.Error != nil {
		log.Warn("Sale not found for update",
			zap.String("sale_id", id),
			zap.Uint("pharmacy_id", pharmacy.ID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "sale not found"})
	}

	sale.InventoryItemID = req.InventoryItemID
	sale.Quantity = *req.Quantity
	sale.TotalPrice = totalPrice
	sale.SaleTime = *req.SaleTime
	sale.ExtraData = req.ExtraData

	defer prometheus.TrackDBOperation("update")(time.Now())

	result = database.GetDB().Save(&sale)
	if result.Error != nil {
		log.Error("Failed to update sale",
			zap.String("sale_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update sale"})
	}

	log.Info("Sale updated", zap.Uint("sale_id", sale.ID))
	return c.JSON(http.StatusOK, sale)
}

// DeleteSale handles deleting a sale
func DeleteSale(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("sales", "delete")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id := c.Param("id")
	saleID, ok := parseID(id)
	if !ok {
		log.Warn("Non-numeric sale id", zap.String("sale_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "sale not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	result := database.GetDB().Where("pharmacy_id = ?", pharmacy.ID).Delete(&model.Sale{}, saleID)
	if result.Error != nil {
		log.Error("Failed to delete sale",
			zap.String("sale_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete sale"})
	}

	if result.RowsAffected == 0 {
		log.Warn("Sale not found for deletion",
			zap.String("sale_id", id),
			zap.Uint("pharmacy_id", pharmacy.ID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "sale not found"})
	}

	log.Info("Sale deleted", zap.String("sale_id", id))
	return c.NoContent(http.StatusNoContent)
}
