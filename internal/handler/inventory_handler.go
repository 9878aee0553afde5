package handler

import (
	"net/http"
	"strconv"
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

// InventoryItemRequest defines the structure for inventory item creation/update requests
type InventoryItemRequest struct {
	SKU        string            `json:"sku"`
	Name       string            `json:"name"`
	Quantity   *int              `json:"quantity"`
	Price      *string           `json:"price"`
	ExtraData  datatypes.JSONMap `json:"extra_data"`
	PharmacyID *uint             `json:"pharmacy_id"`
}

// validate checks field constraints and parses the price. The acting
// pharmacy always owns the record; a differing pharmacy_id is rejected.
func (r *InventoryItemRequest) validate(actingID uint) (decimal.Decimal, fieldErrors) {
	fields := fieldErrors{}
	requireString(r.SKU, "sku", 100, fields)
	requireString(r.Name, "name", 255, fields)
	if r.Quantity == nil {
		fields["quantity"] = "this field is required"
	} else if *r.Quantity < 0 {
		fields["quantity"] = "must not be negative"
	}
	price := parseDecimal(r.Price, "price", fields)
	if r.PharmacyID != nil && *r.PharmacyID != actingID {
		fields["pharmacy_id"] = "ownership cannot be changed"
	}
	if len(fields) > 0 {
		return price, fields
	}
	return price, nil
}

// ListInventoryItems handles retrieving the acting pharmacy's inventory
func ListInventoryItems(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("inventory", "list")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	query := database.GetDB().Where("pharmacy_id = ?", pharmacy.ID)

	// Filter by SKU if specified
	sku := c.QueryParam("sku")
	if sku != "" {
		query = query.Where("sku = ?", sku)
		log.Info("Filtering inventory by SKU", zap.String("sku", sku))
	}

	defer prometheus.TrackDBOperation("select")(time.Now())

	var items []model.InventoryItem
	result := query.Find(&items)
	if result.Error != nil {
		log.Error("Failed to list inventory items", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve inventory items"})
	}

	log.Info("Inventory items retrieved",
		zap.Uint("pharmacy_id", pharmacy.ID),
		zap.Int("count", len(items)))
	return c.JSON(http.StatusOK, items)
}

// GetInventoryItem handles retrieving a single inventory item by ID
func GetInventoryItem(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("inventory", "get")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id := c.Param("id")
	itemID, ok := parseID(id)
	if !ok {
		log.Warn("Non-numeric inventory item id", zap.String("item_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "inventory item not found"})
	}

	var item model.InventoryItem
	result := database.GetDB().Where("pharmacy_id = ?", pharmacy.ID).First(&item, itemID)
	if result.Error != nil {
		// Records owned by other pharmacies answer not-found as well
		log.Warn("Inventory item not found",
			zap.String("item_id", id),
			zap.Uint("pharmacy_id", pharmacy.ID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "inventory item not found"})
	}

	return c.JSON(http.StatusOK, item)
}

// CreateInventoryItem handles creating a new inventory item
func CreateInventoryItem(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("inventory", "create")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req InventoryItemRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		if fields := bindFieldErrors(err); fields != nil {
			return validationError(c, fields)
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	price, fields := req.validate(pharmacy.ID)
	if fields != nil {
		log.Warn("Inventory item validation failed", zap.Any("fields", fields))
		return validationError(c, fields)
	}

	item := model.InventoryItem{
		PharmacyID: pharmacy.ID,
		SKU:        req.SKU,
		Name:       req.Name,
		Quantity:   *req.Quantity,
		Price:      price,
		ExtraData:  req.ExtraData,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	result := database.GetDB().Create(&item)
	if result.Error != nil {
		log.Error("Failed to create inventory item",
			zap.String("sku", req.SKU),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create inventory item"})
	}

	prometheus.UpdateInventoryQuantity(strconv.FormatUint(uint64(pharmacy.ID), 10), item.SKU, float64(item.Quantity))
	log.Info("Inventory item created",
		zap.Uint("item_id", item.ID),
		zap.String("sku", item.SKU),
		zap.Uint("pharmacy_id", pharmacy.ID))
	return c.JSON(http.StatusCreated, item)
}

// UpdateInventoryItem handles updating an existing inventory item
func UpdateInventoryItem(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("inventory", "update")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id := c.Param("id")
	itemID, ok := parseID(id)
	if !ok {
		log.Warn("Non-numeric inventory item id", zap.String("item_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "inventory item not found"})
	}

	var req InventoryItemRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("item_id", id), zap.Error(err))
		if fields := bindFieldErrors(err); fields != nil {
			return validationError(c, fields)
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	price, fields := req.validate(pharmacy.ID)
	if fields != nil {
		log.Warn("Inventory item validation failed", zap.Any("fields", fields))
		return validationError(c, fields)
	}

	var item model.InventoryItem
	result := database.GetDB().Where("pharmacy_id = ?", pharmacy.ID).First(&item, itemID)
	if result.Error != nil {
		log.Warn("Inventory item not found for update",
			zap.String("item_id", id),
			zap.Uint("pharmacy_id", pharmacy.ID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "inventory item not found"})
	}

	item.SKU = req.SKU
	item.Name = req.Name
	item.Quantity = *req.Quantity
	item.Price = price
	item.ExtraData = req.ExtraData

	defer prometheus.TrackDBOperation("update")(time.Now())

	result = database.GetDB().Save(&item)
	if result.Error != nil {
		log.Error("Failed to update inventory item",
			zap.String("item_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update inventory item"})
	}

	prometheus.UpdateInventoryQuantity(strconv.FormatUint(uint64(pharmacy.ID), 10), item.SKU, float64(item.Quantity))
	log.Info("Inventory item updated",
		zap.Uint("item_id", item.ID),
		zap.String("sku", item.SKU))
	return c.JSON(http.StatusOK, item)
}

// DeleteInventoryItem handles deleting an inventory item. Sales that
// reference the item keep their row but lose the reference.
func DeleteInventoryItem(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordResourceOperation("inventory", "delete")

	pharmacy, ok := middleware.PharmacyFromContext(c)
	if !ok {
		log.Error("No pharmacy in request context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id := c.Param("id")
	itemID, ok := parseID(id)
	if !ok {
		log.Warn("Non-numeric inventory item id", zap.String("item_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "inventory item not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	tx := database.GetDB().Begin()
	if tx.Error != nil {
		log.Error("Failed to begin transaction", zap.Error(tx.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	result := tx.Where("pharmacy_id = ?", pharmacy.ID).Delete(&model.InventoryItem{}, itemID)
	if result.Error != nil {
		tx.Rollback()
		log.Error("Failed to delete inventory item",
			zap.String("item_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete inventory item"})
	}

	if result.RowsAffected == 0 {
		tx.Rollback()
		log.Warn("Inventory item not found for deletion",
			zap.String("item_id", id),
			zap.Uint("pharmacy_id", pharmacy.ID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "inventory item not found"})
	}

	// Clear the reference on sales instead of cascading
	if err := tx.Model(&model.Sale{}).
		Where("pharmacy_id = ? AND inventory_item_id = ?", pharmacy.ID, itemID).
		Update("inventory_item_id", nil).Error; err != nil {
		tx.Rollback()
		log.Error("Failed to clear sale references",
			zap.String("item_id", id),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete inventory item"})
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	log.Info("Inventory item deleted",
		zap.String("item_id", id),
		zap.Uint("pharmacy_id", pharmacy.ID))
	return c.NoContent(http.StatusNoContent)
}
