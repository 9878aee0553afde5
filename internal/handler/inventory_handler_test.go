package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"pharmacy-connector/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInventoryItemRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	e := newTestRouter()
	createTestPharmacy(t, db, "Alpha Pharmacy", "key-alpha")
	createTestPharmacy(t, db, "Beta Pharmacy", "key-beta")

	rec := doRequest(e, http.MethodPost, "/api/inventory", "key-alpha",
		`{"sku":"X1","name":"Aspirin","quantity":10,"price":"9.99"}`)
	requireStatus(t, rec, http.StatusCreated)

	var created model.InventoryItem
	decodeBody(t, rec, &created)
	require.NotZero(t, created.ID)
	assert.Equal(t, "X1", created.SKU)
	assert.Equal(t, "Aspirin", created.Name)
	assert.Equal(t, 10, created.Quantity)
	assert.Equal(t, "9.99", created.Price.String())
	assert.False(t, created.UpdatedAt.IsZero())

	// Retrieving by the returned identifier yields the same record
	rec = doRequest(e, http.MethodGet, fmt.Sprintf("/api/inventory/%d", created.ID), "key-alpha", "")
	requireStatus(t, rec, http.StatusOK)
	var fetched model.InventoryItem
	decodeBody(t, rec, &fetched)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, created.SKU, fetched.SKU)
	assert.Equal(t, created.Name, fetched.Name)
	assert.Equal(t, created.Quantity, fetched.Quantity)
	assert.Equal(t, created.Price.String(), fetched.Price.String())

	// The same identifier under another tenant's key is not found
	rec = doRequest(e, http.MethodGet, fmt.Sprintf("/api/inventory/%d", created.ID), "key-beta", "")
	requireStatus(t, rec, http.StatusNotFound)
}

func TestCreateInventoryItemValidation(t *testing.T) {
	db := setupTestDB(t)
	e := newTestRouter()
	createTestPharmacy(t, db, "Alpha Pharmacy", "key-alpha")

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing sku", `{"name":"Aspirin","quantity":10,"price":"9.99"}`, "sku"},
		{"missing name", `{"sku":"X1","quantity":10,"price":"9.99"}`, "name"},
		{"missing quantity", `{"sku":"X1","name":"Aspirin","price":"9.99"}`, "quantity"},
		{"negative quantity", `{"sku":"X1","name":"Aspirin","quantity":-5,"price":"9.99"}`, "quantity"},
		{"non-numeric quantity", `{"sku":"X1","name":"Aspirin","quantity":"many","price":"9.99"}`, "quantity"},
		{"missing price", `{"sku":"X1","name":"Aspirin","quantity":10}`, "price"},
		{"non-numeric price", `{"sku":"X1","name":"Aspirin","quantity":10,"price":"cheap"}`, "price"},
		{"too many decimal places", `{"sku":"X1","name":"Aspirin","quantity":10,"price":"9.999"}`, "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(e, http.MethodPost, "/api/inventory", "key-alpha", tt.body)
			requireStatus(t, rec, http.StatusBadRequest)
			fields := fieldErrorsOf(t, rec)
			assert.Contains(t, fields, tt.field)
		})
	}

	// Nothing was persisted
	var count int64
	db.Model(&model.InventoryItem{}).Count(&count)
	assert.Zero(t, count)
}

func TestListInventoryItemsScopedToTenant(t *testing.T) {
	db := setupTestDB(t)
	e := newTestRouter()
	alpha := createTestPharmacy(t, db, "Alpha Pharmacy", "key-alpha")
	beta := createTestPharmacy(t, db, "Beta Pharmacy", "key-beta")

	require.NoError(t, db.Create(&model.InventoryItem{PharmacyID: alpha.ID, SKU: "A1", Name: "Ibuprofen", Quantity: 3}).Error)
	require.NoError(t, db.Create(&model.InventoryItem{PharmacyID: alpha.ID, SKU: "A2", Name: "Paracetamol", Quantity: 7}).Error)
	require.NoError(t, db.Create(&model.InventoryItem{PharmacyID: beta.ID, SKU: "B1", Name: "Vitamin C", Quantity: 1}).Error)

	rec := doRequest(e, http.MethodGet, "/api/inventory", "key-alpha", "")
	requireStatus(t, rec, http.StatusOK)
	var items []model.InventoryItem
	decodeBody(t, rec, &items)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, alpha.ID, item.PharmacyID)
	}

	// SKU filter stays tenant-scoped
	rec = doRequest(e, http.MethodGet, "/api/inventory?sku=B1", "key-alpha", "")
	requireStatus(t, rec, http.StatusOK)
	decodeBody(t, rec, &items)
	assert.Empty(t, items)
}

func TestUpdateInventoryItem(t *testing.T) {
	db := setupTestDB(t)
	e := newTestRouter()
	alpha := createTestPharmacy(t, db, "Alpha Pharmacy", "key-alpha")
	createTestPharmacy(t, db, "Beta Pharmacy", "key-beta")

	item := model.InventoryItem{PharmacyID: alpha.ID, SKU: "A1", Name: "Ibuprofen", Quantity: 3}
	require.NoError(t, db.Create(&item).Error)

	rec := doRequest(e, http.MethodPut, fmt.Sprintf("/api/inventory/%d", item.ID), "key-alpha",
		`{"sku":"A1","name":"Ibuprofen 400mg","quantity":12,"price":"4.50"}`)
	requireStatus(t, rec, http.StatusOK)
	var updated model.InventoryItem
	decodeBody(t, rec, &updated)
	assert.Equal(t, "Ibuprofen 400mg", updated.Name)
	assert.Equal(t, 12, updated.Quantity)
	assert.Equal(t, "4.5", updated.Price.String())
	assert.Equal(t, alpha.ID, updated.PharmacyID)

	// Ownership cannot be reassigned
	rec = doRequest(e, http.MethodPut, fmt.Sprintf("/api/inventory/%d", item.ID), "key-alpha",
		`{"sku":"A1","name":"Ibuprofen","quantity":12,"price":"4.50","pharmacy_id":999}`)
	requireStatus(t, rec, http.StatusBadRequest)
	fields := fieldErrorsOf(t, rec)
	assert.Contains(t, fields, "pharmacy_id")

	// Another tenant cannot update the record
	rec = doRequest(e, http.MethodPut, fmt.Sprintf("/api/inventory/%d", item.ID), "key-beta",
		`{"sku":"A1","name":"Hijacked","quantity":1,"price":"0.01"}`)
	requireStatus(t, rec, http.StatusNotFound)
}

func TestDeleteInventoryItem(t *testing.T) {
	db := setupTestDB(t)
	e := newTestRouter()
	alpha := createTestPharmacy(t, db, "Alpha Pharmacy", "key-alpha")
	createTestPharmacy(t, db, "Beta Pharmacy", "key-beta")

	item := model.InventoryItem{PharmacyID: alpha.ID, SKU: "A1", Name: "Ibuprofen", Quantity: 3}
	require.NoError(t, db.Create(&item).Error)

	// Another tenant's delete does not touch the record
	rec := doRequest(e, http.MethodDelete, fmt.Sprintf("/api/inventory/%d", item.ID), "key-beta", "")
	requireStatus(t, rec, http.StatusNotFound)

	rec = doRequest(e, http.MethodDelete, fmt.Sprintf("/api/inventory/%d", item.ID), "key-alpha", "")
	requireStatus(t, rec, http.StatusNoContent)

	// Deleting again answers not-found
	rec = doRequest(e, http.MethodDelete, fmt.Sprintf("/api/inventory/%d", item.ID), "key-alpha", "")
	requireStatus(t, rec, http.StatusNotFound)
}

func TestInventoryItemMalformedIDs(t *testing.T) {
	db := setupTestDB(t)
	e := newTestRouter()
	alpha := createTestPharmacy(t, db, "Alpha Pharmacy", "key-alpha")
	createTestPharmacy(t, db, "Beta Pharmacy", "key-beta")

	item := model.InventoryItem{PharmacyID: alpha.ID, SKU: "A1", Name: "Ibuprofen", Quantity: 3}
	require.NoError(t, db.Create(&item).Error)

	// A crafted identifier must never widen the tenant scope; the
	// tab-separated variant once slipped past as a raw SQL expression.
	paths := []struct {
		name string
		id   string
	}{
		{"non-numeric", "abc"},
		{"injected condition", "1%09OR%091=1"},
		{"trailing garbage", "1x"},
		{"negative", "-1"},
	}

	for _, tt := range paths {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(e, http.MethodGet, "/api/inventory/"+tt.id, "key-beta", "")
			requireStatus(t, rec, http.StatusNotFound)

			rec = doRequest(e, http.MethodPut, "/api/inventory/"+tt.id, "key-beta",
				`{"sku":"A1","name":"Hijacked","quantity":1,"price":"0.01"}`)
			requireStatus(t, rec, http.StatusNotFound)

			rec = doRequest(e, http.MethodDelete, "/api/inventory/"+tt.id, "key-beta", "")
			requireStatus(t, rec, http.StatusNotFound)
		})
	}

	// The record is untouched
	var kept model.InventoryItem
	require.NoError(t, db.First(&kept, item.ID).Error)
	assert.Equal(t, "Ibuprofen", kept.Name)
	assert.Equal(t, alpha.ID, kept.PharmacyID)
}

func TestDeleteInventoryItemClearsSaleReference(t *testing.T) {
	db := setupTestDB(t)
	e := newTestRouter()
	alpha := createTestPharmacy(t, db, "Alpha Pharmacy", "key-alpha")

	item := model.InventoryItem{PharmacyID: alpha.ID, SKU: "A1", Name: "Ibuprofen", Quantity: 3}
	require.NoError(t, db.Create(&item).Error)

	rec := doRequest(e, http.MethodPost, "/api/sales", "key-alpha",
		fmt.Sprintf(`{"inventory_item_id":%d,"quantity":2,"total_price":"9.00","sale_time":"2026-08-30T10:00:00Z"}`, item.ID))
	requireStatus(t, rec, http.StatusCreated)
	var sale model.Sale
	decodeBody(t, rec, &sale)
	require.NotNil(t, sale.InventoryItemID)

	rec = doRequest(e, http.MethodDelete, fmt.Sprintf("/api/inventory/%d", item.ID), "key-alpha", "")
	requireStatus(t, rec, http.StatusNoContent)

	// The sale survives with its item reference cleared
	rec = doRequest(e, http.MethodGet, fmt.Sprintf("/api/sales/%d", sale.ID), "key-alpha", "")
	requireStatus(t, rec, http.StatusOK)
	var kept model.Sale
	decodeBody(t, rec, &kept)
	assert.Nil(t, kept.InventoryItemID)
	assert.Equal(t, sale.Quantity, kept.Quantity)
}
