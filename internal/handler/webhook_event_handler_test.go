package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"pharmacy-connector/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWebhookEventDefaultsUnprocessed(t *testing.T) {
	db := setupTestDB(t)
	e := newTestRouter()
	createTestPharmacy(t, db, "Alpha Pharmacy", "key-alpha")
	createTestPharmacy(t, db, "Beta Pharmacy", "key-beta")

	rec := doRequest(e, http.MethodPost, "/api/webhook-events", "key-alpha",
		`{"event_type":"stock.updated","payload":{"sku":"X1","quantity":4}}`)
	requireStatus(t, rec, http.StatusCreated)

	var created model.WebhookEvent
	decodeBody(t, rec, &created)
	require.NotZero(t, created.ID)
	assert.Equal(t, "stock.updated", created.EventType)
	assert.False(t, created.Processed)
	assert.False(t, created.ReceivedAt.IsZero())
	assert.JSONEq(t, `{"sku":"X1","quantity":4}`, string(created.Payload))

	rec = doRequest(e, http.MethodGet, fmt.Sprintf("/api/webhook-events/%d", created.ID), "key-beta", "")
	requireStatus(t, rec, http.StatusNotFound)
}

func TestCreateWebhookEventValidation(t *testing.T) {
	db := setupTestDB(t)
	e := newTestRouter()
	createTestPharmacy(t, db, "Alpha Pharmacy", "key-alpha")

	rec := doRequest(e, http.MethodPost, "/api/webhook-events", "key-alpha", `{}`)
	requireStatus(t, rec, http.StatusBadRequest)
	fields := fieldErrorsOf(t, rec)
	assert.Contains(t, fields, "event_type")
	assert.Contains(t, fields, "payload")

	var count int64
	db.Model(&model.WebhookEvent{}).Count(&count)
	assert.Zero(t, count)
}

func TestUpdateWebhookEventProcessedFlag(t *testing.T) {
	db := setupTestDB(t)
	e := newTestRouter()
	alpha := createTestPharmacy(t, db, "Alpha Pharmacy", "key-alpha")

	event := model.WebhookEvent{PharmacyID: alpha.ID, EventType: "stock.updated", Payload: []byte(`{"sku":"X1"}`)}
	require.NoError(t, db.Create(&event).Error)

	rec := doRequest(e, http.MethodPut, fmt.Sprintf("/api/webhook-events/%d", event.ID), "key-alpha",
		`{"event_type":"stock.updated","payload":{"sku":"X1"},"processed":true}`)
	requireStatus(t, rec, http.StatusOK)
	var updated model.WebhookEvent
	decodeBody(t, rec, &updated)
	assert.True(t, updated.Processed)
}

func TestListWebhookEventsFilterByProcessed(t *testing.T) {
	db := setupTestDB(t)
	e := newTestRouter()
	alpha := createTestPharmacy(t, db, "Alpha Pharmacy", "key-alpha")
	beta := createTestPharmacy(t, db, "Beta Pharmacy", "key-beta")

	require.NoError(t, db.Create(&model.WebhookEvent{PharmacyID: alpha.ID, EventType: "a", Payload: []byte(`{}`), Processed: true}).Error)
	require.NoError(t, db.Create(&model.WebhookEvent{PharmacyID: alpha.ID, EventType: "b", Payload: []byte(`{}`)}).Error)
	require.NoError(t, db.Create(&model.WebhookEvent{PharmacyID: beta.ID, EventType: "c", Payload: []byte(`{}`)}).Error)

	rec := doRequest(e, http.MethodGet, "/api/webhook-events?processed=false", "key-alpha", "")
	requireStatus(t, rec, http.StatusOK)
	var events []model.WebhookEvent
	decodeBody(t, rec, &events)
	require.Len(t, events, 1)
	assert.Equal(t, "b", events[0].EventType)
}
