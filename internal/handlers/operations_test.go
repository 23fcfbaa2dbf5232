package handlers

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileforge-backend/internal/middleware"
	"fileforge-backend/internal/models"
)

func newOperationsRouter(ledger *fakeLedger, store *fakeContentStore, userID string) *gin.Engine {
	h := NewOperationsHandler(ledger, store, slog.Default())
	r := gin.New()
	if userID != "" {
		r.Use(func(c *gin.Context) { c.Set(middleware.UserIDKey, userID) })
	}
	r.GET("/operations", h.List)
	r.GET("/operations/:operation_id", h.Get)
	r.DELETE("/operations/:operation_id", h.Delete)
	return r
}

func seedOperation(ledger *fakeLedger, userID uuid.UUID, storageRef string) *models.Operation {
	op := &models.Operation{
		ID:         uuid.New(),
		UserID:     uuid.NullUUID{UUID: userID, Valid: true},
		Kind:       models.KindConversion,
		SourceName: "photo.png",
		SourceSize: 1024,
		TargetType: "jpg",
		Status:     models.StatusCompleted,
	}
	if storageRef != "" {
		op.StorageRef = sql.NullString{String: storageRef, Valid: true}
	}
	ledger.records = append(ledger.records, op)
	ledger.ops[op.ID] = op
	return op
}

func TestOperationsRequireAuthentication(t *testing.T) {
	router := newOperationsRouter(newFakeLedger(), newFakeContentStore(), "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/operations", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOperationsListIsUserScoped(t *testing.T) {
	ledger := newFakeLedger()
	caller := uuid.New()
	seedOperation(ledger, caller, "inline:"+uuid.New().String())
	seedOperation(ledger, uuid.New(), "")

	router := newOperationsRouter(ledger, newFakeContentStore(), caller.String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/operations", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body models.OperationListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Operations, 1, "other users' records must not leak")
	assert.Equal(t, "photo.png", body.Operations[0].SourceName)
}

func TestOperationsGet(t *testing.T) {
	ledger := newFakeLedger()
	caller := uuid.New()
	op := seedOperation(ledger, caller, "")

	router := newOperationsRouter(ledger, newFakeContentStore(), caller.String())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/operations/"+op.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.OperationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, op.ID.String(), body.ID)
	assert.Equal(t, models.StatusCompleted, body.Status)
}

func TestOperationsGetRejectsBadIDAndUnknown(t *testing.T) {
	ledger := newFakeLedger()
	caller := uuid.New()
	router := newOperationsRouter(ledger, newFakeContentStore(), caller.String())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/operations/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/operations/"+uuid.New().String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOperationsGetIsNotCrossTenant(t *testing.T) {
	ledger := newFakeLedger()
	op := seedOperation(ledger, uuid.New(), "")

	router := newOperationsRouter(ledger, newFakeContentStore(), uuid.New().String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/operations/"+op.ID.String(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code, "foreign records read as absent, not forbidden")
}

func TestOperationsDeleteReleasesStorage(t *testing.T) {
	ledger := newFakeLedger()
	store := newFakeContentStore()
	caller := uuid.New()
	ref := "inline:" + uuid.New().String()
	op := seedOperation(ledger, caller, ref)

	router := newOperationsRouter(ledger, store, caller.String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/operations/"+op.ID.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body models.DeleteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Deleted)

	assert.NotContains(t, ledger.ops, op.ID)
	assert.Equal(t, []string{ref}, store.deleted)
}

func TestOperationsDeleteUnknownIs404(t *testing.T) {
	router := newOperationsRouter(newFakeLedger(), newFakeContentStore(), uuid.New().String())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/operations/"+uuid.New().String(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
