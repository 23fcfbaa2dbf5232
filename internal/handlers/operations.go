package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fileforge-backend/internal/middleware"
	"fileforge-backend/internal/models"
	"fileforge-backend/internal/storage"
)

type OperationsHandler struct {
	ledger Ledger
	store  ContentStore
	log    *slog.Logger
}

func NewOperationsHandler(ledger Ledger, store ContentStore, log *slog.Logger) *OperationsHandler {
	return &OperationsHandler{ledger: ledger, store: store, log: log}
}

// List godoc
// @Summary     List the caller's operations
// @Tags        operations
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.OperationListResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /operations [get]
func (h *OperationsHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	ops, err := h.ledger.ListOperations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to list operations",
			Message: err.Error(),
		})
		return
	}

	responses := make([]models.OperationResponse, len(ops))
	for i, op := range ops {
		responses[i] = toResponse(op)
	}
	c.JSON(http.StatusOK, models.OperationListResponse{Operations: responses})
}

// Get godoc
// @Summary     Get one operation record
// @Tags        operations
// @Produce     json
// @Security    Bearer
// @Param       operation_id path string true "Operation ID (UUID)"
// @Success     200 {object} models.OperationResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /operations/{operation_id} [get]
func (h *OperationsHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	opID, err := uuid.Parse(c.Param("operation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid operation id"})
		return
	}

	op, err := h.ledger.GetOperation(c.Request.Context(), opID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "operation not found"})
		return
	}
	c.JSON(http.StatusOK, toResponse(*op))
}

// Delete godoc
// @Summary     Delete an operation record
// @Description Removes the ledger record and releases the stored result bytes on whichever tier holds them.
// @Tags        operations
// @Produce     json
// @Security    Bearer
// @Param       operation_id path string true "Operation ID (UUID)"
// @Success     200 {object} models.DeleteResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /operations/{operation_id} [delete]
func (h *OperationsHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	opID, err := uuid.Parse(c.Param("operation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid operation id"})
		return
	}

	refString, err := h.ledger.DeleteOperation(c.Request.Context(), opID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "operation not found"})
		return
	}

	// Best-effort release of the referenced bytes; the record is already
	// gone and a dangling object is preferable to a failed deletion.
	if refString != "" {
		if ref, parseErr := storage.ParseReference(refString); parseErr == nil {
			if delErr := h.store.Delete(c.Request.Context(), ref); delErr != nil {
				h.log.Warn("failed to release stored bytes", "reference", refString, "error", delErr)
			}
		}
	}

	c.JSON(http.StatusOK, models.DeleteResponse{ID: opID.String(), Deleted: true})
}

func requireUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "authentication required"})
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(raw.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid user id"})
		return uuid.Nil, false
	}
	return userID, true
}

func toResponse(op models.Operation) models.OperationResponse {
	resp := models.OperationResponse{
		ID:         op.ID.String(),
		Kind:       op.Kind,
		SourceName: op.SourceName,
		SourceSize: op.SourceSize,
		TargetType: op.TargetType,
		Status:     op.Status,
		CreatedAt:  op.CreatedAt,
	}
	if op.ResultSize.Valid {
		resp.ResultSize = op.ResultSize.Int64
	}
	if op.StorageRef.Valid {
		resp.StorageRef = op.StorageRef.String
	}
	if op.UpscaleFactor.Valid {
		resp.UpscaleFactor = op.UpscaleFactor.Int64
	}
	return resp
}
