package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fileforge-backend/internal/dispatch"
	"fileforge-backend/internal/engine"
	"fileforge-backend/internal/events"
	"fileforge-backend/internal/middleware"
	"fileforge-backend/internal/models"
	"fileforge-backend/internal/scratch"
	"fileforge-backend/internal/storage"
)

// maxMultipartMemory caps what gin keeps in memory while parsing an upload;
// larger parts spill to disk.
const maxMultipartMemory = 64 << 20

// Dispatcher is satisfied by *dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, domain, tool string, files []engine.File, params engine.Params, sess engine.SessionStager) (*dispatch.Result, error)
}

// Ledger is the operation-record surface handlers need; satisfied by
// *database.Client.
type Ledger interface {
	RecordOperation(ctx context.Context, op *models.Operation) error
	GetOperation(ctx context.Context, id, userID uuid.UUID) (*models.Operation, error)
	ListOperations(ctx context.Context, userID uuid.UUID) ([]models.Operation, error)
	DeleteOperation(ctx context.Context, id, userID uuid.UUID) (string, error)
}

// ContentStore is satisfied by *storage.Store.
type ContentStore interface {
	Persist(ctx context.Context, data []byte, fileName, targetType string) (storage.Reference, error)
	Resolve(ctx context.Context, ref storage.Reference) (*storage.Content, error)
	Delete(ctx context.Context, ref storage.Reference) error
}

// EventPublisher is satisfied by *events.Publisher.
type EventPublisher interface {
	PublishOperationEvent(operationID uuid.UUID, event string, payload map[string]interface{}) error
}

type TransformHandler struct {
	dispatcher Dispatcher
	store      ContentStore
	ledger     Ledger
	publisher  EventPublisher
	scratchDir string
	log        *slog.Logger
}

func NewTransformHandler(dispatcher Dispatcher, store ContentStore, ledger Ledger, publisher EventPublisher, scratchDir string, log *slog.Logger) *TransformHandler {
	return &TransformHandler{
		dispatcher: dispatcher,
		store:      store,
		ledger:     ledger,
		publisher:  publisher,
		scratchDir: scratchDir,
		log:        log,
	}
}

// Transform godoc
// @Summary     Run a transformation tool
// @Description Uploads one or more files (or a URL for capture tools), runs the named tool and streams back the transformed bytes. The result is also persisted and retrievable later through the returned X-Storage-Ref header.
// @Tags        transform
// @Accept      multipart/form-data
// @Produce     application/octet-stream
// @Param       domain path string true "Tool domain (image, media, pdf, capture)"
// @Param       tool formData string true "Tool name"
// @Param       files formData file false "Input file(s)"
// @Success     200 {file} binary
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     501 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /transform/{domain} [post]
func (h *TransformHandler) Transform(c *gin.Context) {
	domain := c.Param("domain")

	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to parse multipart form",
			Message: err.Error(),
		})
		return
	}
	form := c.Request.MultipartForm
	if form == nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "multipart form expected"})
		return
	}

	tool := c.PostForm("tool")
	if tool == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "missing tool", Field: "tool"})
		return
	}

	files, err := readUploads(form)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to read uploaded files",
			Message: err.Error(),
			Field:   "files",
		})
		return
	}

	params := formParams(form)

	sess, err := scratch.NewSession(h.scratchDir)
	if err != nil {
		h.log.Error("scratch session init failed", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "processing failed"})
		return
	}
	// Scratch artifacts go away on every exit path, including panics
	// recovered by gin and client disconnects.
	defer sess.ReleaseAll()

	operationID := uuid.New()
	userID := callerID(c)
	log := h.log.With("operation_id", operationID.String(), "domain", domain, "tool", tool)

	h.publisher.PublishOperationEvent(operationID, "transform_started",
		events.StartedPayload(operationID, domain, tool))

	result, err := h.dispatcher.Dispatch(c.Request.Context(), domain, tool, files, params, sess)
	if err != nil {
		h.fail(c, log, operationID, userID, tool, files, params, err)
		return
	}

	sourceName, sourceSize := sourceInfo(files, params)

	// Persistence and ledger bookkeeping must never cost the caller their
	// output: failures here are logged and the bytes still go out.
	var storageRef sql.NullString
	ref, persistErr := h.store.Persist(c.Request.Context(), result.Data, result.FileName, result.TargetType)
	if persistErr != nil {
		log.Error("storage persist failed, result not retrievable later", "error", persistErr)
	} else {
		storageRef = sql.NullString{String: ref.String(), Valid: true}
	}

	op := &models.Operation{
		ID:         operationID,
		UserID:     userID,
		Kind:       result.Kind,
		SourceName: sourceName,
		SourceSize: sourceSize,
		TargetType: result.TargetType,
		ResultSize: sql.NullInt64{Int64: int64(len(result.Data)), Valid: true},
		Status:     models.StatusCompleted,
		StorageRef: storageRef,
	}
	if result.UpscaleFactor > 0 {
		op.UpscaleFactor = sql.NullInt64{Int64: int64(result.UpscaleFactor), Valid: true}
	}
	if err := h.ledger.RecordOperation(c.Request.Context(), op); err != nil {
		log.Error("ledger write failed", "error", err)
	}

	h.publisher.PublishOperationEvent(operationID, "transform_completed",
		events.CompletedPayload(operationID, result.TargetType, int64(len(result.Data))))

	if storageRef.Valid {
		c.Header("X-Storage-Ref", storageRef.String)
	}
	c.Header("Content-Disposition", contentDisposition("attachment", result.FileName))
	c.Data(http.StatusOK, result.MimeType, result.Data)
}

// fail maps dispatch/engine errors onto the response taxonomy. Only engine
// failures reach the ledger; requests rejected before an engine ran leave
// no record.
func (h *TransformHandler) fail(c *gin.Context, log *slog.Logger, operationID uuid.UUID, userID uuid.NullUUID, tool string, files []engine.File, params engine.Params, err error) {
	var vErr *dispatch.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation failed",
			Message: vErr.Message,
			Field:   vErr.Field,
		})
		return
	}

	if errors.Is(err, engine.ErrUnsupportedTool) {
		c.JSON(http.StatusNotImplemented, models.ErrorResponse{
			Error:   "tool not yet available",
			Message: fmt.Sprintf("%q is recognized but not supported yet", tool),
		})
		return
	}

	var eErr *engine.EngineError
	if errors.As(err, &eErr) {
		log.Error("engine failure", "error", eErr.Err)

		sourceName, sourceSize := sourceInfo(files, params)
		op := &models.Operation{
			ID:         operationID,
			UserID:     userID,
			Kind:       models.KindConversion,
			SourceName: sourceName,
			SourceSize: sourceSize,
			// The intended output format, when the tool names one; empty
			// otherwise. Never the tool name.
			TargetType: params.Get("format"),
			Status:     models.StatusFailed,
		}
		if tool == "upscale" {
			op.Kind = models.KindUpscale
		}
		if ledgerErr := h.ledger.RecordOperation(c.Request.Context(), op); ledgerErr != nil {
			log.Error("ledger write failed", "error", ledgerErr)
		}
		h.publisher.PublishOperationEvent(operationID, "transform_failed",
			events.FailedPayload(operationID, "engine failure"))

		// Engine internals stay in the logs.
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "processing failed"})
		return
	}

	log.Error("transformation failed", "error", err)
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "processing failed"})
}

// uploadFieldNames are tried in order; clients name the file part
// inconsistently.
var uploadFieldNames = []string{"files", "file", "images", "image", "documents", "document"}

func readUploads(form *multipart.Form) ([]engine.File, error) {
	var headers []*multipart.FileHeader
	for _, fieldName := range uploadFieldNames {
		if f := form.File[fieldName]; len(f) > 0 {
			headers = f
			break
		}
	}

	files := make([]engine.File, 0, len(headers))
	for _, header := range headers {
		src, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %q: %w", header.Filename, err)
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", header.Filename, err)
		}
		files = append(files, engine.File{Name: header.Filename, Data: data})
	}
	return files, nil
}

// formParams collects scalar tool parameters. Each value may arrive
// JSON-encoded (a quoted string or bare number); those are unwrapped.
func formParams(form *multipart.Form) engine.Params {
	params := make(engine.Params, len(form.Value))
	for key, values := range form.Value {
		if key == "tool" || len(values) == 0 {
			continue
		}
		params[key] = decodeParam(values[0])
	}
	return params
}

func decodeParam(value string) string {
	if strings.HasPrefix(value, `"`) {
		var s string
		if err := json.Unmarshal([]byte(value), &s); err == nil {
			return s
		}
	}
	return value
}

func callerID(c *gin.Context) uuid.NullUUID {
	raw, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return uuid.NullUUID{}
	}
	id, err := uuid.Parse(raw.(string))
	if err != nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: id, Valid: true}
}

func sourceInfo(files []engine.File, params engine.Params) (string, int64) {
	if len(files) > 0 {
		return files[0].Name, int64(len(files[0].Data))
	}
	if params != nil {
		if u := params.Get("url"); u != "" {
			return u, 0
		}
	}
	return "", 0
}

// contentDisposition renders an RFC 6266 header with an ASCII-safe primary
// name plus the UTF-8 extended parameter for everything else.
func contentDisposition(disposition, fileName string) string {
	ascii := strings.Map(func(r rune) rune {
		if r < 32 || r > 126 || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, fileName)
	return fmt.Sprintf(`%s; filename="%s"; filename*=UTF-8''%s`,
		disposition, ascii, url.PathEscape(fileName))
}
