package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/queryloom/queryloom/internal/database"
	"github.com/queryloom/queryloom/internal/engine"
	"github.com/queryloom/queryloom/internal/llm"
	"github.com/queryloom/queryloom/internal/log"
	"github.com/queryloom/queryloom/internal/train"
)

// maxBodyBytes bounds request bodies (CWE-400).
const maxBodyBytes = 1 << 20

// apiKeyHeader carries an optional per-request credential. Absent means
// the configured default credential.
const apiKeyHeader = "X-API-Key"

// QueryExecutor is the database capability the handlers depend on.
// *database.Executor satisfies it.
type QueryExecutor interface {
	Execute(ctx context.Context, query string) (*database.Result, error)
	SchemaDDL(ctx context.Context) ([]string, error)
	TableNames(ctx context.Context) ([]string, error)
	Probe(ctx context.Context) bool
}

type queryHandler struct {
	registry *engine.Registry
	executor QueryExecutor
	history  *history
	logger   log.Logger
}

// engineFor resolves the engine for the request's credential. A failed
// resolution is already mapped to an HTTP error; callers just return.
func (h *queryHandler) engineFor(w http.ResponseWriter, r *http.Request) (*engine.Engine, bool) {
	eng, err := h.registry.Engine(r.Context(), r.Header.Get(apiKeyHeader))
	if err != nil {
		h.writeEngineError(w, err)
		return nil, false
	}
	return eng, true
}

func (h *queryHandler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, llm.ErrInvalidKeyFormat), errors.Is(err, llm.ErrAuthentication):
		WriteError(w, http.StatusUnauthorized, "authentication_failed", err.Error(), h.logger)
	case errors.Is(err, llm.ErrGeneration):
		WriteError(w, http.StatusBadGateway, "generation_failed", err.Error(), h.logger)
	default:
		h.logger.Error("engine error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error(), h.logger)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, logger log.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", logger)
			return false
		}
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", logger)
		return false
	}
	return true
}

type generateRequest struct {
	Question string `json:"question"`
	Execute  bool   `json:"execute"`
}

type generateResponse struct {
	SQL    *string          `json:"sql"`
	Result *database.Result `json:"result,omitempty"`
}

// generate turns a question into SQL, optionally executing it in the
// same request. A model response with no extractable statement is a
// successful request with a null sql field.
func (h *queryHandler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.Question == "" {
		WriteError(w, http.StatusBadRequest, "missing_question", "question is required", h.logger)
		return
	}

	eng, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	sql, err := eng.GenerateSQL(r.Context(), req.Question)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if sql == "" {
		writeJSON(w, http.StatusOK, generateResponse{SQL: nil}, h.logger)
		return
	}

	resp := generateResponse{SQL: &sql}
	entry := HistoryEntry{
		Question:    req.Question,
		SQL:         sql,
		GeneratedAt: time.Now().UTC(),
		RowCount:    -1,
	}

	if req.Execute {
		result, err := h.executor.Execute(r.Context(), sql)
		if err != nil {
			h.writeExecutorError(w, err)
			return
		}
		resp.Result = result
		entry.RowCount = len(result.Rows)
	}

	h.history.add(entry)
	writeJSON(w, http.StatusOK, resp, h.logger)
}

type executeRequest struct {
	SQL string `json:"sql"`
}

// execute runs an arbitrary statement against the configured database.
func (h *queryHandler) execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.SQL == "" {
		WriteError(w, http.StatusBadRequest, "missing_sql", "sql is required", h.logger)
		return
	}

	result, err := h.executor.Execute(r.Context(), req.SQL)
	if err != nil {
		h.writeExecutorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result, h.logger)
}

func (h *queryHandler) writeExecutorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrConnectivity):
		WriteError(w, http.StatusServiceUnavailable, "database_unreachable", err.Error(), h.logger)
	case errors.Is(err, database.ErrQueryExecution):
		// The driver message goes back verbatim so the caller can see
		// what the database objected to.
		WriteError(w, http.StatusBadRequest, "query_failed", err.Error(), h.logger)
	default:
		h.logger.Error("executor error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error(), h.logger)
	}
}

// historyList returns recent answered questions, newest first.
func (h *queryHandler) historyList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.history.list(), h.logger)
}

type statusResponse struct {
	Database     bool           `json:"database"`
	Tables       []string       `json:"tables,omitempty"`
	TrainingData *engine.Counts `json:"training_data"`
}

// status reports database reachability, visible tables, and training
// data volume. An unreachable database degrades the response instead of
// failing it.
func (h *queryHandler) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Database: h.executor.Probe(r.Context())}

	if resp.Database {
		names, err := h.executor.TableNames(r.Context())
		if err != nil {
			h.logger.Warn("listing tables for status", "error", err)
		} else {
			resp.Tables = names
		}
	}

	if eng, err := h.registry.Engine(r.Context(), r.Header.Get(apiKeyHeader)); err == nil {
		counts := eng.TrainingDataCount()
		resp.TrainingData = &counts
	} else {
		h.logger.Warn("engine unavailable for status", "error", err)
	}

	writeJSON(w, http.StatusOK, resp, h.logger)
}

type trainDDLRequest struct {
	DDL    string `json:"ddl"`
	FromDB bool   `json:"from_db"`
}

type trainReport struct {
	Trained int `json:"trained"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func reportFrom(r train.Report) trainReport {
	return trainReport{Trained: r.Trained, Skipped: r.Skipped, Failed: r.Failed}
}

// trainDDL adds schema context: either one statement from the body or
// the full schema extracted from the connected database.
func (h *queryHandler) trainDDL(w http.ResponseWriter, r *http.Request) {
	var req trainDDLRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	eng, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	if req.FromDB {
		ingestor := train.NewIngestor(eng, h.logger)
		report, err := ingestor.FromDatabase(r.Context(), h.executor)
		if err != nil {
			h.writeExecutorError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reportFrom(report), h.logger)
		return
	}

	if req.DDL == "" {
		WriteError(w, http.StatusBadRequest, "missing_ddl", "provide ddl or set from_db", h.logger)
		return
	}
	if err := eng.TrainDDL(r.Context(), req.DDL); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trainReport{Trained: 1}, h.logger)
}

type trainDocumentationRequest struct {
	Documentation string `json:"documentation"`
}

func (h *queryHandler) trainDocumentation(w http.ResponseWriter, r *http.Request) {
	var req trainDocumentationRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.Documentation == "" {
		WriteError(w, http.StatusBadRequest, "missing_documentation", "documentation is required", h.logger)
		return
	}

	eng, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	if err := eng.TrainDocumentation(r.Context(), req.Documentation); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trainReport{Trained: 1}, h.logger)
}

type trainExampleRequest struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
}

func (h *queryHandler) trainExample(w http.ResponseWriter, r *http.Request) {
	var req trainExampleRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.Question == "" || req.SQL == "" {
		WriteError(w, http.StatusBadRequest, "missing_fields", "question and sql are required", h.logger)
		return
	}

	eng, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	if err := eng.TrainExample(r.Context(), req.Question, req.SQL); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trainReport{Trained: 1}, h.logger)
}
