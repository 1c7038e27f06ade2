package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"issuepulse/internal/dataprocessing"
	apierrors "issuepulse/internal/errors"
	"issuepulse/internal/exporter"
	"issuepulse/internal/middleware"
	"issuepulse/internal/services"
	api "issuepulse/pkg/contracts/api/v1"
	"issuepulse/pkg/contracts/domain"
)

// multipartOverhead is the slack allowed on top of the file limit for part
// headers and boundaries.
const multipartOverhead = 1 << 20

type sessionIDKey struct{}

// DashboardHandler serves the session, upload, dashboard and export endpoints
type DashboardHandler struct {
	service      DashboardServiceInterface
	live         LiveServer
	validation   *middleware.ValidationMiddleware
	queryParams  *middleware.QueryParamValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler. live may be nil, in
// which case the live route is not mounted.
func NewDashboardHandler(
	service DashboardServiceInterface,
	live LiveServer,
	validation *middleware.ValidationMiddleware,
	errorHandler *apierrors.ErrorHandler,
	logger *slog.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		live:         live,
		validation:   validation,
		queryParams:  middleware.NewQueryParamValidator(errorHandler),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
	}
}

// Routes returns the session routes, mounted at /api/sessions
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateSession)

	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.SessionCtx)

		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)

		r.Put("/file", h.UploadFile)
		r.Post("/default", h.LoadDefault)

		r.Get("/rows", h.GetRows)
		r.With(h.validation.ValidateRequest).Post("/rows", h.FilterRows)
		r.Get("/options", h.GetOptions)

		r.With(h.validation.ValidateRequest).Post("/dashboard", h.GetDashboard)
		r.With(h.validation.ValidateRequest).Post("/export", h.Export)

		if h.live != nil {
			r.Get("/live", h.Live)
		}
	})

	return r
}

// SessionCtx validates the session id and stores it in the request context.
// Ids that cannot have been issued are rejected as unknown sessions.
func (h *DashboardHandler) SessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := uuid.Parse(id); err != nil {
			h.errorHandler.HandleError(w, r, fmt.Errorf("%w: %s", services.ErrSessionNotFound, id))
			return
		}

		ctx := context.WithValue(r.Context(), sessionIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionIDKey{}).(string)
	return id
}

// CreateSession handles POST /api/sessions
func (h *DashboardHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	info := h.service.CreateSession(r.Context())

	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+info.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, info)
}

// GetSession handles GET /api/sessions/{id}
func (h *DashboardHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Session(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// DeleteSession handles DELETE /api/sessions/{id}
func (h *DashboardHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CloseSession(r.Context(), sessionID(r)); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadFile handles PUT /api/sessions/{id}/file. The "file" part is streamed
// to the service without buffering the whole form.
func (h *DashboardHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	r.Body = http.MaxBytesReader(w, r.Body, h.service.MaxUploadBytes()+multipartOverhead)

	reader, err := r.MultipartReader()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			h.errorHandler.HandleError(w, r, apierrors.ErrNotMultipart)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			h.errorHandler.HandleError(w, r, apierrors.ErrMissingFile)
			return
		}
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				h.errorHandler.HandleError(w, r, err)
				return
			}
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}

		if part.FormName() != "file" {
			part.Close()
			continue
		}

		filename := part.FileName()
		if err := h.validation.ValidateFilename(filename); err != nil {
			part.Close()
			h.errorHandler.HandleError(w, r, err)
			return
		}

		info, err := h.service.Upload(r.Context(), id, filename, part)
		part.Close()
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}

		render.JSON(w, r, info)
		return
	}
}

// LoadDefault handles POST /api/sessions/{id}/default
func (h *DashboardHandler) LoadDefault(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.LoadDefault(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// GetRows handles GET /api/sessions/{id}/rows?limit=&offset=.
// A zero limit returns every row from offset on.
func (h *DashboardHandler) GetRows(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.queryParams.ValidateInt(w, r, "limit", 0, math.MaxInt32, 0)
	if !ok {
		return
	}
	offset, ok := h.queryParams.ValidateInt(w, r, "offset", 0, math.MaxInt32, 0)
	if !ok {
		return
	}

	table, err := h.service.Rows(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, api.RowsResponse{
		Source:            table.Source,
		Columns:           table.Columns,
		Rows:              table.Len(),
		DuplicatesDropped: table.DuplicatesDropped,
		Issues:            page(table.Issues, offset, limit),
	})
}

// FilterRows handles POST /api/sessions/{id}/rows. It returns one page of
// the filtered table, each row carrying its derived columns.
func (h *DashboardHandler) FilterRows(w http.ResponseWriter, r *http.Request) {
	var req api.RowsRequest
	if err := h.validation.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filtered, total, err := h.service.FilteredRows(r.Context(), sessionID(r), h.selection(req.Filters))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, api.FilteredRowsResponse{
		Source:       filtered.Source,
		Columns:      exporter.Header(filtered),
		TotalRows:    total,
		FilteredRows: filtered.Len(),
		Offset:       req.Offset,
		Limit:        req.Limit,
		Issues:       dataprocessing.DeriveRows(page(filtered.Issues, req.Offset, req.Limit)),
	})
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// GetOptions handles GET /api/sessions/{id}/options
func (h *DashboardHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	options, err := h.service.Options(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, api.OptionsResponse{
		SessionID: id,
		Options:   options,
	})
}

// GetDashboard handles POST /api/sessions/{id}/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	var req api.DashboardRequest
	if err := h.validation.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	dashboard, err := h.service.Dashboard(r.Context(), sessionID(r), h.selection(req.Filters))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, dashboard)
}

// Export handles POST /api/sessions/{id}/export. The file is rendered in
// memory first so a failure can still be reported as a problem response.
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)

	var req api.ExportRequest
	if err := h.validation.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	format, err := exporter.ParseFormat(req.Format)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", err.Error()))
		return
	}

	info, err := h.service.Session(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	rows, err := h.service.Export(r.Context(), id, h.selection(req.Filters), req.Format, &buf)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filename := exporter.FileName(info.Filename, format)
	w.Header().Set("Content-Type", exporter.ContentType(format))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Export-Rows", strconv.Itoa(rows))
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write export",
			slog.String("session_id", id),
			slog.String("error", err.Error()))
	}
}

// Live handles GET /api/sessions/{id}/live
func (h *DashboardHandler) Live(w http.ResponseWriter, r *http.Request) {
	if err := h.live.Serve(w, r, sessionID(r)); err != nil {
		h.errorHandler.HandleError(w, r, err)
	}
}

// selection turns request filters into a selection; absent filters fall back
// to the configured default.
func (h *DashboardHandler) selection(filters api.Filters) domain.FilterSelection {
	if filters == nil {
		return h.service.DefaultSelection()
	}
	return filters.Selection()
}
