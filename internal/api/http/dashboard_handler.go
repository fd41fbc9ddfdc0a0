package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/logger"
	"divecenter-backend/internal/security"
	"divecenter-backend/internal/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DashboardHandler serves the read-only staff dashboard API
type DashboardHandler struct {
	equipmentSvc service.EquipmentService
	centerSvc    service.CenterService
	store        Pinger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(equipmentSvc service.EquipmentService, centerSvc service.CenterService, store Pinger) *DashboardHandler {
	return &DashboardHandler{
		equipmentSvc: equipmentSvc,
		centerSvc:    centerSvc,
		store:        store,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrInvalidArgument, http.StatusBadRequest},
	{domain.ErrInvalidDateRange, http.StatusBadRequest},
	{domain.ErrUsageNotTracked, http.StatusBadRequest},
	{domain.ErrAlreadyRented, http.StatusConflict},
	{domain.ErrOverlappingRental, http.StatusConflict},
	{domain.ErrInvalidTransition, http.StatusConflict},
	{domain.ErrNotInExpectedState, http.StatusConflict},
	{domain.ErrHasOpenRental, http.StatusConflict},
	{domain.ErrVersionConflict, http.StatusConflict},
	{domain.ErrBusy, http.StatusServiceUnavailable},
	{domain.ErrStoreUnavailable, http.StatusServiceUnavailable},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode HTTP response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			code = m.status
			break
		}
	}
	if code == http.StatusInternalServerError {
		logger.Error("Dashboard request failed", "error", err)
	}
	writeJSON(w, code, errorResponse{Error: err.Error(), Kind: domain.ErrorKind(err)})
}

// HandleHealth reports store reachability
func (h *DashboardHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *DashboardHandler) HandleListCenters(w http.ResponseWriter, r *http.Request) {
	centers, err := h.centerSvc.ListCenters(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"centers": centers})
}

func (h *DashboardHandler) HandleCenterSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.centerSvc.GetCenterSummary(r.Context(), mux.Vars(r)["centerID"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *DashboardHandler) HandleCenterEquipment(w http.ResponseWriter, r *http.Request) {
	views, err := h.centerSvc.ListCenterEquipment(r.Context(), mux.Vars(r)["centerID"])
	if err != nil {
		writeError(w, err)
		return
	}
	// Optional status filter, e.g. ?status=RENTED
	if st := strings.ToUpper(r.URL.Query().Get("status")); st != "" {
		filtered := views[:0]
		for _, v := range views {
			if string(v.Equipment.Status) == st {
				filtered = append(filtered, v)
			}
		}
		views = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": views})
}

func (h *DashboardHandler) HandleMaintenanceQueue(w http.ResponseWriter, r *http.Request) {
	views, err := h.centerSvc.MaintenanceQueue(r.Context(), mux.Vars(r)["centerID"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": views})
}

func (h *DashboardHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	notes, total, err := h.centerSvc.ListNotifications(r.Context(), mux.Vars(r)["centerID"], int32(page), int32(pageSize))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notes, "total": total})
}

func (h *DashboardHandler) HandleEquipment(w http.ResponseWriter, r *http.Request) {
	e, err := h.equipmentSvc.GetEquipment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *DashboardHandler) HandleRentalHistory(w http.ResponseWriter, r *http.Request) {
	rentals, err := h.equipmentSvc.GetRentalHistory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rentals": rentals})
}

// AuthMiddleware validates the staff bearer token and attaches the actor; /healthz stays public.
func AuthMiddleware(tm security.TokenManager) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}
			token := strings.TrimSpace(r.Header.Get("Authorization"))
			if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
				token = token[7:]
			}
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authorization token is not provided", Kind: "UNAUTHENTICATED"})
				return
			}
			claims, err := tm.ValidateToken(token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error(), Kind: "UNAUTHENTICATED"})
				return
			}
			ctx := service.WithActor(r.Context(), service.Actor{
				StaffID:  claims.StaffID,
				CenterID: claims.CenterID,
				Admin:    claims.IsAdmin(),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RegisterDashboardRoutes registers the dashboard routes on the router
func RegisterDashboardRoutes(router *mux.Router, h *DashboardHandler) {
	router.HandleFunc("/healthz", h.HandleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/centers", h.HandleListCenters).Methods(http.MethodGet)
	api.HandleFunc("/centers/{centerID}/summary", h.HandleCenterSummary).Methods(http.MethodGet)
	api.HandleFunc("/centers/{centerID}/equipment", h.HandleCenterEquipment).Methods(http.MethodGet)
	api.HandleFunc("/centers/{centerID}/maintenance-queue", h.HandleMaintenanceQueue).Methods(http.MethodGet)
	api.HandleFunc("/centers/{centerID}/notifications", h.HandleNotifications).Methods(http.MethodGet)
	api.HandleFunc("/equipment/{id}", h.HandleEquipment).Methods(http.MethodGet)
	api.HandleFunc("/equipment/{id}/rentals", h.HandleRentalHistory).Methods(http.MethodGet)
}
