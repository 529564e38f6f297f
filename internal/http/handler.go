package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/http/middleware"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/model"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/repository"
	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/service"
)

type Handler struct {
	transportService *service.TransportService
	weighingService  *service.WeighingService
	trackingService  *service.TrackingService
	routeService     *service.RouteService
	log              zerolog.Logger
}

func NewHandler(
	transportService *service.TransportService,
	weighingService *service.WeighingService,
	trackingService *service.TrackingService,
	routeService *service.RouteService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		transportService: transportService,
		weighingService:  weighingService,
		trackingService:  trackingService,
		routeService:     routeService,
		log:              log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := r.Group("/")
	protected.Use(authMiddleware)

	transport := protected.Group("/transport")
	{
		transport.POST("/lots", h.createLot)
		transport.GET("/lots", h.listLots)
		transport.GET("/lots/:id", h.getLot)
		transport.POST("/lots/:id/assignments", h.createAssignment)
		transport.GET("/lots/:id/assignments", h.listAssignments)
		transport.GET("/driver/active-assignment", h.activeAssignment)
		transport.POST("/assignments/:id/transition", h.advanceAssignment)
		transport.GET("/assignments/:id/route-estimate", h.routeEstimate)
		transport.POST("/weighings", h.registerWeighing)
		transport.GET("/assignments/:id/weighings", h.listWeighings)
	}

	tracking := protected.Group("/tracking")
	{
		tracking.POST("/assignments/:assignmentId/position", h.reportPosition)
		tracking.POST("/assignments/:assignmentId/sync", h.syncOfflineBatch)
		tracking.GET("/assignments/:assignmentId", h.getTracking)
		tracking.GET("/lots/:lotId", h.listTrackingByLot)
	}
}

type zoneRequest struct {
	Kind      string         `json:"kind" binding:"required"`
	Name      string         `json:"name"`
	Shape     string         `json:"shape" binding:"required"`
	Vertices  []model.Vertex `json:"vertices"`
	CenterLat float64        `json:"center_lat"`
	CenterLng float64        `json:"center_lng"`
	RadiusM   float64        `json:"radius_m"`
}

func (h *Handler) createLot(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		MineID          string        `json:"mine_id" binding:"required"`
		DestinationID   string        `json:"destination_id" binding:"required"`
		MineralType     string        `json:"mineral_type" binding:"required"`
		OperationType   string        `json:"operation_type" binding:"required"`
		RequestedTrucks int           `json:"requested_trucks" binding:"required"`
		Notes           string        `json:"notes"`
		Zones           []zoneRequest `json:"zones"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	input := service.CreateLotInput{
		MineID:          req.MineID,
		DestinationID:   req.DestinationID,
		MineralType:     req.MineralType,
		OperationType:   req.OperationType,
		RequestedTrucks: req.RequestedTrucks,
		Notes:           req.Notes,
	}
	for _, z := range req.Zones {
		input.Zones = append(input.Zones, service.ZoneInput{
			Kind:      z.Kind,
			Name:      z.Name,
			Shape:     z.Shape,
			Vertices:  z.Vertices,
			CenterLat: z.CenterLat,
			CenterLng: z.CenterLng,
			RadiusM:   z.RadiusM,
		})
	}

	lot, err := h.transportService.CreateLot(c.Request.Context(), principal, input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(lot))
}

func (h *Handler) listLots(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	filter := repository.LotListFilter{}

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		s := model.LotStatus(status)
		filter.Status = &s
	}
	if mineral := strings.TrimSpace(c.Query("mineral_type")); mineral != "" {
		m := model.MineralType(mineral)
		filter.MineralType = &m
	}

	lots, err := h.transportService.ListLots(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(lots))
}

func (h *Handler) getLot(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid lot id"))
		return
	}

	lot, assignments, err := h.transportService.GetLot(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{
		"lot":         lot,
		"assignments": assignments,
	}))
}

func (h *Handler) createAssignment(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	lotID := strings.TrimSpace(c.Param("id"))

	var req struct {
		CarrierID string `json:"carrier_id" binding:"required"`
		DriverID  string `json:"driver_id" binding:"required"`
		Notes     string `json:"notes"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	assignment, err := h.transportService.CreateAssignment(c.Request.Context(), principal, lotID, service.CreateAssignmentInput{
		CarrierID: req.CarrierID,
		DriverID:  req.DriverID,
		Notes:     req.Notes,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(assignment))
}

func (h *Handler) listAssignments(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	assignments, err := h.transportService.ListAssignments(c.Request.Context(), principal, strings.TrimSpace(c.Param("id")))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(assignments))
}

func (h *Handler) activeAssignment(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	assignment, lot, err := h.transportService.GetActiveAssignment(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{
		"assignment": assignment,
		"lot":        lot,
	}))
}

func (h *Handler) advanceAssignment(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))

	var req struct {
		NewState string `json:"new_state" binding:"required"`
		Notes    string `json:"notes"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	result, err := h.transportService.Advance(c.Request.Context(), principal, id, service.AdvanceInput{
		NewState: req.NewState,
		Notes:    req.Notes,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) routeEstimate(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	estimate, err := h.routeService.EstimateForAssignment(c.Request.Context(), principal, strings.TrimSpace(c.Param("id")))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(estimate))
}

func (h *Handler) registerWeighing(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		AssignmentID string  `json:"assignment_id" binding:"required"`
		Type         string  `json:"type" binding:"required"`
		GrossKg      float64 `json:"gross_kg" binding:"required"`
		TareKg       float64 `json:"tare_kg"`
		Notes        string  `json:"notes"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	record, err := h.weighingService.Register(c.Request.Context(), principal, service.RegisterWeighingInput{
		AssignmentID: req.AssignmentID,
		Type:         req.Type,
		GrossKg:      req.GrossKg,
		TareKg:       req.TareKg,
		Notes:        req.Notes,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(record))
}

func (h *Handler) listWeighings(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	records, err := h.weighingService.ListByAssignment(c.Request.Context(), principal, strings.TrimSpace(c.Param("id")))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(records))
}

type positionRequest struct {
	Lat        float64  `json:"lat"`
	Lng        float64  `json:"lng"`
	AccuracyM  *float64 `json:"accuracy_m"`
	SpeedKmh   *float64 `json:"speed_kmh"`
	Heading    *float64 `json:"heading"`
	AltitudeM  *float64 `json:"altitude_m"`
	CapturedAt *string  `json:"captured_at"`
}

func (r positionRequest) toInput() (service.PositionInput, error) {
	input := service.PositionInput{
		Lat:       r.Lat,
		Lng:       r.Lng,
		AccuracyM: r.AccuracyM,
		SpeedKmh:  r.SpeedKmh,
		Heading:   r.Heading,
		AltitudeM: r.AltitudeM,
	}
	if r.CapturedAt != nil && *r.CapturedAt != "" {
		parsed, err := time.Parse(time.RFC3339, *r.CapturedAt)
		if err != nil {
			return input, err
		}
		input.CapturedAt = &parsed
	}
	return input, nil
}

func (h *Handler) reportPosition(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	assignmentID := strings.TrimSpace(c.Param("assignmentId"))

	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid captured_at"))
		return
	}

	status, err := h.trackingService.ReportPosition(c.Request.Context(), principal, assignmentID, input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(status))
}

func (h *Handler) syncOfflineBatch(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	assignmentID := strings.TrimSpace(c.Param("assignmentId"))

	var req struct {
		Positions []struct {
			positionRequest
			CapturedAt string `json:"captured_at" binding:"required"`
		} `json:"positions" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	entries := make([]service.OfflineEntry, 0, len(req.Positions))
	for _, p := range req.Positions {
		capturedAt, err := time.Parse(time.RFC3339, p.CapturedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid captured_at"))
			return
		}
		entries = append(entries, service.OfflineEntry{
			Position: service.PositionInput{
				Lat:       p.Lat,
				Lng:       p.Lng,
				AccuracyM: p.AccuracyM,
				SpeedKmh:  p.SpeedKmh,
				Heading:   p.Heading,
				AltitudeM: p.AltitudeM,
			},
			CapturedAt: capturedAt,
		})
	}

	result, err := h.trackingService.SyncOfflineBatch(c.Request.Context(), principal, assignmentID, entries)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) getTracking(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	record, err := h.trackingService.Get(c.Request.Context(), principal, strings.TrimSpace(c.Param("assignmentId")))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(record))
}

func (h *Handler) listTrackingByLot(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	records, err := h.trackingService.ListByLot(c.Request.Context(), principal, strings.TrimSpace(c.Param("lotId")))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(records))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var transitionErr *service.TransitionError

	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":          transitionErr.Error(),
			"current_state":  transitionErr.Current,
			"requested_state": transitionErr.Requested,
			"allowed_states": transitionErr.Allowed,
		})
	case errors.Is(err, service.ErrDuplicateWeighing):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidWeight),
		errors.Is(err, service.ErrMalformedPosition),
		errors.Is(err, service.ErrStaleSample),
		errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
