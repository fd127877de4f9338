package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hoteldesk/backoffice-service/config"
	"github.com/hoteldesk/backoffice-service/internal/errs"
	"github.com/hoteldesk/backoffice-service/internal/model"
	"github.com/hoteldesk/backoffice-service/internal/service/reservation"
	"github.com/hoteldesk/backoffice-service/internal/service/room"
	"github.com/hoteldesk/backoffice-service/internal/store"
	"github.com/hoteldesk/backoffice-service/internal/workflow"
	"github.com/hoteldesk/backoffice-service/pkg/auth"
	"github.com/hoteldesk/backoffice-service/pkg/kafka"
	"github.com/hoteldesk/backoffice-service/pkg/validate"
)

type Handler struct {
	reservationSvc ReservationService
	roomSvc        RoomService
	drafts         *workflow.Manager
	store          *store.Reservations
	events         StatsLog
	log            *zap.Logger

	mu          sync.Mutex
	lastFilters model.ListFilters
}

func New(log *zap.Logger, cfg config.Config, producer sarama.AsyncProducer) *Handler {
	return NewHandler(log,
		reservation.NewService(log, cfg),
		room.NewService(log, cfg),
		NewStatsLog(producer, kafka.ReservationEventsTopic),
	)
}

func NewHandler(log *zap.Logger, reservationSvc ReservationService, roomSvc RoomService, events StatsLog) *Handler {
	return &Handler{
		reservationSvc: reservationSvc,
		roomSvc:        roomSvc,
		drafts:         workflow.NewManager(log, reservationSvc, roomSvc),
		store:          store.NewReservations(),
		events:         events,
		log:            log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", newRateLimiterMW(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()

	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(requestLoggerConfig()),
		middleware.RequestID(),
		newRateLimiterMW(apiRPS),
		JwtAuthentication,
	)

	api.GET("/reservations", h.GetReservations)
	api.GET("/reservations/stats", h.GetReservationStats)
	api.GET("/reservations/:id", h.GetReservation)
	api.PATCH("/reservations/:id", h.UpdateReservation)
	api.POST("/reservations/:id/confirm", h.TransitionHandler(model.ActionConfirm))
	api.POST("/reservations/:id/check-in", h.TransitionHandler(model.ActionCheckIn))
	api.POST("/reservations/:id/check-out", h.TransitionHandler(model.ActionCheckOut))
	api.POST("/reservations/:id/cancel", h.TransitionHandler(model.ActionCancel))

	api.POST("/drafts", h.OpenDraft)
	api.PUT("/drafts/:draftId", h.UpdateDraft)
	api.POST("/drafts/:draftId/submit", h.SubmitDraft)

	api.GET("/rooms/types", h.GetRoomTypes)
	api.GET("/rooms/availability", h.GetAvailability)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// reservationView is a reservation plus the action affordances legal from
// its current status, derived at response time.
type reservationView struct {
	model.Reservation
	Actions []model.Action `json:"actions"`
}

func newView(r model.Reservation) reservationView {
	return reservationView{Reservation: r, Actions: model.AllowedActions(r.Status)}
}

type listResponse struct {
	Data       []reservationView `json:"data"`
	Pagination model.Pagination  `json:"pagination"`
	Error      string            `json:"error,omitempty"`
}

func (h *Handler) GetReservations(c echo.Context) error {
	filters := model.ListFilters{
		Status:   c.QueryParam("status"),
		RoomType: c.QueryParam("roomType"),
		Search:   c.QueryParam("search"),
	}
	var err error
	if filters.Page, err = intQueryParam(c, "page"); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "page is invalid")
	}
	if filters.Limit, err = intQueryParam(c, "limit"); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "limit is invalid")
	}

	h.mu.Lock()
	h.lastFilters = filters
	h.mu.Unlock()

	if err := h.refreshList(c.Request().Context(), filters); err != nil && !errors.Is(err, errs.ErrRefreshInFlight) {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	// an in-flight refresh serves the collection as currently held

	items, pagination := h.store.List()
	resp := listResponse{
		Data:       make([]reservationView, 0, len(items)),
		Pagination: pagination,
		Error:      h.store.LastError(),
	}
	for _, r := range items {
		resp.Data = append(resp.Data, newView(r))
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh re-runs the list fetch with the filters of the last list
// request. Shared by the poller; the store's in-flight guard keeps the
// two paths from running concurrently.
func (h *Handler) Refresh(ctx context.Context) error {
	h.mu.Lock()
	filters := h.lastFilters
	h.mu.Unlock()
	return h.refreshList(ctx, filters)
}

func (h *Handler) refreshList(ctx context.Context, filters model.ListFilters) error {
	if !h.store.TryBeginRefresh() {
		return errs.ErrRefreshInFlight
	}
	defer h.store.EndRefresh()

	return h.store.WithListLoading(func() error {
		var list model.ReservationList
		if err := h.reservationSvc.CB().Call(func() error {
			var err error
			list, err = h.reservationSvc.List(ctx, filters)
			return err
		}); err != nil {
			return err
		}
		h.store.SetList(list.Data, list.Pagination)
		return nil
	})
}

func (h *Handler) GetReservationStats(c echo.Context) error {
	var stats model.ReservationStats
	_ = h.store.WithStatsLoading(func() error {
		stats = h.store.Stats(time.Now())
		return nil
	})
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetReservation(c echo.Context) error {
	rsv, err := h.getByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	h.store.ApplyMutationResult(rsv)
	h.store.Select(rsv.ID)
	return c.JSON(http.StatusOK, newView(rsv))
}

// getByID routes the fetch through the reservation breaker like every
// other upstream call.
func (h *Handler) getByID(ctx context.Context, id string) (model.Reservation, error) {
	var rsv model.Reservation
	err := h.reservationSvc.CB().Call(func() error {
		var err error
		rsv, err = h.reservationSvc.GetByID(ctx, id)
		return err
	})
	return rsv, err
}

func (h *Handler) UpdateReservation(c echo.Context) error {
	id := c.Param("id")
	var req model.UpdateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	current, err := h.getByID(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if !model.Editable(current.Status) {
		return echo.NewHTTPError(http.StatusConflict, errs.ErrEditNotPermitted.Error())
	}

	var updated model.Reservation
	if err := h.reservationSvc.CB().Call(func() error {
		var err error
		updated, err = h.reservationSvc.Update(ctx, id, req)
		return err
	}); err != nil {
		return h.apiError(c, err)
	}
	h.store.ApplyMutationResult(updated)
	h.emitEvent(c, "update", updated)
	return c.JSON(http.StatusOK, newView(updated))
}

func (h *Handler) TransitionHandler(action model.Action) echo.HandlerFunc {
	return func(c echo.Context) error {
		return h.transition(c, action)
	}
}

func (h *Handler) transition(c echo.Context, action model.Action) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	current, err := h.getByID(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	// optimistic precondition; the upstream remains the source of truth
	// and may still reject the transition
	if !model.CanApply(current.Status, action) {
		return echo.NewHTTPError(http.StatusConflict,
			string(action)+" is not allowed from status "+string(current.Status))
	}

	if _, ok := model.Target(action); !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown action")
	}

	var updated model.Reservation
	if err := h.reservationSvc.CB().Call(func() error {
		var err error
		switch action {
		case model.ActionConfirm:
			updated, err = h.reservationSvc.Confirm(ctx, id)
		case model.ActionCheckIn:
			updated, err = h.reservationSvc.CheckIn(ctx, id)
		case model.ActionCheckOut:
			updated, err = h.reservationSvc.CheckOut(ctx, id)
		case model.ActionCancel:
			updated, err = h.reservationSvc.Cancel(ctx, id)
		}
		return err
	}); err != nil {
		return h.apiError(c, err)
	}
	h.store.ApplyMutationResult(updated)
	h.emitEvent(c, string(action), updated)
	return c.JSON(http.StatusOK, newView(updated))
}

func (h *Handler) OpenDraft(c echo.Context) error {
	id := h.drafts.Open()
	return c.JSON(http.StatusCreated, map[string]string{"draftId": id})
}

type updateDraftRequest struct {
	workflow.Input
	PaidAmountOverride *float64 `json:"paidAmountOverride,omitempty"`
}

func (h *Handler) UpdateDraft(c echo.Context) error {
	ctrl, err := h.drafts.Get(c.Param("draftId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	var req updateDraftRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	state, err := ctrl.SetInput(c.Request().Context(), req.Input)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if req.PaidAmountOverride != nil {
		ctrl.OverridePaidAmount(*req.PaidAmountOverride)
		state = ctrl.State()
	}
	return c.JSON(http.StatusOK, state)
}

func (h *Handler) SubmitDraft(c echo.Context) error {
	draftID := c.Param("draftId")
	ctrl, err := h.drafts.Get(draftID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	created, err := ctrl.Submit(c.Request().Context())
	if err != nil {
		return h.apiError(c, err)
	}
	h.drafts.Close(draftID)
	h.store.Prepend(created)
	h.emitEvent(c, "create", created)
	return c.JSON(http.StatusCreated, newView(created))
}

func (h *Handler) GetRoomTypes(c echo.Context) error {
	var types []model.RoomTypeInventory
	if err := h.roomSvc.CB().Call(func() error {
		var err error
		types, err = h.roomSvc.ListRoomTypes(c.Request().Context())
		return err
	}); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"roomTypes": types})
}

func (h *Handler) GetAvailability(c echo.Context) error {
	checkIn, err := dateQueryParam(c, "checkInDate")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "checkInDate is invalid")
	}
	checkOut, err := dateQueryParam(c, "checkOutDate")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "checkOutDate is invalid")
	}
	if checkIn.IsZero() || checkOut.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, errs.ErrEmptyDates.Error())
	}

	var snapshot model.AvailabilitySnapshot
	if err := h.roomSvc.CB().Call(func() error {
		var err error
		snapshot, err = h.roomSvc.CheckAvailabilityByDate(c.Request().Context(), checkIn, checkOut)
		return err
	}); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, snapshot)
}

// apiError maps structured upstream codes to distinct responses so the
// dashboard can show specific messages rather than a generic failure.
func (h *Handler) apiError(c echo.Context, err error) error {
	var apiErr *errs.APIError
	if !errors.As(err, &apiErr) {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	switch apiErr.Code {
	case errs.CodeRoomTypeNotAvailable:
		return c.JSON(http.StatusConflict, apiErr)
	case errs.CodeValidationError:
		return c.JSON(http.StatusBadRequest, apiErr)
	default:
		return echo.NewHTTPError(http.StatusBadGateway, apiErr.Message)
	}
}

func (h *Handler) emitEvent(c echo.Context, action string, rsv model.Reservation) {
	username := ""
	if p, ok := auth.FromContext(c.Request().Context()); ok {
		username = p.Username
	}
	if err := h.events.Log(kafka.Event{
		Action:        action,
		ReservationID: rsv.ID,
		Status:        string(rsv.Status),
		Username:      username,
		At:            time.Now().UTC(),
	}); err != nil {
		h.log.Warn("emit reservation event", zap.Error(err))
	}
}
