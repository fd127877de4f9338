package reservation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hoteldesk/backoffice-service/config"
	"github.com/hoteldesk/backoffice-service/internal/errs"
	"github.com/hoteldesk/backoffice-service/internal/model"
	"github.com/hoteldesk/backoffice-service/pkg/auth"
	"github.com/hoteldesk/backoffice-service/pkg/circuit_breaker"
)

const (
	// Client-generated request id making create/transition retries safe
	// against double submission.
	XIdempotencyKey = "X-Idempotency-Key"
)

type Service struct {
	log    *zap.Logger
	client *http.Client
	cfg    config.HotelAPI
	cb     circuit_breaker.CircuitBreaker
}

func NewService(log *zap.Logger, cfg config.Config) *Service { //nolint:gocritic
	return &Service{
		log:    log,
		client: &http.Client{Timeout: cfg.HotelAPI.Timeout},
		cfg:    cfg.HotelAPI,
		cb:     circuit_breaker.New(20, cfg.HotelAPI.Timeout, 0.5, 5),
	}
}

func (s *Service) CB() circuit_breaker.CircuitBreaker {
	return s.cb
}

func (s *Service) url(path string) string {
	return fmt.Sprintf("http://%s/api/v1%s", net.JoinHostPort(s.cfg.Host, s.cfg.Port), path)
}

// List fetches a reservation page. Empty filter values never reach the
// wire; an empty result set is a valid response, not an error.
func (s *Service) List(ctx context.Context, filters model.ListFilters) (model.ReservationList, error) {
	u := s.url("/reservations")
	if q := filters.Query().Encode(); q != "" {
		u += "?" + q
	}
	body, err := s.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.ReservationList{}, err
	}
	return normalizeList(body), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (model.Reservation, error) {
	body, err := s.do(ctx, http.MethodGet, s.url("/reservations/"+id), nil)
	if err != nil {
		return model.Reservation{}, err
	}
	return normalizeReservation(body), nil
}

func (s *Service) Create(ctx context.Context, request model.CreateReservationRequest) (model.Reservation, error) {
	body, err := s.do(ctx, http.MethodPost, s.url("/reservations"), request)
	if err != nil {
		return model.Reservation{}, err
	}
	return normalizeReservation(body), nil
}

func (s *Service) Update(ctx context.Context, id string, request model.UpdateReservationRequest) (model.Reservation, error) {
	body, err := s.do(ctx, http.MethodPatch, s.url("/reservations/"+id), request)
	if err != nil {
		return model.Reservation{}, err
	}
	return normalizeReservation(body), nil
}

func (s *Service) Confirm(ctx context.Context, id string) (model.Reservation, error) {
	return s.transition(ctx, id, "confirm")
}

func (s *Service) CheckIn(ctx context.Context, id string) (model.Reservation, error) {
	return s.transition(ctx, id, "check-in")
}

func (s *Service) CheckOut(ctx context.Context, id string) (model.Reservation, error) {
	return s.transition(ctx, id, "check-out")
}

func (s *Service) Cancel(ctx context.Context, id string) (model.Reservation, error) {
	return s.transition(ctx, id, "cancel")
}

func (s *Service) transition(ctx context.Context, id, action string) (model.Reservation, error) {
	body, err := s.do(ctx, http.MethodPost, s.url("/reservations/"+id+"/"+action), struct{}{})
	if err != nil {
		return model.Reservation{}, err
	}
	return normalizeReservation(body), nil
}

func (s *Service) do(ctx context.Context, method, url string, payload any) ([]byte, error) {
	var reqBody io.Reader = http.NoBody
	if payload != nil {
		b := bytes.NewBuffer(nil)
		if err := json.NewEncoder(b).Encode(payload); err != nil {
			return nil, errors.Wrap(err, "encode request")
		}
		reqBody = b
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", echo.MIMEApplicationJSONCharsetUTF8)
	if token := auth.Token(ctx); token != "" {
		req.Header.Set(auth.AuthorizationHeader, auth.Bearer+token)
	}
	if method != http.MethodGet {
		req.Header.Set(XIdempotencyKey, uuid.NewString())
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "hotel api request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, errs.ErrNotFound
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := normalizeError(body)
		s.log.Warn("hotel api rejected request",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code))
		return nil, apiErr
	}
	return body, nil
}
