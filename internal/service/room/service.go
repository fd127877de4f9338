package room

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/hoteldesk/backoffice-service/config"
	"github.com/hoteldesk/backoffice-service/internal/errs"
	"github.com/hoteldesk/backoffice-service/internal/model"
	"github.com/hoteldesk/backoffice-service/pkg/auth"
	"github.com/hoteldesk/backoffice-service/pkg/circuit_breaker"
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

func (s *Service) ListRoomTypes(ctx context.Context) ([]model.RoomTypeInventory, error) {
	body, err := s.get(ctx, s.url("/rooms/types"))
	if err != nil {
		return nil, err
	}
	root := gjson.ParseBytes(body)
	items := root.Get("data.roomTypes")
	if !items.Exists() {
		items = root.Get("roomTypes")
	}
	if !items.Exists() {
		items = root.Get("data")
	}
	out := make([]model.RoomTypeInventory, 0, len(items.Array()))
	for _, item := range items.Array() {
		out = append(out, model.RoomTypeInventory{
			RoomType:     item.Get("roomType").String(),
			Name:         item.Get("name").String(),
			Capacity:     int(item.Get("capacity").Int()),
			Size:         item.Get("size").Float(),
			BasePrice:    item.Get("basePrice").Float(),
			WeekendPrice: item.Get("weekendPrice").Float(),
		})
	}
	return out, nil
}

// CheckAvailabilityByDate queries free-unit counts per room type for the
// date range. Results are never cached: every date change re-queries.
func (s *Service) CheckAvailabilityByDate(ctx context.Context, checkIn, checkOut model.Date) (model.AvailabilitySnapshot, error) {
	if checkIn.IsZero() || checkOut.IsZero() {
		return model.AvailabilitySnapshot{}, errs.ErrEmptyDates
	}
	q := url.Values{}
	q.Set("checkInDate", checkIn.Format(time.DateOnly))
	q.Set("checkOutDate", checkOut.Format(time.DateOnly))
	body, err := s.get(ctx, s.url("/rooms/availability")+"?"+q.Encode())
	if err != nil {
		return model.AvailabilitySnapshot{}, err
	}

	root := gjson.ParseBytes(body)
	items := root.Get("data.byRoomType")
	if !items.Exists() {
		items = root.Get("byRoomType")
	}
	snapshot := model.AvailabilitySnapshot{
		CheckInDate:  checkIn,
		CheckOutDate: checkOut,
		ByRoomType:   []model.RoomTypeAvailability{},
	}
	for _, item := range items.Array() {
		snapshot.ByRoomType = append(snapshot.ByRoomType, model.RoomTypeAvailability{
			RoomType:  item.Get("roomType").String(),
			Available: int(item.Get("available").Int()),
			Total:     int(item.Get("total").Int()),
		})
	}
	return snapshot, nil
}

// TaxRate reads the percentage applied to quote subtotals from the
// upstream settings resource.
func (s *Service) TaxRate(ctx context.Context) (float64, error) {
	body, err := s.get(ctx, s.url("/settings"))
	if err != nil {
		return 0, err
	}
	root := gjson.ParseBytes(body)
	rate := root.Get("data.taxRate")
	if !rate.Exists() {
		rate = root.Get("taxRate")
	}
	return rate.Float(), nil
}

func (s *Service) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", echo.MIMEApplicationJSONCharsetUTF8)
	if token := auth.Token(ctx); token != "" {
		req.Header.Set(auth.AuthorizationHeader, auth.Bearer+token)
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
		s.log.Warn("hotel api rejected request",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode))
		return nil, errors.Errorf("hotel api status %d", resp.StatusCode)
	}
	return body, nil
}
