package reservation_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hoteldesk/backoffice-service/config"
	"github.com/hoteldesk/backoffice-service/internal/errs"
	"github.com/hoteldesk/backoffice-service/internal/model"
	"github.com/hoteldesk/backoffice-service/internal/service/reservation"
	"github.com/hoteldesk/backoffice-service/pkg/auth"
)

func newTestService(t *testing.T, upstream http.HandlerFunc) *reservation.Service {
	t.Helper()
	ts := httptest.NewServer(upstream)
	t.Cleanup(ts.Close)

	host, port, err := net.SplitHostPort(strings.TrimPrefix(ts.URL, "http://"))
	require.NoError(t, err)
	return reservation.NewService(zap.NewExample().Named("test"), config.Config{
		HotelAPI: config.HotelAPI{Host: host, Port: port, Timeout: 5 * time.Second},
	})
}

func date(s string) model.Date {
	t, _ := time.Parse(time.DateOnly, s)
	return model.Date{Time: t}
}

func TestService_List_StripsEmptyFilters(t *testing.T) {
	t.Parallel()
	var gotQuery string
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"data":[],"pagination":{"total":0,"totalPages":0,"page":1,"limit":10}}`))
	})

	_, err := svc.List(context.Background(), model.ListFilters{
		Status: "PENDING",
		Page:   2,
	})
	require.NoError(t, err)
	require.Equal(t, "page=2&status=PENDING", gotQuery)

	_, err = svc.List(context.Background(), model.ListFilters{})
	require.NoError(t, err)
	require.Empty(t, gotQuery)
}

func TestService_List_NormalizesWrappedPayload(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"data": [
				{"_id":"a1","guest":{"firstName":"Ada","lastName":"Byron","email":"ada@example.com"},
				 "checkInDate":"2025-03-12","checkOutDate":"2025-03-15",
				 "roomType":"DELUXE","totalPrice":402.5,"status":"CONFIRMED"},
				{"id":"a2","firstName":"Alan","lastName":"Turing",
				 "checkInDate":"2025-04-01T00:00:00Z","finalPrice":120,"status":"PENDING"}
			],
			"pagination": {"total":12,"totalPages":2,"page":1,"limit":10}
		}`))
	})

	list, err := svc.List(context.Background(), model.ListFilters{})
	require.NoError(t, err)
	require.Len(t, list.Data, 2)

	require.Equal(t, "a1", list.Data[0].ID)
	require.Equal(t, "Ada", list.Data[0].Guest.FirstName)
	require.Equal(t, date("2025-03-12"), list.Data[0].CheckInDate)
	require.Equal(t, 402.5, list.Data[0].TotalAmount)
	require.Equal(t, model.StatusConfirmed, list.Data[0].Status)

	// flat guest fields and the finalPrice alias land in the same place
	require.Equal(t, "a2", list.Data[1].ID)
	require.Equal(t, "Alan", list.Data[1].Guest.FirstName)
	require.Equal(t, 120.0, list.Data[1].TotalAmount)

	require.Equal(t, model.Pagination{Total: 12, TotalPages: 2, Page: 1, Limit: 10}, list.Pagination)
}

func TestService_List_BareArrayGetsDefaultPagination(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"a1","status":"PENDING"},{"id":"a2","status":"PENDING"}]`))
	})

	list, err := svc.List(context.Background(), model.ListFilters{})
	require.NoError(t, err)
	require.Len(t, list.Data, 2)
	require.Equal(t, 2, list.Pagination.Total)
	require.Equal(t, 1, list.Pagination.Page)
}

func TestService_Create_SetsHeadersAndForwardsToken(t *testing.T) {
	t.Parallel()
	var gotIdemKey, gotAuth, gotContentType string
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/reservations", r.URL.Path)
		gotIdemKey = r.Header.Get(reservation.XIdempotencyKey)
		gotAuth = r.Header.Get(auth.AuthorizationHeader)
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"data":{"id":"r-9","status":"PENDING","totalAmount":300}}`))
	})

	ctx := auth.SetToken(context.Background(), "tok-123")
	created, err := svc.Create(ctx, model.CreateReservationRequest{
		FirstName:    "Ada",
		LastName:     "Byron",
		Email:        "ada@example.com",
		CheckInDate:  date("2025-03-12"),
		CheckOutDate: date("2025-03-15"),
		RoomType:     "DELUXE",
	})
	require.NoError(t, err)

	require.Equal(t, "r-9", created.ID)
	require.Equal(t, 300.0, created.TotalAmount)
	_, err = uuid.Parse(gotIdemKey)
	require.NoError(t, err, "idempotency key must be a uuid")
	require.Equal(t, auth.Bearer+"tok-123", gotAuth)
	require.Contains(t, gotContentType, "application/json")
}

func TestService_Transitions_PostToActionPath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		call func(s *reservation.Service, ctx context.Context) (model.Reservation, error)
		path string
	}{
		{"confirm", func(s *reservation.Service, ctx context.Context) (model.Reservation, error) {
			return s.Confirm(ctx, "r-1")
		}, "/api/v1/reservations/r-1/confirm"},
		{"check-in", func(s *reservation.Service, ctx context.Context) (model.Reservation, error) {
			return s.CheckIn(ctx, "r-1")
		}, "/api/v1/reservations/r-1/check-in"},
		{"check-out", func(s *reservation.Service, ctx context.Context) (model.Reservation, error) {
			return s.CheckOut(ctx, "r-1")
		}, "/api/v1/reservations/r-1/check-out"},
		{"cancel", func(s *reservation.Service, ctx context.Context) (model.Reservation, error) {
			return s.Cancel(ctx, "r-1")
		}, "/api/v1/reservations/r-1/cancel"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var gotPath, gotMethod string
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath, gotMethod = r.URL.Path, r.Method
				w.Write([]byte(`{"id":"r-1","status":"CONFIRMED"}`))
			})

			_, err := tt.call(svc, context.Background())
			require.NoError(t, err)
			require.Equal(t, tt.path, gotPath)
			require.Equal(t, http.MethodPost, gotMethod)
		})
	}
}

func TestService_StructuredErrorSurfacesCode(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":{"code":"ROOM_TYPE_NOT_AVAILABLE","message":"DELUXE is fully booked"}}`))
	})

	_, err := svc.Create(context.Background(), model.CreateReservationRequest{})
	require.Error(t, err)
	require.True(t, errs.IsRoomTypeNotAvailable(err))
	require.Contains(t, err.Error(), "fully booked")
}

func TestService_FlatErrorBodyAndFallback(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"VALIDATION_ERROR","message":"email is required"}`))
	})
	_, err := svc.Create(context.Background(), model.CreateReservationRequest{})
	require.True(t, errs.IsValidation(err))

	svc = newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`oops`))
	})
	_, err = svc.GetByID(context.Background(), "r-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "hotel api request failed")
}

func TestService_NotFound(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := svc.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)
}
