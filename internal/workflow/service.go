package workflow

import (
	"context"

	"github.com/hoteldesk/backoffice-service/internal/model"
	"github.com/hoteldesk/backoffice-service/internal/service/reservation"
	"github.com/hoteldesk/backoffice-service/internal/service/room"
	"github.com/hoteldesk/backoffice-service/pkg/circuit_breaker"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

var (
	_ ReservationService = (*reservation.Service)(nil)
	_ RoomService        = (*room.Service)(nil)
)

type ReservationService interface {
	CB() circuit_breaker.CircuitBreaker
	Create(ctx context.Context, request model.CreateReservationRequest) (model.Reservation, error)
}

type RoomService interface {
	CB() circuit_breaker.CircuitBreaker
	ListRoomTypes(ctx context.Context) ([]model.RoomTypeInventory, error)
	CheckAvailabilityByDate(ctx context.Context, checkIn, checkOut model.Date) (model.AvailabilitySnapshot, error)
	TaxRate(ctx context.Context) (float64, error)
}
