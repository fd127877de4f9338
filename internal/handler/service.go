package handler

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
	List(ctx context.Context, filters model.ListFilters) (model.ReservationList, error)
	GetByID(ctx context.Context, id string) (model.Reservation, error)
	Create(ctx context.Context, request model.CreateReservationRequest) (model.Reservation, error)
	Update(ctx context.Context, id string, request model.UpdateReservationRequest) (model.Reservation, error)
	Confirm(ctx context.Context, id string) (model.Reservation, error)
	CheckIn(ctx context.Context, id string) (model.Reservation, error)
	CheckOut(ctx context.Context, id string) (model.Reservation, error)
	Cancel(ctx context.Context, id string) (model.Reservation, error)
}

type RoomService interface {
	CB() circuit_breaker.CircuitBreaker
	ListRoomTypes(ctx context.Context) ([]model.RoomTypeInventory, error)
	CheckAvailabilityByDate(ctx context.Context, checkIn, checkOut model.Date) (model.AvailabilitySnapshot, error)
	TaxRate(ctx context.Context) (float64, error)
}
