package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hoteldesk/backoffice-service/internal/errs"
	"github.com/hoteldesk/backoffice-service/internal/model"
	"github.com/hoteldesk/backoffice-service/internal/workflow"
	service_mocks "github.com/hoteldesk/backoffice-service/internal/workflow/mocks"
	"github.com/hoteldesk/backoffice-service/pkg/circuit_breaker"
)

func dt(s string) model.Date {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return model.Date{Time: t}
}

var deluxe = model.RoomTypeInventory{
	RoomType:     "DELUXE",
	Name:         "Deluxe Room",
	Capacity:     3,
	BasePrice:    100,
	WeekendPrice: 150,
}

func fullInput() workflow.Input {
	return workflow.Input{
		FirstName:      "Ada",
		LastName:       "Byron",
		Email:          "ada@example.com",
		CheckInDate:    dt("2025-03-12"),
		CheckOutDate:   dt("2025-03-15"),
		NumberOfGuests: 2,
		RoomType:       "DELUXE",
	}
}

func newController(t *testing.T) (*workflow.Controller, *service_mocks.MockReservationService, *service_mocks.MockRoomService) {
	t.Helper()
	return newControllerCB(t,
		circuit_breaker.New(20, time.Second, 0.5, 5),
		circuit_breaker.New(20, time.Second, 0.5, 5))
}

func newControllerCB(t *testing.T, rsvCB, roomCB circuit_breaker.CircuitBreaker) (*workflow.Controller, *service_mocks.MockReservationService, *service_mocks.MockRoomService) {
	t.Helper()
	c := gomock.NewController(t)
	t.Cleanup(c.Finish)
	reservations := service_mocks.NewMockReservationService(c)
	rooms := service_mocks.NewMockRoomService(c)
	reservations.EXPECT().CB().Return(rsvCB).AnyTimes()
	rooms.EXPECT().CB().Return(roomCB).AnyTimes()
	return workflow.New(zap.NewExample().Named("test"), reservations, rooms), reservations, rooms
}

// trippedBreaker returns a breaker already in the open state.
func trippedBreaker() circuit_breaker.CircuitBreaker {
	cb := circuit_breaker.New(1, time.Minute, 1, 1)
	_ = cb.Call(func() error { return errs.ErrNotFound })
	return cb
}

func TestController_SetInput_MissingDatesMakesNoCalls(t *testing.T) {
	t.Parallel()
	ctrl, _, _ := newController(t)

	state, err := ctrl.SetInput(context.Background(), workflow.Input{
		FirstName:   "Ada",
		CheckInDate: dt("2025-03-12"),
		RoomType:    "DELUXE",
	})
	require.NoError(t, err)
	require.Nil(t, state.Availability)
	require.Nil(t, state.Quote)
}

func TestController_SetInput_QuoteAndAutoFill(t *testing.T) {
	t.Parallel()
	ctrl, _, rooms := newController(t)

	snapshot := model.AvailabilitySnapshot{
		CheckInDate:  dt("2025-03-12"),
		CheckOutDate: dt("2025-03-15"),
		ByRoomType:   []model.RoomTypeAvailability{{RoomType: "DELUXE", Available: 2, Total: 5}},
	}
	rooms.EXPECT().CheckAvailabilityByDate(gomock.Any(), dt("2025-03-12"), dt("2025-03-15")).Return(snapshot, nil)
	rooms.EXPECT().ListRoomTypes(gomock.Any()).Return([]model.RoomTypeInventory{deluxe}, nil)
	rooms.EXPECT().TaxRate(gomock.Any()).Return(15.0, nil)

	state, err := ctrl.SetInput(context.Background(), fullInput())
	require.NoError(t, err)

	require.NotNil(t, state.Availability)
	require.Equal(t, snapshot, *state.Availability)
	require.NotNil(t, state.Quote)
	require.Equal(t, 2, state.Quote.WeekdayNights)
	require.Equal(t, 1, state.Quote.WeekendNights)
	require.Equal(t, 402.5, state.Quote.TotalAmount)
	require.Equal(t, 402.5, state.PaidAmount)
}

func TestController_SetInput_NoRoomTypeSkipsQuote(t *testing.T) {
	t.Parallel()
	ctrl, _, rooms := newController(t)

	rooms.EXPECT().CheckAvailabilityByDate(gomock.Any(), dt("2025-03-12"), dt("2025-03-15")).
		Return(model.AvailabilitySnapshot{}, nil)

	input := fullInput()
	input.RoomType = ""
	state, err := ctrl.SetInput(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, state.Availability)
	require.Nil(t, state.Quote)
}

func TestController_RoomTypeChangeInvalidatesQuote(t *testing.T) {
	t.Parallel()
	ctrl, _, rooms := newController(t)

	rooms.EXPECT().CheckAvailabilityByDate(gomock.Any(), dt("2025-03-12"), dt("2025-03-15")).
		Return(model.AvailabilitySnapshot{}, nil)
	rooms.EXPECT().ListRoomTypes(gomock.Any()).Return([]model.RoomTypeInventory{deluxe}, nil)
	rooms.EXPECT().TaxRate(gomock.Any()).Return(15.0, nil)

	_, err := ctrl.SetInput(context.Background(), fullInput())
	require.NoError(t, err)
	require.NotNil(t, ctrl.State().Quote)

	// clearing the dates forces the no-query branch; switching the room
	// type at the same time must still drop the old quote immediately
	next := fullInput()
	next.RoomType = "SUITE"
	next.CheckOutDate = model.Date{}
	state, err := ctrl.SetInput(context.Background(), next)
	require.NoError(t, err)
	require.Nil(t, state.Quote)
}

func TestController_FreshQuoteReclobbersManualOverride(t *testing.T) {
	t.Parallel()
	ctrl, _, rooms := newController(t)

	rooms.EXPECT().CheckAvailabilityByDate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(model.AvailabilitySnapshot{}, nil).Times(2)
	rooms.EXPECT().ListRoomTypes(gomock.Any()).Return([]model.RoomTypeInventory{deluxe}, nil).Times(2)
	rooms.EXPECT().TaxRate(gomock.Any()).Return(15.0, nil).Times(2)

	_, err := ctrl.SetInput(context.Background(), fullInput())
	require.NoError(t, err)

	ctrl.OverridePaidAmount(50)
	require.Equal(t, 50.0, ctrl.State().PaidAmount)

	_, err = ctrl.SetInput(context.Background(), fullInput())
	require.NoError(t, err)
	require.Equal(t, 402.5, ctrl.State().PaidAmount)
}

func TestController_Submit_BlockedLocallyWhenFullyBooked(t *testing.T) {
	t.Parallel()
	ctrl, _, rooms := newController(t)

	rooms.EXPECT().CheckAvailabilityByDate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(model.AvailabilitySnapshot{
			ByRoomType: []model.RoomTypeAvailability{{RoomType: "DELUXE", Available: 0, Total: 5}},
		}, nil)
	rooms.EXPECT().ListRoomTypes(gomock.Any()).Return([]model.RoomTypeInventory{deluxe}, nil)
	rooms.EXPECT().TaxRate(gomock.Any()).Return(15.0, nil)

	_, err := ctrl.SetInput(context.Background(), fullInput())
	require.NoError(t, err)

	// no Create expectation: the call must never reach the wire
	_, err = ctrl.Submit(context.Background())
	require.True(t, errs.IsRoomTypeNotAvailable(err))
}

func TestController_Submit_ReactiveFullyBookedWithoutSnapshot(t *testing.T) {
	t.Parallel()
	ctrl, reservations, rooms := newController(t)

	// the snapshot has no row for DELUXE, so the local gate cannot fire
	rooms.EXPECT().CheckAvailabilityByDate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(model.AvailabilitySnapshot{ByRoomType: []model.RoomTypeAvailability{}}, nil)
	rooms.EXPECT().ListRoomTypes(gomock.Any()).Return([]model.RoomTypeInventory{deluxe}, nil)
	rooms.EXPECT().TaxRate(gomock.Any()).Return(15.0, nil)
	_, err := ctrl.SetInput(context.Background(), fullInput())
	require.NoError(t, err)

	reservations.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(model.Reservation{}, errs.New(errs.CodeRoomTypeNotAvailable, "no units left"))

	_, err = ctrl.Submit(context.Background())
	require.True(t, errs.IsRoomTypeNotAvailable(err))
}

func TestController_Submit_LocalValidation(t *testing.T) {
	t.Parallel()
	ctrl, _, rooms := newController(t)

	input := fullInput()
	input.Email = ""
	rooms.EXPECT().CheckAvailabilityByDate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(model.AvailabilitySnapshot{}, nil)
	rooms.EXPECT().ListRoomTypes(gomock.Any()).Return([]model.RoomTypeInventory{deluxe}, nil)
	rooms.EXPECT().TaxRate(gomock.Any()).Return(15.0, nil)
	_, err := ctrl.SetInput(context.Background(), input)
	require.NoError(t, err)

	_, err = ctrl.Submit(context.Background())
	require.True(t, errs.IsValidation(err))
}

func TestController_Submit_SuccessClearsStateAndServerTotalWins(t *testing.T) {
	t.Parallel()
	ctrl, reservations, rooms := newController(t)

	rooms.EXPECT().CheckAvailabilityByDate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(model.AvailabilitySnapshot{
			ByRoomType: []model.RoomTypeAvailability{{RoomType: "DELUXE", Available: 1, Total: 5}},
		}, nil)
	rooms.EXPECT().ListRoomTypes(gomock.Any()).Return([]model.RoomTypeInventory{deluxe}, nil)
	rooms.EXPECT().TaxRate(gomock.Any()).Return(15.0, nil)

	_, err := ctrl.SetInput(context.Background(), fullInput())
	require.NoError(t, err)

	reservations.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req model.CreateReservationRequest) (model.Reservation, error) {
			require.Equal(t, "Ada", req.FirstName)
			require.Equal(t, "DELUXE", req.RoomType)
			require.Equal(t, 402.5, req.PaidAmount)
			// the upstream disagrees with the local quote: its total wins
			return model.Reservation{ID: "r-1", Status: model.StatusPending, TotalAmount: 410}, nil
		})

	created, err := ctrl.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, "r-1", created.ID)
	require.Equal(t, 410.0, created.TotalAmount)

	state := ctrl.State()
	require.Equal(t, workflow.Input{}, state.Input)
	require.Nil(t, state.Availability)
	require.Nil(t, state.Quote)
	require.Equal(t, 0.0, state.PaidAmount)
}

func TestController_Submit_QuoteTotalUsedWhenServerOmitsIt(t *testing.T) {
	t.Parallel()
	ctrl, reservations, rooms := newController(t)

	rooms.EXPECT().CheckAvailabilityByDate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(model.AvailabilitySnapshot{}, nil)
	rooms.EXPECT().ListRoomTypes(gomock.Any()).Return([]model.RoomTypeInventory{deluxe}, nil)
	rooms.EXPECT().TaxRate(gomock.Any()).Return(15.0, nil)

	_, err := ctrl.SetInput(context.Background(), fullInput())
	require.NoError(t, err)

	reservations.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(model.Reservation{ID: "r-2", Status: model.StatusPending}, nil)

	created, err := ctrl.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, 402.5, created.TotalAmount)
}

func TestController_SupersededEvaluationIsDiscarded(t *testing.T) {
	t.Parallel()
	ctrl, _, rooms := newController(t)

	firstInput := fullInput()
	firstInput.RoomType = ""
	secondInput := firstInput
	secondInput.CheckInDate = dt("2025-03-13")
	secondInput.CheckOutDate = dt("2025-03-16")

	staleSnapshot := model.AvailabilitySnapshot{
		CheckInDate:  firstInput.CheckInDate,
		CheckOutDate: firstInput.CheckOutDate,
		ByRoomType:   []model.RoomTypeAvailability{{RoomType: "DELUXE", Available: 0, Total: 5}},
	}
	freshSnapshot := model.AvailabilitySnapshot{
		CheckInDate:  secondInput.CheckInDate,
		CheckOutDate: secondInput.CheckOutDate,
		ByRoomType:   []model.RoomTypeAvailability{{RoomType: "DELUXE", Available: 3, Total: 5}},
	}

	started := make(chan struct{})
	release := make(chan struct{})
	rooms.EXPECT().CheckAvailabilityByDate(gomock.Any(), firstInput.CheckInDate, firstInput.CheckOutDate).
		DoAndReturn(func(context.Context, model.Date, model.Date) (model.AvailabilitySnapshot, error) {
			close(started)
			<-release
			return staleSnapshot, nil
		})
	rooms.EXPECT().CheckAvailabilityByDate(gomock.Any(), secondInput.CheckInDate, secondInput.CheckOutDate).
		Return(freshSnapshot, nil)

	firstDone := make(chan workflow.State, 1)
	go func() {
		state, err := ctrl.SetInput(context.Background(), firstInput)
		require.NoError(t, err)
		firstDone <- state
	}()

	<-started
	state2, err := ctrl.SetInput(context.Background(), secondInput)
	require.NoError(t, err)
	require.Equal(t, freshSnapshot, *state2.Availability)

	close(release)
	state1 := <-firstDone

	// the slow first response arrived after a newer request was issued:
	// last issued wins, the stale snapshot never lands
	require.NotNil(t, state1.Availability)
	require.Equal(t, freshSnapshot, *state1.Availability)
	require.Equal(t, freshSnapshot, *ctrl.State().Availability)
}

func TestController_ClearedDatesInvalidateInFlightEvaluation(t *testing.T) {
	t.Parallel()
	ctrl, _, rooms := newController(t)

	input := fullInput()
	input.RoomType = ""
	snapshot := model.AvailabilitySnapshot{
		CheckInDate:  input.CheckInDate,
		CheckOutDate: input.CheckOutDate,
		ByRoomType:   []model.RoomTypeAvailability{{RoomType: "DELUXE", Available: 1, Total: 5}},
	}

	started := make(chan struct{})
	release := make(chan struct{})
	rooms.EXPECT().CheckAvailabilityByDate(gomock.Any(), input.CheckInDate, input.CheckOutDate).
		DoAndReturn(func(context.Context, model.Date, model.Date) (model.AvailabilitySnapshot, error) {
			close(started)
			<-release
			return snapshot, nil
		})

	firstDone := make(chan workflow.State, 1)
	go func() {
		state, err := ctrl.SetInput(context.Background(), input)
		require.NoError(t, err)
		firstDone <- state
	}()

	// the dates are cleared while the availability call is still in flight
	<-started
	cleared := input
	cleared.CheckOutDate = model.Date{}
	state, err := ctrl.SetInput(context.Background(), cleared)
	require.NoError(t, err)
	require.Nil(t, state.Availability)

	close(release)
	state1 := <-firstDone

	// clearing the dates is the latest evaluation: the slow response must
	// not resurrect a snapshot for a range the form no longer holds
	require.Nil(t, state1.Availability)
	require.Nil(t, state1.Quote)
	require.Nil(t, ctrl.State().Availability)
}

func TestController_OpenRoomBreakerBlocksEvaluation(t *testing.T) {
	t.Parallel()
	// no room-service expectations: the open breaker rejects before the wire
	ctrl, _, _ := newControllerCB(t, circuit_breaker.New(20, time.Second, 0.5, 5), trippedBreaker())

	_, err := ctrl.SetInput(context.Background(), fullInput())
	require.ErrorIs(t, err, circuit_breaker.ErrOpenCB)
}

func TestController_OpenReservationBreakerBlocksSubmit(t *testing.T) {
	t.Parallel()
	ctrl, _, rooms := newControllerCB(t, trippedBreaker(), circuit_breaker.New(20, time.Second, 0.5, 5))

	rooms.EXPECT().CheckAvailabilityByDate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(model.AvailabilitySnapshot{
			ByRoomType: []model.RoomTypeAvailability{{RoomType: "DELUXE", Available: 1, Total: 5}},
		}, nil)
	rooms.EXPECT().ListRoomTypes(gomock.Any()).Return([]model.RoomTypeInventory{deluxe}, nil)
	rooms.EXPECT().TaxRate(gomock.Any()).Return(15.0, nil)

	_, err := ctrl.SetInput(context.Background(), fullInput())
	require.NoError(t, err)

	// no Create expectation: the open breaker rejects before the wire
	_, err = ctrl.Submit(context.Background())
	require.ErrorIs(t, err, circuit_breaker.ErrOpenCB)
}
