// Package workflow drives the new-reservation form through
// input -> availability -> price -> submit, keeping the availability
// snapshot and the price quote consistent with the latest input.
package workflow

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hoteldesk/backoffice-service/internal/errs"
	"github.com/hoteldesk/backoffice-service/internal/model"
	"github.com/hoteldesk/backoffice-service/internal/pricing"
)

// Input mirrors the form fields the operator edits.
type Input struct {
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	CheckInDate     model.Date `json:"checkInDate"`
	CheckOutDate    model.Date `json:"checkOutDate"`
	NumberOfGuests  int        `json:"numberOfGuests"`
	RoomType        string     `json:"roomType"`
	SpecialRequests string     `json:"specialRequests"`
	PaymentMethod   string     `json:"paymentMethod"`
}

// State is what the form renders after every evaluation.
type State struct {
	Input        Input                       `json:"input"`
	PaidAmount   float64                     `json:"paidAmount"`
	Availability *model.AvailabilitySnapshot `json:"availability,omitempty"`
	Quote        *pricing.Quote              `json:"quote,omitempty"`
}

// Controller holds the state of one open form. Evaluations are stamped
// with a monotonic sequence number; a result that is no longer the latest
// issued by the time it returns is discarded, so rapid date or room-type
// changes cannot resurface stale availability or prices.
type Controller struct {
	mu           sync.Mutex
	log          *zap.Logger
	reservations ReservationService
	rooms        RoomService

	input      Input
	snapshot   *model.AvailabilitySnapshot
	quote      *pricing.Quote
	paidAmount float64

	seq uint64
}

func New(log *zap.Logger, reservations ReservationService, rooms RoomService) *Controller {
	return &Controller{
		log:          log,
		reservations: reservations,
		rooms:        rooms,
	}
}

// SetInput applies a form change and re-runs the availability and price
// queries that depend on it. With an incomplete date range no upstream
// call is made at all.
func (c *Controller) SetInput(ctx context.Context, input Input) (State, error) {
	c.mu.Lock()
	roomTypeChanged := input.RoomType != c.input.RoomType
	c.input = input
	if roomTypeChanged {
		// a stale quote for the previous room type must never be rendered
		c.quote = nil
	}
	if input.CheckInDate.IsZero() || input.CheckOutDate.IsZero() {
		// the cleared state is itself the latest evaluation: advancing
		// the sequence invalidates any result still in flight
		c.seq++
		c.snapshot = nil
		c.quote = nil
		state := c.stateLocked()
		c.mu.Unlock()
		return state, nil
	}
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	result, err := c.evaluate(ctx, input)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		// superseded by a newer evaluation, last issued wins
		return c.stateLocked(), nil
	}
	if err != nil {
		return c.stateLocked(), err
	}

	c.snapshot = &result.snapshot
	c.quote = result.quote
	if result.quote != nil {
		// auto-fill; a fresh successful quote re-clobbers any manual override
		c.paidAmount = result.quote.TotalAmount
	}
	return c.stateLocked(), nil
}

type evalResult struct {
	snapshot model.AvailabilitySnapshot
	quote    *pricing.Quote
}

func (c *Controller) evaluate(ctx context.Context, input Input) (evalResult, error) {
	var (
		res       evalResult
		inventory []model.RoomTypeInventory
		taxRate   float64
	)
	gg, ctx := errgroup.WithContext(ctx)
	gg.Go(func() error {
		if err := c.rooms.CB().Call(func() error {
			var err error
			res.snapshot, err = c.rooms.CheckAvailabilityByDate(ctx, input.CheckInDate, input.CheckOutDate)
			return err
		}); err != nil {
			return errors.Wrap(err, "check availability")
		}
		return nil
	})
	if input.RoomType != "" {
		gg.Go(func() error {
			if err := c.rooms.CB().Call(func() error {
				var err error
				inventory, err = c.rooms.ListRoomTypes(ctx)
				return err
			}); err != nil {
				return errors.Wrap(err, "list room types")
			}
			return nil
		})
		gg.Go(func() error {
			if err := c.rooms.CB().Call(func() error {
				var err error
				taxRate, err = c.rooms.TaxRate(ctx)
				return err
			}); err != nil {
				return errors.Wrap(err, "tax rate")
			}
			return nil
		})
	}
	if err := gg.Wait(); err != nil {
		return evalResult{}, err
	}

	if input.RoomType != "" {
		inv, ok := findInventory(inventory, input.RoomType)
		if !ok {
			return evalResult{}, errors.Errorf("unknown room type %q", input.RoomType)
		}
		quote, err := pricing.Compute(inv, taxRate, input.CheckInDate.Time, input.CheckOutDate.Time)
		if err != nil {
			return evalResult{}, err
		}
		res.quote = &quote
	}
	return res, nil
}

// OverridePaidAmount applies a manual paid-amount edit. The override
// survives until the next successful quote.
func (c *Controller) OverridePaidAmount(amount float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paidAmount = amount
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Submit re-validates the form, applies the local fully-booked gate and
// issues the create call. On success all ephemeral state is cleared.
func (c *Controller) Submit(ctx context.Context) (model.Reservation, error) {
	c.mu.Lock()
	input := c.input
	snapshot := c.snapshot
	quote := c.quote
	paid := c.paidAmount
	c.mu.Unlock()

	if err := validateRequired(input); err != nil {
		return model.Reservation{}, err
	}
	if avail, ok := snapshot.ForRoomType(input.RoomType); ok && avail.Available == 0 {
		// blocked locally, the create call is never made
		return model.Reservation{}, errs.FullyBooked(input.RoomType)
	}

	var created model.Reservation
	if err := c.reservations.CB().Call(func() error {
		var err error
		created, err = c.reservations.Create(ctx, model.CreateReservationRequest{
			FirstName:       input.FirstName,
			LastName:        input.LastName,
			Email:           input.Email,
			Phone:           input.Phone,
			CheckInDate:     input.CheckInDate,
			CheckOutDate:    input.CheckOutDate,
			NumberOfGuests:  input.NumberOfGuests,
			RoomType:        input.RoomType,
			SpecialRequests: input.SpecialRequests,
			PaidAmount:      paid,
			PaymentMethod:   input.PaymentMethod,
		})
		return err
	}); err != nil {
		return model.Reservation{}, err
	}
	if created.TotalAmount == 0 && quote != nil {
		created.TotalAmount = quote.TotalAmount
	}

	c.mu.Lock()
	c.input = Input{}
	c.snapshot = nil
	c.quote = nil
	c.paidAmount = 0
	c.mu.Unlock()

	return created, nil
}

func (c *Controller) stateLocked() State {
	return State{
		Input:        c.input,
		PaidAmount:   c.paidAmount,
		Availability: c.snapshot,
		Quote:        c.quote,
	}
}

func validateRequired(input Input) error {
	missing := ""
	switch {
	case input.FirstName == "":
		missing = "firstName"
	case input.LastName == "":
		missing = "lastName"
	case input.Email == "":
		missing = "email"
	case input.RoomType == "":
		missing = "roomType"
	case input.CheckInDate.IsZero():
		missing = "checkInDate"
	case input.CheckOutDate.IsZero():
		missing = "checkOutDate"
	}
	if missing != "" {
		return errs.New(errs.CodeValidationError, missing+" is required")
	}
	if !input.CheckOutDate.After(input.CheckInDate.Time) {
		return errs.New(errs.CodeValidationError, "checkOutDate must be after checkInDate")
	}
	return nil
}

func findInventory(inventory []model.RoomTypeInventory, roomType string) (model.RoomTypeInventory, bool) {
	for _, inv := range inventory {
		if inv.RoomType == roomType {
			return inv, true
		}
	}
	return model.RoomTypeInventory{}, false
}
