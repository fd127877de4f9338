package model

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Date marshals as a calendar day (2006-01-02), the format the upstream
// hotel API uses for stay boundaries.
type Date struct {
	time.Time `json:",inline"`
}

func (d *Date) UnmarshalJSON(b []byte) (err error) {
	s := strings.Trim(string(b), "\"")
	if s == "" || s == "null" {
		return nil
	}
	date, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return err
	}
	d.Time = date
	return
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}

type Guest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

type Reservation struct {
	ID              string  `json:"id"`
	Guest           Guest   `json:"guest"`
	CheckInDate     Date    `json:"checkInDate"`
	CheckOutDate    Date    `json:"checkOutDate"`
	NumberOfGuests  int     `json:"numberOfGuests"`
	RoomType        string  `json:"roomType"`
	RoomID          string  `json:"roomId,omitempty"`
	SpecialRequests string  `json:"specialRequests,omitempty"`
	TotalAmount     float64 `json:"totalAmount"`
	PaidAmount      float64 `json:"paidAmount"`
	Status          Status  `json:"status"`
}

// ResolveTotal fixes the money-alias ambiguity in one place: the upstream
// may report the authoritative amount under totalPrice, totalAmount or
// finalPrice. The first non-zero value in that order wins.
func ResolveTotal(totalPrice, totalAmount, finalPrice float64) float64 {
	for _, v := range []float64{totalPrice, totalAmount, finalPrice} {
		if v != 0 {
			return v
		}
	}
	return 0
}

type Pagination struct {
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
}

type ReservationList struct {
	Data       []Reservation `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

type ListFilters struct {
	Status   string
	RoomType string
	Search   string
	Page     int
	Limit    int
}

// Query builds the transmitted query string. Empty values are stripped:
// the upstream rejects literal empty-string enum filters as validation
// errors.
func (f ListFilters) Query() url.Values {
	q := url.Values{}
	for k, v := range map[string]string{
		"status":   f.Status,
		"roomType": f.RoomType,
		"search":   f.Search,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

type CreateReservationRequest struct {
	FirstName       string  `json:"firstName" validate:"required"`
	LastName        string  `json:"lastName" validate:"required"`
	Email           string  `json:"email" validate:"required,email"`
	Phone           string  `json:"phone,omitempty"`
	CheckInDate     Date    `json:"checkInDate" validate:"required"`
	CheckOutDate    Date    `json:"checkOutDate" validate:"required"`
	NumberOfGuests  int     `json:"numberOfGuests" validate:"required,gt=0"`
	RoomType        string  `json:"roomType" validate:"required"`
	SpecialRequests string  `json:"specialRequests,omitempty"`
	PaidAmount      float64 `json:"paidAmount"`
	PaymentMethod   string  `json:"paymentMethod,omitempty"`
}

type UpdateReservationRequest struct {
	CheckInDate     *Date   `json:"checkInDate,omitempty"`
	CheckOutDate    *Date   `json:"checkOutDate,omitempty"`
	NumberOfGuests  *int    `json:"numberOfGuests,omitempty" validate:"omitempty,gt=0"`
	RoomType        *string `json:"roomType,omitempty"`
	SpecialRequests *string `json:"specialRequests,omitempty"`
	PaidAmount      *float64 `json:"paidAmount,omitempty"`
}

type RoomTypeInventory struct {
	RoomType     string  `json:"roomType"`
	Name         string  `json:"name"`
	Capacity     int     `json:"capacity"`
	Size         float64 `json:"size"`
	BasePrice    float64 `json:"basePrice"`
	WeekendPrice float64 `json:"weekendPrice"`
}

type RoomTypeAvailability struct {
	RoomType  string `json:"roomType"`
	Available int    `json:"available"`
	Total     int    `json:"total"`
}

// AvailabilitySnapshot is valid only for the queried date range; it is
// replaced wholesale on every date change, never merged or cached.
type AvailabilitySnapshot struct {
	CheckInDate  Date                   `json:"checkInDate"`
	CheckOutDate Date                   `json:"checkOutDate"`
	ByRoomType   []RoomTypeAvailability `json:"byRoomType"`
}

func (s *AvailabilitySnapshot) ForRoomType(roomType string) (RoomTypeAvailability, bool) {
	if s == nil {
		return RoomTypeAvailability{}, false
	}
	for _, a := range s.ByRoomType {
		if a.RoomType == roomType {
			return a, true
		}
	}
	return RoomTypeAvailability{}, false
}

type ReservationStats struct {
	Total     int            `json:"total"`
	ByStatus  map[Status]int `json:"byStatus"`
	CheckedIn int            `json:"checkedIn"`
	Upcoming  int            `json:"upcoming"`
}
