package reservation

import (
	"time"

	"github.com/tidwall/gjson"

	"github.com/hoteldesk/backoffice-service/internal/errs"
	"github.com/hoteldesk/backoffice-service/internal/model"
)

// The upstream is loose about response shapes: payloads may or may not be
// wrapped in "data", guest identity may be nested or flat, and the total
// travels under one of three aliases. All of that is absorbed here, at the
// client boundary; everything downstream consumes canonical model values.

func payloadRoot(body []byte) gjson.Result {
	root := gjson.ParseBytes(body)
	if d := root.Get("data"); d.Exists() && (d.IsObject() || d.IsArray()) {
		return d
	}
	return root
}

func normalizeReservation(body []byte) model.Reservation {
	return reservationFromJSON(payloadRoot(body))
}

func reservationFromJSON(r gjson.Result) model.Reservation {
	guest := r.Get("guest")
	if !guest.Exists() {
		guest = r
	}
	return model.Reservation{
		ID: firstString(r, "id", "_id"),
		Guest: model.Guest{
			FirstName: guest.Get("firstName").String(),
			LastName:  guest.Get("lastName").String(),
			Email:     guest.Get("email").String(),
			Phone:     guest.Get("phone").String(),
		},
		CheckInDate:     parseDate(r.Get("checkInDate").String()),
		CheckOutDate:    parseDate(r.Get("checkOutDate").String()),
		NumberOfGuests:  int(r.Get("numberOfGuests").Int()),
		RoomType:        r.Get("roomType").String(),
		RoomID:          firstString(r, "roomId", "room.id"),
		SpecialRequests: r.Get("specialRequests").String(),
		TotalAmount: model.ResolveTotal(
			r.Get("totalPrice").Float(),
			r.Get("totalAmount").Float(),
			r.Get("finalPrice").Float(),
		),
		PaidAmount: r.Get("paidAmount").Float(),
		Status:     model.Status(r.Get("status").String()),
	}
}

func normalizeList(body []byte) model.ReservationList {
	root := gjson.ParseBytes(body)
	items := root.Get("data")
	if !items.Exists() && root.IsArray() {
		items = root
	}
	list := model.ReservationList{Data: []model.Reservation{}}
	for _, item := range items.Array() {
		list.Data = append(list.Data, reservationFromJSON(item))
	}

	p := root.Get("pagination")
	if !p.Exists() {
		p = root.Get("meta")
	}
	list.Pagination = model.Pagination{
		Total:      int(p.Get("total").Int()),
		TotalPages: int(p.Get("totalPages").Int()),
		Page:       int(p.Get("page").Int()),
		Limit:      int(p.Get("limit").Int()),
	}
	if list.Pagination.Total == 0 {
		list.Pagination.Total = len(list.Data)
	}
	if list.Pagination.Page == 0 {
		list.Pagination.Page = 1
	}
	return list
}

// normalizeError extracts the structured error contract: a machine
// readable code plus a human message, with a generic fallback when the
// body carries neither.
func normalizeError(body []byte) *errs.APIError {
	root := gjson.ParseBytes(body)
	code := firstString(root, "error.code", "code")
	message := firstString(root, "error.message", "message")
	if message == "" {
		message = "hotel api request failed"
	}
	return errs.New(code, message)
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func parseDate(s string) model.Date {
	if s == "" {
		return model.Date{}
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return model.Date{Time: t}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return model.Date{Time: t}
	}
	return model.Date{}
}
