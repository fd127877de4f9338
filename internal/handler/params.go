package handler

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hoteldesk/backoffice-service/internal/model"
)

func intQueryParam(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func dateQueryParam(c echo.Context, name string) (model.Date, error) {
	v := c.QueryParam(name)
	if v == "" {
		return model.Date{}, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return model.Date{}, err
	}
	return model.Date{Time: t}, nil
}
