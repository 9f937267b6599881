package httpapi

import (
	"bytes"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-sensor-dashboard/internal/dashboard"
	"github.com/i474232898/weather-sensor-dashboard/internal/render"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, builder *dashboard.Builder) {
	v1 := app.Group("/api/v1")

	v1.Get("/dashboard", func(c *fiber.Ctx) error {
		q, err := parseFieldsQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		view, err := builder.Build(c.UserContext(), q.Fields)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(view)
	})

	v1.Get("/weather/table", func(c *fiber.Ctx) error {
		q, err := parseFieldsQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		sec, err := builder.WeatherSection(c.UserContext(), q.Fields)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(fiber.Map{
			"caption": dashboard.Caption,
			"section": sec,
		})
	})

	v1.Get("/weather/hourly", func(c *fiber.Ctx) error {
		sec, err := builder.HourlySection(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(sec)
	})

	v1.Get("/sensor/table", func(c *fiber.Ctx) error {
		sec, err := builder.SensorSection(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "failed to fetch sensor history: "+err.Error())
		}
		return c.JSON(sec)
	})

	v1.Get("/charts/weather.png", func(c *fiber.Ctx) error {
		q, err := parseFieldsQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		sec, err := builder.WeatherSection(c.UserContext(), q.Fields)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return sendChart(c, "Weather", sec)
	})

	v1.Get("/charts/sensor.png", func(c *fiber.Ctx) error {
		sec, err := builder.SensorSection(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "failed to fetch sensor history: "+err.Error())
		}
		return sendChart(c, "Distance", sec)
	})
}

// fieldsQuery holds the optional weather field selection.
type fieldsQuery struct {
	Fields []string `validate:"omitempty,dive,oneof=maxtemp_c mintemp_c avgtemp_c totalprecip_mm avghumidity uv"`
}

func parseFieldsQuery(c *fiber.Ctx) (fieldsQuery, error) {
	var q fieldsQuery
	for _, f := range strings.Split(c.Query("fields"), ",") {
		if f = strings.TrimSpace(f); f != "" {
			q.Fields = append(q.Fields, f)
		}
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

func sendChart(c *fiber.Ctx, title string, sec dashboard.Section) error {
	var buf bytes.Buffer
	if err := render.LineChart(&buf, title, sec); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(buf.Bytes())
}
