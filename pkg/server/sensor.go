package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/iver-wharf/temperatures/pkg/readingstore"
	"github.com/iver-wharf/wharf-core/v2/pkg/ginutil"
	"github.com/iver-wharf/wharf-core/v2/pkg/problem"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 10000
)

var errNonPositiveLimit = errors.New("limit must be a positive integer")

type sensorModule struct {
	sensors SensorSource
	store   readingstore.Store
}

func (m sensorModule) register(g *gin.RouterGroup) {
	sensor := g.Group("/sensor")
	{
		sensor.GET("", m.listSensorsHandler)
		sensorID := sensor.Group("/:sensorId")
		{
			sensorID.GET("", m.getSensorHandler)
			sensorID.GET("/history", m.listSensorHistoryHandler)
		}
	}
}

func (m sensorModule) listSensorsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, m.sensors.Sensors())
}

func (m sensorModule) getSensorHandler(c *gin.Context) {
	sensorID, ok := ginutil.RequireParamString(c, "sensorId")
	if !ok {
		return
	}
	sensor, ok := m.sensors.Sensor(sensorID)
	if !ok {
		writeSensorNotFound(c, sensorID)
		return
	}
	c.JSON(http.StatusOK, sensor)
}

func (m sensorModule) listSensorHistoryHandler(c *gin.Context) {
	sensorID, ok := ginutil.RequireParamString(c, "sensorId")
	if !ok {
		return
	}
	if m.store == nil {
		ginutil.WriteProblem(c, problem.Response{
			Type:   "/prob/api/sensor/history-disabled",
			Title:  "History disabled.",
			Status: http.StatusNotImplemented,
			Detail: "Storing readings is disabled. Set history.path in the config to enable it.",
		})
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	readings, err := m.store.List(sensorID, limit)
	if err != nil {
		log.Error().WithError(err).WithString("sensor", sensorID).
			Message("Failed to list readings.")
		ginutil.WriteProblem(c, problem.Response{
			Type:   "/prob/api/sensor/history-read",
			Title:  "Error reading history.",
			Status: http.StatusBadGateway,
			Detail: fmt.Sprintf("Failed fetching readings for sensor %q: %s", sensorID, err),
		})
		return
	}
	c.JSON(http.StatusOK, readings)
}

func parseLimit(c *gin.Context) (int, bool) {
	raw, ok := c.GetQuery("limit")
	if !ok {
		return defaultHistoryLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err == nil && limit <= 0 {
		err = errNonPositiveLimit
	}
	if err != nil {
		ginutil.WriteInvalidParamError(c, err, "limit",
			fmt.Sprintf("Invalid limit %q. Must be a positive integer.", raw))
		return 0, false
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return limit, true
}

func writeSensorNotFound(c *gin.Context, sensorID string) {
	ginutil.WriteProblem(c, problem.Response{
		Type:   "/prob/api/sensor/not-found",
		Title:  "Sensor not found.",
		Status: http.StatusNotFound,
		Detail: fmt.Sprintf("No sensor with ID %q has been discovered.", sensorID),
	})
}
