// Package api exposes the engine over HTTP. This layer is glue: it parses
// requests and renders records, while every decision stays in the engine and
// lifecycle manager.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	alertmodel "github.com/slopewatch/slopewatch/internal/alerting/model"
	"github.com/slopewatch/slopewatch/internal/alerting/service/lifecycle"
	"github.com/slopewatch/slopewatch/internal/alerting/service/notify"
	"github.com/slopewatch/slopewatch/internal/monitoring/cache"
	"github.com/slopewatch/slopewatch/internal/monitoring/model"
	"github.com/slopewatch/slopewatch/internal/monitoring/service/engine"
	"github.com/slopewatch/slopewatch/internal/zoneconfig"
)

type Api struct {
	Engine    *engine.Engine
	Manager   *lifecycle.Manager
	Zones     zoneconfig.Provider
	RiskCache *cache.RiskCache
	Hub       *notify.Hub
}

func (a *Api) Register(router *gin.Engine) {
	router.POST("/v1/readings", a.IngestReadings)
	router.GET("/v1/zones", a.ListZones)
	router.GET("/v1/zones/:zoneID/risk", a.GetZoneRisk)
	router.GET("/v1/zones/:zoneID/alerts", a.GetZoneAlerts)
	router.GET("/v1/alerts", a.ListAlerts)
	router.GET("/v1/alerts/summary", a.GetAlertSummary)
	router.POST("/v1/alerts/:alertID/resolve", a.ResolveAlert)
	if a.Hub != nil {
		router.GET("/v1/ws", func(c *gin.Context) { a.Hub.ServeWS(c.Writer, c.Request) })
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func errJSON(c *gin.Context, status int, code, message string) {
	c.JSON(status, map[string]any{"error": map[string]any{"code": code, "message": message}})
}

type ingestRequest struct {
	Readings []model.RawReading `json:"readings"`
}

// IngestReadings accepts one batch and runs an evaluation cycle on it. The
// body may be either a bare array of readings or {"readings": [...]}.
func (a *Api) IngestReadings(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		errJSON(c, http.StatusBadRequest, "INVALID_PARAMETER", "unreadable body")
		return
	}
	var req ingestRequest
	if jerr := json.Unmarshal(data, &req); jerr != nil || len(req.Readings) == 0 {
		var bare []model.RawReading
		if jerr2 := json.Unmarshal(data, &bare); jerr2 != nil {
			errJSON(c, http.StatusBadRequest, "INVALID_PARAMETER", "invalid readings payload")
			return
		}
		req.Readings = bare
	}
	if len(req.Readings) == 0 {
		errJSON(c, http.StatusBadRequest, "INVALID_PARAMETER", "empty batch")
		return
	}

	report, err := a.Engine.RunCycle(c.Request.Context(), req.Readings)
	if err != nil {
		// The cycle may have partially applied; report what we have.
		log.Error().Err(err).Msg("evaluation cycle finished with errors")
		c.JSON(http.StatusInternalServerError, map[string]any{
			"error":  map[string]any{"code": "CYCLE_FAILED", "message": err.Error()},
			"report": report,
		})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (a *Api) ListZones(c *gin.Context) {
	c.JSON(http.StatusOK, map[string]any{"zones": a.Zones.Zones()})
}

func (a *Api) GetZoneRisk(c *gin.Context) {
	zoneID := c.Param("zoneID")
	if _, ok := a.Zones.Zone(zoneID); !ok {
		errJSON(c, http.StatusNotFound, "NOT_FOUND", "unknown zone")
		return
	}
	if assessment, ok := a.Engine.Assessment(zoneID); ok {
		c.JSON(http.StatusOK, assessment)
		return
	}
	if a.RiskCache != nil {
		if assessment, err := a.RiskCache.Get(c.Request.Context(), zoneID); err == nil && assessment != nil {
			c.JSON(http.StatusOK, assessment)
			return
		}
	}
	errJSON(c, http.StatusNotFound, "NOT_FOUND", "no assessment for zone yet")
}

func (a *Api) GetZoneAlerts(c *gin.Context) {
	zoneID := c.Param("zoneID")
	if _, ok := a.Zones.Zone(zoneID); !ok {
		errJSON(c, http.StatusNotFound, "NOT_FOUND", "unknown zone")
		return
	}
	days := 7
	if v := c.Query("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	alerts, err := a.Manager.ZoneHistory(c.Request.Context(), zoneID, days)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, map[string]any{"alerts": alerts})
}

func (a *Api) ListAlerts(c *gin.Context) {
	var (
		alerts []*alertmodel.Alert
		err    error
	)
	switch strings.ToLower(c.Query("status")) {
	case "", "active":
		alerts, err = a.Manager.ActiveAlerts(c.Request.Context())
	case "recent":
		alerts, err = a.Manager.AlertsSince(c.Request.Context(), time.Now().Add(-24*time.Hour))
	default:
		errJSON(c, http.StatusBadRequest, "INVALID_PARAMETER", "status must be active or recent")
		return
	}
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, map[string]any{"alerts": alerts})
}

func (a *Api) GetAlertSummary(c *gin.Context) {
	summary, err := a.Manager.Summary(c.Request.Context())
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, summary)
}

type resolveRequest struct {
	Notes string `json:"notes"`
}

func (a *Api) ResolveAlert(c *gin.Context) {
	id, ok := parseAlertID(c.Param("alertID"))
	if !ok {
		errJSON(c, http.StatusBadRequest, "INVALID_PARAMETER", "invalid alert id")
		return
	}
	var req resolveRequest
	_ = c.ShouldBindJSON(&req)

	err := a.Manager.ResolveByOperator(c.Request.Context(), id, req.Notes)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, map[string]any{"ok": true})
	case err == alertmodel.ErrNoActiveAlert:
		errJSON(c, http.StatusNotFound, "NOT_FOUND", "no active alert with that id")
	default:
		errJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// parseAlertID accepts a numeric id or the display form "ALT007".
func parseAlertID(s string) (int64, bool) {
	s = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "ALT")
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}
