package notify

import (
	"github.com/rs/zerolog/log"

	"github.com/slopewatch/slopewatch/internal/alerting/model"
)

// LogHandler records every transition in the service log. It stands in for
// email/SMS integrations in deployments that have none configured.
type LogHandler struct{}

func (LogHandler) Name() string { return "log" }

func (LogHandler) Notify(event Event, a *model.Alert) error {
	log.Info().Str("alert", a.DisplayID()).Str("zone", a.ZoneID).
		Str("level", string(a.Level)).Str("event", string(event)).
		Str("action", a.RecommendedAction).Msg("alert notification")
	return nil
}

// EmergencyHandler escalates CRITICAL alert creations to the emergency
// channel. Non-critical transitions are ignored.
type EmergencyHandler struct{}

func (EmergencyHandler) Name() string { return "emergency" }

func (EmergencyHandler) Notify(event Event, a *model.Alert) error {
	if event != EventCreated || a.Level != model.LevelCritical {
		return nil
	}
	log.Warn().Str("alert", a.DisplayID()).Str("zone", a.ZoneID).
		Str("zone_name", a.ZoneName).Str("action", a.RecommendedAction).
		Msg("EMERGENCY: critical alert, contact emergency services if needed")
	return nil
}
