package model

// RecommendedAction derives the operator guidance for an alert from its level
// and trigger reasons. The mapping is a fixed table, checked in reason
// priority order.
func RecommendedAction(level Level, reasons []string) string {
	has := func(reason string) bool {
		for _, r := range reasons {
			if r == reason {
				return true
			}
		}
		return false
	}

	switch level {
	case LevelCritical:
		switch {
		case has(ReasonCriticalDisplacement):
			return "immediate_evacuation_and_equipment_removal"
		case has(ReasonCriticalVibration):
			return "immediate_evacuation_required"
		case has(ReasonMultipleFactors):
			return "emergency_evacuation_protocol_activated"
		default:
			return "immediate_evacuation_required"
		}
	case LevelWarning:
		switch {
		case has(ReasonHighDisplacement):
			return "monitor_closely_and_restrict_access"
		case has(ReasonHighVibration):
			return "reduce_blast_intensity_in_adjacent_areas"
		default:
			return "increase_monitoring_frequency"
		}
	default:
		return "routine_monitoring"
	}
}
