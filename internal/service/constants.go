package service

const (
	// Days of activity before the first week that still count toward streaks
	DefaultStreakLookbackDays = 60

	// Sync phases
	PhaseFetch      = "fetch"
	PhaseAthletes   = "athletes"
	PhaseActivities = "activities"
	PhaseHRZones    = "hr_zones"
)
