package domain

// Grants is the resolved set of data categories the user allows the bridge to touch.
type Grants struct {
	Workouts     bool `json:"workouts"`
	ActiveEnergy bool `json:"activeEnergy"`
	HeartRate    bool `json:"heartRate"`
}

// AllGrants enables every category.
func AllGrants() Grants {
	return Grants{Workouts: true, ActiveEnergy: true, HeartRate: true}
}

// Preferences carries caller-supplied grants where nil means "not specified".
type Preferences struct {
	Workouts     *bool `json:"workouts,omitempty"`
	ActiveEnergy *bool `json:"activeEnergy,omitempty"`
	HeartRate    *bool `json:"heartRate,omitempty"`
}

// Grants resolves the preferences, treating unspecified categories as granted.
func (p Preferences) Grants() Grants {
	return Grants{
		Workouts:     valueOr(p.Workouts, true),
		ActiveEnergy: valueOr(p.ActiveEnergy, true),
		HeartRate:    valueOr(p.HeartRate, true),
	}
}

// WorkoutsDenied reports whether the caller explicitly turned workouts off.
func (p Preferences) WorkoutsDenied() bool {
	return p.Workouts != nil && !*p.Workouts
}

// PreferencesFrom lifts resolved grants back into explicit preferences.
func PreferencesFrom(g Grants) Preferences {
	return Preferences{Workouts: &g.Workouts, ActiveEnergy: &g.ActiveEnergy, HeartRate: &g.HeartRate}
}

func valueOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
