package ppg

// ArousalLevel buckets a heart rate for wellness feedback. It is advisory and
// carries no diagnostic meaning.
type ArousalLevel string

const (
	LevelCalm        ArousalLevel = "calm"
	LevelNormal      ArousalLevel = "normal"
	LevelAlert       ArousalLevel = "alert"
	LevelAnxious     ArousalLevel = "anxious"
	LevelVeryAnxious ArousalLevel = "very_anxious"
)

// Activity is a relaxation resource offered to the user.
type Activity string

const (
	ActivityBreathing Activity = "breathing"
	ActivitySounds    Activity = "sounds"
	ActivityLibrary   Activity = "library"
	ActivityExercises Activity = "exercises"
)

// WellnessAssessment describes the arousal level of a reading.
type WellnessAssessment struct {
	Level       ArousalLevel `json:"level"`
	Label       string       `json:"label"`
	Suggestion  string       `json:"suggestion"`
	Activities  []Activity   `json:"activities"`
	RangeMinBPM int          `json:"rangeMinBpm"`
	RangeMaxBPM int          `json:"rangeMaxBpm"`
}

var wellnessLevels = []WellnessAssessment{
	{
		Level:       LevelCalm,
		Label:       "Calm",
		Suggestion:  "Your heart rate is very calm. A good moment to meditate.",
		Activities:  []Activity{ActivityLibrary, ActivitySounds},
		RangeMinBPM: 60,
		RangeMaxBPM: 80,
	},
	{
		Level:       LevelNormal,
		Label:       "Normal",
		Suggestion:  "Your heart rate is in a normal range.",
		Activities:  []Activity{ActivityExercises, ActivitySounds},
		RangeMinBPM: 81,
		RangeMaxBPM: 100,
	},
	{
		Level:       LevelAlert,
		Label:       "Alert",
		Suggestion:  "Your heart rate is slightly elevated. Consider a breathing exercise.",
		Activities:  []Activity{ActivityBreathing, ActivitySounds},
		RangeMinBPM: 101,
		RangeMaxBPM: 120,
	},
	{
		Level:       LevelAnxious,
		Label:       "Anxious",
		Suggestion:  "Signs of anxiety detected. Try one of the relaxation exercises.",
		Activities:  []Activity{ActivityBreathing, ActivityExercises},
		RangeMinBPM: 121,
		RangeMaxBPM: 140,
	},
	{
		Level:       LevelVeryAnxious,
		Label:       "Very anxious",
		Suggestion:  "High anxiety level. Time for an immediate calming technique.",
		Activities:  []Activity{ActivityBreathing},
		RangeMinBPM: 141,
		RangeMaxBPM: 200,
	},
}

// AssessWellness maps a BPM to its arousal level. Rates outside every range,
// such as a resting rate below 60, are reported as normal.
func AssessWellness(bpm int) WellnessAssessment {
	for _, level := range wellnessLevels {
		if bpm >= level.RangeMinBPM && bpm <= level.RangeMaxBPM {
			return cloneAssessment(level)
		}
	}
	return cloneAssessment(wellnessLevels[1])
}

func cloneAssessment(a WellnessAssessment) WellnessAssessment {
	a.Activities = append([]Activity(nil), a.Activities...)
	return a
}
