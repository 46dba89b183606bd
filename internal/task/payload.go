package task

// ItineraryPayload is the input of an itinerary task.
type ItineraryPayload struct {
	Emotion           string `json:"emotion" validate:"max=100"`
	Preferences       string `json:"preferences" validate:"max=500"`
	Location          string `json:"location" validate:"required,max=200"`
	AdditionalContext string `json:"additional_context,omitempty" validate:"max=1000"`
}

// ChallengeProgress describes one challenge in a monthly report.
type ChallengeProgress struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title,omitempty"`
	Completed bool   `json:"completed"`
	Current   int    `json:"current"`
	Goal      int    `json:"goal"`
}

// ReportPayload is the input of a monthly report summary task.
type ReportPayload struct {
	Month                string              `json:"month" validate:"required,datetime=2006-01"`
	VisitCount           int                 `json:"visit_count" validate:"gte=0"`
	TopTags              []string            `json:"top_tags,omitempty"`
	EmotionStats         map[string]int      `json:"emotion_stats,omitempty"`
	ChallengeProgress    []ChallengeProgress `json:"challenge_progress,omitempty"`
	CouplePreferenceTags []string            `json:"couple_preference_tags,omitempty"`
	CoupleEmotionGoals   []string            `json:"couple_emotion_goals,omitempty"`
	CoupleBudget         *int                `json:"couple_budget,omitempty"`
	PlanEmotionGoals     []string            `json:"plan_emotion_goals,omitempty"`
	Notes                string              `json:"notes,omitempty" validate:"max=2000"`
}
