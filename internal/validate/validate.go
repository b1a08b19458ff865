package validate

import "fmt"

// Text field length limits — single source of truth for API and clients.
const (
	MaxProjectNameLength  = 200
	MaxMoodLength         = 100
	MaxTitleHintLength    = 300
	MaxNotesLength        = 2000
	MaxNicheLength        = 100
	MaxMaturityHintLength = 100
	MaxStageLength        = 50
	MaxGrowthGoalLength   = 500
	MaxFilenameLength     = 255
)

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func ProjectName(s string) string  { return checkLen(s, MaxProjectNameLength, "project name") }
func Mood(s string) string         { return checkLen(s, MaxMoodLength, "mood") }
func TitleHint(s string) string    { return checkLen(s, MaxTitleHintLength, "title hint") }
func Notes(s string) string        { return checkLen(s, MaxNotesLength, "notes") }
func Niche(s string) string        { return checkLen(s, MaxNicheLength, "niche") }
func MaturityHint(s string) string { return checkLen(s, MaxMaturityHintLength, "maturity hint") }
func Stage(s string) string        { return checkLen(s, MaxStageLength, "stage") }
func GrowthGoal(s string) string   { return checkLen(s, MaxGrowthGoalLength, "growth goal") }
func Filename(s string) string     { return checkLen(s, MaxFilenameLength, "filename") }

// FieldLimits returns field-to-limit pairs for the /api/limits endpoint.
func FieldLimits() map[string]int {
	return map[string]int{
		"projectName":  MaxProjectNameLength,
		"mood":         MaxMoodLength,
		"titleHint":    MaxTitleHintLength,
		"notes":        MaxNotesLength,
		"niche":        MaxNicheLength,
		"maturityHint": MaxMaturityHintLength,
		"stage":        MaxStageLength,
		"growthGoal":   MaxGrowthGoalLength,
		"filename":     MaxFilenameLength,
	}
}
