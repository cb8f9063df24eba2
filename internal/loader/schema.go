package loader

// Schema statically declares the columns a source table must carry.
// Columns are matched by exact (trimmed, case-insensitive) header name;
// any extra columns in the export are ignored. This deliberately avoids
// pattern-matched column selection: an upstream export adding or
// reordering columns can never silently shift a column's meaning.
type Schema struct {
	Name     string
	Required []string
	Optional []string
}

// Column names shared across the study's tabular exports.
const (
	ColSubjectID   = "subject_id"
	ColDate        = "date"
	ColAnxiety     = "anxiety_score"
	ColTotalUnlock = "total_unlock_minutes"
	ColHomeUnlock  = "home_unlock_minutes"
	ColTimeAtHome  = "time_at_home_minutes"
	ColWave2ID     = "wave2_id"
	ColWave3ID     = "wave3_id"
	ColWave4ID     = "wave4_id"
	ColAge         = "age"
)

// SurveySchema describes the per-wave survey table.
var SurveySchema = Schema{
	Name:     "survey",
	Required: []string{ColSubjectID, ColDate, ColAnxiety},
}

// UsageSchema describes the per-wave phone-usage table. Other
// location-conditioned unlock durations present in the export are
// ignored due to high missingness.
var UsageSchema = Schema{
	Name:     "usage",
	Required: []string{ColSubjectID, ColDate, ColTotalUnlock, ColHomeUnlock},
}

// LocationSchema describes the per-wave location table. The export also
// carries alternate_time_at_home_minutes, a second measurement of the
// same quantity; it is ignored.
var LocationSchema = Schema{
	Name:     "location",
	Required: []string{ColSubjectID, ColDate, ColTimeAtHome},
}

// MappingSchema describes the cross-wave identifier-mapping table.
var MappingSchema = Schema{
	Name:     "mapping",
	Required: []string{ColWave2ID, ColWave3ID, ColWave4ID},
}

// DemographicsSchema describes the demographics table.
var DemographicsSchema = Schema{
	Name:     "demographics",
	Required: []string{ColSubjectID, ColAge},
}
