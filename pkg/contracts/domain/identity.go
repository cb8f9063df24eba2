package domain

// MappingRow is one row of the externally supplied identifier-mapping
// table: a cross-wave subject with its optional wave-scoped ids. Nil
// cells mean the subject did not participate in that wave (or the link
// is unknown). Cells may reference ids that never occur in the observed
// data; the resolver filters those before use.
type MappingRow struct {
	Wave2 *SubjectID `json:"wave2_id" db:"wave2_id"`
	Wave3 *SubjectID `json:"wave3_id" db:"wave3_id"`
	Wave4 *SubjectID `json:"wave4_id" db:"wave4_id"`
}

// Demographic is one row of the demographics table.
type Demographic struct {
	Subject SubjectID `json:"subject_id" db:"subject_id"`
	Age     float64   `json:"age" db:"age"`
}
