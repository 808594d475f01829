package dto

// FieldAggregate holds the computed totals for one numeric field of a
// definition's structure.
type FieldAggregate struct {
	FieldID string  `json:"field_id"`
	Label   string  `json:"label"`
	Unit    string  `json:"unit,omitempty"`
	Sum     float64 `json:"sum"`
	Avg     float64 `json:"avg"`
	Count   int     `json:"count"`
}

// AggregationResult is the aggregate view over the submitted and approved
// submissions of a definition.
type AggregationResult struct {
	ReportDefinitionID string           `json:"report_definition_id"`
	DefinitionName     string           `json:"definition_name"`
	PeriodType         string           `json:"period_type"`
	SubmissionCount    int              `json:"submission_count"`
	Fields             []FieldAggregate `json:"fields"`
}
