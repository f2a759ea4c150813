package entity

// QualityType is an admin-defined quality tier, e.g. "Good" = 80%
type QualityType struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Percentage  float64 `json:"percentage"`
	Description string  `json:"description,omitempty"`
}

// PriorityType is a task urgency tier applied multiplicatively to the quality score
type PriorityType struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Multiplier  float64 `json:"multiplier"`
	Description string  `json:"description,omitempty"`
}
