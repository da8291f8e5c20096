package entry

type CreateEventDTO struct {
	// ID is optional; re-imports carry their exported ids, fresh entries
	// leave it blank and get a generated one.
	ID       string                 `json:"id"`
	Type     string                 `json:"type"    binding:"required"`
	Context  string                 `json:"context" binding:"required"`
	Emotion  string                 `json:"emotion"`
	Tags     []string               `json:"tags"`
	MetaData map[string]interface{} `json:"meta_data"`
}

type ReviewDTO struct {
	Reflection    string  `json:"reflection" binding:"required"`
	ActualOutcome *string `json:"actual_outcome"`
}
