package model

// Work record types
const (
	RecordAnalysis   = "analysis"
	RecordPrediction = "prediction"
)

// UserInfo represents a backend user
type UserInfo struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
}

// WorkRecord is a saved pointer to a past analysis or prediction result.
// DatasetID is optional; older records only carry ResultID.
type WorkRecord struct {
	RecordID    string    `json:"record_id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	DatasetName string    `json:"dataset_name"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
	ResultID    string    `json:"result_id"`
	DatasetID   string    `json:"dataset_id,omitempty"`
}

// Ack is the acknowledgement body of mutating user endpoints.
type Ack struct {
	Message string `json:"message"`
}
