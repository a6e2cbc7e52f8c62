package models

// EventReport is the body of POST /event, sent by detectors that already
// know what they saw. Hash is the hex SHA-256 of the encrypted clip.
type EventReport struct {
	CameraID   string  `json:"camera_id" validate:"required"`
	EventType  string  `json:"event_type" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	StartTime  string  `json:"start_time" validate:"required"`
	EndTime    string  `json:"end_time"`
	ClipPath   string  `json:"clip_path"`
	EncPath    string  `json:"enc_path"`
	Hash       string  `json:"hash" validate:"required,hexadecimal,len=64"`
}

// ReportResult is the answer to POST /event. The backend reports ledger
// failures as status "error" with a 200.
type ReportResult struct {
	Status  string `json:"status"`
	TxHash  string `json:"tx_hash,omitempty"`
	Message string `json:"message,omitempty"`
}

func (r ReportResult) OK() bool {
	return r.Status == "success"
}
