package models

// UploadResult is the answer of POST /classify_upload.
// Both fields may be missing when the classifier found nothing.
type UploadResult struct {
	EventType string `json:"event_type,omitempty"`
	TxHash    string `json:"tx_hash,omitempty"`
}

func (r UploadResult) String() string {
	eventType := r.EventType
	if eventType == "" {
		eventType = "unknown"
	}
	tx := r.TxHash
	if tx == "" {
		tx = "N/A"
	}
	return "Detected event: " + eventType + " (tx: " + tx + ")"
}
