package client

import (
	"context"
	"io"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/pkg/models"
)

// ClassifyUpload sends a clip to POST /classify_upload as multipart form
// data (camera_id, file) and returns the classification.
func (c *Client) ClassifyUpload(ctx context.Context, token, cameraID, fileName string, file io.Reader) (*models.UploadResult, error) {
	if file == nil {
		return nil, &ValidationError{Field: "file", Reason: "no file selected"}
	}

	var result models.UploadResult
	resp, err := c.authorized(ctx, token).
		SetFormData(map[string]string{"camera_id": cameraID}).
		SetFileReader("file", fileName, file).
		SetResult(&result).
		Post("/classify_upload")

	if err := checkAuthorized("classify upload", resp, err); err != nil {
		return nil, err
	}

	return &result, nil
}
