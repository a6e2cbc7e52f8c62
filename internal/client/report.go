package client

import (
	"context"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/pkg/models"
)

// ReportEvent logs a detected event with POST /event. The backend anchors the
// hash on the ledger and answers with the transaction hash.
func (c *Client) ReportEvent(ctx context.Context, token string, report models.EventReport) (*models.ReportResult, error) {
	var result models.ReportResult
	resp, err := c.authorized(ctx, token).
		SetHeader("Content-Type", "application/json").
		SetBody(report).
		SetResult(&result).
		Post("/event")

	if err := checkAuthorized("report event", resp, err); err != nil {
		return nil, err
	}

	if !result.OK() {
		detail := result.Message
		if detail == "" {
			detail = "backend rejected the event"
		}
		return nil, &ServerError{Op: "report event", StatusCode: resp.StatusCode(), Detail: detail}
	}

	return &result, nil
}
