package client

import (
	"context"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/pkg/models"
)

// FetchEvents performs one authenticated GET /events. It never retries;
// the poll scheduler owns the retry cadence. Errors classify as
// ErrUnauthorized, *NetworkError or anything else (unknown).
func (c *Client) FetchEvents(ctx context.Context, token string) ([]models.Event, error) {
	resp, err := c.authorized(ctx, token).Get("/events")
	if err := checkAuthorized("fetch events", resp, err); err != nil {
		return nil, err
	}

	// Both a bare array and {"events": [...]} are in the wild.
	events, err := models.DecodeEventCollection(resp.Body())
	if err != nil {
		return nil, err
	}
	return events, nil
}
