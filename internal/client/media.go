package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"
)

// maxFrameBytes caps a single live frame read.
const maxFrameBytes = 16 << 20

// LiveFrame grabs one JPEG frame from GET /live_feed. The endpoint streams
// multipart/x-mixed-replace forever, so only the first part is read before
// the stream is closed. A plain image response is returned as is.
func (c *Client) LiveFrame(ctx context.Context) ([]byte, error) {
	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetHeader("Accept", "multipart/x-mixed-replace, image/jpeg").
		SetDoNotParseResponse(true).
		Get("/live_feed")

	if err != nil {
		return nil, transportError("live feed", resp, err)
	}

	body := resp.RawBody()
	if body == nil {
		return nil, errors.New("live feed: empty response")
	}
	defer body.Close()

	if resp.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(body, 4096))
		return nil, &ServerError{Op: "live feed", StatusCode: resp.StatusCode(), Detail: strings.TrimSpace(string(msg))}
	}

	return readFirstFrame(resp.Header().Get("Content-Type"), body)
}

func readFirstFrame(contentType string, body io.Reader) ([]byte, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		data, err := io.ReadAll(io.LimitReader(body, maxFrameBytes))
		if err != nil {
			return nil, fmt.Errorf("read frame: %w", err)
		}
		if len(data) == 0 {
			return nil, errors.New("response body is empty")
		}
		return data, nil
	}

	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("live feed: %s without boundary", mediaType)
	}

	part, err := multipart.NewReader(body, boundary).NextPart()
	if err != nil {
		return nil, fmt.Errorf("read first frame: %w", err)
	}
	defer part.Close()

	data, err := io.ReadAll(io.LimitReader(part, maxFrameBytes))
	if err != nil {
		return nil, fmt.Errorf("read first frame: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("first frame is empty")
	}
	return data, nil
}
