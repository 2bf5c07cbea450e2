package api

import (
	"context"
	"io"
	"time"

	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/chatclient/internal/errors"
	"github.com/diogo/chatclient/internal/models"
)

// SendBuffered posts the conversation and the new text to /chat and returns
// the complete reply from the "text" field of the JSON response
func (c *Client) SendBuffered(ctx context.Context, history []models.Message, text string) (string, error) {
	start := time.Now()

	resp, log, err := c.post(ctx, "chat", models.PathChat, models.DefaultHeaders(), history, text)
	if err != nil {
		log.Warn().Err(err).Int("status", apierrors.GetHTTPStatus(err)).Msg("chat request failed")
		return "", err
	}
	defer func() {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	endpoint := models.Endpoint(c.host, models.PathChat)
	if resp.Body == nil {
		return "", apierrors.NewTransportError("chat", endpoint, apierrors.ErrNoBody)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn().Err(err).Msg("failed reading chat response")
		return "", apierrors.NewTransportError("chat", endpoint, err)
	}

	reply, err := parseChatResponse(body)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(body)).Msg("invalid chat response")
		return "", apierrors.NewTransportError("chat", endpoint, err)
	}

	log.Info().
		Int("status", resp.StatusCode).
		Int("reply_bytes", len(reply)).
		Dur("duration", time.Since(start)).
		Msg("chat request completed")

	return reply, nil
}

// parseChatResponse extracts the text field of a /chat reply
func parseChatResponse(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", apierrors.ErrInvalidResponse
	}

	text := gjson.GetBytes(body, "text")
	if !text.Exists() || text.Type != gjson.String {
		return "", apierrors.ErrInvalidResponse
	}

	return text.String(), nil
}
