package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type ExpoConfig struct {
	ExpoBaseURL     string
	ExpoAccessToken string
}

// ExpoRepository delivers push notifications through the Expo push API,
// which fronts APNs and FCM for the mobile app.
type ExpoRepository struct {
	expoConfig ExpoConfig
	client     *http.Client
}

func NewExpoRepository(cfg ExpoConfig) *ExpoRepository {
	return &ExpoRepository{
		expoConfig: cfg,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type pushMessage struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound,omitempty"`
}

type pushTicket struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

type pushResponse struct {
	Data   []pushTicket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (r *ExpoRepository) SendPush(ctx context.Context, token, title, body string) error {
	url := r.expoConfig.ExpoBaseURL + "/--/api/v2/push/send"

	payloadByte, err := json.Marshal([]pushMessage{{
		To:    token,
		Title: title,
		Body:  body,
		Sound: "default",
	}})
	if err != nil {
		return fmt.Errorf("failed to marshal json payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payloadByte))
	if err != nil {
		return err
	}

	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	if r.expoConfig.ExpoAccessToken != "" {
		req.Header.Add("Authorization", "Bearer "+r.expoConfig.ExpoAccessToken)
	}

	res, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(res.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("failed to read push response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("push service return negative response %v", res.StatusCode)
	}

	var parsed pushResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return fmt.Errorf("failed to decode push response: %w", err)
	}

	if len(parsed.Errors) > 0 {
		return fmt.Errorf("push service error %s: %s", parsed.Errors[0].Code, parsed.Errors[0].Message)
	}

	for _, ticket := range parsed.Data {
		if ticket.Status != "ok" {
			return fmt.Errorf("push ticket rejected: %s", ticket.Message)
		}
	}

	return nil
}
