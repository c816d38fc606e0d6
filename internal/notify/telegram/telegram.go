// Package telegram delivers notifications through the Telegram Bot API.
// The pixgate user id doubles as the Telegram chat id.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lumapag/pixgate/internal/notify"
	"go.uber.org/zap"
)

const (
	apiBaseURL     = "https://api.telegram.org"
	requestTimeout = 15 * time.Second
)

type Sink struct {
	token   string
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewSink(token string, log *zap.Logger) *Sink {
	return &Sink{
		token:   strings.TrimSpace(token),
		baseURL: apiBaseURL,
		client:  &http.Client{Timeout: requestTimeout},
		log:     log.Named("notify.telegram"),
	}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (s *Sink) Notify(ctx context.Context, userID, text string, image *notify.Image) error {
	if image == nil {
		return s.sendMessage(ctx, userID, text)
	}

	switch image.Kind {
	case notify.ImageInline:
		return s.sendPhotoBytes(ctx, userID, text, image.Bytes)
	case notify.ImageRemote:
		return s.sendPhotoURL(ctx, userID, text, image.URL)
	default:
		return fmt.Errorf("unsupported image kind %q", image.Kind)
	}
}

func (s *Sink) sendMessage(ctx context.Context, chatID, text string) error {
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", text)
	return s.post(ctx, "sendMessage", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

func (s *Sink) sendPhotoURL(ctx context.Context, chatID, caption, photoURL string) error {
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("caption", caption)
	form.Set("photo", photoURL)
	return s.post(ctx, "sendPhoto", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

func (s *Sink) sendPhotoBytes(ctx context.Context, chatID, caption string, photo []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("chat_id", chatID); err != nil {
		return err
	}
	if err := writer.WriteField("caption", caption); err != nil {
		return err
	}
	part, err := writer.CreateFormFile("photo", "qr.png")
	if err != nil {
		return err
	}
	if _, err := part.Write(photo); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	return s.post(ctx, "sendPhoto", writer.FormDataContentType(), &body)
}

func (s *Sink) post(ctx context.Context, method, contentType string, body io.Reader) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", s.baseURL, s.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("telegram %s: decode response: %w", method, err)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram %s: %s", method, parsed.Description)
	}
	return nil
}
