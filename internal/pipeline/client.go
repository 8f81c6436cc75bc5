package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"docutrain/admin/internal/session"
)

var ErrBackpressure = errors.New("pipeline backpressure")

// APIError is a non-2xx response from the pipeline service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pipeline api error (%d): %s", e.StatusCode, e.Message)
}

// Client wraps the remote processing REST API. The caller's session is an
// explicit parameter on every call; the client holds no ambient credentials.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sleep      func(time.Duration)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSleep overrides the retry delay function. Tests use this to avoid
// real waits.
func WithSleep(fn func(time.Duration)) Option {
	return func(c *Client) { c.sleep = fn }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RetrainText submits replacement text content for a document and returns
// the pipeline's user_document_id for status tracking.
func (c *Client) RetrainText(ctx context.Context, sess *session.Session, documentID, content string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"document_id": documentID,
		"content":     content,
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		UserDocumentID string `json:"user_document_id"`
	}
	if err := c.do(ctx, sess, http.MethodPost, "/api/retrain-document-text", "application/json", bytes.NewReader(body), &resp); err != nil {
		return "", err
	}
	return resp.UserDocumentID, nil
}

// RetrainFile submits a replacement PDF for a document. The reader is
// streamed as multipart form data.
func (c *Client) RetrainFile(ctx context.Context, sess *session.Session, documentID, filename string, file io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("document_id", documentID); err != nil {
		return "", err
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var resp struct {
		UserDocumentID string `json:"user_document_id"`
	}
	if err := c.do(ctx, sess, http.MethodPost, "/api/retrain-document", mw.FormDataContentType(), &buf, &resp); err != nil {
		return "", err
	}
	return resp.UserDocumentID, nil
}

// Process triggers server-side processing of an uploaded document. On 503
// the server supplies retry_after (seconds); the client retries exactly
// once after that delay, then gives up with ErrBackpressure.
func (c *Client) Process(ctx context.Context, sess *session.Session, userDocumentID string) error {
	body, err := json.Marshal(map[string]string{"user_document_id": userDocumentID})
	if err != nil {
		return err
	}

	retryAfter, err := c.process(ctx, sess, body)
	if err == nil || !errors.Is(err, ErrBackpressure) {
		return err
	}

	slog.InfoContext(ctx, "pipeline busy, scheduling one retry", "user_document_id", userDocumentID, "retry_after_secs", retryAfter)
	c.sleep(time.Duration(retryAfter) * time.Second)

	if _, err := c.process(ctx, sess, body); err != nil {
		return err
	}
	return nil
}

func (c *Client) process(ctx context.Context, sess *session.Session, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/process-document", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sess.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		var busy struct {
			RetryAfter int `json:"retry_after"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&busy); err != nil || busy.RetryAfter <= 0 {
			busy.RetryAfter = 5
		}
		return busy.RetryAfter, ErrBackpressure
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, decodeAPIError(resp)
	}
	return 0, nil
}

// Status fetches the job state and full log history for a document.
func (c *Client) Status(ctx context.Context, sess *session.Session, userDocumentID string) (*StatusReport, error) {
	var report StatusReport
	if err := c.do(ctx, sess, http.MethodGet, "/api/processing-status/"+userDocumentID, "", nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListDocuments fetches all processing jobs visible to the session's user.
func (c *Client) ListDocuments(ctx context.Context, sess *session.Session) ([]Job, error) {
	var resp struct {
		Documents []Job `json:"documents"`
	}
	if err := c.do(ctx, sess, http.MethodGet, "/api/user-documents", "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

func (c *Client) do(ctx context.Context, sess *session.Session, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+sess.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode pipeline response: %w", err)
		}
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Error.Message != "" {
			apiErr.Code = body.Error.Code
			apiErr.Message = body.Error.Message
		} else if body.Message != "" {
			apiErr.Message = body.Message
		}
	}
	return apiErr
}
