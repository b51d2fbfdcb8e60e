package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"meeting-minutes-go/internal/transcript"
)

const defaultBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls the OpenAI audio transcription endpoint with
// verbose_json output so segment timings come back alongside the text.
type OpenAIClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// NewOpenAIClientWithBaseURL overrides the API host, mainly for tests and
// gateway deployments.
func NewOpenAIClientWithBaseURL(apiKey, model, baseURL string) *OpenAIClient {
	c := NewOpenAIClient(apiKey, model)
	c.baseURL = baseURL
	return c
}

// verboseResponse mirrors the provider's verbose_json shape. Start/End are
// pointers because some responses carry segments without timing.
type verboseResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Start *float64 `json:"start"`
		End   *float64 `json:"end"`
		Text  string   `json:"text"`
	} `json:"segments"`
}

func (c *OpenAIClient) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return Result{}, fmt.Errorf("read audio: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", c.model); err != nil {
		return Result{}, err
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return Result{}, err
	}
	if err := mw.WriteField("temperature", "0"); err != nil {
		return Result{}, err
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return Result{}, err
	}
	if _, err := fw.Write(audio); err != nil {
		return Result{}, err
	}
	if err := mw.Close(); err != nil {
		return Result{}, err
	}

	var parsed verboseResponse
	endpoint := c.baseURL + "/audio/transcriptions"
	if err := c.doJSONRequest(ctx, endpoint, mw.FormDataContentType(), body.Bytes(), &parsed); err != nil {
		return Result{}, fmt.Errorf("transcription request: %w", err)
	}

	return normalize(parsed), nil
}

// normalize converts the duck-typed provider response into one tagged result
// before it enters the pipeline.
func normalize(resp verboseResponse) Result {
	if len(resp.Segments) == 0 {
		return Result{Text: resp.Text}
	}

	segments := make([]transcript.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		seg := transcript.Segment{Text: s.Text}
		if s.Start != nil && s.End != nil {
			seg.Start = *s.Start
			seg.End = *s.End
			seg.Timed = true
		}
		segments = append(segments, seg)
	}
	return Result{Segments: segments}
}

// doJSONRequest posts the payload and decodes the JSON response, retrying
// transport failures and 5xx answers with exponential backoff. Client errors
// (4xx) are returned immediately.
func (c *OpenAIClient) doJSONRequest(ctx context.Context, endpoint, contentType string, payload []byte, target interface{}) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error %d: %s", resp.StatusCode, respBody)
		}
		if resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("http %d: %s", resp.StatusCode, respBody))
		}
		if err := json.Unmarshal(respBody, target); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	return backoff.Retry(operation, backoff.WithContext(bo, ctx))
}
