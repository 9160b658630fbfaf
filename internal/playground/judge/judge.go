// Package judge runs playground code through a Judge0-compatible
// execution service: submit base64-encoded source, then poll the
// submission token until the run leaves the queue.
package judge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"buggfix/internal/domain"
)

var (
	ErrUnsupportedLanguage = errors.New("language not supported by the execution service")

	// ErrPollTimeout is returned when a submission is still queued or
	// running after the configured number of polls.
	ErrPollTimeout = errors.New("execution timed out waiting for a result")
)

// languageIDs maps playground languages to Judge0 language ids.
var languageIDs = map[domain.Language]int{
	domain.LanguageCpp:        54,
	domain.LanguageJava:       91,
	domain.LanguagePython:     92,
	domain.LanguageJavascript: 93,
}

// Submission queue/terminal status ids. Anything above statusRunning is
// terminal; statusAccepted means the run completed normally.
const (
	statusInQueue  = 1
	statusRunning  = 2
	statusAccepted = 3
)

// Result is the outcome of one execution.
type Result struct {
	Output string // stdout on success, stderr or compiler output otherwise
	Status string // human-readable status from the service
	OK     bool
}

type Client struct {
	baseURL      string
	apiKey       string
	http         *http.Client
	pollInterval time.Duration
	maxPolls     int
}

func NewClient(baseURL, apiKey string, pollInterval time.Duration, maxPolls int) *Client {
	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		http:         &http.Client{Timeout: 30 * time.Second},
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
	}
}

type submitRequest struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin,omitempty"`
}

type submitResponse struct {
	Token string `json:"token"`
}

type submissionStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type submissionResponse struct {
	Stdout        string           `json:"stdout"`
	Stderr        string           `json:"stderr"`
	CompileOutput string           `json:"compile_output"`
	Status        submissionStatus `json:"status"`
}

// Run submits code and polls until a terminal status or the poll limit
// is reached. On a normal completion the Result carries stdout; on any
// other terminal status it carries stderr (or the compiler output when
// stderr is empty).
func (c *Client) Run(ctx context.Context, code string, language domain.Language, stdin string) (*Result, error) {
	languageID, ok := languageIDs[language]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}

	token, err := c.submit(ctx, code, languageID, stdin)
	if err != nil {
		return nil, err
	}

	for i := 0; i < c.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		sub, err := c.fetch(ctx, token)
		if err != nil {
			return nil, err
		}
		if sub.Status.ID == statusInQueue || sub.Status.ID == statusRunning {
			continue
		}

		result := &Result{
			Status: sub.Status.Description,
			OK:     sub.Status.ID == statusAccepted,
		}
		if result.OK {
			result.Output = sub.Stdout
		} else if sub.Stderr != "" {
			result.Output = sub.Stderr
		} else {
			result.Output = sub.CompileOutput
		}
		return result, nil
	}

	return nil, ErrPollTimeout
}

func (c *Client) submit(ctx context.Context, code string, languageID int, stdin string) (string, error) {
	body, err := json.Marshal(submitRequest{
		SourceCode: base64.StdEncoding.EncodeToString([]byte(code)),
		LanguageID: languageID,
		Stdin:      base64.StdEncoding.EncodeToString([]byte(stdin)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode submission: %w", err)
	}

	url := c.baseURL + "/submissions?base64_encoded=true&wait=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build submission request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("submission rejected with status %d", resp.StatusCode)
	}

	var submitted submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return "", fmt.Errorf("invalid submission response: %w", err)
	}
	if submitted.Token == "" {
		return "", errors.New("submission response had no token")
	}
	return submitted.Token, nil
}

func (c *Client) fetch(ctx context.Context, token string) (*submissionResponse, error) {
	url := c.baseURL + "/submissions/" + token + "?base64_encoded=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build poll request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll rejected with status %d", resp.StatusCode)
	}

	var raw submissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid poll response: %w", err)
	}

	// Output fields come back base64-encoded; the status does not.
	for _, field := range []*string{&raw.Stdout, &raw.Stderr, &raw.CompileOutput} {
		decoded, err := base64.StdEncoding.DecodeString(*field)
		if err != nil {
			continue
		}
		*field = string(decoded)
	}
	return &raw, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
	}
}
