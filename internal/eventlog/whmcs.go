package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// WHMCSSink posts records to the billing system's activity log through the
// LogActivity API action.
type WHMCSSink struct {
	apiURL     string
	identifier string
	secret     string
	client     *http.Client
	logger     zerolog.Logger
}

// NewWHMCSSink creates a WHMCSSink for the API endpoint at apiURL
// (normally https://billing.example/includes/api.php).
func NewWHMCSSink(apiURL, identifier, secret string, logger zerolog.Logger) *WHMCSSink {
	return &WHMCSSink{
		apiURL:     apiURL,
		identifier: identifier,
		secret:     secret,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("component", "eventlog-whmcs").Logger(),
	}
}

type whmcsResponse struct {
	Result  string `json:"result"`
	Message string `json:"message"`
}

func (s *WHMCSSink) Record(ctx context.Context, serviceID int, message string) {
	if err := s.send(ctx, serviceID, message); err != nil {
		s.logger.Warn().Err(err).Int("service_id", serviceID).Msg("failed to write billing activity log")
	}
}

func (s *WHMCSSink) send(ctx context.Context, serviceID int, message string) error {
	form := url.Values{}
	form.Set("action", "LogActivity")
	form.Set("identifier", s.identifier)
	form.Set("secret", s.secret)
	form.Set("responsetype", "json")
	form.Set("description", Format(serviceID, message))
	if serviceID != 0 {
		form.Set("serviceid", strconv.Itoa(serviceID))
	}

	// Activity log writes outlive a cancelled workflow context.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create LogActivity request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("LogActivity POST: %w", err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("LogActivity returned %d", resp.StatusCode)
	}

	var out whmcsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return fmt.Errorf("decode LogActivity response: %w", err)
	}
	if out.Result != "success" {
		return fmt.Errorf("LogActivity result %q: %s", out.Result, out.Message)
	}
	return nil
}
