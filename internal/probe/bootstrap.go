package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPSeed bootstraps the candidate relay set from a published seed list:
// a JSON array of urls, or an object with a "relays" array.
type HTTPSeed struct {
	url    string
	static []string
	client *http.Client
	log    *zap.Logger
}

func NewHTTPSeed(url string, static []string, timeout time.Duration, log *zap.Logger) *HTTPSeed {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSeed{
		url:    url,
		static: static,
		client: &http.Client{Timeout: timeout},
		log:    log.With(zap.String("component", "bootstrap")),
	}
}

func (s *HTTPSeed) Bootstrap(ctx context.Context, daemon string) ([]string, time.Time, error) {
	now := time.Now().UTC()
	if s.url == "" {
		return s.static, now, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, now, fmt.Errorf("seed request: %w", err)
	}
	req.Header.Set("User-Agent", daemon)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, now, fmt.Errorf("fetch seed list: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, now, fmt.Errorf("fetch seed list: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, now, fmt.Errorf("read seed list: %w", err)
	}

	urls, err := parseSeedList(body)
	if err != nil {
		return nil, now, err
	}
	s.log.Info("bootstrapped seed list", zap.Int("candidates", len(urls)))
	return append(urls, s.static...), now, nil
}

func parseSeedList(body []byte) ([]string, error) {
	var urls []string
	if err := json.Unmarshal(body, &urls); err == nil {
		return urls, nil
	}
	var wrapped struct {
		Relays []string `json:"relays"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("parse seed list: %w", err)
	}
	return wrapped.Relays, nil
}
