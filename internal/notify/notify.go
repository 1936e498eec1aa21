package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/budgetwise/budgetwise-api/internal/config"
	"github.com/budgetwise/budgetwise-api/internal/logging"
	log "github.com/sirupsen/logrus"
)

// Mail service endpoints for account lifecycle events.
const (
	PathRegister        = "/mail/register"
	PathPasswordReset   = "/mail/password-reset"
	PathPasswordChanged = "/mail/password-changed"
)

const defaultRequestTimeout = 5 * time.Second

// Notifier queues best-effort notifications.
type Notifier interface {
	Dispatch(path string, payload any)
}

// Dispatcher posts JSON payloads to the mail service.
type Dispatcher struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  log.FieldLogger
	wg      sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher for the configured mail service.
func NewDispatcher(cfg config.MailConfig, logger log.FieldLogger) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Dispatcher{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logging.OrStandard(logger),
	}
}

// Send posts payload to path and reports whether the service answered 200.
// Failures are logged and never returned.
func (d *Dispatcher) Send(ctx context.Context, path string, payload any) bool {
	if d == nil {
		return false
	}
	if d.baseURL == "" {
		d.logger.WithField("path", path).Debug("notify: mail service not configured, skipping")
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	entry := d.logger.WithField("path", path)

	body, err := json.Marshal(payload)
	if err != nil {
		entry.WithError(err).Warn("notify: encode payload failed")
		return false
	}

	requestCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, d.endpoint(path), bytes.NewReader(body))
	if err != nil {
		entry.WithError(err).Warn("notify: build request failed")
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		entry.WithError(err).Warn("notify: request failed")
		return false
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		if errClose := resp.Body.Close(); errClose != nil {
			entry.WithError(errClose).Warn("notify: close response body failed")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		entry.WithField("status", resp.StatusCode).Warn("notify: unexpected status")
		return false
	}
	return true
}

// Dispatch sends in the background so the caller never waits on delivery.
func (d *Dispatcher) Dispatch(path string, payload any) {
	if d == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Send(context.Background(), path, payload)
	}()
}

// Wait blocks until every dispatched notification finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

func (d *Dispatcher) endpoint(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s%s", d.baseURL, path)
}
