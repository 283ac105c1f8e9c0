package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskwarden/backend/internal/config"
	"github.com/taskwarden/backend/usecase"
)

// Client posts deadline warnings to the external notification dispatch API.
type Client struct {
	http    *fasthttp.Client
	url     string
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient builds a dispatch client from configuration.
func NewClient(cfg config.NotifyConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		http: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		url:     cfg.URL,
		timeout: timeout,
		logger:  logger,
	}
}

// payload is the wire shape expected by the dispatch endpoint. The deadline
// travels as a plain calendar date.
type payload struct {
	Email     string `json:"email"`
	TaskTitle string `json:"taskTitle"`
	Deadline  string `json:"deadline"`
	Message   string `json:"message"`
}

// Send delivers a single warning. Context deadlines shorter than the client
// timeout win.
func (c *Client) Send(ctx context.Context, warning usecase.DeadlineWarning) error {
	body, err := json.Marshal(payload{
		Email:     warning.Email,
		TaskTitle: warning.TaskTitle,
		Deadline:  warning.Deadline.Format("2006-01-02"),
		Message:   warning.Message,
	})
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return err
	}

	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return fmt.Errorf("notification dispatch returned status %d", status)
	}

	c.logger.Debug("notification dispatched",
		zap.String("task_id", warning.TaskID),
		zap.String("email", warning.Email))
	return nil
}

var _ usecase.Notifier = (*Client)(nil)
