package queue

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	TaskNameHeader  = "X-Task-Name"
	TaskTokenHeader = "X-Task-Token"
)

// HTTPTaskDeliverer posts queued events to the internal task endpoint.
type HTTPTaskDeliverer struct {
	client    *resty.Client
	url       string
	queueName string
	token     string
}

func NewHTTPTaskDeliverer(url, queueName, token string, timeout time.Duration) *HTTPTaskDeliverer {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &HTTPTaskDeliverer{
		client:    client,
		url:       url,
		queueName: queueName,
		token:     token,
	}
}

func (d *HTTPTaskDeliverer) Deliver(ctx context.Context, event domain.ConsumptionEvent) error {
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader(TaskNameHeader, d.queueName+"-"+event.EventID).
		SetHeader(TaskTokenHeader, d.token).
		SetBody(event).
		Post(d.url)
	if err != nil {
		return fmt.Errorf("post task: %w", err)
	}

	switch code := resp.StatusCode(); {
	case resp.IsSuccess():
		return nil
	case code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout:
		return fmt.Errorf("%w: status %d: %s", domain.ErrTaskRejected, code, resp.String())
	default:
		return fmt.Errorf("task endpoint returned status %d", code)
	}
}
