// Package healthcheck polls the configured HTTP endpoints for up/down
// status. Structurally a small sibling of the GPU collector: one scheduled
// cycle, concurrent per-URL checks, persisted results, live broadcast.
package healthcheck

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/imroc/req/v3"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/ben458-1/URL-Server-Monitor/dao/model"
)

// URLLister fetches the endpoints with health checking switched on.
type URLLister interface {
	ListEnabled(ctx context.Context) ([]model.URL, error)
}

// StatusWriter persists one check result.
type StatusWriter interface {
	Insert(ctx context.Context, status *model.HealthStatus) error
}

// Publisher fans one update out to live subscribers.
type Publisher interface {
	Publish(message any)
}

// Update is the per-URL message broadcast after each check.
type Update struct {
	Type string     `json:"type"`
	Data UpdateData `json:"data"`
}

type UpdateData struct {
	URLID        uint              `json:"url_id"`
	Status       model.HealthState `json:"status"`
	ResponseTime *int              `json:"response_time"`
	StatusCode   *int              `json:"status_code"`
	CheckedAt    string            `json:"checked_at"`
	ErrorMessage *string           `json:"error_message"`
}

const UpdateType = "health_update"

const maxConcurrentChecks = 16

type Checker struct {
	urls     URLLister
	statuses StatusWriter
	hub      Publisher
	client   *req.Client
}

func NewChecker(urls URLLister, statuses StatusWriter, hub Publisher, timeout time.Duration) *Checker {
	client := req.C().
		SetTimeout(timeout).
		SetRedirectPolicy(req.MaxRedirectPolicy(10))
	return &Checker{
		urls:     urls,
		statuses: statuses,
		hub:      hub,
		client:   client,
	}
}

// RunCycle checks every enabled URL concurrently, persists each result and
// broadcasts it. A failed check or write affects only its own URL.
func (c *Checker) RunCycle(ctx context.Context) error {
	urls, err := c.urls.ListEnabled(ctx)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		klog.V(2).Info("No URLs enabled for health checking")
		return nil
	}
	klog.Infof("Checking %d URLs", len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChecks)
	for i := range urls {
		g.Go(func() error {
			status := c.check(gctx, &urls[i])
			if err := c.statuses.Insert(gctx, status); err != nil {
				klog.Errorf("Storing health status for URL %d: %v", status.URLID, err)
				return nil
			}
			c.hub.Publish(Update{Type: UpdateType, Data: UpdateData{
				URLID:        status.URLID,
				Status:       status.Status,
				ResponseTime: status.ResponseTimeMS,
				StatusCode:   status.StatusCode,
				CheckedAt:    status.CheckedAt.Format(time.RFC3339),
				ErrorMessage: status.ErrorMessage,
			}})
			return nil
		})
	}
	_ = g.Wait()
	return nil
}

// check performs one GET. Only a 200 counts as online; any transport error
// or other status code is offline with a diagnostic message.
func (c *Checker) check(ctx context.Context, url *model.URL) *model.HealthStatus {
	status := &model.HealthStatus{
		URLID:     url.ID,
		Status:    model.HealthOffline,
		CheckedAt: time.Now(),
	}

	started := time.Now()
	resp, err := c.client.R().SetContext(ctx).Get(url.URL)
	latency := int(time.Since(started).Milliseconds())

	if err != nil {
		msg := err.Error()
		status.ErrorMessage = &msg
		klog.Warningf("Health check failed for %s: %v", url.URL, err)
		return status
	}

	code := resp.GetStatusCode()
	status.ResponseTimeMS = &latency
	status.StatusCode = &code
	if code == http.StatusOK {
		status.Status = model.HealthOnline
	} else {
		msg := fmt.Sprintf("HTTP %d", code)
		status.ErrorMessage = &msg
	}
	klog.V(2).Infof("Checked %s: %s (%dms)", url.URL, status.Status, latency)
	return status
}
