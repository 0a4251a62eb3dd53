package healthcheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ben458-1/URL-Server-Monitor/dao/model"
)

type fakeLister struct {
	urls []model.URL
	err  error
}

func (l *fakeLister) ListEnabled(_ context.Context) ([]model.URL, error) {
	return l.urls, l.err
}

type fakeWriter struct {
	mu       sync.Mutex
	statuses []*model.HealthStatus
	err      error
}

func (w *fakeWriter) Insert(_ context.Context, status *model.HealthStatus) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.statuses = append(w.statuses, status)
	return nil
}

func (w *fakeWriter) byURL(id uint) *model.HealthStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.statuses {
		if s.URLID == id {
			return s
		}
	}
	return nil
}

type fakeHub struct {
	mu       sync.Mutex
	messages []any
}

func (h *fakeHub) Publish(message any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, message)
}

func monitoredURL(id uint, target string) model.URL {
	u := model.URL{URL: target, HealthCheckEnabled: true}
	u.ID = id
	return u
}

func TestRunCycleRecordsOnlineAndOffline(t *testing.T) {
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okSrv.Close()
	failSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failSrv.Close()

	lister := &fakeLister{urls: []model.URL{
		monitoredURL(1, okSrv.URL),
		monitoredURL(2, failSrv.URL),
	}}
	writer := &fakeWriter{}
	hub := &fakeHub{}
	checker := NewChecker(lister, writer, hub, 2*time.Second)

	require.NoError(t, checker.RunCycle(context.Background()))
	require.Len(t, writer.statuses, 2)

	online := writer.byURL(1)
	require.NotNil(t, online)
	assert.Equal(t, model.HealthOnline, online.Status)
	require.NotNil(t, online.StatusCode)
	assert.Equal(t, http.StatusOK, *online.StatusCode)
	assert.NotNil(t, online.ResponseTimeMS)
	assert.Nil(t, online.ErrorMessage)

	offline := writer.byURL(2)
	require.NotNil(t, offline)
	assert.Equal(t, model.HealthOffline, offline.Status)
	require.NotNil(t, offline.ErrorMessage)
	assert.Equal(t, "HTTP 502", *offline.ErrorMessage)

	assert.Len(t, hub.messages, 2)
}

func TestUnreachableHostIsOfflineWithMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // free the port, nothing listens there now

	lister := &fakeLister{urls: []model.URL{monitoredURL(1, srv.URL)}}
	writer := &fakeWriter{}
	checker := NewChecker(lister, writer, &fakeHub{}, time.Second)

	require.NoError(t, checker.RunCycle(context.Background()))
	require.Len(t, writer.statuses, 1)

	status := writer.statuses[0]
	assert.Equal(t, model.HealthOffline, status.Status)
	assert.Nil(t, status.StatusCode)
	require.NotNil(t, status.ErrorMessage)
	assert.NotEmpty(t, *status.ErrorMessage)
}

func TestStoreFailureSuppressesBroadcast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	lister := &fakeLister{urls: []model.URL{monitoredURL(1, srv.URL)}}
	writer := &fakeWriter{err: errors.New("insert failed")}
	hub := &fakeHub{}
	checker := NewChecker(lister, writer, hub, time.Second)

	require.NoError(t, checker.RunCycle(context.Background()))
	assert.Empty(t, hub.messages, "unpersisted results must not be broadcast")
}

func TestListFailurePropagates(t *testing.T) {
	checker := NewChecker(&fakeLister{err: errors.New("db down")}, &fakeWriter{}, &fakeHub{}, time.Second)
	require.Error(t, checker.RunCycle(context.Background()))
}
