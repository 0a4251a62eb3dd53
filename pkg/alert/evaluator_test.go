package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ben458-1/URL-Server-Monitor/dao/model"
)

type fakeStore struct {
	last    *model.Alert
	lastErr error

	recorded  []*model.Alert
	recordErr error
}

func (s *fakeStore) LastAlert(_ context.Context, _ uint, _ int) (*model.Alert, error) {
	return s.last, s.lastErr
}

func (s *fakeStore) Record(_ context.Context, a *model.Alert) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.recorded = append(s.recorded, a)
	return nil
}

type fakeMailer struct {
	sent []string // subjects, in dispatch order
	body string
	err  error
}

func (m *fakeMailer) SendPlainText(_ []string, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, subject)
	m.body = body
	return nil
}

var testNow = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestEvaluator(store *fakeStore, mailer *fakeMailer) *Evaluator {
	e := NewEvaluator(store, mailer, 5*time.Minute)
	e.now = func() time.Time { return testNow }
	return e
}

func reading() GPUReading {
	return GPUReading{
		ServerID:       3,
		ServerName:     "gpu-node-1",
		ServerIP:       "10.0.0.5",
		GPUIndex:       0,
		GPUName:        "NVIDIA A100",
		MemoryUsedMiB:  90,
		MemoryTotalMiB: 100,
		ThresholdPct:   80,
		Recipients:     []string{"ops@example.com"},
	}
}

func TestSendsAndRecordsAboveThreshold(t *testing.T) {
	store := &fakeStore{}
	mailer := &fakeMailer{}
	e := newTestEvaluator(store, mailer)

	sent, err := e.CheckAndSend(context.Background(), reading())
	require.NoError(t, err)
	assert.True(t, sent)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "GPU Memory Alert: gpu-node-1 GPU 0 at 90.0%", mailer.sent[0])
	assert.Contains(t, mailer.body, "Current Usage: 90.0%")
	assert.Contains(t, mailer.body, "90 MiB used of 100 MiB total")

	require.Len(t, store.recorded, 1)
	rec := store.recorded[0]
	assert.Equal(t, uint(3), rec.ServerID)
	assert.InDelta(t, 90.0, rec.UsagePct, 0.001)
	assert.Equal(t, testNow, rec.SentAt)
}

func TestThresholdBoundaryIsInclusive(t *testing.T) {
	store := &fakeStore{}
	mailer := &fakeMailer{}
	e := newTestEvaluator(store, mailer)

	r := reading()
	r.MemoryUsedMiB = 80 // exactly 80.0%
	sent, err := e.CheckAndSend(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, sent, "usage equal to the threshold must alert")

	store2 := &fakeStore{}
	mailer2 := &fakeMailer{}
	e2 := newTestEvaluator(store2, mailer2)

	r.MemoryUsedMiB = 79
	sent, err = e2.CheckAndSend(context.Background(), r)
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, mailer2.sent)
}

func TestCooldownSuppressesRepeat(t *testing.T) {
	store := &fakeStore{
		last: &model.Alert{SentAt: testNow.Add(-2 * time.Minute)},
	}
	mailer := &fakeMailer{}
	e := newTestEvaluator(store, mailer)

	sent, err := e.CheckAndSend(context.Background(), reading())
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, mailer.sent)
	assert.Empty(t, store.recorded)
}

func TestExpiredCooldownAlertsAgain(t *testing.T) {
	store := &fakeStore{
		last: &model.Alert{SentAt: testNow.Add(-6 * time.Minute)},
	}
	mailer := &fakeMailer{}
	e := newTestEvaluator(store, mailer)

	sent, err := e.CheckAndSend(context.Background(), reading())
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestCooldownLookupFailureDoesNotSuppress(t *testing.T) {
	store := &fakeStore{lastErr: errors.New("connection refused")}
	mailer := &fakeMailer{}
	e := newTestEvaluator(store, mailer)

	sent, err := e.CheckAndSend(context.Background(), reading())
	require.NoError(t, err)
	assert.True(t, sent, "a broken cooldown lookup must not swallow alerts")
}

func TestInvalidTotalSkipsEvaluation(t *testing.T) {
	store := &fakeStore{}
	mailer := &fakeMailer{}
	e := newTestEvaluator(store, mailer)

	r := reading()
	r.MemoryTotalMiB = 0
	sent, err := e.CheckAndSend(context.Background(), r)
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, mailer.sent)
}

func TestNoRecipientsNoDispatch(t *testing.T) {
	store := &fakeStore{}
	mailer := &fakeMailer{}
	e := newTestEvaluator(store, mailer)

	r := reading()
	r.Recipients = nil
	sent, err := e.CheckAndSend(context.Background(), r)
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestFailedDispatchLeavesNoRecord(t *testing.T) {
	store := &fakeStore{}
	mailer := &fakeMailer{err: errors.New("smtp: 554 rejected")}
	e := newTestEvaluator(store, mailer)

	sent, err := e.CheckAndSend(context.Background(), reading())
	assert.False(t, sent)
	require.Error(t, err)
	assert.Empty(t, store.recorded, "a failed send must not start the cooldown clock")
}

func TestRecordFailureStillReportsSent(t *testing.T) {
	store := &fakeStore{recordErr: errors.New("insert failed")}
	mailer := &fakeMailer{}
	e := newTestEvaluator(store, mailer)

	sent, err := e.CheckAndSend(context.Background(), reading())
	assert.True(t, sent, "the mail went out even though bookkeeping failed")
	assert.Error(t, err)
	require.Len(t, mailer.sent, 1)
}
