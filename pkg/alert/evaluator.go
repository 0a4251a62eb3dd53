package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"gorm.io/datatypes"

	"github.com/ben458-1/URL-Server-Monitor/dao/model"
	"github.com/ben458-1/URL-Server-Monitor/pkg/logutils"
)

type Evaluator struct {
	store    Store
	mailer   Mailer
	cooldown time.Duration

	now func() time.Time // for tests
}

func NewEvaluator(store Store, mailer Mailer, cooldown time.Duration) *Evaluator {
	return &Evaluator{
		store:    store,
		mailer:   mailer,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// CheckAndSend evaluates one reading and dispatches a notification when the
// usage reaches the threshold and the (server, GPU) pair is out of its
// cooldown window. The alert record is written only after a confirmed send,
// so a failed dispatch is retried naturally on the next qualifying cycle.
func (e *Evaluator) CheckAndSend(ctx context.Context, r GPUReading) (bool, error) {
	if r.MemoryTotalMiB <= 0 {
		logutils.Log.Warnf("Invalid GPU memory total %d for %s GPU %d, cannot evaluate",
			r.MemoryTotalMiB, r.ServerName, r.GPUIndex)
		return false, nil
	}

	usagePct := float64(r.MemoryUsedMiB) / float64(r.MemoryTotalMiB) * 100
	if usagePct < float64(r.ThresholdPct) {
		logutils.Log.Debugf("GPU %d on %s at %.1f%%, below threshold %d%%",
			r.GPUIndex, r.ServerName, usagePct, r.ThresholdPct)
		return false, nil
	}

	logutils.Log.Infof("GPU %d on %s at %.1f%% exceeds threshold %d%%",
		r.GPUIndex, r.ServerName, usagePct, r.ThresholdPct)

	if e.inCooldown(ctx, r.ServerID, r.GPUIndex) {
		logutils.Log.Infof("Alert in cooldown for %s GPU %d", r.ServerName, r.GPUIndex)
		return false, nil
	}

	if len(r.Recipients) == 0 {
		return false, nil
	}

	subject, body := e.composeMessage(r, usagePct)
	if err := e.mailer.SendPlainText(r.Recipients, subject, body); err != nil {
		return false, fmt.Errorf("dispatching alert for %s GPU %d: %w", r.ServerName, r.GPUIndex, err)
	}

	recipients, _ := json.Marshal(r.Recipients)
	record := &model.Alert{
		ServerID:       r.ServerID,
		GPUIndex:       r.GPUIndex,
		UsagePct:       usagePct,
		MemoryUsedMiB:  r.MemoryUsedMiB,
		MemoryTotalMiB: r.MemoryTotalMiB,
		ThresholdPct:   r.ThresholdPct,
		Recipients:     datatypes.JSON(recipients),
		SentAt:         e.now(),
	}
	if err := e.store.Record(ctx, record); err != nil {
		// the mail went out; only the cooldown bookkeeping is lost
		return true, fmt.Errorf("recording alert for %s GPU %d: %w", r.ServerName, r.GPUIndex, err)
	}

	logutils.Log.Infof("Alert sent for %s GPU %d to %d recipients", r.ServerName, r.GPUIndex, len(r.Recipients))
	return true, nil
}

// inCooldown reports whether the last successfully sent alert for the pair
// is newer than (now - cooldown). A store error counts as no cooldown:
// missing a suppression beats missing a critical alert.
func (e *Evaluator) inCooldown(ctx context.Context, serverID uint, gpuIndex int) bool {
	last, err := e.store.LastAlert(ctx, serverID, gpuIndex)
	if err != nil {
		logutils.Log.Errorf("Cooldown lookup failed for server %d GPU %d: %v", serverID, gpuIndex, err)
		return false
	}
	if last == nil {
		return false
	}
	return last.SentAt.After(e.now().Add(-e.cooldown))
}

func (e *Evaluator) composeMessage(r GPUReading, usagePct float64) (subject, body string) {
	subject = fmt.Sprintf("GPU Memory Alert: %s GPU %d at %.1f%%", r.ServerName, r.GPUIndex, usagePct)
	body = fmt.Sprintf(`GPU memory usage has exceeded the configured limit.

Server: %s (%s)
GPU: GPU %d - %s
Current Usage: %.1f%%
Threshold: %d%%
Memory: %s MiB used of %s MiB total
Time: %s

This is an automated alert from the GPU Monitoring System.
`,
		r.ServerName, r.ServerIP,
		r.GPUIndex, r.GPUName,
		usagePct,
		r.ThresholdPct,
		humanize.Comma(int64(r.MemoryUsedMiB)), humanize.Comma(int64(r.MemoryTotalMiB)),
		e.now().Format("2006-01-02 15:04:05"))
	return subject, body
}
