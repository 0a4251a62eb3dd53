// Package collector implements the scheduled GPU fleet telemetry cycle:
// probe every configured server over SSH, normalize and persist the
// readings, evaluate alerts and publish one consolidated batch to live
// subscribers.
package collector

import (
	"context"
	"encoding/json"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/ben458-1/URL-Server-Monitor/dao/model"
	"github.com/ben458-1/URL-Server-Monitor/pkg/alert"
	"github.com/ben458-1/URL-Server-Monitor/pkg/keycrypt"
	"github.com/ben458-1/URL-Server-Monitor/pkg/probe"
	"github.com/ben458-1/URL-Server-Monitor/pkg/sshexec"
)

// ServerLister fetches the fleet, encrypted key material included.
type ServerLister interface {
	ListAll(ctx context.Context) ([]model.GPUServer, error)
}

// SampleWriter persists one sample and then its process children, in that
// order, so a process batch can never be orphaned.
type SampleWriter interface {
	InsertSample(ctx context.Context, sample *model.GPUMetric) (uint, error)
	InsertProcessBatch(ctx context.Context, sampleID uint, procs []model.PidMetric) (int, error)
}

// AlertChecker decides and dispatches threshold notifications.
type AlertChecker interface {
	CheckAndSend(ctx context.Context, reading alert.GPUReading) (bool, error)
}

// Prober runs the probe on one target and returns its raw output.
type Prober interface {
	Collect(target sshexec.Target) (string, error)
}

// Publisher fans one message out to all live subscribers.
type Publisher interface {
	Publish(message any)
}

// Update is the batch published after every cycle. Only servers whose
// pipeline fully succeeded contribute samples.
type Update struct {
	Type string            `json:"type"`
	Data []model.GPUMetric `json:"data"`
}

const UpdateType = "gpu_metrics_update"

type Collector struct {
	servers  ServerLister
	samples  SampleWriter
	alerts   AlertChecker
	prober   Prober
	hub      Publisher
	cipher   *keycrypt.Cipher
	maxProbe int
}

func New(
	servers ServerLister,
	samples SampleWriter,
	alerts AlertChecker,
	prober Prober,
	hub Publisher,
	cipher *keycrypt.Cipher,
	maxConcurrentProbes int,
) *Collector {
	if maxConcurrentProbes <= 0 {
		maxConcurrentProbes = 1
	}
	return &Collector{
		servers:  servers,
		samples:  samples,
		alerts:   alerts,
		prober:   prober,
		hub:      hub,
		cipher:   cipher,
		maxProbe: maxConcurrentProbes,
	}
}

// RunCycle executes one full pass over the fleet. Servers are processed
// concurrently under a bound; every per-server failure is logged and
// isolated, and the consolidated broadcast happens only after all servers
// finished. The cycle itself always completes.
func (c *Collector) RunCycle(ctx context.Context) error {
	started := time.Now()
	klog.Info("Starting GPU metrics collection cycle")

	fleet, err := c.servers.ListAll(ctx)
	if err != nil {
		cycleFailures.Inc()
		return err
	}
	if len(fleet) == 0 {
		klog.Warning("No GPU servers configured, nothing to collect")
		return nil
	}

	batches := make([][]model.GPUMetric, len(fleet))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxProbe)
	for i := range fleet {
		g.Go(func() error {
			server := &fleet[i]
			batch, err := c.collectServer(gctx, server)
			if err != nil {
				serverFailures.Inc()
				klog.Errorf("Collection failed: %v", err)
				return nil // a failed server never aborts its siblings
			}
			batches[i] = batch
			return nil
		})
	}
	_ = g.Wait()

	all := lo.Flatten(batches)
	if len(all) > 0 {
		c.hub.Publish(Update{Type: UpdateType, Data: all})
	}

	cyclesTotal.Inc()
	samplesCollected.Add(float64(len(all)))
	lastCycleDuration.Set(time.Since(started).Seconds())
	klog.Infof("Collection cycle completed: %d samples from %d servers in %s",
		len(all), len(fleet), time.Since(started).Round(time.Millisecond))
	return nil
}

// collectServer runs the sequential per-server pipeline: decrypt
// credentials, probe, decode, normalize, persist, alert. The decrypted key
// material is wiped on every exit path.
func (c *Collector) collectServer(ctx context.Context, server *model.GPUServer) ([]model.GPUMetric, error) {
	key, err := c.cipher.Decrypt(server.RSAKey)
	if err != nil {
		return nil, &StageError{Server: server.ServerName, Stage: StageCredentials, Err: err}
	}
	defer keycrypt.Wipe(key)

	var passphrase []byte
	if server.RSAKeyPassphrase != nil && *server.RSAKeyPassphrase != "" {
		passphrase, err = c.cipher.Decrypt(*server.RSAKeyPassphrase)
		if err != nil {
			return nil, &StageError{Server: server.ServerName, Stage: StageCredentials, Err: err}
		}
		defer keycrypt.Wipe(passphrase)
	}

	raw, err := c.prober.Collect(sshexec.Target{
		Host:       server.ServerIP,
		Port:       server.Port,
		User:       server.Username,
		PrivateKey: key,
		Passphrase: passphrase,
	})
	if err != nil {
		return nil, &StageError{Server: server.ServerName, Stage: StageProbe, Err: err}
	}

	report, err := probe.Decode(raw)
	if err != nil {
		return nil, &StageError{Server: server.ServerName, Stage: StageDecode, Err: err}
	}

	samples, err := Normalize(server, report)
	if err != nil {
		return nil, &StageError{Server: server.ServerName, Stage: StageNormalize, Err: err}
	}
	klog.V(2).Infof("Collected %d GPU samples from %s", len(samples), server.ServerName)

	stored := make([]model.GPUMetric, 0, len(samples))
	for i := range samples {
		sample := &samples[i]
		if err := c.persistSample(ctx, server, sample); err != nil {
			// one bad record does not abort the server's remaining GPUs
			klog.Errorf("%v", &StageError{Server: server.ServerName, Stage: StagePersist, Err: err})
			continue
		}
		c.evaluateAlert(ctx, server, sample)
		stored = append(stored, *sample)
	}
	return stored, nil
}

// persistSample writes the sample row first to obtain its identity, then the
// process batch referencing it. A sample with zero processes is a valid idle
// GPU.
func (c *Collector) persistSample(ctx context.Context, server *model.GPUServer, sample *model.GPUMetric) error {
	id, err := c.samples.InsertSample(ctx, sample)
	if err != nil {
		return err
	}
	sample.ID = id

	inserted, err := c.samples.InsertProcessBatch(ctx, id, sample.Processes)
	if err != nil {
		return err
	}
	if inserted != len(sample.Processes) {
		klog.Warningf("Process batch mismatch for %s GPU %d: expected %d, inserted %d",
			server.ServerName, sample.GPUIndex, len(sample.Processes), inserted)
	}
	return nil
}

func (c *Collector) evaluateAlert(ctx context.Context, server *model.GPUServer, sample *model.GPUMetric) {
	if server.UsageLimit == nil {
		return
	}
	recipients := decodeRecipients(server.AlertEmails)
	if len(recipients) == 0 {
		return
	}

	sent, err := c.alerts.CheckAndSend(ctx, alert.GPUReading{
		ServerID:       server.ID,
		ServerName:     server.ServerName,
		ServerIP:       server.ServerIP,
		GPUIndex:       sample.GPUIndex,
		GPUName:        sample.GPUName,
		MemoryUsedMiB:  sample.GPUMemoryUsedMiB,
		MemoryTotalMiB: sample.GPUMemoryTotalMiB,
		ThresholdPct:   *server.UsageLimit,
		Recipients:     recipients,
	})
	if err != nil {
		// alert failures never fail the cycle; an unrecorded alert is
		// naturally retried next qualifying cycle
		klog.Errorf("%v", &StageError{Server: server.ServerName, Stage: StageAlert, Err: err})
	}
	if sent {
		alertsSent.Inc()
	}
}

func decodeRecipients(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var recipients []string
	if err := json.Unmarshal(raw, &recipients); err != nil {
		klog.Warningf("Malformed alert recipient list %q: %v", string(raw), err)
		return nil
	}
	return lo.Compact(recipients)
}
