// Package sshexec runs the telemetry probe on remote GPU hosts over SSH.
//
// One Prober serves the whole fleet; each Collect call owns exactly one
// authenticated session and tears it down on every exit path. Host keys are
// accepted on first use — a deliberate trade-off for fleets without a
// distributed known_hosts.
package sshexec

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"k8s.io/klog/v2"

	"github.com/ben458-1/URL-Server-Monitor/pkg/probe"
)

var (
	// ErrCommandTimeout marks a probe or install command that exceeded its
	// execution budget. The SSH dial has its own timeout.
	ErrCommandTimeout = errors.New("remote command timed out")

	// ErrDependencies marks a target where the probe's Python dependencies
	// are missing and could not be installed.
	ErrDependencies = errors.New("failed to install required packages; run manually: pip install --break-system-packages nvidia-ml-py3 psutil")
)

// Target is the decrypted connection view of one fleet server. The caller
// owns the key material and must wipe it after the session.
type Target struct {
	Host       string
	Port       int
	User       string
	PrivateKey []byte
	Passphrase []byte
}

type Prober struct {
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
}

func NewProber(connectTimeout, commandTimeout time.Duration) *Prober {
	return &Prober{
		ConnectTimeout: connectTimeout,
		CommandTimeout: commandTimeout,
	}
}

const (
	stageTimeout = 10 * time.Second
	checkTimeout = 10 * time.Second
	pipTimeout   = 60 * time.Second
)

// Collect dials the target, stages the probe script, makes sure its
// dependencies are importable, runs it and returns the raw JSON output.
// Every failure is scoped to this target; the session is always closed.
func (p *Prober) Collect(target Target) (string, error) {
	session, err := dial(target, p.ConnectTimeout)
	if err != nil {
		return "", err
	}
	defer session.Close()

	if err := session.stageScript(probe.Script, probe.RemotePath); err != nil {
		return "", err
	}
	if err := session.ensureDependencies(target.Host); err != nil {
		return "", err
	}

	out, err := session.run(probe.RunCommand, p.CommandTimeout)
	if err != nil {
		return "", fmt.Errorf("running probe on %s: %w", target.Host, err)
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("probe on %s produced no output", target.Host)
	}
	return out, nil
}

type session struct {
	client *ssh.Client
	host   string
}

func dial(target Target, timeout time.Duration) (*session, error) {
	var signer ssh.Signer
	var err error
	if len(target.Passphrase) > 0 {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(target.PrivateKey, target.Passphrase)
	} else {
		signer, err = ssh.ParsePrivateKey(target.PrivateKey)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing SSH key for %s: %w", target.Host, err)
	}

	cfg := &ssh.ClientConfig{
		User:            target.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // trust on first use
		Timeout:         timeout,
	}

	port := target.Port
	if port == 0 {
		port = 22
	}
	addr := fmt.Sprintf("%s:%d", target.Host, port)
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s: %w", addr, err)
	}
	return &session{client: client, host: target.Host}, nil
}

func (s *session) Close() {
	if err := s.client.Close(); err != nil {
		klog.V(4).Infof("Closing SSH connection to %s: %v", s.host, err)
	}
}

// run executes one command in a fresh SSH channel and returns combined
// stdout+stderr. A command that outlives the timeout is killed; its partial
// output is discarded.
func (s *session) run(cmd string, timeout time.Duration) (string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("new session: %w", err)
	}
	defer sess.Close()

	var buf bytes.Buffer
	sess.Stdout = &buf
	sess.Stderr = &buf
	if err := sess.Start(cmd); err != nil {
		return "", err
	}

	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()

	select {
	case err := <-done:
		return buf.String(), err
	case <-time.After(timeout):
		_ = sess.Signal(ssh.SIGKILL)
		return "", ErrCommandTimeout
	}
}

// stageScript writes the probe verbatim to its fixed remote path and marks
// it executable. A staging failure is fatal for this target's cycle only.
func (s *session) stageScript(body, remotePath string) error {
	cmd := fmt.Sprintf("cat > %s << 'EOFSCRIPT'\n%s\nEOFSCRIPT\nchmod +x %s", remotePath, body, remotePath)
	out, err := s.run(cmd, stageTimeout)
	if err != nil {
		return fmt.Errorf("staging probe script on %s: %w", s.host, err)
	}
	if strings.Contains(strings.ToLower(out), "cannot create") {
		return fmt.Errorf("staging probe script on %s: %s", s.host, strings.TrimSpace(out))
	}
	return nil
}

// ensureDependencies checks that pynvml and psutil are importable and
// attempts an unprivileged install when they are not. Debian-style
// externally managed environments get one retry with
// --break-system-packages.
func (s *session) ensureDependencies(host string) error {
	out, err := s.run(probe.DependencyCheckCommand, checkTimeout)
	missing, checkErr := classifyDependencyCheck(out, err)
	if checkErr != nil {
		return fmt.Errorf("checking probe dependencies on %s: %w", host, checkErr)
	}
	if !missing {
		return nil
	}

	klog.Warningf("Probe dependencies missing on %s, attempting install", host)
	out, _ = s.run(probe.InstallUserCommand, pipTimeout)
	if strings.Contains(out, "externally-managed-environment") {
		klog.Infof("Retrying install on %s with --break-system-packages", host)
		out, _ = s.run(probe.InstallSystemCommand, pipTimeout)
	}
	if strings.Contains(out, "Successfully installed") || strings.Contains(out, "Requirement already satisfied") {
		klog.Infof("Probe dependencies installed on %s", host)
		return nil
	}
	return fmt.Errorf("on %s: %w", host, ErrDependencies)
}

// classifyDependencyCheck separates "modules missing, install them" from a
// check command that failed outright. The import check exits non-zero when
// modules are missing, so the command error alone proves nothing; only
// output without the missing-module markers makes it a real failure.
func classifyDependencyCheck(out string, err error) (missing bool, failure error) {
	if strings.Contains(out, "ModuleNotFoundError") || strings.Contains(out, "No module named") {
		return true, nil
	}
	return false, err
}
