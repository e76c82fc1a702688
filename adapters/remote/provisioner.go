package remote

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/internal/logging"
)

// RsyncPath is the rsync binary invoked on the target host.
const RsyncPath = "/bin/rsync"

// CommandRunner runs a local command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Provisioner prepares the legacy target host. Failures wrap model.ErrRemoteExec.
type Provisioner struct {
	SSH   Executor
	Local CommandRunner
}

// NewProvisioner returns a provisioner using ssh defaults and the local rsync.
func NewProvisioner() *Provisioner {
	return &Provisioner{SSH: NewSSHExecutor(), Local: execRunner}
}

// MkdirCommand returns the remote command creating path and its parents.
func MkdirCommand(path string) string {
	return "mkdir -p " + shellQuote(path)
}

// RsyncArgs returns the rsync arguments mirroring the contents of local into
// remote on user@host, deleting files absent locally.
func RsyncArgs(local, host, user, remote string) []string {
	dest := host + ":" + strings.TrimRight(remote, "/") + "/"
	if user != "" {
		dest = user + "@" + dest
	}
	return []string{"--rsync-path", RsyncPath, "-av", "--delete", strings.TrimRight(local, "/") + "/", dest}
}

// EnsureDir creates path on host, succeeding when it already exists.
func (p *Provisioner) EnsureDir(ctx context.Context, host, user, path string) error {
	logger := logging.FromContext(ctx).With("host", host, "path", path)
	cmd := MkdirCommand(path)
	logger.Debug(ctx, "Remote:EnsureDir/s", "command", cmd)
	out, err := p.SSH.Run(ctx, host, user, cmd)
	if err != nil {
		logger.Info(ctx, "Remote:EnsureDir/efail", "err", err, "output", strings.TrimSpace(string(out)))
		return fmt.Errorf("%w: %s on %s: %w", model.ErrRemoteExec, cmd, host, err)
	}
	logger.Info(ctx, "Remote:EnsureDir/eok")
	return nil
}

// Mirror copies the contents of local into remote on host with rsync.
func (p *Provisioner) Mirror(ctx context.Context, local, host, user, remote string) error {
	logger := logging.FromContext(ctx).With("host", host, "local", local, "remote", remote)
	args := RsyncArgs(local, host, user, remote)
	logger.Debug(ctx, "Remote:Mirror/s", "command", "rsync "+strings.Join(args, " "))
	run := p.Local
	if run == nil {
		run = execRunner
	}
	out, err := run(ctx, "rsync", args...)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			logger.Debug(ctx, "Remote:Mirror/output", "line", line)
		}
	}
	if err != nil {
		logger.Info(ctx, "Remote:Mirror/efail", "err", err)
		return fmt.Errorf("%w: rsync to %s:%s: %w", model.ErrRemoteExec, host, remote, err)
	}
	logger.Info(ctx, "Remote:Mirror/eok")
	return nil
}
