// Package remote provisions directories and mirrors asset bundles on the legacy
// target host.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Executor runs a shell command on a remote host and returns its combined output.
type Executor interface {
	Run(ctx context.Context, host, user, command string) ([]byte, error)
}

// SSHExecutor runs commands over SSH. Authentication uses the agent at
// SSH_AUTH_SOCK and the private keys in KeyFiles; host keys are checked against
// KnownHostsFiles.
type SSHExecutor struct {
	KeyFiles        []string
	KnownHostsFiles []string
	Port            int
	Timeout         time.Duration
}

var _ Executor = (*SSHExecutor)(nil)

// NewSSHExecutor returns an executor with the conventional ~/.ssh defaults.
func NewSSHExecutor() *SSHExecutor {
	e := &SSHExecutor{Port: 22, Timeout: 30 * time.Second}
	home, err := os.UserHomeDir()
	if err != nil {
		return e
	}
	dir := filepath.Join(home, ".ssh")
	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		e.KeyFiles = append(e.KeyFiles, filepath.Join(dir, name))
	}
	e.KnownHostsFiles = []string{filepath.Join(dir, "known_hosts")}
	return e
}

func (e *SSHExecutor) Run(ctx context.Context, host, user, command string) ([]byte, error) {
	cfg, closeAgent, err := e.clientConfig(user)
	if err != nil {
		return nil, err
	}
	defer closeAgent()

	port := e.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(host, fmt.Sprint(port))
	d := net.Dialer{Timeout: e.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	client := ssh.NewClient(c, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("ssh session on %s: %w", addr, err)
	}
	defer session.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			client.Close()
		case <-done:
		}
	}()
	out, err := session.CombinedOutput(command)
	if ctx.Err() != nil {
		return out, ctx.Err()
	}
	return out, err
}

func (e *SSHExecutor) clientConfig(user string) (*ssh.ClientConfig, func(), error) {
	var methods []ssh.AuthMethod
	closeAgent := func() {}
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
			closeAgent = func() { conn.Close() }
		}
	}
	var signers []ssh.Signer
	for _, f := range e.KeyFiles {
		data, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		s, err := ssh.ParsePrivateKey(data)
		if err != nil {
			var missing *ssh.PassphraseMissingError
			if errors.As(err, &missing) {
				continue
			}
			closeAgent()
			return nil, nil, fmt.Errorf("parse ssh key %s: %w", f, err)
		}
		signers = append(signers, s)
	}
	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}
	if len(methods) == 0 {
		closeAgent()
		return nil, nil, errors.New("no ssh credentials: set SSH_AUTH_SOCK or provide a private key")
	}

	var existing []string
	for _, f := range e.KnownHostsFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		closeAgent()
		return nil, nil, errors.New("no known_hosts file found for host key verification")
	}
	hostKeys, err := knownhosts.New(existing...)
	if err != nil {
		closeAgent()
		return nil, nil, fmt.Errorf("load known_hosts: %w", err)
	}
	return &ssh.ClientConfig{
		User:            user,
		Auth:            methods,
		HostKeyCallback: hostKeys,
		Timeout:         e.Timeout,
	}, closeAgent, nil
}

// shellQuote wraps s in single quotes for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
