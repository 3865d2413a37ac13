package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
)

const defaultDialTimeout = 15 * time.Second

// SSHExecutor runs commands over SSH, one session per command. Clients
// are cached per host for the lifetime of the executor; Close releases
// them.
type SSHExecutor struct {
	Hosts       HostSet
	DialTimeout time.Duration

	clients map[string]*ssh.Client
}

// NewSSHExecutor builds an executor over the given host set.
func NewSSHExecutor(hosts HostSet) *SSHExecutor {
	return &SSHExecutor{
		Hosts:       hosts,
		DialTimeout: defaultDialTimeout,
		clients:     make(map[string]*ssh.Client),
	}
}

// Run executes command on host and captures exit code, stdout and
// stderr. A remote non-zero exit is reported in the Result; only
// transport-level failures return a non-nil error.
func (e *SSHExecutor) Run(ctx context.Context, host string, command string) (Result, error) {
	if host == "" {
		return Result{}, ErrNoHost
	}

	client, err := e.client(ctx, host)
	if err != nil {
		return Result{}, err
	}

	session, err := client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("opening session on %s: %w", host, err)
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return Result{}, ctx.Err()
	case err = <-done:
	}

	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
			return result, nil
		}
		return Result{}, fmt.Errorf("running %q on %s: %w", command, host, err)
	}
	return result, nil
}

// Close drops all cached client connections.
func (e *SSHExecutor) Close() error {
	var firstErr error
	for name, client := range e.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing connection to %s: %w", name, err)
		}
		delete(e.clients, name)
	}
	return firstErr
}

func (e *SSHExecutor) client(ctx context.Context, host string) (*ssh.Client, error) {
	if c, ok := e.clients[host]; ok {
		return c, nil
	}

	entry := e.Hosts.Lookup(host)
	cfg, err := e.clientConfig(entry)
	if err != nil {
		return nil, err
	}

	addr := entry.Address
	if _, _, splitErr := net.SplitHostPort(addr); splitErr != nil {
		addr = net.JoinHostPort(addr, "22")
	}

	timeout := e.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s (%s): %w", host, addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", host, err)
	}

	client := ssh.NewClient(sshConn, chans, reqs)
	e.clients[host] = client
	return client, nil
}

func (e *SSHExecutor) clientConfig(entry Host) (*ssh.ClientConfig, error) {
	user := entry.User
	if user == "" {
		user = "root"
	}

	var methods []ssh.AuthMethod
	if entry.IdentityFile != "" {
		key, err := os.ReadFile(entry.IdentityFile)
		if err != nil {
			return nil, fmt.Errorf("reading identity file for %s: %w", entry.Name, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parsing identity file for %s: %w", entry.Name, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("host %s has no identity_file configured", entry.Name)
	}

	return &ssh.ClientConfig{
		User: user,
		Auth: methods,
		// Fleet hosts are reinstalled and re-keyed as part of normal
		// operation, so host keys are not pinned.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         e.DialTimeout,
	}, nil
}
