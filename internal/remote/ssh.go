package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	kerrors "github.com/yairfalse/kaksonen/internal/errors"
	"github.com/yairfalse/kaksonen/internal/logger"
)

// SSHConfig holds connection settings for one host
type SSHConfig struct {
	Host       string
	Port       int
	User       string
	KeyFile    string
	KnownHosts string
	Timeout    time.Duration
	SudoWrites bool
}

// SSHClient is an Executor backed by an SSH connection.
//
// The connection is dialed on first use and shared by all sessions. A
// connection-level failure drops it so the next call dials again.
type SSHClient struct {
	cfg SSHConfig
	log logger.Logger

	mu     sync.Mutex
	client *ssh.Client
}

// NewSSHClient creates a client; no connection is made until the first call
func NewSSHClient(cfg SSHConfig, log logger.Logger) *SSHClient {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SSHClient{
		cfg: cfg,
		log: log.WithFields(map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		}),
	}
}

func (c *SSHClient) Host() string { return c.cfg.Host }

func (c *SSHClient) Port() int { return c.cfg.Port }

// Close closes the underlying connection if one is open
func (c *SSHClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func (c *SSHClient) clientConfig() (*ssh.ClientConfig, error) {
	key, err := os.ReadFile(c.cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read ssh key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ssh key %s: %w", c.cfg.KeyFile, err)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if knownHosts := c.knownHostsFile(); knownHosts != "" {
		hostKeyCallback, err = knownhosts.New(knownHosts)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
	} else {
		c.log.Warn("no known_hosts file found, host keys are not verified")
	}

	return &ssh.ClientConfig{
		User:            c.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         c.cfg.Timeout,
	}, nil
}

// knownHostsFile returns the configured known_hosts file, or the user's
// ~/.ssh/known_hosts when none is configured and it exists
func (c *SSHClient) knownHostsFile() string {
	if c.cfg.KnownHosts != "" {
		return c.cfg.KnownHosts
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".ssh", "known_hosts")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func (c *SSHClient) connect() (*ssh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	config, err := c.clientConfig()
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c.log.Debug("ssh connection established")
	c.client = client
	return client, nil
}

func (c *SSHClient) drop(client *ssh.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == client {
		c.client.Close()
		c.client = nil
	}
}

// run executes cmd in a new session, feeding stdin when it is not nil
func (c *SSHClient) run(ctx context.Context, cmd string, stdin io.Reader) (Result, error) {
	client, err := c.connect()
	if err != nil {
		return Result{}, kerrors.TransportError(c.cfg.Host, err)
	}

	session, err := client.NewSession()
	if err != nil {
		c.drop(client)
		return Result{}, kerrors.TransportError(c.cfg.Host, fmt.Errorf("failed to open session: %w", err))
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if stdin != nil {
		session.Stdin = stdin
	}

	c.log.WithField("command", cmd).Debug("executing remote command")

	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		session.Close()
		return Result{}, kerrors.TransportError(c.cfg.Host, ctx.Err())
	case err = <-done:
	}

	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return result, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return result, kerrors.TransportError(c.cfg.Host, &ExitError{
			Command: cmd,
			Status:  exitErr.ExitStatus(),
			Stderr:  result.Stderr,
		})
	}

	c.drop(client)
	return result, kerrors.TransportError(c.cfg.Host, err)
}

// Execute implements Executor
func (c *SSHClient) Execute(ctx context.Context, cmd string) (Result, error) {
	return c.run(ctx, cmd, nil)
}

// TextContent implements Executor
func (c *SSHClient) TextContent(ctx context.Context, path string) (string, error) {
	result, err := c.run(ctx, "cat "+Quote(path), nil)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) && strings.Contains(exitErr.Stderr, "No such file") {
			return "", kerrors.TransportError(c.cfg.Host, &fs.PathError{Op: "read", Path: path, Err: fs.ErrNotExist})
		}
		return "", err
	}
	return result.Stdout, nil
}

// WriteContent implements Executor
func (c *SSHClient) WriteContent(ctx context.Context, path, content string) error {
	cmd := "cat > " + Quote(path)
	if c.cfg.SudoWrites {
		cmd = "sudo tee " + Quote(path) + " > /dev/null"
	}
	_, err := c.run(ctx, cmd, strings.NewReader(content))
	return err
}

// ListFiles implements Executor
func (c *SSHClient) ListFiles(ctx context.Context, path string, recursive, filesOnly bool) ([]string, error) {
	result, err := c.run(ctx, ListFilesCommand(path, recursive, filesOnly), nil)
	if err != nil {
		return nil, err
	}
	names := SplitLines(result.Stdout)
	sort.Strings(names)
	return names, nil
}
