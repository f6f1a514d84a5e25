package remote

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	kerrors "github.com/yairfalse/kaksonen/internal/errors"
	"github.com/yairfalse/kaksonen/internal/logger"
)

// sshExec is one exec request seen by the test server
type sshExec struct {
	Command string
	Stdin   string
	Signals <-chan string
	Closed  <-chan struct{}
}

type sshReply struct {
	Stdout string
	Stderr string
	Status int
}

// sshTestServer accepts public key logins and answers exec requests with
// handler
type sshTestServer struct {
	handler func(sshExec) sshReply

	mu      sync.Mutex
	execs   []sshExec
	signals []string
}

func newTestSigner(t *testing.T) ssh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return signer
}

func writeKnownHosts(t *testing.T, path, addr string, key ssh.PublicKey) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(knownhosts.Line([]string{addr}, key)+"\n"), 0o600))
}

// newSSHTestServer starts a server on a loopback port and returns it with a
// client configuration that trusts its host key
func newSSHTestServer(t *testing.T, handler func(sshExec) sshReply) (*sshTestServer, SSHConfig) {
	t.Helper()

	clientPub, clientPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	authorized, err := ssh.NewPublicKey(clientPub)
	require.NoError(t, err)

	hostKey := newTestSigner(t)
	config := &ssh.ServerConfig{
		PublicKeyCallback: func(meta ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, nil
			}
			return nil, fmt.Errorf("unknown key for %s", meta.User())
		},
	}
	config.AddHostKey(hostKey)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	s := &sshTestServer{handler: handler}
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go s.serve(conn, config)
		}
	}()

	dir := t.TempDir()
	block, err := ssh.MarshalPrivateKey(clientPriv, "")
	require.NoError(t, err)
	keyFile := filepath.Join(dir, "id_ed25519")
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(block), 0o600))

	knownHostsFile := filepath.Join(dir, "known_hosts")
	writeKnownHosts(t, knownHostsFile, listener.Addr().String(), hostKey.PublicKey())

	return s, SSHConfig{
		Host:       "127.0.0.1",
		Port:       listener.Addr().(*net.TCPAddr).Port,
		User:       "backup",
		KeyFile:    keyFile,
		KnownHosts: knownHostsFile,
		Timeout:    5 * time.Second,
	}
}

func (s *sshTestServer) serve(conn net.Conn, config *ssh.ServerConfig) {
	sconn, channels, requests, err := ssh.NewServerConn(conn, config)
	if err != nil {
		conn.Close()
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(requests)

	for newChannel := range channels {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "only sessions are supported")
			continue
		}
		channel, reqs, err := newChannel.Accept()
		if err != nil {
			continue
		}
		go s.session(channel, reqs)
	}
}

func (s *sshTestServer) session(channel ssh.Channel, requests <-chan *ssh.Request) {
	signals := make(chan string, 1)
	closed := make(chan struct{})
	defer close(closed)

	for req := range requests {
		switch req.Type {
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				req.Reply(false, nil)
				continue
			}
			req.Reply(true, nil)
			go s.exec(channel, sshExec{Command: payload.Command, Signals: signals, Closed: closed})
		case "signal":
			var payload struct{ Signal string }
			if err := ssh.Unmarshal(req.Payload, &payload); err == nil {
				s.mu.Lock()
				s.signals = append(s.signals, payload.Signal)
				s.mu.Unlock()
				select {
				case signals <- payload.Signal:
				default:
				}
			}
		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}

func (s *sshTestServer) exec(channel ssh.Channel, e sshExec) {
	defer channel.Close()

	stdin, _ := io.ReadAll(channel)
	e.Stdin = string(stdin)

	s.mu.Lock()
	s.execs = append(s.execs, e)
	s.mu.Unlock()

	reply := s.handler(e)
	io.WriteString(channel, reply.Stdout)
	io.WriteString(channel.Stderr(), reply.Stderr)
	channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(reply.Status)}))
}

func (s *sshTestServer) Execs() []sshExec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sshExec(nil), s.execs...)
}

func (s *sshTestServer) Signals() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.signals...)
}

func TestSSHClientExecute(t *testing.T) {
	_, cfg := newSSHTestServer(t, func(e sshExec) sshReply {
		if e.Command == "echo hello" {
			return sshReply{Stdout: "hello\n"}
		}
		return sshReply{Stderr: "boom\n", Status: 3}
	})
	client := NewSSHClient(cfg, logger.NewNop())
	defer client.Close()
	ctx := context.Background()

	result, err := client.Execute(ctx, "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", result.Stdout)

	result, err = client.Execute(ctx, "false")
	require.Error(t, err)
	assert.True(t, kerrors.IsType(err, kerrors.ErrorTypeTransport))
	assert.Equal(t, "boom\n", result.Stderr)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Status)
	assert.Equal(t, "false", exitErr.Command)
	assert.Equal(t, "boom\n", exitErr.Stderr)
}

func TestSSHClientTextContent(t *testing.T) {
	_, cfg := newSSHTestServer(t, func(e sshExec) sshReply {
		switch e.Command {
		case "cat /etc/my.cnf":
			return sshReply{Stdout: "[mysqld]\nserver_id = 1\n"}
		case "cat /etc/mysql/debian.cnf":
			return sshReply{Stderr: "cat: /etc/mysql/debian.cnf: Permission denied\n", Status: 1}
		default:
			return sshReply{Stderr: "cat: /etc/missing.cnf: No such file or directory\n", Status: 1}
		}
	})
	client := NewSSHClient(cfg, logger.NewNop())
	defer client.Close()
	ctx := context.Background()

	content, err := client.TextContent(ctx, "/etc/my.cnf")
	require.NoError(t, err)
	assert.Equal(t, "[mysqld]\nserver_id = 1\n", content)

	_, err = client.TextContent(ctx, "/etc/missing.cnf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.True(t, kerrors.IsType(err, kerrors.ErrorTypeTransport))

	_, err = client.TextContent(ctx, "/etc/mysql/debian.cnf")
	require.Error(t, err)
	assert.False(t, errors.Is(err, fs.ErrNotExist))
	var exitErr *ExitError
	assert.True(t, errors.As(err, &exitErr))
}

func TestSSHClientWriteContent(t *testing.T) {
	tests := []struct {
		name    string
		sudo    bool
		command string
	}{
		{name: "plain", command: "cat > /etc/mysql/my.cnf"},
		{name: "through sudo", sudo: true, command: "sudo tee /etc/mysql/my.cnf > /dev/null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, cfg := newSSHTestServer(t, func(sshExec) sshReply { return sshReply{} })
			cfg.SudoWrites = tt.sudo
			client := NewSSHClient(cfg, logger.NewNop())
			defer client.Close()

			content := "[mysqld]\nserver_id = 167772162\n"
			require.NoError(t, client.WriteContent(context.Background(), "/etc/mysql/my.cnf", content))

			execs := server.Execs()
			require.Len(t, execs, 1)
			assert.Equal(t, tt.command, execs[0].Command)
			assert.Equal(t, content, execs[0].Stdin)
		})
	}
}

func TestSSHClientListFiles(t *testing.T) {
	_, cfg := newSSHTestServer(t, func(sshExec) sshReply {
		return sshReply{Stdout: "b.cnf\na.cnf\n"}
	})
	client := NewSSHClient(cfg, logger.NewNop())
	defer client.Close()

	names, err := client.ListFiles(context.Background(), "/etc/mysql/conf.d", false, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.cnf", "b.cnf"}, names)
}

func TestSSHClientCancelKillsCommand(t *testing.T) {
	started := make(chan struct{})
	server, cfg := newSSHTestServer(t, func(e sshExec) sshReply {
		close(started)
		select {
		case <-e.Signals:
		case <-e.Closed:
		case <-time.After(10 * time.Second):
		}
		return sshReply{Status: 137}
	})
	client := NewSSHClient(cfg, logger.NewNop())
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-started
		cancel()
	}()

	_, err := client.Execute(ctx, "sleep 600")
	require.Error(t, err)
	assert.True(t, kerrors.IsType(err, kerrors.ErrorTypeTransport))
	assert.ErrorIs(t, err, context.Canceled)

	assert.Eventually(t, func() bool {
		return slices.Contains(server.Signals(), string(ssh.SIGKILL))
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSSHClientRejectsChangedHostKey(t *testing.T) {
	_, cfg := newSSHTestServer(t, func(sshExec) sshReply { return sshReply{} })
	cfg.KnownHosts = filepath.Join(t.TempDir(), "known_hosts")
	writeKnownHosts(t, cfg.KnownHosts, net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)), newTestSigner(t).PublicKey())

	client := NewSSHClient(cfg, logger.NewNop())
	defer client.Close()

	_, err := client.Execute(context.Background(), "true")
	require.Error(t, err)
	assert.True(t, kerrors.IsType(err, kerrors.ErrorTypeTransport))
	assert.Contains(t, err.Error(), "key mismatch")
}

func TestSSHClientDefaultKnownHosts(t *testing.T) {
	t.Run("user file is used", func(t *testing.T) {
		_, cfg := newSSHTestServer(t, func(sshExec) sshReply { return sshReply{} })
		home := t.TempDir()
		t.Setenv("HOME", home)
		writeKnownHosts(t, filepath.Join(home, ".ssh", "known_hosts"),
			net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)), newTestSigner(t).PublicKey())
		cfg.KnownHosts = ""

		client := NewSSHClient(cfg, logger.NewNop())
		defer client.Close()

		_, err := client.Execute(context.Background(), "true")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "key mismatch")
	})

	t.Run("no file connects unverified", func(t *testing.T) {
		_, cfg := newSSHTestServer(t, func(sshExec) sshReply { return sshReply{Stdout: "ok\n"} })
		t.Setenv("HOME", t.TempDir())
		cfg.KnownHosts = ""

		client := NewSSHClient(cfg, logger.NewNop())
		defer client.Close()

		result, err := client.Execute(context.Background(), "true")
		require.NoError(t, err)
		assert.Equal(t, "ok\n", result.Stdout)
	})
}
