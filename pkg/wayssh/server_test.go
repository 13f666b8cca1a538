package wayssh

import (
	"bufio"
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"io"
	"net"
	"path"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/vdvorak/way-secshell/internal/logger"
)

const (
	testUser     = "deploy"
	testPassword = "secret"
	testBanner   = "SSH-2.0-OpenSSH_9.6p1 wayssh-test"
)

// testServer - SSH-сервер внутри процесса с небольшим набором команд и
// файловой системой в памяти за `scp -t` и `cat`.
type testServer struct {
	host      string
	port      int
	hostKey   ssh.Signer
	clientKey ed25519.PrivateKey

	mu           sync.Mutex
	files        map[string][]byte
	execs        []string
	controlLines []string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostKey, err := ssh.NewSignerFromKey(hostPriv)
	require.NoError(t, err)

	_, clientPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	clientSigner, err := ssh.NewSignerFromKey(clientPriv)
	require.NoError(t, err)

	s := &testServer{
		hostKey:   hostKey,
		clientKey: clientPriv,
		files:     map[string][]byte{},
	}

	cfg := &ssh.ServerConfig{
		ServerVersion: testBanner,
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == testUser && string(pass) == testPassword {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %q", c.User())
		},
		PublicKeyCallback: func(c ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if c.User() == testUser && bytes.Equal(key.Marshal(), clientSigner.PublicKey().Marshal()) {
				return nil, nil
			}
			return nil, fmt.Errorf("unknown public key for %q", c.User())
		},
	}
	cfg.AddHostKey(hostKey)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	s.host = host
	s.port, err = strconv.Atoi(port)
	require.NoError(t, err)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn, cfg)
		}
	}()

	return s
}

func (s *testServer) config() Config {
	return Config{
		Host:     s.host,
		Port:     s.port,
		User:     testUser,
		Password: testPassword,
		Timeout:  5 * time.Second,
	}
}

func (s *testServer) addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// clientKeyPEM возвращает закрытый ключ клиента в формате OpenSSH.
func (s *testServer) clientKeyPEM(t *testing.T, passphrase string) []byte {
	t.Helper()

	var (
		block *pem.Block
		err   error
	)
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(s.clientKey, "")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(s.clientKey, "", []byte(passphrase))
	}
	require.NoError(t, err)
	return pem.EncodeToMemory(block)
}

func (s *testServer) connect(t *testing.T) *Outcome {
	t.Helper()

	out := Connect(s.config(), logger.Discard())
	require.True(t, out.IsConnected(), "connect failed: %v", out.Errors())
	t.Cleanup(func() { out.Disconnect() })
	return out
}

func (s *testServer) file(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	return data, ok
}

func (s *testServer) putFile(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = data
}

func (s *testServer) execCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.execs)
}

func (s *testServer) lastControlLine() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.controlLines) == 0 {
		return ""
	}
	return s.controlLines[len(s.controlLines)-1]
}

func (s *testServer) serve(conn net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			newCh.Reject(ssh.UnknownChannelType, "only session channels")
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			continue
		}
		go s.session(ch, requests)
	}
}

func (s *testServer) session(ch ssh.Channel, requests <-chan *ssh.Request) {
	for req := range requests {
		if req.Type != "exec" {
			if req.WantReply {
				req.Reply(false, nil)
			}
			continue
		}

		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil || payload.Command == "reject" {
			req.Reply(false, nil)
			continue
		}
		req.Reply(true, nil)

		s.mu.Lock()
		s.execs = append(s.execs, payload.Command)
		s.mu.Unlock()

		go s.run(ch, payload.Command)
	}
}

func (s *testServer) run(ch ssh.Channel, command string) {
	defer ch.Close()

	status := s.dispatch(ch, command)
	if status < 0 {
		return
	}
	ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(status)}))
}

// dispatch выполняет команду и возвращает статус; -1 - обрыв без статуса.
func (s *testServer) dispatch(ch ssh.Channel, command string) int {
	name, arg, _ := strings.Cut(command, " ")

	switch name {
	case "echo":
		fmt.Fprintln(ch, arg)
		return 0
	case "exit":
		code, err := strconv.Atoi(arg)
		if err != nil {
			return 2
		}
		return code
	case "fail":
		fmt.Fprintln(ch.Stderr(), arg)
		return 2
	case "hangup":
		return -1
	case "partial":
		fmt.Fprintln(ch, "partial")
		return -1
	case "cat":
		if arg == "" {
			io.Copy(ch, ch)
			return 0
		}
		data, ok := s.file(arg)
		if !ok {
			fmt.Fprintf(ch.Stderr(), "cat: %s: No such file or directory\n", arg)
			return 1
		}
		ch.Write(data)
		return 0
	case "scp":
		dest, ok := strings.CutPrefix(arg, "-t ")
		if !ok {
			return 1
		}
		return s.scpSink(ch, unquote(dest))
	default:
		fmt.Fprintf(ch.Stderr(), "sh: %s: not found\n", name)
		return 127
	}
}

// scpSink - принимающая сторона загрузки одного файла по SCP.
// Пути в /missing отклоняются после управляющей строки,
// пути в /full падают на итоговом подтверждении.
func (s *testServer) scpSink(ch ssh.Channel, dest string) int {
	r := bufio.NewReader(ch)

	ch.Write([]byte{0})

	line, err := r.ReadString('\n')
	if err != nil {
		return 1
	}
	s.mu.Lock()
	s.controlLines = append(s.controlLines, line)
	s.mu.Unlock()

	fields := strings.SplitN(strings.TrimSuffix(strings.TrimPrefix(line, "C"), "\n"), " ", 3)
	if !strings.HasPrefix(line, "C") || len(fields) != 3 {
		fmt.Fprint(ch, "\x02scp: protocol error: expected control record\n")
		return 1
	}
	size, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		fmt.Fprint(ch, "\x02scp: protocol error: size not numeric\n")
		return 1
	}

	if strings.HasPrefix(path.Dir(dest), "/missing") {
		fmt.Fprintf(ch, "\x01scp: %s: No such directory\n", dest)
		return 1
	}
	ch.Write([]byte{0})

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return 1
	}
	if term, err := r.ReadByte(); err != nil || term != 0 {
		return 1
	}

	if strings.HasPrefix(dest, "/full/") {
		fmt.Fprint(ch, "\x02scp: write failed: No space left on device\n")
		return 1
	}

	s.mu.Lock()
	s.files[dest] = data
	s.mu.Unlock()
	ch.Write([]byte{0})

	io.Copy(io.Discard, r)
	return 0
}

func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") {
		return strings.ReplaceAll(s[1:len(s)-1], `'\''`, "'")
	}
	return s
}
