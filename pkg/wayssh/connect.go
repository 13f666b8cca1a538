package wayssh

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vdvorak/way-secshell/internal/errors"
	"github.com/vdvorak/way-secshell/pkg/version"

	"github.com/mitchellh/go-homedir"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	DefaultPort    = 22
	DefaultTimeout = 10 * time.Second
)

// Config описывает, как достучаться до хоста и авторизоваться на нём.
type Config struct {
	Host string
	Port int
	User string

	// Можно задать и пароль, и ключ: пароль пробуется последним.
	Password      string
	KeyPath       string
	KeyMaterial   []byte
	KeyPassphrase string

	// KnownHostsPath включает проверку ключа хоста. Пустой путь принимает любой ключ.
	KnownHostsPath string

	// Timeout ограничивает всё подключение: TCP, SSH-рукопожатие и авторизацию.
	// Ноль означает DefaultTimeout.
	Timeout time.Duration

	// ServerVersion — semver-ограничение на версию серверного ПО, например ">= 8.0".
	ServerVersion string
}

func (c Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Validate возвращает все проблемы конфигурации в порядке полей.
func (c Config) Validate() []error {
	var errs []error

	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, fmt.Errorf("%w: не указан хост", ErrInvalidConfig))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: некорректный порт %d", ErrInvalidConfig, c.Port))
	}
	if strings.TrimSpace(c.User) == "" {
		errs = append(errs, fmt.Errorf("%w: не указан пользователь", ErrInvalidConfig))
	}
	if c.Password == "" && c.KeyPath == "" && len(c.KeyMaterial) == 0 {
		errs = append(errs, fmt.Errorf("%w: не указан ни пароль, ни ключ", ErrInvalidConfig))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: отрицательный таймаут %s", ErrInvalidConfig, c.Timeout))
	}

	return errs
}

// Connect подключается к хосту и возвращает результат. Паники и возврата
// ошибки нет: все проблемы попадают в Errors неудачного результата.
func Connect(cfg Config, log *slog.Logger) *Outcome {
	if log == nil {
		log = slog.Default()
	}
	addr := cfg.Addr()
	log = log.With("addr", addr)

	if errs := cfg.Validate(); len(errs) > 0 {
		return failed(wrapConnection(addr, errs), log)
	}

	sshConfig, err := clientConfig(cfg, log)
	if err != nil {
		return failed(wrapConnection(addr, []error{err}), log)
	}

	log.Debug("Подключение к серверу", "user", cfg.User, "timeout", sshConfig.Timeout)
	client, err := dial(addr, sshConfig)
	if err != nil {
		log.Warn("Не удалось подключиться", "error", err)
		return failed(wrapConnection(addr, []error{err}), log)
	}

	banner := string(client.ServerVersion())
	if err := version.CheckServer(banner, cfg.ServerVersion); err != nil {
		client.Close()
		log.Warn("Версия сервера не подходит", "banner", banner, "error", err)
		return failed(wrapConnection(addr, []error{err}), log)
	}

	log.Info("Подключено", "user", cfg.User, "server", banner)
	return connected(client, addr, log)
}

// dial устанавливает TCP-соединение и проводит SSH-рукопожатие.
// Обе фазы укладываются в один срок cfg.Timeout.
func dial(addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	deadline := time.Now().Add(cfg.Timeout)

	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}

	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return nil, err
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		c.Close()
		return nil, err
	}

	return ssh.NewClient(c, chans, reqs), nil
}

func wrapConnection(addr string, errs []error) []error {
	wrapped := make([]error, len(errs))
	for i, err := range errs {
		wrapped[i] = errors.NewConnectionError(addr, err)
	}
	return wrapped
}

func clientConfig(cfg Config, log *slog.Logger) (*ssh.ClientConfig, error) {
	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}

	callback, err := hostKeyCallback(cfg.KnownHostsPath, log)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: callback,
		Timeout:         timeout,
	}, nil
}

func authMethods(cfg Config) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	keyData := cfg.KeyMaterial
	if len(keyData) == 0 && cfg.KeyPath != "" {
		keyPath, err := homedir.Expand(cfg.KeyPath)
		if err != nil {
			return nil, err
		}
		keyData, err = os.ReadFile(keyPath)
		if err != nil {
			return nil, err
		}
	}

	if len(keyData) > 0 {
		signer, err := parsePrivateKey(keyData, cfg.KeyPassphrase)
		if err != nil {
			return nil, err
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}

	return methods, nil
}

func parsePrivateKey(data []byte, passphrase string) (ssh.Signer, error) {
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(data, []byte(passphrase))
	}
	return ssh.ParsePrivateKey(data)
}

func hostKeyCallback(knownHostsPath string, log *slog.Logger) (ssh.HostKeyCallback, error) {
	if knownHostsPath == "" {
		log.Warn("Ключ хоста не проверяется: known_hosts не задан")
		return ssh.InsecureIgnoreHostKey(), nil
	}

	path, err := homedir.Expand(knownHostsPath)
	if err != nil {
		return nil, err
	}
	return knownhosts.New(path)
}
