package wayssh

import (
	"bytes"
	stderrors "errors"
	"io"
	"log/slog"
	"strings"

	"github.com/vdvorak/way-secshell/internal/errors"

	"golang.org/x/crypto/ssh"
)

type channelState int

const (
	stateCreated channelState = iota
	stateOpened
	stateRunning
	stateCompleted
	stateErrored
)

func (s channelState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateOpened:
		return "opened"
	case stateRunning:
		return "running"
	case stateCompleted:
		return "completed"
	case stateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// commandChannel выполняет одну команду в одном exec-канале. Используется однократно.
type commandChannel struct {
	client  *ssh.Client
	command string
	stdin   io.Reader
	log     *slog.Logger
	state   channelState

	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newCommandChannel(client *ssh.Client, command string, stdin io.Reader, log *slog.Logger) (*commandChannel, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrEmptyCommand
	}

	return &commandChannel{
		client:  client,
		command: command,
		stdin:   stdin,
		log:     log.With("command", command),
		state:   stateCreated,
	}, nil
}

func (c *commandChannel) transition(to channelState) {
	c.log.Debug("Состояние канала", "from", c.state, "to", to)
	c.state = to
}

func (c *commandChannel) exec() RemoteCommand {
	session, err := c.client.NewSession()
	if err != nil {
		return c.fail(errors.NewChannelError(c.command, err))
	}
	defer session.Close()
	c.transition(stateOpened)

	// Без ввода Session.Stdin остаётся nil, и удалённая сторона сразу получает EOF.
	if c.stdin != nil {
		session.Stdin = c.stdin
	}
	session.Stdout = &c.stdout
	session.Stderr = &c.stderr

	if err := session.Start(c.command); err != nil {
		return c.fail(errors.NewChannelError(c.command, err))
	}
	c.transition(stateRunning)

	status, err := exitStatusOf(session.Wait())
	if err != nil {
		return c.fail(c.classify(err))
	}
	c.transition(stateCompleted)

	c.log.Info("Команда выполнена", "exit_status", status, "stdout_bytes", c.stdout.Len())

	return RemoteCommand{
		command:    c.command,
		exitStatus: status,
		ran:        true,
		stdout:     c.stdout.Bytes(),
		stderr:     c.stderr.Bytes(),
	}
}

func (c *commandChannel) fail(err error) RemoteCommand {
	c.transition(stateErrored)
	c.log.Warn("Ошибка выполнения команды", "error", err)

	return RemoteCommand{
		command: c.command,
		stdout:  c.stdout.Bytes(),
		stderr:  c.stderr.Bytes(),
		errs:    []error{err},
	}
}

// classify раскладывает ошибку Wait по типам: канал, закрытый без статуса
// завершения, - ошибка канала, остальное - ошибка ввода-вывода.
func (c *commandChannel) classify(err error) error {
	var missing *ssh.ExitMissingError
	if stderrors.As(err, &missing) {
		return errors.NewChannelError(c.command, err)
	}
	return errors.NewStreamError("exec", err)
}

// exitStatusOf превращает результат Session.Wait в статус завершения.
// Ненулевой статус - это не ошибка.
func exitStatusOf(waitErr error) (int, error) {
	if waitErr == nil {
		return 0, nil
	}

	var exitErr *ssh.ExitError
	if stderrors.As(waitErr, &exitErr) {
		return exitErr.ExitStatus(), nil
	}

	return 0, waitErr
}
