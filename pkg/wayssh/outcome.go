// Package wayssh - текучий фасад SSH-клиента: один раз подключиться, затем
// выполнять команды и загружать файлы через полученный Outcome. Ошибки не
// всплывают паникой или возвратом error, а хранятся в возвращаемых значениях.
package wayssh

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/vdvorak/way-secshell/internal/errors"

	"golang.org/x/crypto/ssh"
)

type outcomeKind int

// Нулевой Outcome считается неудачным и не обращается к nil-клиенту.
const (
	kindFailed outcomeKind = iota
	kindConnected
)

// Outcome - результат попытки подключения: либо живая сессия, либо
// упорядоченный список ошибок, встреченных при подключении. Нулевое значение
// ведёт себя как неудачное подключение с ошибкой ErrNotConnected.
type Outcome struct {
	kind outcomeKind
	log  *slog.Logger

	// подключено
	client *ssh.Client
	addr   string
	once   sync.Once
	mu     sync.Mutex
	closed bool

	// неудача
	errs []error
}

func connected(client *ssh.Client, addr string, log *slog.Logger) *Outcome {
	return &Outcome{kind: kindConnected, client: client, addr: addr, log: log}
}

func failed(errs []error, log *slog.Logger) *Outcome {
	return &Outcome{kind: kindFailed, errs: errs, log: log}
}

func (o *Outcome) IsConnected() bool {
	switch o.kind {
	case kindConnected:
		o.mu.Lock()
		defer o.mu.Unlock()
		return !o.closed
	default:
		return false
	}
}

// Disconnect закрывает сессию. Работает только первый вызов, он же возвращает
// ошибку закрытия. Для неудачного подключения ничего не делает.
func (o *Outcome) Disconnect() error {
	if o.kind != kindConnected {
		return nil
	}

	var err error
	o.once.Do(func() {
		o.mu.Lock()
		o.closed = true
		o.mu.Unlock()

		err = o.client.Close()
		o.log.Info("Соединение закрыто", "addr", o.addr)
	})
	return err
}

// Errors возвращает ошибки подключения. У подключённого Outcome список пуст,
// у неудачного всегда непуст.
func (o *Outcome) Errors() []error {
	switch o.kind {
	case kindFailed:
		return o.failure()
	default:
		return nil
	}
}

// ServerVersion возвращает SSH-баннер сервера или "", если подключения нет.
func (o *Outcome) ServerVersion() string {
	if o.kind != kindConnected {
		return ""
	}
	return string(o.client.ServerVersion())
}

func (o *Outcome) Execute(command string) RemoteCommand {
	return o.Read(nil).AndExecute(command)
}

func (o *Outcome) Executef(template string, args ...any) RemoteCommand {
	return o.Execute(fmt.Sprintf(template, args...))
}

// Read задаёт стандартный ввод для следующей команды.
func (o *Outcome) Read(in io.Reader) ReadBuilder {
	return ReadBuilder{outcome: o, in: in}
}

// Scp начинает загрузку локального файла; завершается вызовами To и Upload.
func (o *Outcome) Scp(file string) ScpBuilder {
	return ScpBuilder{outcome: o, file: file}
}

func (o *Outcome) executeCommand(command string, in io.Reader) RemoteCommand {
	if o.kind == kindFailed {
		return failedCommand(command, o.failure())
	}

	if !o.IsConnected() {
		return failedCommand(command, []error{errors.NewChannelError(command, ErrDisconnected)})
	}
	ch, err := newCommandChannel(o.client, command, in, o.log)
	if err != nil {
		return failedCommand(command, []error{err})
	}
	return ch.exec()
}

func (o *Outcome) uploadChannelFor(file, dest string) uploadChannel {
	if o.kind == kindFailed {
		return failedUpload(file, dest, o.failure())
	}

	if !o.IsConnected() {
		return failedUpload(file, dest, []error{errors.NewChannelError(scpCommand(dest), ErrDisconnected)})
	}
	return successUpload(o.client, file, dest, o.log)
}

func (o *Outcome) failure() []error {
	if len(o.errs) == 0 {
		return []error{errors.NewConnectionError(o.addr, ErrNotConnected)}
	}
	return append([]error(nil), o.errs...)
}
