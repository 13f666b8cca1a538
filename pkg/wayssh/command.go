package wayssh

import (
	"bytes"
	stderrors "errors"
)

// RemoteCommand - результат выполнения удалённой команды или неудачной попытки
// её выполнить. Значение неизменяемо, методы доступа возвращают копии.
type RemoteCommand struct {
	command    string
	exitStatus int
	ran        bool
	stdout     []byte
	stderr     []byte
	errs       []error
}

func failedCommand(command string, errs []error) RemoteCommand {
	return RemoteCommand{
		command: command,
		errs:    append([]error(nil), errs...),
	}
}

func (c RemoteCommand) Command() string {
	return c.command
}

// Succeeded сообщает, что команда завершилась со статусом 0 и без ошибок.
func (c RemoteCommand) Succeeded() bool {
	return c.ran && c.exitStatus == 0 && len(c.errs) == 0
}

// ExitStatus возвращает статус завершения; ok ложно, если команда так и не
// завершилась.
func (c RemoteCommand) ExitStatus() (status int, ok bool) {
	return c.exitStatus, c.ran
}

// Output возвращает весь stdout команды, включая частичный вывод,
// полученный до ошибки.
func (c RemoteCommand) Output() []byte {
	return bytes.Clone(c.stdout)
}

func (c RemoteCommand) String() string {
	return string(c.stdout)
}

func (c RemoteCommand) Stderr() []byte {
	return bytes.Clone(c.stderr)
}

func (c RemoteCommand) Errors() []error {
	return append([]error(nil), c.errs...)
}

// Err объединяет Errors в одну ошибку; nil, если ошибок нет.
func (c RemoteCommand) Err() error {
	return stderrors.Join(c.errs...)
}
