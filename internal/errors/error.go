package errors

import "fmt"

// Общие ошибки, используемые во всем проекте
var (
	ErrInvalidSSHConfig = fmt.Errorf("некорректная конфигурация SSH")
	ErrEmptyCommand     = fmt.Errorf("пустая команда")
	ErrNoDestination    = fmt.Errorf("не указан путь назначения")
	ErrBadDestination   = fmt.Errorf("недопустимый путь назначения")
	ErrDisconnected     = fmt.Errorf("соединение уже закрыто")
	ErrNotConnected     = fmt.Errorf("подключение не выполнялось")
	ErrUnknownCommand   = fmt.Errorf("команда не указана")
)

// UnknownCommandError возникает при вводе неизвестной команды
type UnknownCommandError struct {
	Command string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("неизвестная команда: %s", e.Command)
}

// ConnectionError возникает при ошибках подключения по SSH:
// аутентификация, проверка ключа хоста, недоступный сервер.
type ConnectionError struct {
	Server string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ошибка подключения к серверу %q", e.Server)
	}
	return fmt.Sprintf("ошибка подключения к серверу %q: %v", e.Server, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewConnectionError создает новую ошибку подключения по SSH
func NewConnectionError(server string, err error) error {
	return &ConnectionError{Server: server, Err: err}
}

// ChannelError возникает при открытии или выполнении канала:
// сервер отказал в канале или закрыл его без статуса завершения.
type ChannelError struct {
	Command string
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("ошибка канала для команды %q: %v", e.Command, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// NewChannelError создает новую ошибку канала
func NewChannelError(command string, err error) error {
	return &ChannelError{Command: command, Err: err}
}

// StreamError возникает при ошибках чтения или записи потоков
type StreamError struct {
	Op  string
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("ошибка ввода-вывода (%s): %v", e.Op, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// NewStreamError создает новую ошибку ввода-вывода
func NewStreamError(op string, err error) error {
	return &StreamError{Op: op, Err: err}
}

// ProtocolError возникает, когда удалённый scp отвечает ненулевым байтом подтверждения.
// Code 1 - предупреждение, 2 - фатальная ошибка; Message - строка, присланная сервером.
type ProtocolError struct {
	Code    byte
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("scp: код подтверждения %d", e.Code)
	}
	return fmt.Sprintf("scp: код подтверждения %d: %s", e.Code, e.Message)
}

// NewProtocolError создает новую ошибку протокола SCP
func NewProtocolError(code byte, message string) error {
	return &ProtocolError{Code: code, Message: message}
}

// VersionError возникает, когда версия сервера не удовлетворяет условию
type VersionError struct {
	Version    string
	Constraint string
	Err        error
}

func (e *VersionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("версия %q не соответствует условию %q: %v", e.Version, e.Constraint, e.Err)
	}
	return fmt.Sprintf("версия %q не соответствует условию %q", e.Version, e.Constraint)
}

func (e *VersionError) Unwrap() error {
	return e.Err
}

// NewVersionError создает новую ошибку проверки версии
func NewVersionError(version, constraint string, err error) error {
	return &VersionError{Version: version, Constraint: constraint, Err: err}
}
