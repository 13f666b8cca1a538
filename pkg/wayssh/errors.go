package wayssh

import "github.com/vdvorak/way-secshell/internal/errors"

// Типы ошибок в результатах подключения, команд и загрузок. Разбираются через errors.As.
type (
	ConnectionError = errors.ConnectionError
	ChannelError    = errors.ChannelError
	StreamError     = errors.StreamError
	ProtocolError   = errors.ProtocolError
	VersionError    = errors.VersionError
)

var (
	ErrInvalidConfig  = errors.ErrInvalidSSHConfig
	ErrEmptyCommand   = errors.ErrEmptyCommand
	ErrNoDestination  = errors.ErrNoDestination
	ErrBadDestination = errors.ErrBadDestination
	ErrDisconnected   = errors.ErrDisconnected
	ErrNotConnected   = errors.ErrNotConnected
)
