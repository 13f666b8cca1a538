package wayssh

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/vdvorak/way-secshell/internal/errors"

	"golang.org/x/crypto/ssh"
)

// Коды подтверждения, которые присылает принимающая сторона scp.
const (
	ackOK      byte = 0
	ackWarning byte = 1
	ackFatal   byte = 2
)

// UploadResult - результат одной загрузки по SCP.
type UploadResult struct {
	source      string
	destination string
	bytes       int64
	errs        []error
}

func (r UploadResult) Source() string { return r.source }
func (r UploadResult) Destination() string { return r.destination }

// Bytes - число байт содержимого, отправленных на сервер.
func (r UploadResult) Bytes() int64 { return r.bytes }

// Succeeded истинно, если все подтверждения пришли без ошибок.
func (r UploadResult) Succeeded() bool { return len(r.errs) == 0 }

func (r UploadResult) Errors() []error {
	return append([]error(nil), r.errs...)
}

func (r UploadResult) Err() error {
	return stderrors.Join(r.errs...)
}

type uploadKind int

const (
	uploadSuccess uploadKind = iota
	uploadFailed
)

// uploadChannel выполняет одну загрузку. Неудачный вариант лишь несёт ошибки
// подключения, из которого получен.
type uploadChannel struct {
	kind uploadKind
	file string
	dest string

	// успех
	client *ssh.Client
	log    *slog.Logger

	// неудача
	errs []error
}

func successUpload(client *ssh.Client, file, dest string, log *slog.Logger) uploadChannel {
	return uploadChannel{kind: uploadSuccess, client: client, file: file, dest: dest, log: log}
}

func failedUpload(file, dest string, errs []error) uploadChannel {
	return uploadChannel{kind: uploadFailed, file: file, dest: dest, errs: errs}
}

func (u uploadChannel) upload() UploadResult {
	result := UploadResult{source: u.file, destination: u.dest}

	switch u.kind {
	case uploadFailed:
		result.errs = append([]error(nil), u.errs...)
		return result
	case uploadSuccess:
		n, err := u.send()
		result.bytes = n
		if err != nil {
			u.log.Warn("Ошибка загрузки файла", "file", u.file, "dest", u.dest, "error", err)
			result.errs = []error{err}
			return result
		}
		u.log.Info("Файл загружен", "file", u.file, "dest", u.dest, "bytes", n)
	}

	return result
}

func (u uploadChannel) send() (int64, error) {
	if strings.TrimSpace(u.dest) == "" {
		return 0, ErrNoDestination
	}
	// Имя уходит в управляющую строку, перевод строки сломал бы протокол.
	name := path.Base(u.dest)
	if strings.ContainsAny(name, "\r\n") {
		return 0, fmt.Errorf("%w: %q", ErrBadDestination, u.dest)
	}

	f, err := os.Open(u.file)
	if err != nil {
		return 0, errors.NewStreamError("open", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, errors.NewStreamError("stat", err)
	}
	if info.IsDir() {
		return 0, errors.NewStreamError("stat", fmt.Errorf("%s: это каталог", u.file))
	}

	command := scpCommand(u.dest)

	session, err := u.client.NewSession()
	if err != nil {
		return 0, errors.NewChannelError(command, err)
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return 0, errors.NewChannelError(command, err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		return 0, errors.NewChannelError(command, err)
	}

	if err := session.Start(command); err != nil {
		return 0, errors.NewChannelError(command, err)
	}

	n, err := copyTo(stdin, bufio.NewReader(stdout), f, info.Mode().Perm(), info.Size(), name, u.log)
	if err != nil {
		return n, err
	}

	if err := stdin.Close(); err != nil {
		return n, errors.NewStreamError("close", err)
	}
	if err := session.Wait(); err != nil {
		return n, errors.NewChannelError(command, err)
	}

	return n, nil
}

// copyTo - передающая сторона протокола SCP для одного файла: подтверждение
// готовности, управляющая строка, содержимое, нулевой байт, итоговое подтверждение.
func copyTo(w io.Writer, r *bufio.Reader, src io.Reader, mode os.FileMode, size int64, name string, log *slog.Logger) (int64, error) {
	if err := readAck(r); err != nil {
		return 0, err
	}

	log.Debug("scp: управляющая строка", "mode", fmt.Sprintf("%04o", mode), "size", size, "name", name)
	if _, err := fmt.Fprint(w, controlLine(mode, size, name)); err != nil {
		return 0, errors.NewStreamError("write control", err)
	}
	if err := readAck(r); err != nil {
		return 0, err
	}

	n, err := io.CopyN(w, src, size)
	if err != nil {
		return n, errors.NewStreamError("write payload", err)
	}
	if _, err := w.Write([]byte{ackOK}); err != nil {
		return n, errors.NewStreamError("write terminator", err)
	}

	return n, readAck(r)
}

func controlLine(mode os.FileMode, size int64, name string) string {
	return fmt.Sprintf("C%04o %d %s\n", mode.Perm(), size, name)
}

// readAck читает один байт подтверждения. За кодами 1 и 2 следует строка сообщения.
func readAck(r *bufio.Reader) error {
	code, err := r.ReadByte()
	if err != nil {
		return errors.NewStreamError("read ack", err)
	}

	switch code {
	case ackOK:
		return nil
	case ackWarning, ackFatal:
		msg, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return errors.NewStreamError("read ack message", err)
		}
		return errors.NewProtocolError(code, strings.TrimRight(msg, "\r\n"))
	default:
		return errors.NewProtocolError(code, "")
	}
}

func scpCommand(dest string) string {
	return "scp -t " + shellQuote(dest)
}

// shellQuote заключает s в одинарные кавычки для POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
