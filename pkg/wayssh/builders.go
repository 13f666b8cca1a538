package wayssh

import (
	"fmt"
	"io"
)

// ReadBuilder связывает подключение с потоком ввода для следующей команды.
//
//	out.Read(strings.NewReader("payload")).AndExecute("cat > /tmp/payload")
type ReadBuilder struct {
	outcome *Outcome
	in      io.Reader
}

func (b ReadBuilder) AndExecute(command string) RemoteCommand {
	return b.outcome.executeCommand(command, b.in)
}

func (b ReadBuilder) AndExecutef(template string, args ...any) RemoteCommand {
	return b.AndExecute(fmt.Sprintf(template, args...))
}

// ScpBuilder собирает локальный файл и удалённый путь для загрузки.
//
//	out.Scp("build/app.tar.gz").To("/srv/app.tar.gz").Upload()
type ScpBuilder struct {
	outcome *Outcome
	file    string
	dest    string
}

func (b ScpBuilder) To(dest string) ScpBuilder {
	b.dest = dest
	return b
}

func (b ScpBuilder) Upload() UploadResult {
	return b.outcome.uploadChannelFor(b.file, b.dest).upload()
}
