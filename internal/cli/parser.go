package cli

import (
	"os"
	"strings"

	"github.com/vdvorak/way-secshell/config"
	"github.com/vdvorak/way-secshell/internal/errors"

	"github.com/alecthomas/kingpin/v2"
)

type CommandType string

const (
	Exec   CommandType = "exec"
	Upload CommandType = "upload"
)

type ParsedCommand struct {
	Type        CommandType
	ConfigPath  string
	LogLevel    string
	AskPassword bool
	Connection  config.Connection

	// exec
	Command string
	Stdin   bool

	// upload
	File        string
	Destination string
}

func Parse() (*ParsedCommand, error) {
	return ParseArgs(os.Args[1:])
}

func ParseArgs(args []string) (*ParsedCommand, error) {
	app := kingpin.New("wayssh", "Выполнение команд и загрузка файлов по SSH")
	app.Version("wayssh v0.1.0")
	app.HelpFlag.Short('h')

	logLevel := app.Flag("log-level", "Уровень логирования").
		Envar("WAYSSH_LOG_LEVEL").
		Default("info").
		Enum("debug", "info", "warn", "error")
	configPath := app.Flag("config", "Файл подключения (yaml или json)").Short('c').Envar("WAYSSH_CONFIG").ExistingFile()

	var conn config.Connection
	app.Flag("host", "Адрес сервера").Short('H').Envar("WAYSSH_HOST").StringVar(&conn.Host)
	app.Flag("port", "Порт SSH").Short('p').Envar("WAYSSH_PORT").IntVar(&conn.Port)
	app.Flag("user", "Имя пользователя").Short('u').Envar("WAYSSH_USER").StringVar(&conn.User)
	app.Flag("key", "Путь к приватному ключу").Short('i').Envar("WAYSSH_KEY").StringVar(&conn.Key)
	app.Flag("password", "Пароль").Envar("WAYSSH_PASSWORD").StringVar(&conn.Password)
	app.Flag("known-hosts", "Файл known_hosts для проверки ключа сервера").Envar("WAYSSH_KNOWN_HOSTS").StringVar(&conn.KnownHosts)
	app.Flag("timeout", "Таймаут подключения, например 15s").Envar("WAYSSH_TIMEOUT").StringVar(&conn.Timeout)
	app.Flag("server-version", "Условие на версию сервера, например \">= 8.0\"").Envar("WAYSSH_SERVER_VERSION").StringVar(&conn.ServerVersion)
	askPassword := app.Flag("ask-password", "Запросить пароль в терминале").Bool()

	execCmd := app.Command(string(Exec), "Выполнить команду на сервере")
	execStdin := execCmd.Flag("stdin", "Передать локальный stdin в команду").Bool()
	execArgs := execCmd.Arg("command", "Команда").Required().Strings()

	uploadCmd := app.Command(string(Upload), "Загрузить файл по SCP")
	uploadFile := uploadCmd.Arg("file", "Локальный файл").Required().ExistingFile()
	uploadDest := uploadCmd.Arg("destination", "Путь на сервере").Required().String()

	cmd, err := app.Parse(args)
	if err != nil {
		return nil, err
	}

	parsed := &ParsedCommand{
		ConfigPath:  *configPath,
		LogLevel:    strings.ToLower(*logLevel),
		AskPassword: *askPassword,
		Connection:  conn,
	}

	switch cmd {
	case string(Exec):
		parsed.Type = Exec
		parsed.Command = strings.Join(*execArgs, " ")
		parsed.Stdin = *execStdin
		return parsed, nil
	case string(Upload):
		parsed.Type = Upload
		parsed.File = *uploadFile
		parsed.Destination = *uploadDest
		return parsed, nil
	default:
		if cmd == "" {
			return nil, errors.ErrUnknownCommand
		}
		return nil, &errors.UnknownCommandError{Command: cmd}
	}
}
