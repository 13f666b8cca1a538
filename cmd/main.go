package main

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"

	"github.com/vdvorak/way-secshell/config"
	"github.com/vdvorak/way-secshell/internal/cli"
	"github.com/vdvorak/way-secshell/internal/logger"
	"github.com/vdvorak/way-secshell/pkg/wayssh"

	"github.com/joho/godotenv"
	"golang.org/x/term"
)

// exitNotRun возвращается, если удалённая команда так и не вернула статус завершения.
const exitNotRun = 255

func main() {
	// Переменные WAYSSH_* из .env должны быть видны до разбора флагов.
	envErr := godotenv.Load()

	cmd, err := cli.Parse()
	if err != nil {
		log.Fatalf("Ошибка парсинга команды: %v", err)
	}

	logger.SetupGlobalLogger(cmd.LogLevel)
	logg := slog.Default()

	if envErr != nil && !stderrors.Is(envErr, fs.ErrNotExist) {
		logg.Warn("Не удалось прочитать .env", "error", envErr)
	}

	os.Exit(run(cmd, logg))
}

func run(cmd *cli.ParsedCommand, logg *slog.Logger) int {
	sshCfg, err := connectionConfig(cmd)
	if err != nil {
		logg.Error("Ошибка конфигурации", "error", err)
		return 1
	}

	out := wayssh.Connect(sshCfg, logg)
	defer out.Disconnect()

	switch cmd.Type {
	case cli.Exec:
		return handleExec(out, cmd, logg)
	case cli.Upload:
		return handleUpload(out, cmd, logg)
	default:
		logg.Error("Неизвестная команда", "command", cmd.Type)
		return 1
	}
}

func handleExec(out *wayssh.Outcome, cmd *cli.ParsedCommand, logg *slog.Logger) int {
	var result wayssh.RemoteCommand
	if cmd.Stdin {
		result = out.Read(os.Stdin).AndExecute(cmd.Command)
	} else {
		result = out.Execute(cmd.Command)
	}

	os.Stdout.Write(result.Output())
	os.Stderr.Write(result.Stderr())

	for _, err := range result.Errors() {
		logg.Error("Ошибка выполнения команды", "command", cmd.Command, "error", err)
	}

	status, ok := result.ExitStatus()
	if !ok {
		return exitNotRun
	}
	logg.Debug("Команда завершена", "command", cmd.Command, "exit_status", status)
	return status
}

func handleUpload(out *wayssh.Outcome, cmd *cli.ParsedCommand, logg *slog.Logger) int {
	result := out.Scp(cmd.File).To(cmd.Destination).Upload()
	if !result.Succeeded() {
		for _, err := range result.Errors() {
			logg.Error("Ошибка загрузки", "file", cmd.File, "destination", cmd.Destination, "error", err)
		}
		return 1
	}

	logg.Info("Загружено", "file", result.Source(), "destination", result.Destination(), "bytes", result.Bytes())
	return 0
}

func connectionConfig(cmd *cli.ParsedCommand) (wayssh.Config, error) {
	conn := cmd.Connection

	if cmd.ConfigPath != "" {
		fileConn, err := config.LoadConnectionConfig(cmd.ConfigPath)
		if err != nil {
			return wayssh.Config{}, err
		}
		conn.Merge(*fileConn)
	}

	if cmd.AskPassword {
		password, err := readPassword()
		if err != nil {
			return wayssh.Config{}, err
		}
		conn.Password = password
	}

	return conn.SSHConfig()
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--ask-password: stdin не является терминалом")
	}

	fmt.Fprint(os.Stderr, "Пароль: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(password), nil
}
