package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"couponClipper/internal/logger"

	"github.com/chzyer/readline"
)

// LineReader читает строку ответа после приглашения.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// Input - общий ввод для консоли и оператора: readline с историей
// команд или, если терминал недоступен, построчное чтение stdin.
type Input struct {
	rl     *readline.Instance
	reader *bufio.Reader
	out    io.Writer
}

func NewInput(historyFile string, log *logger.Zap) *Input {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 "> ",
		HistoryFile:            historyFile,
		DisableAutoSaveHistory: true,
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
	})
	if err != nil {
		log.Warn("Не удалось инициализировать readline, будет использован fallback режим")
		return newPlainInput(os.Stdin, os.Stdout)
	}
	return &Input{rl: rl, out: rl.Stdout()}
}

func newPlainInput(r io.Reader, w io.Writer) *Input {
	return &Input{reader: bufio.NewReader(r), out: w}
}

// ReadLine возвращает readline.ErrInterrupt на Ctrl+C и io.EOF на Ctrl+D.
func (in *Input) ReadLine(prompt string) (string, error) {
	if in.rl != nil {
		in.rl.SetPrompt(prompt)
		line, err := in.rl.Readline()
		return strings.TrimSpace(line), err
	}

	fmt.Fprint(in.out, prompt)
	line, err := in.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Remember добавляет команду в историю. Ответы оператору туда не попадают.
func (in *Input) Remember(line string) {
	if in.rl != nil {
		_ = in.rl.SaveHistory(line)
	}
}

func (in *Input) Close() {
	if in.rl != nil {
		in.rl.Close()
	}
}
