package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ConfirmMessage is the question asked before each write.
const ConfirmMessage = "Apply changes to this note?"

// Prompter asks the user to confirm a write.
type Prompter interface {
	// Interactive reports whether a user can answer.
	Interactive() bool
	Confirm(message string) bool
}

// TerminalPrompter reads answers from a terminal.
type TerminalPrompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// NewTerminalPrompter prompts on stdout and reads stdin. It only asks when
// both are terminals.
func NewTerminalPrompter() *TerminalPrompter {
	tty := isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stdin.Fd())
	return NewPrompter(os.Stdin, os.Stdout, tty)
}

// NewPrompter returns a prompter over arbitrary streams.
func NewPrompter(in io.Reader, out io.Writer, interactive bool) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out, interactive: interactive}
}

func (p *TerminalPrompter) Interactive() bool {
	return p.interactive
}

// Confirm asks message and reports whether the answer was y or yes. A
// non-interactive prompter always declines.
func (p *TerminalPrompter) Confirm(message string) bool {
	if !p.interactive {
		return false
	}
	if message == "" {
		message = ConfirmMessage
	}
	fmt.Fprintf(p.out, "%s %s ", message, Hint("[y/N]:"))
	response, _ := p.in.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
