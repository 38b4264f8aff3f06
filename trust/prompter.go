package trust

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Prompter asks the operator a yes/no question: on no trust-file or UNS
// match, the resolver interactively prompts the operator (y/n). Factored
// out behind an interface so tests can inject a deterministic answer
// instead of driving a real terminal.
type Prompter interface {
	Confirm(question string) bool
}

// TTYPrompter reads an operator's y/n answer from stdin when it is a
// terminal, and otherwise defers to NonInteractivePrompter's default.
type TTYPrompter struct {
	In  io.Reader
	Out io.Writer
}

// NewTTYPrompter creates a TTYPrompter over the process's stdin/stdout.
func NewTTYPrompter() *TTYPrompter {
	return &TTYPrompter{In: os.Stdin, Out: os.Stdout}
}

// Confirm prints question and reads a y/n answer. If stdin is not a
// terminal, it defers to the non-interactive default (false/no): in
// non-interactive contexts, "no" is assumed.
func (p *TTYPrompter) Confirm(question string) bool {
	if f, ok := p.In.(*os.File); ok && !isatty.IsTerminal(f.Fd()) {
		return false
	}
	fmt.Fprintf(p.Out, "%s [y/N] ", question)
	scanner := bufio.NewScanner(p.In)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

// NonInteractivePrompter always answers no, the non-interactive default.
type NonInteractivePrompter struct{}

// Confirm always returns false.
func (NonInteractivePrompter) Confirm(string) bool { return false }
