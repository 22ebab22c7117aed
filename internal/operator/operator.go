// Package operator asks the human operator yes/no and free-text questions.
//
// Every prompt blocks until the operator answers; there is no timeout. The
// measurement loop only ever talks to a Prompter, so a terminal session, a
// scripted session and tests all drive it the same way.
package operator

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInputClosed is returned when the operator's input ends before a
// question is answered.
var ErrInputClosed = errors.New("operator input closed")

// Prompter asks the operator questions.
type Prompter interface {
	// AskYesNo asks a yes/no question. Answers other than yes or no are
	// never returned; implementations ask again.
	AskYesNo(question string) (bool, error)

	// AskText asks a free-text question and returns the trimmed answer.
	AskText(question string) (string, error)
}

// ParseYesNo interprets an answer case-insensitively. ok is false for
// anything other than "yes", "y", "no" or "n".
func ParseYesNo(answer string) (yes, ok bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "y":
		return true, true
	case "no", "n":
		return false, true
	default:
		return false, false
	}
}

// Console prompts on a terminal.
type Console struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewConsole reads answers from in and writes questions to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{scanner: bufio.NewScanner(in), out: out}
}

// AskYesNo implements Prompter. Unrecognised answers print a hint and
// repeat the question.
func (c *Console) AskYesNo(question string) (bool, error) {
	for {
		fmt.Fprintf(c.out, "%s (y/n): ", question)
		line, err := c.readLine()
		if err != nil {
			return false, err
		}
		if yes, ok := ParseYesNo(line); ok {
			return yes, nil
		}
		fmt.Fprintln(c.out, "Please answer yes or no.")
	}
}

// AskText implements Prompter.
func (c *Console) AskText(question string) (string, error) {
	fmt.Fprintf(c.out, "%s ", question)
	line, err := c.readLine()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *Console) readLine() (string, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read answer: %w", err)
		}
		return "", ErrInputClosed
	}
	return c.scanner.Text(), nil
}

// Script answers questions from a fixed list, in order. It is used for
// replaying a session and in tests.
type Script struct {
	answers []string
	next    int

	// Asked records every question in the order it was asked.
	Asked []string
}

// NewScript creates a prompter that gives the answers in order.
func NewScript(answers ...string) *Script {
	return &Script{answers: answers}
}

// ParseScript splits a comma separated answer list such as "n,y,y,cm".
func ParseScript(list string) *Script {
	if strings.TrimSpace(list) == "" {
		return NewScript()
	}
	parts := strings.Split(list, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return NewScript(parts...)
}

// AskYesNo implements Prompter. Unrecognised answers are skipped the way
// Console asks again.
func (s *Script) AskYesNo(question string) (bool, error) {
	s.Asked = append(s.Asked, question)
	for {
		answer, err := s.pop()
		if err != nil {
			return false, err
		}
		if yes, ok := ParseYesNo(answer); ok {
			return yes, nil
		}
	}
}

// AskText implements Prompter.
func (s *Script) AskText(question string) (string, error) {
	s.Asked = append(s.Asked, question)
	answer, err := s.pop()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// Remaining returns the number of unused answers.
func (s *Script) Remaining() int {
	return len(s.answers) - s.next
}

func (s *Script) pop() (string, error) {
	if s.next >= len(s.answers) {
		return "", ErrInputClosed
	}
	a := s.answers[s.next]
	s.next++
	return a, nil
}
