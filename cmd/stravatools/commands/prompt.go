package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"stravatools/cmd/stravatools/globals"

	"golang.org/x/term"
)

// prompt prints `label` and reads one line, an input ending without newline
// still counts as a line.
func prompt(value *globals.Value, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := value.In.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptPassword reads without echo when stdin is a terminal.
func promptPassword(value *globals.Value, out io.Writer, label string) (string, error) {
	f, ok := value.Stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return prompt(value, out, label)
	}
	fmt.Fprint(out, label)
	password, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	return string(password), nil
}

func promptYesNo(value *globals.Value, out io.Writer, label string, fallback bool) (bool, error) {
	choices := "[y/N]"
	if fallback {
		choices = "[Y/n]"
	}
	answer, err := prompt(value, out, fmt.Sprintf("%s %s: ", label, choices))
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return fallback, nil
	}
}
