package index

import (
	"os"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/shell"
)

// ExecContext supplies the values of the desktop-entry field codes that
// expand to something.
type ExecContext struct {
	Name string // %c
	Icon string // %i
	Path string // %k
}

// fieldCode matches one field code inside an argument.
var fieldCode = regexp.MustCompile(`%[fFuUdDnNvmick]`)

// droppedCodes are field codes that stand alone as an argument and expand
// to nothing when the launcher passes no files or URLs.
var droppedCodes = map[string]bool{
	"%f": true, "%F": true, "%u": true, "%U": true,
	"%d": true, "%D": true, "%n": true, "%N": true,
	"%v": true, "%m": true,
}

// ParseExec splits a desktop-entry Exec value into argv with field codes
// expanded. Quoting follows shell rules; variable references are kept
// literally, since the value is not passed through a shell.
func ParseExec(exec string, ec ExecContext) []string {
	exec = strings.TrimSpace(exec)
	if exec == "" {
		return nil
	}

	fields, err := shell.Fields(exec, func(name string) string { return "$" + name })
	if err != nil {
		fields = strings.Fields(exec)
	}

	argv := make([]string, 0, len(fields))
	for _, f := range fields {
		switch {
		case droppedCodes[f]:
			continue
		case f == "%i":
			if ec.Icon != "" {
				argv = append(argv, "--icon", ec.Icon)
			}
			continue
		}
		argv = append(argv, expandCodes(f, ec))
	}
	return argv
}

// expandCodes expands the field codes embedded in one argument. "%%" is a
// literal percent sign.
func expandCodes(arg string, ec ExecContext) string {
	parts := strings.Split(arg, "%%")
	for i, p := range parts {
		parts[i] = fieldCode.ReplaceAllStringFunc(p, func(code string) string {
			switch code {
			case "%c":
				return ec.Name
			case "%k":
				return ec.Path
			case "%i":
				return ec.Icon
			}
			return ""
		})
	}
	return strings.Join(parts, "%")
}

// TerminalArgv wraps argv to run inside the user's terminal emulator.
// $TERMINAL is preferred, falling back to xterm.
func TerminalArgv(argv []string) []string {
	term := os.Getenv("TERMINAL")
	if term == "" {
		term = "xterm"
	}
	termArgv, err := shell.Fields(term, nil)
	if err != nil || len(termArgv) == 0 {
		termArgv = []string{term}
	}
	return append(append(termArgv, "-e"), argv...)
}
