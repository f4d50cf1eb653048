package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirm asks a yes/no question on out and reads the answer from in.
// Anything but y or yes is a no.
func Confirm(in *bufio.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := in.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// SplitCommand splits a shell line into a command and its argument text.
func SplitCommand(line string) (cmd, rest string) {
	line = strings.TrimSpace(line)
	cmd, rest, _ = strings.Cut(line, " ")
	return strings.ToLower(cmd), strings.TrimSpace(rest)
}
