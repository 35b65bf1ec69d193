package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

const exitCommand = "exit"

// relay copies lines from an input to the port, one CRLF-terminated write
// per line.
type relay struct {
	out    io.Writer
	prompt io.Writer // nil = no prompt or echo
	delay  time.Duration
}

// run returns the number of lines written. It stops at EOF or when a line
// reads "exit" (any case).
func (r relay) run(in io.Reader) (int, error) {
	sc := bufio.NewScanner(in)
	sent := 0

	for {
		r.printf("Enter data to send (or '%s' to quit): ", exitCommand)
		if !sc.Scan() {
			return sent, sc.Err()
		}
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.EqualFold(strings.TrimSpace(line), exitCommand) {
			return sent, nil
		}

		if _, err := io.WriteString(r.out, line+"\r\n"); err != nil {
			return sent, fmt.Errorf("write: %w", err)
		}
		sent++
		r.printf("Sent: %s\n", line)

		if r.delay > 0 {
			time.Sleep(r.delay)
		}
	}
}

func (r relay) printf(format string, args ...any) {
	if r.prompt != nil {
		fmt.Fprintf(r.prompt, format, args...)
	}
}
