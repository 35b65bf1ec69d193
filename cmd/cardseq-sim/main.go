// Command cardseq-sim stands in for a barcode scanner during bench tests. It
// writes each line typed on stdin to a serial port, terminated with CRLF,
// so the server on the other end of a virtual port pair sees real scans.
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"go.bug.st/serial"
	"golang.org/x/term"
)

func main() {
	port := flag.String("port", os.Getenv("CARDSEQ_SIM_PORT"), "serial port to write to, e.g. /dev/pts/3 or COM1")
	baud := flag.Int("baud", 115200, "baud rate")
	delay := flag.Duration("delay", 100*time.Millisecond, "pause after each line")
	flag.Parse()

	logger := log.New(os.Stderr, "cardseq-sim ", log.LstdFlags|log.LUTC)

	if *port == "" {
		logger.Fatalf("no port: pass -port or set CARDSEQ_SIM_PORT")
	}

	p, err := serial.Open(*port, &serial.Mode{
		BaudRate: *baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		logger.Fatalf("open %s: %v", *port, err)
	}
	defer func() {
		_ = p.Close()
		logger.Printf("disconnected from %s", *port)
	}()
	logger.Printf("connected to %s (baud=%d)", *port, *baud)

	r := relay{
		out:   p,
		delay: *delay,
	}
	// Prompt and echo only for a human at a terminal; piped input stays quiet.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		r.prompt = os.Stdout
	}

	sent, err := r.run(os.Stdin)
	if err != nil {
		logger.Printf("stopped after %d lines: %v", sent, err)
		return
	}
	logger.Printf("sent %d lines", sent)
}
