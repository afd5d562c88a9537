package main

import (
	"fmt"
	"io"
)

// consoleNotifier prints toast messages on their own line.
type consoleNotifier struct {
	out io.Writer
}

func (n consoleNotifier) Success(message string) {
	fmt.Fprintf(n.out, "%s %s\n", colorize("text-success", "OK"), message)
}

func (n consoleNotifier) Error(message string) {
	fmt.Fprintf(n.out, "%s %s\n", colorize("text-danger", "ERROR"), message)
}

type consoleHeader struct {
	out io.Writer
}

func (h consoleHeader) SetHeader(title string) {
	fmt.Fprintf(h.out, "== %s ==\n", title)
}

// consoleRouter has no screens to switch to; it shows the destination.
type consoleRouter struct {
	out io.Writer
}

func (r consoleRouter) Navigate(path string) {
	fmt.Fprintf(r.out, "-> %s\n", path)
}
