package main

import (
	"fmt"
	"io"
	"os"

	fcolor "github.com/fatih/color"

	"mirgo/internal/prefab"
)

var (
	successColor = fcolor.New(fcolor.FgGreen)
	warningColor = fcolor.New(fcolor.FgYellow)
	errorColor   = fcolor.New(fcolor.FgRed)
	addedColor   = fcolor.New(fcolor.FgGreen)
	removedColor = fcolor.New(fcolor.FgRed)
	changedColor = fcolor.New(fcolor.FgCyan)
	dimColor     = fcolor.New(fcolor.Faint)
)

func printSuccess(w io.Writer, format string, a ...any) {
	successColor.Fprintf(w, "✔ "+format+"\n", a...)
}

func printWarning(w io.Writer, format string, a ...any) {
	warningColor.Fprintf(w, "⚠ "+format+"\n", a...)
}

func printError(format string, a ...any) {
	errorColor.Fprintf(os.Stderr, "✗ "+format+"\n", a...)
}

// printReport lists the warnings of an operation, if any.
func printReport(w io.Writer, r *prefab.Report) {
	if r.Empty() {
		return
	}
	for _, warn := range r.Warnings {
		printWarning(w, "%v", warn)
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
