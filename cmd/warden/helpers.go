package main

import (
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// startSpinner shows message on stderr until cleanup runs, then prints the
// spinner's FinalMSG. With --verbose the spinner stays off so it does not
// fight the log lines.
func startSpinner(message string) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message

	// Ignore color errors - continue without colored spinner if it fails.
	_ = s.Color("cyan")

	if !verbose {
		s.Start()
	}

	cleanup := func() {
		if s.FinalMSG != "" && !strings.HasSuffix(s.FinalMSG, "\n") {
			s.FinalMSG += "\n"
		}
		if verbose {
			os.Stderr.WriteString(s.FinalMSG)
			return
		}
		s.Stop()
	}
	return s, cleanup
}

func okMsg(msg string) string {
	return color.GreenString("✓") + " " + msg + "\n"
}

func failMsg(msg string, err error) string {
	out := color.RedString("✗") + " " + msg + "\n"
	if err != nil {
		out += color.RedString("Error: ") + err.Error() + "\n"
	}
	return out
}

func hintMsg(msg string) string {
	return color.CyanString("→") + " " + msg + "\n"
}
