package provision

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	Prefix: "talib-setup",
	Level:  log.InfoLevel,
})

// Logger returns the diagnostic logger shared by all steps.
func Logger() *log.Logger {
	return logger
}

// SetVerbose toggles debug diagnostics.
func SetVerbose(verbose bool) {
	if verbose {
		logger.SetLevel(log.DebugLevel)
		logger.SetReportTimestamp(true)
		return
	}
	logger.SetLevel(log.InfoLevel)
	logger.SetReportTimestamp(false)
}

// LogStep prints a fancy-ish header for a step.
func LogStep(text string) {
	fmt.Println(
		color.MagentaString(" ⌘"),
		color.New(color.Bold).Sprint(text),
	)
}

// LogDetail prints a secondary line below a step header.
func LogDetail(text string) {
	fmt.Println(
		color.New(color.FgHiBlack).Sprint("   └"),
		color.New(color.FgHiBlack).Sprint(text),
	)
}

// LogWarn prints a non fatal problem below a step header.
func LogWarn(text string) {
	fmt.Println(
		color.YellowString("   !"),
		color.YellowString(text),
	)
}
