package simulate

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/petgotchi/petgotchi/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging sends log output to stdout and logFile. If logFile is empty,
// a timestamped filename is generated. The returned func closes the file.
func SetupLogging(logFile string) (func(), error) {
	if logFile == "" {
		logFile = "petsim_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWriter(io.MultiWriter(os.Stdout, file)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return func() { _ = file.Close() }, nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Petgotchi Simulator
===================

Replays a synthetic coding-activity plan against one pet per difficulty and
reports how stage, xp, and vitals evolve day by day.

Usage:
  go run ./cmd/petsim [options]

Options:
  -days int
        Number of simulated days (default 30)
  -interval duration
        Simulated time between sync passes, at most 24h (default 1h)
  -events int
        Mean number of events on an active day (default 6)
  -active float
        Share of days with any activity, 0..1 (default 0.8)
  -difficulties string
        Comma-separated difficulties to compare (default "easy,normal,hard")
  -seed uint
        Activity plan seed (default 1)
  -output string
        Write the JSON report to this file
  -log string
        Log file for run output (default: petsim_TIMESTAMP.log)
  -verbose
        Log every simulated day
  -help
        Show this help message

Examples:
  # Compare all difficulties over a month
  go run ./cmd/petsim

  # A lazy quarter on hard mode
  go run ./cmd/petsim -days 90 -active 0.3 -difficulties hard -verbose

  # Save the trajectories for plotting
  go run ./cmd/petsim -days 365 -output out/year.json
`)
}
