package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/petgotchi/petgotchi/internal/domain/model"
	"github.com/petgotchi/petgotchi/internal/simulate"
)

// Default configuration constants.
const (
	defaultDays         = 30
	defaultInterval     = time.Hour
	defaultEventsPerDay = 6
	defaultActiveRatio  = 0.8
	defaultSeed         = 1
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	var (
		days         = flag.Int("days", defaultDays, "Number of simulated days")
		interval     = flag.Duration("interval", defaultInterval, "Simulated time between sync passes")
		eventsPerDay = flag.Int("events", defaultEventsPerDay, "Mean number of events on an active day")
		active       = flag.Float64("active", defaultActiveRatio, "Share of days with any activity")
		difficulties = flag.String("difficulties", "easy,normal,hard", "Comma-separated difficulties to compare")
		seed         = flag.Uint64("seed", defaultSeed, "Activity plan seed")
		outputFile   = flag.String("output", "", "Write the JSON report to this file")
		logFile      = flag.String("log", "", "Log file for run output (default: petsim_TIMESTAMP.log)")
		verbose      = flag.Bool("verbose", false, "Log every simulated day")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	closeLog, err := simulate.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closeLog()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := simulate.Config{
		Days:           *days,
		SyncInterval:   *interval,
		EventsPerDay:   *eventsPerDay,
		ActiveDayRatio: *active,
		Difficulties:   parseDifficulties(*difficulties),
		Seed:           *seed,
		OutputFile:     *outputFile,
		LogFile:        *logFile,
		Verbose:        *verbose,
	}

	if _, err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		closeLog()
		os.Exit(1)
	}
}

func parseDifficulties(s string) []model.Difficulty {
	var out []model.Difficulty
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, model.Difficulty(strings.ToLower(part)))
		}
	}
	return out
}
