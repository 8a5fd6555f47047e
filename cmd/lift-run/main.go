package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"lift-dispatch-simulator/internal/config"
	"lift-dispatch-simulator/pkg/lift"
	"lift-dispatch-simulator/pkg/scenario"
)

// summary is the last JSON line of a run.
type summary struct {
	Type     string                    `json:"type"`
	Name     string                    `json:"name"`
	Ticks    int                       `json:"ticks"`
	Counts   map[lift.RequestState]int `json:"counts"`
	Requests [][]lift.Request          `json:"requests"`
	Applied  []scenario.Applied        `json:"applied"`
	Errors   []scenario.ErrorRecord    `json:"errors"`
}

type frameLine struct {
	Type string `json:"type"`
	scenario.Frame
}

type eventLine struct {
	Type string `json:"type"`
	scenario.LiftEvent
}

func main() {
	var (
		envFile = flag.String("env", ".env", "optional .env file")
		ticks   = flag.Int("ticks", 0, "override the scenario's tick count")
		events  = flag.Bool("events", false, "also emit engine events")
		quiet   = flag.Bool("quiet", false, "emit only the summary line")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <scenario.yaml>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	proc, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := proc.SetupLogger()

	path := resolve(flag.Arg(0), proc.ScenarioDir)
	s, err := scenario.Load(path)
	if err != nil {
		logger.Error("Failed to load scenario", "path", path, "error", err)
		os.Exit(1)
	}
	if *ticks > 0 {
		s.Ticks = *ticks
	}

	res, err := scenario.Run(s)
	if err != nil {
		logger.Error("Failed to run scenario", "name", s.Name, "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	if !*quiet {
		for _, f := range res.Trace {
			if err := enc.Encode(frameLine{Type: "frame", Frame: f}); err != nil {
				logger.Error("Write failed", "error", err)
				os.Exit(1)
			}
		}
		if *events {
			for _, ev := range res.Events {
				if err := enc.Encode(eventLine{Type: "event", LiftEvent: ev}); err != nil {
					logger.Error("Write failed", "error", err)
					os.Exit(1)
				}
			}
		}
	}
	err = enc.Encode(summary{
		Type:     "summary",
		Name:     res.Name,
		Ticks:    len(res.Trace),
		Counts:   res.Counts,
		Requests: res.Requests,
		Applied:  res.Applied,
		Errors:   res.Errors,
	})
	if err != nil {
		logger.Error("Write failed", "error", err)
		os.Exit(1)
	}
	slog.Debug("Scenario written", "frames", len(res.Trace), "events", len(res.Events))
}

// resolve looks the scenario up in dir when path does not exist as given.
func resolve(path, dir string) string {
	if _, err := os.Stat(path); err == nil || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
