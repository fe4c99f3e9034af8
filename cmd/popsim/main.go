// Command popsim is an interactive shell over a small population model: people
// with an Age and a Vaccinated flag, and the derived IsAdult and AgeGroup.
//
// Usage:
//
//	popsim [-config popsim.yaml]
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/edwinsyarief/jotai"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-2)
	}
	level, _ := cfg.Level()
	logger := jotai.NewDefaultLogger(level)

	model, err := NewModel(cfg, logger)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}
	logger.Info("population ready",
		"world", model.World.ID().String(),
		"people", model.People.Count(),
		"indexes", model.World.Indexes().Len(),
	)

	repl := REPL{Model: model, Out: os.Stdout}
	if err := repl.Open(cfg.HistoryFile); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}
	defer repl.Close()

	for err != io.EOF {
		if err != nil {
			_, _ = fmt.Fprintf(os.Stdout, "%s\n", err.Error())
		}
		err = repl.REPL()
	}
}
