package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"arbor/app/core/statecheck"
)

func main() {
	configPath := flag.String("config", filepath.Join("config", "config.json"), "path to runtime config json")
	outputPath := flag.String("output", filepath.Join("output", "state", "preflight-latest.json"), "path to write the report (use - for stdout)")
	allowMissingConfig := flag.Bool("allow-missing-config", true, "treat a missing config file as the built-in defaults")
	allowMissingState := flag.Bool("allow-missing-state", true, "treat a missing state document as a first run")
	flag.Parse()

	report := statecheck.EvaluatePath(*configPath, statecheck.Options{
		AllowMissingConfig: *allowMissingConfig,
		AllowMissingState:  *allowMissingState,
	})

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "state preflight failed: marshal report: %v\n", err)
		os.Exit(2)
	}
	payload = append(payload, '\n')

	if *outputPath == "-" {
		if _, err := os.Stdout.Write(payload); err != nil {
			fmt.Fprintf(os.Stderr, "state preflight failed: write stdout: %v\n", err)
			os.Exit(2)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(*outputPath), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "state preflight failed: create output directory: %v\n", err)
			os.Exit(2)
		}
		if err := os.WriteFile(*outputPath, payload, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "state preflight failed: write report: %v\n", err)
			os.Exit(2)
		}
	}

	if !report.Gate.Passed {
		fmt.Fprintf(os.Stderr, "state preflight gate failed; report=%s\n", *outputPath)
		for _, failure := range report.Gate.Failures {
			fmt.Fprintf(os.Stderr, " - %s\n", failure)
		}
		os.Exit(1)
	}

	fmt.Printf("state preflight gate passed; report=%s\n", *outputPath)
}
