package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/celestialecho/internal/horizons"
)

func init() {
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <start-time> <target> [output-file]",
	Short: "Fetch an observer table for a celestial body",
	Long: `Fetch runs one HORIZONS session for the given target, starting the
ephemeris at the given UT time ("2006-01-02 15:04:05"). On success the
extracted observer table is printed to stdout and written to the output
file (default: the target name with whitespace removed, plus ".txt").

Exit codes: 0 on success, 2 when the target matches several bodies (the
candidate list is printed to stdout), 1 on any other failure.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	startTime, target := args[0], args[1]
	output := targetFileName(target)
	if len(args) == 3 {
		output = args[2]
	}

	req := horizons.Request{
		Target:     target,
		StartTime:  startTime,
		StepSize:   cfg.Horizons.StepSize,
		Quantities: cfg.Horizons.Quantities,
	}

	table, err := horizons.Fetch(cmd.Context(), horizonsConfig(cfg), req)
	if err != nil {
		var amb *horizons.AmbiguousMatchError
		if errors.As(err, &amb) {
			fmt.Fprintln(os.Stdout, strings.TrimRight(amb.Candidates, "\n"))
		}
		return err
	}

	if err := os.WriteFile(output, []byte(table+"\n"), 0644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	fmt.Fprintln(os.Stdout, table)
	return nil
}

// targetFileName strips whitespace from the target so "2015 HM10;"
// becomes "2015HM10;.txt".
func targetFileName(target string) string {
	return strings.Join(strings.Fields(target), "") + ".txt"
}
