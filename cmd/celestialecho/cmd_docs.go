package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/spf13/cobra"
)

const horizonsManualURL = "https://ssd.jpl.nasa.gov/horizons/manual.html"

func init() {
	rootCmd.AddCommand(docsCmd)
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Fetch the HORIZONS manual and print it as markdown",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := &http.Client{Timeout: 30 * time.Second}

		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, horizonsManualURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", "celestialecho/1.0")

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch manual: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("HTTP error: status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		md, err := htmltomarkdown.ConvertString(string(body))
		if err != nil {
			return fmt.Errorf("convert to markdown: %w", err)
		}

		fmt.Fprintln(os.Stdout, md)
		return nil
	},
}
