// Package cli implements the emergent-mind CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var (
	dataDir    string
	formatFlag string
	verbose    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:     "emergent-mind",
	Short:   "An autonomous agent that perceives, reflects and posts",
	Long:    "Reads a perception feed, keeps a vector journal of what it noticed, rewrites its own identity and publishes short posts shaped by drifting moods, curiosities and styles.",
	Version: Version,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dataDir, "data", "d", "", "Data directory (default: $DATA_DIR or ./data)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// printTexts prints a JSON array, or one text per paragraph with -f text.
func printTexts(texts []string) {
	if formatFlag == "text" {
		for _, t := range texts {
			fmt.Println(t)
			fmt.Println()
		}
		return
	}
	if texts == nil {
		texts = []string{}
	}
	printJSON(texts)
}
