package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/progress"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a verified lead list",
	Long:  "Runs one generation: similarity search from the benchmark articles, LLM extraction with verification retries, then saves the leads as a new list.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		maxResults, _ := cmd.Flags().GetInt("max-results")
		seedsPath, _ := cmd.Flags().GetString("seeds-file")
		dbURL, _ := cmd.Flags().GetString("database-url")
		asJSON, _ := cmd.Flags().GetBool("json")

		req := model.GenerateRequest{MaxResults: maxResults, DatabaseURL: dbURL}
		if seedsPath != "" {
			urls, err := loadSeedsFile(seedsPath)
			if err != nil {
				return err
			}
			req.ReferenceURLs = urls
		}

		st := initOptionalStore(ctx)
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		gen, err := initGenerator(st)
		if err != nil {
			return err
		}

		var sink progress.Sink = progress.SinkFunc(func(ev model.Event) { printEvent(os.Stderr, ev) })
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			sink = progress.SinkFunc(func(ev model.Event) { _ = enc.Encode(ev) })
		}

		result, err := gen.Run(ctx, req, sink)
		if err != nil {
			return eris.Wrap(err, "generate")
		}
		if !asJSON {
			printResult(os.Stdout, result)
		}
		return nil
	},
}

// printEvent renders one progress event as a terminal line.
func printEvent(w io.Writer, ev model.Event) {
	switch ev.Type {
	case model.EventProgress:
		fmt.Fprintf(w, "[%d/%d] %s\n", ev.Step, ev.Total, ev.Message)
	case model.EventError:
		fmt.Fprintf(w, "Error: %s\n", ev.Message)
	}
}

// printResult writes the lead table and run summary.
func printResult(w io.Writer, ev model.Event) {
	if len(ev.Leads) == 0 {
		fmt.Fprintln(w, "No verified leads found.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tCOMPANY\tCITY\tSIGNAL\tSOURCE")
		for _, l := range ev.Leads {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.Name, l.Company, l.City, l.SignalType, l.SourceLink)
		}
		_ = tw.Flush()
	}

	fmt.Fprintln(w)
	if ev.ListID != "" {
		fmt.Fprintf(w, "List:     %s\n", ev.ListID)
	}
	fmt.Fprintf(w, "Leads:    %d (%d new, %d already known)\n", ev.Stats.Total, ev.Stats.Inserted, ev.Stats.Skipped)
	fmt.Fprintf(w, "Outcome:  %s\n", ev.Outcome)
	if ev.Message != "" {
		fmt.Fprintf(w, "Note:     %s\n", ev.Message)
	}
}

func init() {
	f := generateCmd.Flags()
	f.Int("max-results", 0, "target lead count, 5-25 (default from config)")
	f.String("seeds-file", "", "YAML file with extra reference_urls to search from")
	f.String("database-url", "", "datastore DSN for this run only")
	f.Bool("json", false, "print events as JSON lines instead of text")
	rootCmd.AddCommand(generateCmd)
}
