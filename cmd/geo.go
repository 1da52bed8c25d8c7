package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/geo"
)

var geoCmd = &cobra.Command{
	Use:   "geo",
	Short: "Summarize stored leads by province and city",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		asJSON, _ := cmd.Flags().GetBool("json")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		summary, err := geo.Load(ctx, st)
		if err != nil {
			return eris.Wrap(err, "geo")
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}
		printSummary(os.Stdout, summary)
		return nil
	},
}

func printSummary(w io.Writer, s geo.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVINCE\tLEADS")
	for _, p := range s.Provinces {
		fmt.Fprintf(tw, "%s (%s)\t%d\n", p.Name, p.Code, p.Count)
	}
	_ = tw.Flush()

	if len(s.Cities) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CITY\tPROVINCE\tLEADS")
		for _, c := range s.Cities {
			prov := "-"
			if c.Province != nil {
				prov = *c.Province
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\n", c.City, prov, c.Count)
		}
		_ = tw.Flush()
	}

	fmt.Fprintf(w, "\nTotal: %d leads, %d in unmapped cities\n", s.TotalLeads, s.Unmapped)
}

func init() {
	geoCmd.Flags().Bool("json", false, "print the summary as JSON")
	rootCmd.AddCommand(geoCmd)
}
