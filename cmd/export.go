package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/export"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export <list-id>",
	Short: "Write a saved list to CSV or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")

		var ext string
		switch format {
		case "csv":
			ext = ".csv"
		case "xlsx":
			ext = ".xlsx"
		default:
			return eris.Errorf("unsupported export format %q (csv or xlsx)", format)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		list, leads, err := loadList(cmd, st, args[0])
		if err != nil {
			return err
		}
		if out == "" {
			out = export.Filename(list.Name, ext)
		}

		f, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "create %s", out)
		}
		defer f.Close() //nolint:errcheck

		if ext == ".csv" {
			err = export.WriteCSV(f, leads)
		} else {
			err = export.WriteXLSX(f, leads)
		}
		if err != nil {
			return eris.Wrap(err, "export list")
		}

		fmt.Fprintf(os.Stderr, "Wrote %d leads to %s\n", len(leads), out)
		return nil
	},
}

// loadList fetches a list and its leads as plain Lead values.
func loadList(cmd *cobra.Command, st store.Store, id string) (*model.List, []model.Lead, error) {
	list, err := st.GetList(cmd.Context(), id)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "get list %s", id)
	}
	persisted, err := st.ListLeads(cmd.Context(), id)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "list leads %s", id)
	}
	leads := make([]model.Lead, len(persisted))
	for i, p := range persisted {
		leads[i] = p.Lead
	}
	return list, leads, nil
}

func init() {
	exportCmd.Flags().String("format", "csv", "output format: csv or xlsx")
	exportCmd.Flags().String("out", "", "output path (default derived from the list name)")
	rootCmd.AddCommand(exportCmd)
}
