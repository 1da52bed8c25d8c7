package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/email"
)

var emailCmd = &cobra.Command{
	Use:   "email <list-id>",
	Short: "Email a saved list as a CSV attachment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		to, _ := cmd.Flags().GetString("to")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		list, leads, err := loadList(cmd, st, args[0])
		if err != nil {
			return err
		}

		id, err := initSender().Send(ctx, email.Request{
			Leads:          leads,
			ListName:       list.Name,
			RecipientEmail: to,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Sent %d leads to %s (id %s)\n", len(leads), to, id)
		return nil
	},
}

func init() {
	emailCmd.Flags().String("to", "", "recipient email address")
	_ = emailCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(emailCmd)
}
