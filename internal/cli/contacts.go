package cli

import (
	"github.com/spf13/cobra"
)

func newContactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contacts",
		Short: "List the PINs you have connected to",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result ContactsResult
			if err := client.Get("/api/v1/identities/me/contacts", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
