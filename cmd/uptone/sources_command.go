package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"uptone/internal/musicapi"
)

func newSourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List supported music sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, source := range musicapi.Sources() {
				fmt.Fprintln(out, source)
			}
			fmt.Fprintln(out, "\nAppend \"_album\" to a source to search album tracks, e.g. netease_album.")
			return nil
		},
	}
}
