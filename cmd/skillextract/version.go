package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skillsync/skillextract/internal/output"
	"github.com/skillsync/skillextract/version"
)

func newVersionCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("output") {
				format, err := output.ParseFormat(opts.outputFormat)
				if err != nil {
					return err
				}
				return output.Write(cmd.OutOrStdout(), format, version.Get())
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "skillextract %s\n", version.GitRelease)
			fmt.Fprintf(w, "  Go:     %s\n", version.GoInfo)
			fmt.Fprintf(w, "  Commit: %s\n", version.GitCommit)
			fmt.Fprintf(w, "  Date:   %s\n", version.GitCommitDate)
			return nil
		},
	}
}
