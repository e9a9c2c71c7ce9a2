package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (cli *commandLine) summarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize COURSE_ID",
		Short: "Generate the summary of a course's material again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := cli.courseSvc.RegenerateSummary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				fmt.Fprintln(cli.out, "warning:", w)
			}
			if res.Course.MaterialSummary.Valid {
				fmt.Fprintln(cli.out, res.Course.MaterialSummary.String)
			}
			return nil
		},
	}
}
