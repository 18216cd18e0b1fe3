package commands

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	historyPuzzle puzzleFlags
	historyPart   *int
)

func init() {
	historyPuzzle = addPuzzleFlags(historyCmd)
	historyPart = addPartFlag(historyCmd)
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history -y <year> -d <day> -p <part>",
	Short: "Prints the answers submitted for a part and their verdicts.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), historyPuzzle, "")
		if err != nil {
			return err
		}
		defer s.Close()

		attempts, err := s.History(cmd.Context(), *historyPart)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Time", "Answer", "Outcome"})
		for _, a := range attempts {
			t.AppendRow(table.Row{
				a.Time.Local().Format(time.DateTime),
				a.Answer,
				a.Outcome.Kind.String(),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
