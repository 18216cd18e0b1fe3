package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	submitPuzzle puzzleFlags
	submitPart   *int
)

func init() {
	submitPuzzle = addPuzzleFlags(submitCmd)
	submitPart = addPartFlag(submitCmd)
	rootCmd.AddCommand(submitCmd)
}

var submitCmd = &cobra.Command{
	Use:   "submit -y <year> -d <day> -p <part> <answer>",
	Short: "Submits an answer, unless its verdict is already known.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), submitPuzzle, "")
		if err != nil {
			return err
		}
		defer s.Close()

		result, err := s.Submit(cmd.Context(), *submitPart, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d-%02d part %d: %s\n", s.Year(), s.Day(), *submitPart, result)
		return nil
	},
}
