package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	inputPuzzle puzzleFlags
	inputFile   *string
)

func init() {
	inputPuzzle = addPuzzleFlags(inputCmd)
	inputFile = inputCmd.Flags().String("file", "", "Read the input from this file instead (test mode).")
	rootCmd.AddCommand(inputCmd)
}

var inputCmd = &cobra.Command{
	Use:   "input -y <year> -d <day> [--file <path>]",
	Short: "Prints the puzzle input, downloading it on first use.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), inputPuzzle, *inputFile)
		if err != nil {
			return err
		}
		defer s.Close()

		text, err := s.Input(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	},
}
