package commands

import (
	"fmt"
	"time"

	"aocd/internal/components/chrono"

	"github.com/spf13/cobra"
)

var unlockPuzzle puzzleFlags

func init() {
	unlockPuzzle = addPuzzleFlags(unlockCmd)
	rootCmd.AddCommand(unlockCmd)
}

var unlockCmd = &cobra.Command{
	Use:   "unlock -y <year> -d <day>",
	Short: "Prints when a puzzle is released.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := unlockPuzzle.key()
		if err != nil {
			return err
		}

		clock := chrono.NewStandardTime()
		at := chrono.UnlockTime(key.Year, key.Day)
		remaining := chrono.UntilUnlock(clock, key.Year, key.Day)

		out := cmd.OutOrStdout()
		if remaining == 0 {
			fmt.Fprintf(out, "%s unlocked at %s\n", key, at.Format(time.RFC1123))
			return nil
		}
		fmt.Fprintf(out, "%s unlocks at %s, in %s\n", key, at.Format(time.RFC1123), remaining.Round(time.Second))
		return nil
	},
}
