package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var keyFile string

// Execute runs the parley CLI.
func Execute() error {
	root := &cobra.Command{
		Use:           "parley",
		Short:         "End-to-end encrypted chat over a relay",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&keyFile, "key", "k", "", "private key file")

	root.AddCommand(keygenCmd(), fingerprintCmd(), chatCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
