package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fzipp/pascal-compiler/pcg"
)

var dumpCmd = &cobra.Command{
	Use:   "dump file.pco...",
	Short: "print the contents of object files.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range args {
			if err := dump(name); err != nil {
				return err
			}
		}
		return nil
	},
}

func dump(name string) error {
	f, err := os.Open(name)
	if err != nil {
		return errors.Wrapf(err, "cannot open %s", name)
	}
	defer f.Close()
	code, err := pcg.ReadObject(f)
	if err != nil {
		return errors.Wrapf(err, "%s", name)
	}
	fmt.Print(code.Listing())
	return nil
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
