package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fzipp/pascal-compiler/diag"
	"github.com/fzipp/pascal-compiler/pcg"
	"github.com/fzipp/pascal-compiler/pcp"
	"github.com/fzipp/pascal-compiler/pcs"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] file.pas...",
	Short: "compile programs and units into object files.",
	Long: `Compile each source file into an object file next to it, or into
the file named by -o when a single source is given. Units named in uses
clauses are searched in the source's directory and the -I directories.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output != "" && len(args) > 1 {
			return errors.New("-o requires a single source file")
		}
		includes, _ := cmd.Flags().GetStringArray("include")
		listing, _ := cmd.Flags().GetBool("listing")
		maxErrors, _ := cmd.Flags().GetInt("max-errors")
		rangeChecks, _ := cmd.Flags().GetBool("range-checks")

		failed := false
		for _, src := range args {
			out := output
			if out == "" {
				out = strings.TrimSuffix(src, filepath.Ext(src)) + ".pco"
			}
			opts := pcp.DefaultOptions()
			opts.MaxErrors = maxErrors
			opts.RangeChecks = rangeChecks
			ok, err := compileFile(src, out, includes, opts, listing)
			if err != nil {
				return err
			}
			failed = failed || !ok
		}
		if failed {
			os.Exit(1)
		}
		return nil
	},
}

// compileFile compiles src into out. It reports false if the source had
// errors; err is set only when files could not be read or written.
func compileFile(src, out string, includes []string, opts pcp.Options, listing bool) (bool, error) {
	f, err := os.Open(src)
	if err != nil {
		return false, errors.Wrapf(err, "cannot open %s", src)
	}
	defer f.Close()

	rep := diag.NewReporter(opts.MaxErrors)
	opts.Reporter = rep
	sc := pcs.NewScanner(f, src, rep)
	sc.SetResolver(pcs.DirResolver(append([]string{filepath.Dir(src)}, includes...)...))
	code := pcg.NewCode()
	res, cerr := pcp.Compile(sc, code, opts)
	fmt.Fprint(os.Stderr, rep.Summary())
	if cerr != nil {
		log.Debug(cerr)
		return false, nil
	}

	w, err := os.Create(out)
	if err != nil {
		return false, errors.Wrapf(err, "cannot create %s", out)
	}
	if _, err := code.WriteTo(w); err != nil {
		w.Close()
		return false, err
	}
	if err := w.Close(); err != nil {
		return false, errors.Wrapf(err, "cannot write %s", out)
	}
	log.Debugf("%s %s compiled to %s", res.Kind, res.Name, out)
	if listing {
		fmt.Print(code.Listing())
	}
	return true, nil
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringP("output", "o", "", "object file to write")
	compileCmd.Flags().StringArrayP("include", "I", nil, "directory searched for units")
	compileCmd.Flags().Bool("listing", false, "print the instruction listing")
	compileCmd.Flags().Int("max-errors", diag.DefaultMaxErrors, "errors tolerated before giving up")
	compileCmd.Flags().Bool("range-checks", false, "emit subrange and index checks")
}
