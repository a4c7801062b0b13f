package commands

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/dagline/internal/observability"
	"github.com/Sumatoshi-tech/dagline/pkg/graphio"
	"github.com/Sumatoshi-tech/dagline/pkg/report"
)

// exitInvalid is the exit code of "dagline validate" for an invalid document.
const exitInvalid = 2

// ErrInvalidGraph is returned by the validate command for a document with problems.
var ErrInvalidGraph = errors.New("graph document is invalid")

// NewValidateCommand creates the validate command.
func NewValidateCommand(globals *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <graph>",
		Short: "Check a graph document against the schema and for structural errors",
		Long: `Check a graph document: schema conformance, duplicate ids, dangling
inputs, negative sizes and cycles. Exits with status 2 when the document is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := globals.start(observability.ModeCLI)
			if err != nil {
				return err
			}
			defer rt.close()

			return rt.track(cmd.Context(), "validate", func() error {
				return validateFile(cmd, args[0])
			})
		},
	}
}

func validateFile(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	problems := graphProblems(data)
	report.Verdict(cmd.OutOrStdout(), path, problems)

	if len(problems) > 0 {
		return &ExitError{Err: ErrInvalidGraph, Code: exitInvalid}
	}

	return nil
}

// graphProblems lists schema violations, or the structural error of a
// document that passes the schema.
func graphProblems(data []byte) []string {
	doc, err := graphio.Decode(data)
	if err != nil {
		var verr *graphio.ValidationError
		if errors.As(err, &verr) {
			return verr.Problems
		}

		return []string{err.Error()}
	}

	if _, err := doc.Build(); err != nil {
		return []string{err.Error()}
	}

	return nil
}
