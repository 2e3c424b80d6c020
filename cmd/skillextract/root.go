package main

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/skillsync/skillextract/internal/skills"
	"github.com/skillsync/skillextract/version"
)

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	var input string

	cmd := &cobra.Command{
		Use:   "skillextract --input <file>",
		Short: "Extract canonical skill records from a document",
		Long: `skillextract reads a job description or course text, runs it through a skill
extraction backend and writes one JSON document to stdout:

  {"skills": [...], "text_processed": N, "skills_found": M}

Backends:
  - laiser       LAiSER via an embedded Python bridge (default)
  - openrouter   LLM with structured output via OpenRouter
  - huggingface  OpenAI-compatible Hugging Face router

Failures are reported as {"skills": [], "error": "..."}. The exit code is
non-zero when the input cannot be read or is empty, when the backend
package is not installed, and when the configuration is invalid.`,
		Version:       version.GitRelease,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, opts, input)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&input, "input", "i", "", "input text file (required)")
	_ = cmd.MarkFlagRequired("input")

	cmd.AddCommand(
		newBatchCmd(opts),
		newCheckCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(opts),
	)
	return cmd
}

func runExtract(cmd *cobra.Command, opts *globalOptions, input string) error {
	a, err := opts.load(cmd)
	if err != nil {
		return opts.fail(cmd, err, skills.ErrorResponse(err))
	}
	defer a.Close()

	res := a.extractFile(cmd, input, skills.DefaultDocumentID)
	a.logFailure(res, "input", input)

	if err := a.write(cmd, res.Response()); err != nil {
		return err
	}
	if skills.IsFatal(res.Err) {
		return &exitError{code: 1}
	}
	return nil
}

// extractFile reads path and extracts from it with a fresh backend.
func (a *app) extractFile(cmd *cobra.Command, path, docID string) skills.Result {
	text, err := readInput(path)
	if err != nil {
		return skills.Result{Skills: []skills.Record{}, Err: err}
	}

	ex, err := a.extractor()
	if err != nil {
		return skills.Result{Skills: []skills.Record{}, Err: skills.InitializationError(err)}
	}
	defer func() {
		if err := ex.Close(); err != nil {
			a.logger.Debug("closing extractor", "error", err)
		}
	}()

	return skills.Extract(cmd.Context(), text, ex, a.extractOptions(docID)...)
}

// readInput reads a UTF-8 text document.
func readInput(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", skills.FileReadError(err)
	}
	if !utf8.Valid(data) {
		return "", skills.FileReadError(fmt.Errorf("%s: not valid UTF-8", path))
	}
	return string(data), nil
}
