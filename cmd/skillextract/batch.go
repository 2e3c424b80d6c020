package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/skillsync/skillextract/internal/skills"
)

// batchResult is one document of a batch run.
type batchResult struct {
	File       string `json:"file"`
	DocumentID string `json:"document_id"`
	skills.Response
	ProcessingTimeMS int64  `json:"processing_time_ms"`
	ModelUsed        string `json:"model_used"`
}

func newBatchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <file>...",
		Short: "Extract skills from several files with one loaded model",
		Long: `Extract skills from each file in order, reusing one backend so the model is
loaded once. Prints a JSON array with one result per file. A file that fails
yields an empty result with an error field; the batch continues.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd)
			if err != nil {
				return opts.fail(cmd, err, skills.ErrorResponse(err))
			}
			defer a.Close()
			return a.runBatch(cmd, args)
		},
	}
}

func (a *app) runBatch(cmd *cobra.Command, files []string) error {
	ex, initErr := a.extractor()
	if initErr == nil {
		defer func() {
			if err := ex.Close(); err != nil {
				a.logger.Debug("closing extractor", "error", err)
			}
		}()
	}

	results := make([]batchResult, 0, len(files))
	var interrupted error
	for i, file := range files {
		if err := cmd.Context().Err(); err != nil {
			interrupted = fmt.Errorf("batch interrupted after %d of %d files: %w", i, len(files), err)
			break
		}

		docID := uuid.NewString()
		var res skills.Result
		text, err := readInput(file)
		switch {
		case err != nil:
			res = skills.Result{Skills: []skills.Record{}, Err: err}
		case initErr != nil:
			res = skills.Result{Skills: []skills.Record{}, Err: skills.InitializationError(initErr)}
		default:
			res = skills.Extract(cmd.Context(), text, ex, a.extractOptions(docID)...)
		}
		a.logFailure(res, "file", file, "document_id", docID)

		model := res.Model
		if model == "" {
			model = a.cfg.Extractor.ModelID
		}
		results = append(results, batchResult{
			File:             file,
			DocumentID:       docID,
			Response:         res.Response(),
			ProcessingTimeMS: res.Duration.Milliseconds(),
			ModelUsed:        model,
		})
		a.logger.Debug("batch document done", "file", file, "skills", len(res.Skills), "duration", res.Duration)
	}

	if err := a.write(cmd, results); err != nil {
		return err
	}
	if interrupted != nil {
		a.logger.Warn(interrupted.Error())
		return &exitError{code: 1}
	}
	return nil
}
