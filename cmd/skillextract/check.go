package main

import (
	"github.com/spf13/cobra"

	"github.com/skillsync/skillextract/internal/skills"
)

// probeText is extracted by `check` to prove the backend works end to end.
const probeText = "Python programming test"

type checkResult struct {
	Available bool   `json:"available"`
	Backend   string `json:"backend"`
	Model     string `json:"model"`
	Error     string `json:"error,omitempty"`
}

func newCheckCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the configured backend can extract skills",
		Long: `Run a tiny extraction against the configured backend and report whether it
is available. Exits non-zero when it is not.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd)
			if err != nil {
				return opts.fail(cmd, err, checkResult{Backend: opts.backend, Model: opts.model, Error: err.Error()})
			}
			defer a.Close()

			result := checkResult{
				Backend: a.cfg.Extractor.Backend,
				Model:   a.cfg.Extractor.ModelID,
			}
			ex, err := a.extractor()
			if err != nil {
				result.Error = err.Error()
			} else {
				res := skills.Extract(cmd.Context(), probeText, ex, a.extractOptions(skills.DefaultDocumentID)...)
				if err := ex.Close(); err != nil {
					a.logger.Debug("closing extractor", "error", err)
				}
				a.logFailure(res)
				if res.Model != "" {
					result.Model = res.Model
				}
				if res.Err != nil {
					result.Error = res.Err.Error()
				} else {
					result.Available = true
				}
			}

			if err := a.write(cmd, result); err != nil {
				return err
			}
			if !result.Available {
				return &exitError{code: 1}
			}
			return nil
		},
	}
}
