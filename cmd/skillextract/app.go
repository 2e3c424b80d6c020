package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/skillsync/skillextract/internal/config"
	"github.com/skillsync/skillextract/internal/extractor"
	"github.com/skillsync/skillextract/internal/home"
	"github.com/skillsync/skillextract/internal/llmcall"
	"github.com/skillsync/skillextract/internal/output"
	"github.com/skillsync/skillextract/internal/skills"
)

// extractorHandle is a backend that owns resources until closed.
type extractorHandle interface {
	skills.Extractor
	io.Closer
}

// newExtractor builds the configured backend. Tests replace it.
var newExtractor = func(opts extractor.Options) (extractorHandle, error) {
	return extractor.New(opts)
}

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	cfgFile      string
	homeDir      string
	outputFormat string
	verbose      bool

	backend string
	model   string
	hfToken string
	gpu     bool
}

func (o *globalOptions) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.cfgFile, "config", "", "config file (default: ./skillextract.yaml or ~/.skillextract/config.yaml)")
	flags.StringVar(&o.homeDir, "home", "", "skillextract home directory (default: ~/.skillextract)")
	flags.StringVarP(&o.outputFormat, "output", "o", string(output.Default), "output format: json or yaml")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "write diagnostics to stderr")

	flags.StringVar(&o.backend, "backend", "laiser", "extraction backend: laiser, openrouter or huggingface")
	flags.StringVar(&o.model, "model", "microsoft/DialoGPT-medium", "model ID (env LAISER_MODEL_ID)")
	flags.StringVar(&o.hfToken, "hf-token", "", "Hugging Face token (env HUGGINGFACE_TOKEN)")
	flags.BoolVar(&o.gpu, "gpu", true, "use GPU acceleration")
}

// app is the loaded runtime state of one command invocation.
type app struct {
	cfg      *config.Config
	format   output.Format
	logger   *slog.Logger
	verbose  bool
	stderr   io.Writer
	recorder *llmcall.Recorder
}

// load resolves config, logger and output format for cmd.
func (o *globalOptions) load(cmd *cobra.Command) (*app, error) {
	format, err := output.ParseFormat(o.outputFormat)
	if err != nil {
		return nil, err
	}

	dir, err := home.New(o.homeDir)
	if err != nil {
		return nil, err
	}
	mgr, err := config.NewManager(config.Options{
		ConfigFile: o.cfgFile,
		Flags:      cmd.Flags(),
		Home:       dir,
	})
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	stderr := cmd.ErrOrStderr()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	if used := mgr.ConfigFileUsed(); used != "" {
		logger.Debug("loaded config", "path", used)
	}

	cfg := mgr.Get()
	a := &app{
		cfg:     cfg,
		format:  format,
		logger:  logger,
		verbose: o.verbose,
		stderr:  stderr,
	}
	if cfg.LLM.TraceFile != "" {
		rec, err := llmcall.OpenFile(config.ResolveEnvVars(cfg.LLM.TraceFile), logger)
		if err != nil {
			return nil, err
		}
		a.recorder = rec
	}
	return a, nil
}

// Close releases resources held for the invocation.
func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		a.logger.Warn("closing trace file", "error", err)
	}
}

// extractor builds the configured backend. Nothing starts until first use.
func (a *app) extractor() (extractorHandle, error) {
	c := a.cfg
	return newExtractor(extractor.Options{
		Backend:         c.Extractor.Backend,
		ModelID:         c.Extractor.ModelID,
		HFToken:         c.HFToken(),
		UseGPU:          c.Extractor.UseGPU,
		InputType:       c.Extractor.InputType,
		TopK:            c.Extractor.TopK,
		Levels:          c.Extractor.Levels,
		Python:          c.Bridge.Python,
		BridgeCommand:   c.Bridge.Command,
		Quiet:           !a.verbose,
		Stderr:          a.stderr,
		Providers:       c.ToProviderRegistryConfig(),
		Strict:          c.LLM.Strict,
		PromptOverrides: c.LLM.Overrides(),
		Recorder:        a.recorder,
		Logger:          a.logger,
	})
}

// extractOptions are the skills.Extract options shared by every document.
func (a *app) extractOptions(docID string) []skills.Option {
	// Validated when the config was loaded.
	unit, _ := skills.ParseConfidenceUnit(a.cfg.Normalize.ConfidenceUnit)
	return []skills.Option{
		skills.WithDocumentID(docID),
		skills.WithConfidenceUnit(unit),
		skills.WithLogger(a.logger),
	}
}

// logFailure sends the cause of a failed extraction to stderr.
func (a *app) logFailure(res skills.Result, attrs ...any) {
	if res.Err == nil {
		return
	}
	var e *skills.Error
	if errors.As(res.Err, &e) && e.Cause != nil {
		attrs = append(attrs, "cause", e.Cause)
	}
	a.logger.Warn(res.Err.Error(), attrs...)
}

func (a *app) write(cmd *cobra.Command, data any) error {
	return output.Write(cmd.OutOrStdout(), a.format, data)
}

// fail reports err on stderr, writes doc as the command's only stdout
// document and exits 1. An unusable --output falls back to JSON.
func (o *globalOptions) fail(cmd *cobra.Command, err error, doc any) error {
	format, perr := output.ParseFormat(o.outputFormat)
	if perr != nil {
		format = output.Default
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	if werr := output.Write(cmd.OutOrStdout(), format, doc); werr != nil {
		return werr
	}
	return &exitError{code: 1}
}
