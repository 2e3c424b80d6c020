package extractor

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/skillsync/skillextract/internal/skills"
)

//go:embed laiser_bridge.py
var bridgeScript string

// Bridge exit codes when the process dies instead of answering.
const (
	exitMissingDependency = 3
	exitInitialization    = 4
)

const installHint = "Run: pip install laiser[gpu]"

// quietEnv silences the ML libraries loaded by the bridge.
var quietEnv = []string{
	"TF_CPP_MIN_LOG_LEVEL=3",
	"TRANSFORMERS_VERBOSITY=error",
	"TOKENIZERS_PARALLELISM=false",
}

// BridgeConfig holds configuration for the LAiSER bridge process.
type BridgeConfig struct {
	Python  string   // Interpreter (default: python3)
	Command []string // Replaces interpreter and embedded script when set
	Env     []string // Extra KEY=VALUE entries for the child

	ModelID string
	HFToken string
	UseGPU  bool

	InputType string // Default: job_desc
	TopK      int    // Default: 30
	Levels    bool

	// Quiet silences library logging in the child and discards its stderr.
	// It has no effect on this process.
	Quiet  bool
	Stderr io.Writer // Child stderr when not Quiet (default: discarded)

	CloseTimeout time.Duration // Default: 5s
	Logger       *slog.Logger
}

type initRequest struct {
	Op      string `json:"op"`
	ModelID string `json:"model_id"`
	HFToken string `json:"hf_token"`
	UseGPU  bool   `json:"use_gpu"`
}

type extractRequest struct {
	Op        string `json:"op"`
	ID        string `json:"id"`
	Text      string `json:"text"`
	InputType string `json:"input_type"`
	TopK      int    `json:"top_k"`
	Levels    bool   `json:"levels"`
	BatchSize int    `json:"batch_size"`
}

type bridgeResponse struct {
	OK     *bool           `json:"ok"`
	Code   string          `json:"code,omitempty"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Bridge is a running LAiSER bridge process. Requests are serialized.
type Bridge struct {
	cfg    BridgeConfig
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	logger *slog.Logger

	mu     sync.Mutex
	closed bool

	waitOnce sync.Once
	waitErr  error
}

// StartBridge starts the bridge process and initializes the model. It
// returns skills.ErrMissingDependency when the interpreter or the LAiSER
// package is missing and skills.ErrInitialization when the model fails to
// load.
func StartBridge(ctx context.Context, cfg BridgeConfig) (*Bridge, error) {
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.InputType == "" {
		cfg.InputType = "job_desc"
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 30
	}
	if cfg.CloseTimeout == 0 {
		cfg.CloseTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	argv := cfg.Command
	if len(argv) == 0 {
		argv = []string{cfg.Python, "-u", "-c", bridgeScript}
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, skills.MissingDependencyError(fmt.Sprintf("%s not found. %s", argv[0], installHint), err)
	}

	cmd := exec.Command(path, argv[1:]...)
	cmd.Env = cfg.environ()
	if !cfg.Quiet && cfg.Stderr != nil {
		cmd.Stderr = cfg.Stderr
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, skills.InitializationError(fmt.Errorf("bridge stdin: %w", err))
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, skills.InitializationError(fmt.Errorf("bridge stdout: %w", err))
	}
	if err := cmd.Start(); err != nil {
		return nil, skills.InitializationError(fmt.Errorf("start bridge: %w", err))
	}

	b := &Bridge{
		cfg:    cfg,
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		logger: cfg.Logger,
	}
	b.logger.Debug("bridge started", "pid", cmd.Process.Pid, "model", cfg.ModelID, "gpu", cfg.UseGPU)

	resp, err := b.roundTrip(ctx, initRequest{
		Op:      "init",
		ModelID: cfg.ModelID,
		HFToken: cfg.HFToken,
		UseGPU:  cfg.UseGPU,
	})
	if err != nil {
		b.kill()
		_ = b.Close()
		return nil, err
	}
	if !*resp.OK {
		b.kill()
		_ = b.Close()
		if resp.Code == "missing_dependency" {
			return nil, skills.MissingDependencyError(fmt.Sprintf("%s. %s", resp.Error, installHint), nil)
		}
		return nil, skills.InitializationError(errors.New(resp.Error))
	}

	b.logger.Debug("bridge initialized", "model", cfg.ModelID)
	return b, nil
}

// Model returns the model the bridge was initialized with.
func (b *Bridge) Model() string {
	return b.cfg.ModelID
}

// Extract runs extraction for one document and decodes the raw result.
func (b *Bridge) Extract(ctx context.Context, doc skills.Document) (skills.Output, error) {
	resp, err := b.roundTrip(ctx, extractRequest{
		Op:        "extract",
		ID:        doc.ID,
		Text:      doc.Text,
		InputType: b.cfg.InputType,
		TopK:      b.cfg.TopK,
		Levels:    b.cfg.Levels,
		BatchSize: 1,
	})
	if err != nil {
		return skills.Output{}, err
	}
	if !*resp.OK {
		if resp.Code == "initialization" {
			return skills.Output{}, skills.InitializationError(errors.New(resp.Error))
		}
		return skills.Output{}, errors.New(resp.Error)
	}
	if len(resp.Result) == 0 {
		return skills.HitsOutput(), nil
	}
	return skills.DecodeOutput(resp.Result)
}

// Close ends the bridge by closing its stdin and waits for it to exit,
// killing it after CloseTimeout.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	_ = b.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- b.wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(b.cfg.CloseTimeout):
		b.kill()
		<-done
		return fmt.Errorf("bridge did not exit within %s; killed", b.cfg.CloseTimeout)
	}
}

// roundTrip writes one request and reads lines until a response arrives.
// Lines that are not response objects are treated as noise.
func (b *Bridge) roundTrip(ctx context.Context, req any) (*bridgeResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("bridge is closed")
	}

	stop := context.AfterFunc(ctx, b.kill)
	defer stop()

	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal bridge request: %w", err)
	}
	if _, err := b.stdin.Write(append(line, '\n')); err != nil {
		return nil, b.exitError(ctx, fmt.Errorf("write request: %w", err))
	}

	for {
		raw, readErr := b.stdout.ReadBytes('\n')
		if resp := b.parseLine(raw); resp != nil {
			return resp, nil
		}
		if readErr != nil {
			return nil, b.exitError(ctx, readErr)
		}
	}
}

func (b *Bridge) parseLine(raw []byte) *bridgeResponse {
	line := bytes.TrimSpace(raw)
	if len(line) == 0 {
		return nil
	}
	if line[0] != '{' {
		b.logger.Debug("bridge noise", "line", string(line))
		return nil
	}
	var resp bridgeResponse
	if err := json.Unmarshal(line, &resp); err != nil || resp.OK == nil {
		b.logger.Debug("bridge noise", "line", string(line))
		return nil
	}
	return &resp
}

// exitError explains why the bridge stopped answering.
func (b *Bridge) exitError(ctx context.Context, cause error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		_ = b.wait()
		return fmt.Errorf("bridge interrupted: %w", ctxErr)
	}

	err := b.wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		switch code := exitErr.ExitCode(); code {
		case exitMissingDependency:
			return skills.MissingDependencyError(fmt.Sprintf("bridge exited with code %d. %s", code, installHint), err)
		case exitInitialization:
			return skills.InitializationError(fmt.Errorf("bridge exited with code %d: %w", code, err))
		default:
			return fmt.Errorf("bridge exited with code %d", code)
		}
	}
	if err != nil {
		return fmt.Errorf("bridge failed: %w", err)
	}
	return fmt.Errorf("bridge exited unexpectedly: %w", cause)
}

func (b *Bridge) wait() error {
	b.waitOnce.Do(func() {
		b.waitErr = b.cmd.Wait()
	})
	return b.waitErr
}

func (b *Bridge) kill() {
	if b.cmd.Process != nil {
		_ = b.cmd.Process.Kill()
	}
}

func (c BridgeConfig) environ() []string {
	env := append(os.Environ(), "PYTHONUNBUFFERED=1")
	if c.Quiet {
		env = append(env, quietEnv...)
	}
	return append(env, c.Env...)
}

var (
	_ skills.Extractor     = (*Bridge)(nil)
	_ skills.ModelReporter = (*Bridge)(nil)
	_ io.Closer            = (*Bridge)(nil)
)
