package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/temerold/heart-all/internal/authflow"
	"github.com/temerold/heart-all/internal/shared"
	"github.com/temerold/heart-all/internal/spotify"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	svc     spotify.Service
	flow    authflow.Flow
	logger  *log.Logger
	output  io.Writer
	logFile *os.File
}

// RunnerOpts contains configuration options for creating a Runner. Zero
// fields fall back to production defaults; tests inject fakes.
type RunnerOpts struct {
	Config  *shared.Config
	Service spotify.Service
	Flow    authflow.Flow
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		svc:    opts.Service,
		flow:   opts.Flow,
		logger: opts.Logger,
		output: opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		authCommand, initCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads the config file at path unless a config was injected.
func (r *Runner) loadConfig(path string) (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	config.LoadDotenv("")

	r.config = config
	return config, nil
}

// initService builds the Spotify client from config credentials unless a
// service was injected.
func (r *Runner) initService() error {
	if r.svc != nil {
		return nil
	}

	svc, err := spotify.New(r.config.Credentials.Spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify client: %w", err)
	}

	r.svc = svc
	return nil
}

// useFileLogging switches the runner's logger to tee into the configured
// append-only log file. The file stays open for the life of the run.
func (r *Runner) useFileLogging(path string) error {
	logger, f, err := shared.NewFileLogger(path)
	if err != nil {
		return err
	}

	r.logger = logger
	r.logFile = f
	return nil
}

func (r *Runner) closeLogFile() {
	if r.logFile != nil {
		r.logFile.Close()
		r.logFile = nil
	}
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
