package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"rhystmorgan/fxTerm/internal/audit"
	"rhystmorgan/fxTerm/internal/config"
	"rhystmorgan/fxTerm/internal/ledger"
	"rhystmorgan/fxTerm/internal/logging"
	"rhystmorgan/fxTerm/internal/security"
	"rhystmorgan/fxTerm/internal/storage"
	"rhystmorgan/fxTerm/internal/views"
)

const (
	AppName       = "fxterm"
	PassphraseEnv = config.EnvPrefix + "_PASSPHRASE"
	PasswordEnv   = config.EnvPrefix + "_PASSWORD"
)

// Runner executes one command line against the configured ledger.
type Runner struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func NewRunner() *Runner {
	return NewRunnerWithIO(os.Stdin, os.Stdout, os.Stderr)
}

func NewRunnerWithIO(stdin io.Reader, stdout, stderr io.Writer) *Runner {
	return &Runner{stdin: stdin, stdout: stdout, stderr: stderr}
}

type runtimeState struct {
	runner  *Runner
	input   *bufio.Reader
	cfgFile string

	cfg      *config.Config
	logger   *log.Logger
	closers  []io.Closer
	store    *storage.Storage
	client   *ledger.Client
	sessions *security.SessionManager
	auditor  *audit.TransferAuditor
}

// Run returns the process exit code.
func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r, input: bufio.NewReader(r.stdin)}
	root := state.newRootCommand()
	root.SetArgs(args)
	root.SetIn(r.stdin)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.Execute()
	state.close()
	if err != nil {
		fmt.Fprintf(r.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   AppName,
		Short: "Send money between ledger wallets from the terminal",
		Long: `fxterm is a terminal client for a multi-currency wallet ledger.
Run it without a subcommand for the interactive interface.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return s.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.runInteractive()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&s.cfgFile, "config", "", "config file (default ~/.fxterm/config.yaml)")
	flags.String("api-url", "", "ledger service base URL")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("data-dir", "", "directory for the session, audit log and logs")
	flags.String("fee-rate", "", "fee charged on top of each transfer, as a fraction")
	flags.Duration("timeout", 0, "per-request timeout")

	cmd.AddCommand(
		s.newLoginCommand(),
		s.newLogoutCommand(),
		s.newStatusCommand(),
		s.newWalletsCommand(),
		s.newSendCommand(),
	)
	return cmd
}

// setup loads configuration and wires the long-lived services.
func (s *runtimeState) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(s.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	s.cfg = cfg

	level := cfg.LogLevel
	if config.IsDebugEnabled() {
		level = "debug"
	}
	logger, closer, err := logging.OpenFile(cfg.DataDir, level)
	if err != nil {
		return err
	}
	s.logger = logger
	s.closers = append(s.closers, closer)

	store, err := storage.NewStorage(cfg.DataDir)
	if err != nil {
		return err
	}
	s.store = store

	client, err := ledger.NewClient(cfg.ToLedgerConfig(), logger)
	if err != nil {
		return err
	}
	s.client = client

	s.sessions = security.NewSessionManager(store, cfg.SessionExpiringWindow)

	auditor, err := audit.NewTransferAuditor(cfg.DataDir)
	if err != nil {
		return err
	}
	s.auditor = auditor
	s.closers = append(s.closers, auditor)

	logger.Debug("services ready", "api_url", cfg.APIURL, "data_dir", cfg.DataDir)
	return nil
}

func (s *runtimeState) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i].Close()
	}
	s.closers = nil
}

func (s *runtimeState) runInteractive() error {
	feeRate := s.cfg.FeeRateDecimal()
	app := views.NewAppModel(views.Deps{
		Client:   s.client,
		Sessions: s.sessions,
		Auditor:  s.auditor,
		Logger:   s.logger,
		FeeRate:  &feeRate,
	})

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running application: %w", err)
	}
	return nil
}

// unlock makes sure a session is active, opening the saved one with the
// passphrase from the environment or stdin when needed.
func (s *runtimeState) unlock() error {
	switch s.sessions.Status() {
	case security.SessionStatusActive, security.SessionStatusExpiring:
	default:
		if !s.sessions.HasSaved() {
			return errors.New("not signed in, run `fxterm login` first")
		}
		passphrase, err := s.secret(PassphraseEnv, "Passphrase: ")
		if err != nil {
			return err
		}
		if _, err := s.sessions.Unlock(passphrase); err != nil {
			return fmt.Errorf("failed to unlock session: %w", err)
		}
		if s.sessions.Status() == security.SessionStatusExpired {
			return errors.New("session expired, run `fxterm login` again")
		}
	}

	s.client.SetToken(s.sessions.Token())
	return nil
}

// secret reads a value from env or, failing that, one line of stdin.
func (s *runtimeState) secret(env, prompt string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	return s.prompt(prompt)
}

func (s *runtimeState) prompt(label string) (string, error) {
	fmt.Fprint(s.runner.stderr, label)
	line, err := s.input.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (s *runtimeState) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.runner.stdout, format, args...)
}
