package cli

import (
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"vconv/internal/config"
	"vconv/internal/infrastructure/history"
)

type app struct {
	configPath string
	baseURL    string
	dbPath     string
	verbose    bool

	cfg    config.Config
	logger *log.Logger
}

// NewRootCommand builds the vconv command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "vconv",
		Short:         "Upload videos to a conversion server and track the result",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to a .yaml or .toml config file")
	flags.StringVar(&a.baseURL, "base-url", "", "Conversion server base URL")
	flags.StringVar(&a.dbPath, "db", "", "Path to the local history database")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log lifecycle details to stderr")

	root.AddCommand(
		newConvertCommand(a),
		newServeCommand(a),
		newStatsCommand(a),
		newHistoryCommand(a),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "vconv:", err)
		return 1
	}
	return 0
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.Client.BaseURL = a.baseURL
	}
	if flags.Changed("db") {
		cfg.History.DBPath = a.dbPath
	}
	if flags.Changed("verbose") {
		cfg.Log.Verbose = a.verbose
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = log.New(io.Discard, "", 0)
	if cfg.Log.Verbose {
		a.logger = log.New(cmd.ErrOrStderr(), "vconv: ", log.LstdFlags)
	}
	return nil
}

func (a *app) openHistory() (*history.Repository, error) {
	repo, err := history.New(a.cfg.History.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", a.cfg.History.DBPath, err)
	}
	return repo, nil
}
