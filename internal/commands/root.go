// Package commands provides CLI commands for chatclient.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/diogo/chatclient/internal/api"
	"github.com/diogo/chatclient/internal/config"
	"github.com/diogo/chatclient/internal/logging"
)

var (
	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// globalFlags are the persistent flags shared by every command
type globalFlags struct {
	host    string
	stream  bool
	verbose bool
}

// queryFlags are the one-shot query flags of the root command
type queryFlags struct {
	output  string
	file    string
	raw     bool
	version bool
}

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd(deps *Dependencies) *cobra.Command {
	deps = deps.withDefaults()
	global := &globalFlags{}
	query := &queryFlags{}

	cmd := &cobra.Command{
		Use:   "chatclient [prompt]",
		Short: "Terminal client for a chat backend",
		Long: `chatclient talks to a chat backend exposing POST /chat for whole replies
and POST /stream for replies delivered as they are generated.

Examples:
  chatclient chat                       Start interactive chat
  chatclient chat --plain               Line-mode chat without the TUI
  chatclient config set host http://localhost:9000
  chatclient "What is Go?"              Send a single query
  chatclient --stream "Tell me a story" Print the reply as it arrives
  chatclient -f prompt.md               Read prompt from file
  cat prompt.md | chatclient            Read prompt from stdin
  chatclient "Hello" -o response.md     Save response to file`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if query.version {
				fmt.Fprintf(deps.Stdout, "chatclient %s (built %s)\n", Version, BuildTime)
				return nil
			}

			prompt, err := readPrompt(deps.Stdin, query.file, args)
			if err != nil {
				return err
			}
			if strings.TrimSpace(prompt) == "" {
				return cmd.Help()
			}

			env, err := setup(cmd, deps, global)
			if err != nil {
				return err
			}
			defer env.close()

			return runQuery(commandContext(cmd), env, prompt, query)
		},
	}

	cmd.PersistentFlags().StringVar(&global.host, "host", "", "Chat backend base URL (default "+config.DefaultConfig().Host+")")
	cmd.PersistentFlags().BoolVar(&global.stream, "stream", false, "Receive replies as they are generated")
	cmd.PersistentFlags().BoolVar(&global.verbose, "verbose", false, "Write debug logs to the log file")
	cmd.Flags().StringVarP(&query.output, "output", "o", "", "Save response to file")
	cmd.Flags().StringVarP(&query.file, "file", "f", "", "Read prompt from file")
	cmd.Flags().BoolVar(&query.raw, "raw", false, "Print the reply without decoration")
	cmd.Flags().BoolVarP(&query.version, "version", "v", false, "Show version and exit")

	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	cmd.AddCommand(NewChatCmd(deps, global))
	cmd.AddCommand(NewConfigCmd(deps))

	return cmd
}

// rootCmd represents the base command
var rootCmd = NewRootCmd(NewDependencies())

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// readPrompt picks the prompt from the file flag, the positional argument
// or piped stdin, in that order
func readPrompt(stdin io.Reader, file string, args []string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), nil
	}

	if len(args) > 0 {
		return args[0], nil
	}

	if hasPipedInput(stdin) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	return "", nil
}

// hasPipedInput reports whether stdin carries data rather than a terminal
func hasPipedInput(stdin io.Reader) bool {
	if stdin == nil {
		return false
	}
	f, ok := stdin.(*os.File)
	if !ok {
		return true
	}
	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

// runEnv is the resolved state a command runs with
type runEnv struct {
	cfg    config.Config
	client api.ChatClientInterface
	logger *logging.Logger
	deps   *Dependencies
	owned  bool // client was created here and is closed by close
}

// setup resolves configuration and builds the logger and client
func setup(cmd *cobra.Command, deps *Dependencies, global *globalFlags) (*runEnv, error) {
	cfg := resolveConfig(cmd, deps, global)

	logger, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "Warning: logging disabled: %v\n", err)
		logger = logging.Nop()
	}

	env := &runEnv{cfg: cfg, logger: logger, deps: deps, client: deps.Client}
	if env.client == nil {
		client, err := api.NewClient(
			api.WithHost(cfg.Host),
			api.WithTimeout(cfg.Timeout()),
			api.WithLogger(logger.Logger),
		)
		if err != nil {
			logger.Close()
			return nil, fmt.Errorf("failed to create client: %w", err)
		}
		env.client = client
		env.owned = true
	}

	logger.Debug().
		Str("host", env.client.Host()).
		Bool("stream", cfg.Stream).
		Str("version", Version).
		Msg("chatclient starting")

	return env, nil
}

func (e *runEnv) close() {
	if e.owned {
		e.client.Close()
	}
	e.logger.Close()
}

// resolveConfig applies flags over environment over the config file over
// defaults. A broken config file is reported and the defaults are used.
func resolveConfig(cmd *cobra.Command, deps *Dependencies, global *globalFlags) config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "Warning: %v, using defaults\n", err)
	}
	cfg = config.ApplyEnv(cfg)

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = strings.TrimRight(global.host, "/")
	}
	if flags.Changed("stream") {
		cfg.Stream = global.stream
	}
	if flags.Changed("verbose") {
		cfg.Verbose = global.verbose
	}
	return cfg
}

// commandContext returns the command's context, or Background when the
// command was not started through Execute
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
