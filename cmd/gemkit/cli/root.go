package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leofalp/gemkit/core/transport"
	"github.com/leofalp/gemkit/internal/logging"
	"github.com/leofalp/gemkit/internal/utils"
	"github.com/leofalp/gemkit/providers/gemini"
)

var (
	configPath     string
	flagModel      string
	flagSystem     string
	flagLogLevel   string
	flagTemp       float64
	flagThinking   int
	flagNoRetry    bool
	flagTraceHTTP  bool
	flagShowCost   bool
	flagJSONOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "gemkit",
	Short: "Talk to Gemini from the command line",
	Long: `gemkit sends prompts to the Gemini generateContent API, runs local tools
the model asks for and extracts structured data from web pages.

The API key is read from GEMINI_API_KEY (a .env file in the working
directory is loaded first). Defaults come from gemkit.yaml or the file named
by --config or GEMKIT_CONFIG.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	flags.StringVarP(&flagModel, "model", "m", "", "Model to use (default from config, else "+gemini.DefaultModel+")")
	flags.StringVarP(&flagSystem, "system", "s", "", "System instruction")
	flags.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.Float64VarP(&flagTemp, "temperature", "t", 0, "Sampling temperature")
	flags.IntVar(&flagThinking, "thinking", 0, "Thinking token budget")
	flags.BoolVar(&flagNoRetry, "no-retry", false, "Do not retry transient API failures")
	flags.BoolVar(&flagTraceHTTP, "trace-http", false, "Log every API call with request and reply bodies")
	flags.BoolVar(&flagShowCost, "cost", false, "Print the estimated cost of the run")
	flags.BoolVarP(&flagJSONOutput, "json", "j", false, "Print machine-readable JSON")
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		return err
	}
	return nil
}

// resolveConfig loads the config file and applies the flags that were set.
func resolveConfig(cmd *cobra.Command) (*Config, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Model = flagModel
	}
	if flags.Changed("system") {
		cfg.SystemInstruction = flagSystem
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if flags.Changed("temperature") {
		cfg.Temperature = utils.Ptr(flagTemp)
	}
	if flags.Changed("thinking") {
		cfg.ThinkingBudget = utils.Ptr(flagThinking)
	}
	if flags.Changed("no-retry") {
		cfg.Retry.Disabled = flagNoRetry
	}
	if flags.Changed("trace-http") {
		cfg.TraceHTTP = flagTraceHTTP
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is everything a command needs to talk to the API.
type session struct {
	cfg    *Config
	client *gemini.Client
	logger *slog.Logger
	costs  *costTracker
}

func newSession(cmd *cobra.Command, extra ...gemini.Option) (*session, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cmd.ErrOrStderr(), level)

	retry, err := cfg.retryConfig()
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.timeout()
	if err != nil {
		return nil, err
	}

	logLevel := transport.LogLevelStandard
	if cfg.TraceHTTP {
		logLevel = transport.LogLevelVerbose
	}
	middlewares := []transport.Middleware{transport.NewLoggingMiddleware(logger, logLevel)}
	if timeout > 0 {
		middlewares = append(middlewares, transport.NewTimeoutMiddleware(timeout))
	}

	opts := []gemini.Option{
		gemini.WithLogger(logger),
		gemini.WithRetryConfig(retry),
		gemini.WithMiddleware(middlewares...),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, gemini.WithBaseURL(cfg.BaseURL))
	}

	client, err := gemini.NewClientFromEnv(append(opts, extra...)...)
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:    cfg,
		client: client,
		logger: logger,
		costs:  newCostTracker(cfg.Pricing),
	}, nil
}

// request starts a builder carrying the config defaults and the cost hook.
func (s *session) request() *gemini.RequestBuilder {
	return s.cfg.apply(s.client.NewRequest()).CaptureOnSuccess(s.costs.record)
}

func (s *session) execute(ctx context.Context, b *gemini.RequestBuilder) (*gemini.Response, error) {
	ctx = logging.WithLogger(ctx, s.logger)
	if s.cfg.Retry.Disabled {
		return b.Execute(ctx)
	}
	return b.ExecuteWithBackoff(ctx)
}

// readPrompt joins args, or reads stdin when there are none.
func readPrompt(args []string, stdin io.Reader) (string, error) {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" && stdin != nil {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" {
		return "", fmt.Errorf("a prompt is required, as arguments or on stdin")
	}
	return prompt, nil
}
