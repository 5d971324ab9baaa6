package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leofalp/gemkit/internal/webfetch"
	"github.com/leofalp/gemkit/providers/gemini"
)

var runTools []string

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Answer a prompt using local tools",
	Long: `Send a prompt together with local tools. Whenever the model asks for a
tool, gemkit runs it and sends the result back until the model answers.

Available tools: ` + strings.Join(toolNames(), ", ") + `

Examples:
  gemkit run "What time is it in Tokyo right now?"
  gemkit run --tool fetch_page "Summarize https://go.dev/blog in three bullets"`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVar(&runTools, "tool", nil, "Tool to expose (repeatable, default all)")
}

func runRun(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(args, pipedStdin(cmd))
	if err != nil {
		return err
	}

	tools, err := buildTools(runTools, toolDeps{fetcher: webfetch.New(), now: time.Now})
	if err != nil {
		return err
	}

	sess, err := newSession(cmd)
	if err != nil {
		return err
	}

	// Mode stays AUTO. ANY forces a call on every turn and the run could
	// never end with an answer.
	b := sess.request().
		Tools(tools...).
		AddMessage(gemini.RoleUser, prompt)

	resp, err := sess.execute(cmd.Context(), b)
	if err != nil {
		return err
	}
	return writeResponse(cmd, sess, resp)
}
