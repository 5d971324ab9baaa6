package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"

	"github.com/leofalp/gemkit/internal/webfetch"
	"github.com/leofalp/gemkit/providers/gemini"
)

// PageSummary is the structured result of the extract command.
type PageSummary struct {
	Title     string   `json:"title" jsonschema:"description=Title of the page"`
	Summary   string   `json:"summary" jsonschema:"description=Two or three sentence summary"`
	KeyPoints []string `json:"key_points" jsonschema:"description=The most important facts on the page"`
	Topics    []string `json:"topics,omitempty" jsonschema:"description=Short topic labels"`
	Sentiment string   `json:"sentiment" jsonschema:"enum=positive,enum=neutral,enum=negative"`
}

const extractInstruction = `You extract structured summaries from web pages.
Only use facts present in the page. Answer with JSON matching the schema.`

const wrapWidth = 80

var extractMaxChars int

var extractCmd = &cobra.Command{
	Use:   "extract <url>",
	Short: "Fetch a web page and extract a structured summary",
	Long: `Download a page, convert it to Markdown and ask the model for a summary
that follows a fixed JSON schema (title, summary, key points, topics and
sentiment).

Examples:
  gemkit extract https://go.dev/blog/go1.22
  gemkit extract --json example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().IntVar(&extractMaxChars, "max-chars", webfetch.DefaultMaxMarkdownChars, "Maximum page characters sent to the model")
}

func runExtract(cmd *cobra.Command, args []string) error {
	page, err := webfetch.New().Fetch(cmd.Context(), webfetch.Input{URL: args[0], MaxChars: extractMaxChars})
	if err != nil {
		return err
	}

	sess, err := newSession(cmd)
	if err != nil {
		return err
	}

	summary, err := extractSummary(cmd, sess, page)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagJSONOutput {
		return printJSON(out, summary)
	}
	printSummary(out, page.URL, summary)
	if flagShowCost {
		printCost(out, sess.costs.summary())
	}
	return nil
}

func extractRequest(sess *session, page webfetch.Output) *gemini.RequestBuilder {
	return sess.request().
		SystemInstruction(extractInstruction).
		ResponseMimeType("application/json").
		ResponseSchema(gemini.SchemaFor[PageSummary]()).
		AddMessage(gemini.RoleUser, fmt.Sprintf("URL: %s\n\n%s", page.URL, page.Markdown))
}

func extractSummary(cmd *cobra.Command, sess *session, page webfetch.Output) (PageSummary, error) {
	resp, err := sess.execute(cmd.Context(), extractRequest(sess, page))
	if err != nil {
		return PageSummary{}, err
	}
	if err := resp.FailOnRefusal(); err != nil {
		return PageSummary{}, err
	}
	return gemini.Decode[PageSummary](resp)
}

func printSummary(w io.Writer, url string, s PageSummary) {
	fmt.Fprintf(w, "%s %s\n", boldStyle.Sprint(s.Title), dimStyle.Sprint(url))
	fmt.Fprintf(w, "\n%s\n", wordwrap.WrapString(s.Summary, wrapWidth))
	if len(s.KeyPoints) > 0 {
		fmt.Fprintf(w, "\n%s\n", infoStyle.Sprint("Key points"))
		for _, p := range s.KeyPoints {
			fmt.Fprintf(w, "  - %s\n", strings.ReplaceAll(wordwrap.WrapString(p, wrapWidth-4), "\n", "\n    "))
		}
	}
	if len(s.Topics) > 0 {
		fmt.Fprintf(w, "\n%s %s\n", infoStyle.Sprint("Topics:"), strings.Join(s.Topics, ", "))
	}
	style := infoStyle
	switch s.Sentiment {
	case "positive":
		style = successStyle
	case "negative":
		style = errorStyle
	}
	fmt.Fprintf(w, "%s %s\n", infoStyle.Sprint("Sentiment:"), style.Sprint(s.Sentiment))
}
