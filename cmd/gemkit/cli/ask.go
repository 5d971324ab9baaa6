package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/leofalp/gemkit/providers/gemini"
)

var (
	askImages       []string
	askShowThoughts bool
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Send a prompt and print the answer",
	Long: `Send a single prompt to the model and print its answer. The prompt is
taken from the arguments or, when there are none, from stdin.

Examples:
  gemkit ask "Explain HTTP/2 server push in one paragraph"
  gemkit ask --image photo.jpg "What is in this picture?"
  gemkit ask --image 'shots/**/*.png' "Which screenshot shows an error?"
  cat notes.txt | gemkit ask --model gemini-2.5-flash --thinking 512`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringSliceVarP(&askImages, "image", "i", nil, "Attach an image file or http(s) URL (repeatable)")
	askCmd.Flags().BoolVar(&askShowThoughts, "show-thoughts", false, "Print the model's thought summary")
}

func runAsk(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(args, pipedStdin(cmd))
	if err != nil {
		return err
	}

	sess, err := newSession(cmd)
	if err != nil {
		return err
	}

	images, err := expandImages(askImages)
	if err != nil {
		return err
	}

	b := sess.request()
	for _, img := range images {
		b = attachImage(cmd, b, img)
	}
	b.AddMessage(gemini.RoleUser, prompt)

	resp, err := sess.execute(cmd.Context(), b)
	if err != nil {
		return err
	}
	return writeResponse(cmd, sess, resp)
}

// expandImages resolves glob patterns such as "shots/**/*.png". URLs and
// plain paths are kept as given.
func expandImages(refs []string) ([]string, error) {
	var out []string
	for _, ref := range refs {
		if isURL(ref) || !strings.ContainsAny(ref, "*?[{") {
			out = append(out, ref)
			continue
		}
		matches, err := doublestar.FilepathGlob(ref)
		if err != nil {
			return nil, fmt.Errorf("image pattern %q: %w", ref, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("image pattern %q matched no files", ref)
		}
		out = append(out, matches...)
	}
	return out, nil
}

func isURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func attachImage(cmd *cobra.Command, b *gemini.RequestBuilder, ref string) *gemini.RequestBuilder {
	if isURL(ref) {
		return b.AddImageByURL(cmd.Context(), ref)
	}
	return b.AddImageByLocalFile(ref)
}

type jsonResult struct {
	Response json.RawMessage `json:"response"`
	Text     string          `json:"text"`
	Cost     *costSummary    `json:"cost,omitempty"`
}

func writeResponse(cmd *cobra.Command, sess *session, resp *gemini.Response) error {
	out := cmd.OutOrStdout()
	if flagJSONOutput {
		result := jsonResult{Response: resp.JSON(), Text: resp.Text()}
		if flagShowCost {
			s := sess.costs.summary()
			result.Cost = &s
		}
		return printJSON(out, result)
	}

	printAnswer(out, resp, askShowThoughts)
	if flagShowCost {
		printCost(out, sess.costs.summary())
	}
	return nil
}
