package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/leofalp/gemkit/providers/gemini"
)

var (
	boldStyle    = color.New(color.Bold)
	errorStyle   = color.New(color.FgRed)
	successStyle = color.New(color.FgGreen)
	infoStyle    = color.New(color.FgCyan)
	dimStyle     = color.New(color.Faint)
	warnStyle    = color.New(color.FgYellow)
)

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Sprint("Error: ")+err.Error())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printAnswer writes the model text, or the refusal and block reason when
// there is no usable text.
func printAnswer(w io.Writer, resp *gemini.Response, showThoughts bool) {
	if showThoughts {
		if thoughts := resp.Thoughts(); thoughts != "" {
			fmt.Fprintln(w, dimStyle.Sprint(thoughts))
			fmt.Fprintln(w)
		}
	}
	if resp.HasRefusal() {
		fmt.Fprintln(w, warnStyle.Sprint("Refused: ")+resp.Refusal())
		return
	}
	if reason := resp.BlockReason(); reason != "" {
		fmt.Fprintln(w, warnStyle.Sprint("Blocked: ")+reason)
		return
	}
	fmt.Fprintln(w, resp.Text())
}

func printCost(w io.Writer, s costSummary) {
	fmt.Fprintf(w, "\n%s %d turn(s), %d prompt / %d output / %d thinking tokens, %s\n",
		infoStyle.Sprint("Usage:"),
		s.Turns,
		s.Usage.PromptTokens,
		s.Usage.CandidatesTokens,
		s.Usage.ThoughtsTokens,
		successStyle.Sprint(s.Cost.String()),
	)
	if s.Unpriced > 0 {
		fmt.Fprintln(w, warnStyle.Sprintf("%d turn(s) used a model without known pricing", s.Unpriced))
	}
}

// pipedStdin returns stdin when it is not a terminal, nil otherwise.
func pipedStdin(cmd *cobra.Command) io.Reader {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return nil
	}
	return in
}
