package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/leofalp/gemkit/internal/webfetch"
	"github.com/leofalp/gemkit/providers/gemini"
)

type currentTimeInput struct {
	Timezone string `json:"timezone" jsonschema:"required,description=IANA time zone such as Europe/Rome or UTC"`
}

type currentTimeOutput struct {
	Timezone string `json:"timezone"`
	Time     string `json:"time"`
	Weekday  string `json:"weekday"`
}

func currentTime(now func() time.Time) func(context.Context, currentTimeInput) (currentTimeOutput, error) {
	return func(_ context.Context, in currentTimeInput) (currentTimeOutput, error) {
		name := strings.TrimSpace(in.Timezone)
		if name == "" {
			name = "UTC"
		}
		loc, err := time.LoadLocation(name)
		if err != nil {
			return currentTimeOutput{}, fmt.Errorf("unknown time zone %q", in.Timezone)
		}
		t := now().In(loc)
		return currentTimeOutput{
			Timezone: loc.String(),
			Time:     t.Format(time.RFC3339),
			Weekday:  t.Weekday().String(),
		}, nil
	}
}

// toolFactories builds the local tools the run command can expose.
var toolFactories = map[string]func(deps toolDeps) (gemini.ToolDefinition, error){
	"fetch_page": func(deps toolDeps) (gemini.ToolDefinition, error) {
		return gemini.NewTypedTool("fetch_page",
			"Download a web page and return its title and content as Markdown.",
			deps.fetcher.Fetch)
	},
	"current_time": func(deps toolDeps) (gemini.ToolDefinition, error) {
		return gemini.NewTypedTool("current_time",
			"Return the current date and time in a time zone.",
			currentTime(deps.now))
	},
}

type toolDeps struct {
	fetcher *webfetch.Fetcher
	now     func() time.Time
}

func toolNames() []string {
	names := make([]string, 0, len(toolFactories))
	for name := range toolFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildTools returns the named tools, or all of them when names is empty.
func buildTools(names []string, deps toolDeps) ([]gemini.ToolDefinition, error) {
	if len(names) == 0 {
		names = toolNames()
	}
	tools := make([]gemini.ToolDefinition, 0, len(names))
	for _, name := range names {
		factory, ok := toolFactories[name]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q (available: %s)", name, strings.Join(toolNames(), ", "))
		}
		tool, err := factory(deps)
		if err != nil {
			return nil, fmt.Errorf("build tool %q: %w", name, err)
		}
		tools = append(tools, tool)
	}
	return tools, nil
}
