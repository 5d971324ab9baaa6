package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/leofalp/gemkit/core/cost"
	"github.com/leofalp/gemkit/providers/gemini"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models with known pricing",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		prices := pricingTable(cfg.Pricing)
		if flagJSONOutput {
			return printJSON(cmd.OutOrStdout(), prices)
		}
		printModels(cmd.OutOrStdout(), prices, cfg.Model)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd, configCmd)
}

// pricingTable merges the built-in prices with the configured overrides.
func pricingTable(overrides map[string]cost.ModelCost) map[string]cost.ModelCost {
	prices := make(map[string]cost.ModelCost, len(gemini.ModelPricing)+len(overrides))
	for model, mc := range gemini.ModelPricing {
		prices[model] = mc
	}
	for model, mc := range overrides {
		prices[model] = mc
	}
	return prices
}

func printModels(w io.Writer, prices map[string]cost.ModelCost, current string) {
	models := make([]string, 0, len(prices))
	for model := range prices {
		models = append(models, model)
	}
	sort.Strings(models)

	fmt.Fprintf(w, "%s\n", boldStyle.Sprintf("%-24s %10s %10s %10s", "MODEL", "INPUT/M", "OUTPUT/M", "CACHED/M"))
	for _, model := range models {
		mc := prices[model]
		name := runewidth.FillRight(model, 24)
		if model == current {
			name = successStyle.Sprint(name)
		}
		fmt.Fprintf(w, "%s %10.4f %10.4f %10.4f\n", name, mc.InputCostPerMillion, mc.OutputCostPerMillion, mc.CachedInputCostPerMillion)
	}
}
