package cmd

import (
	"fmt"
	"strings"

	"github.com/kris-hansen/versecraft/utils/crispe"
	"github.com/kris-hansen/versecraft/utils/models"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var crispeModel string

var crispeCmd = &cobra.Command{
	Use:   "crispe <params.yaml>",
	Short: "Generate a response from a CRISPE-structured prompt",
	Long: `Render a CRISPE prompt (Capacity, Role, Insight, Statement, Personality,
Experiment, plus Context and Requirement) from a YAML file and send it to a
chat model with fixed sampling (temperature 0.7, top_p 0.9, 2000 tokens).

Only "statement" is required. The model comes from --model, then the file's
"model" key, then deepseek-chat.`,
	Example: `  versecraft crispe geometry.yaml
  versecraft crispe geometry.yaml --model deepseek-reasoner`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := crispe.Load(args[0])
		if err != nil {
			return err
		}

		model := crispeModel
		if model == "" {
			model = params.Model
		}
		if model == "" {
			model = crispe.DefaultModel
		}

		provider, err := models.NewProviderForModel(model, cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		rule := strings.Repeat("=", 60)
		fmt.Fprintf(out, "\n%s\nCRISPE 参数配置:\n%s\n", rule, rule)
		upper := cases.Upper(language.Und)
		for _, f := range params.Fields() {
			fmt.Fprintf(out, "%s: %s\n", upper.String(f.Label), f.Value)
		}
		fmt.Fprintf(out, "\n%s\n模型响应:\n%s\n", rule, rule)

		res, err := crispe.Generate(cmd.Context(), provider, model, params)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Reply)
		fmt.Fprintf(out, "\n%s\n生成完成 | 耗时: %.2f秒\n", strings.Repeat("-", 60), res.Elapsed.Seconds())
		return nil
	},
}

func init() {
	crispeCmd.Flags().StringVarP(&crispeModel, "model", "m", "", "model to use (overrides the params file)")
	rootCmd.AddCommand(crispeCmd)
}
