package cmd

import (
	"fmt"
	"strings"

	"github.com/kris-hansen/versecraft/utils/models"
	"github.com/spf13/cobra"
)

var describeModel string

var describeCmd = &cobra.Command{
	Use:   "describe <image-url> [question]",
	Short: "Ask a Doubao vision model about an image",
	Long: `Send one image URL and a question to a vision model on Volcengine Ark and
print the answer. Requires ARK_API_KEY.`,
	Example: `  versecraft describe https://example.com/lake.jpg
  versecraft describe https://example.com/lake.jpg "图中有几座山？"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := models.DefaultVisionQuestion
		if len(args) == 2 && strings.TrimSpace(args[1]) != "" {
			question = args[1]
		}

		provider, err := models.NewProviderForModel(describeModel, cfg)
		if err != nil {
			return err
		}
		vision, ok := provider.(models.ImageDescriber)
		if !ok {
			return fmt.Errorf("model %s does not support image input", describeModel)
		}

		answer, err := vision.DescribeImage(cmd.Context(), describeModel, args[0], question)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}

func init() {
	describeCmd.Flags().StringVarP(&describeModel, "model", "m", models.DefaultVisionModel, "vision model to use")
	rootCmd.AddCommand(describeCmd)
}
