package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kris-hansen/versecraft/utils/config"
	"github.com/kris-hansen/versecraft/utils/processor"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// DefaultRequirement is used when no requirement is given
const DefaultRequirement = "我想生成一首基于最新数学成就的中文诗，附带英文翻译，并生成一幅符合诗意的图像提示。"

var (
	runParallel    bool
	runPlanRouting string
	runQuiet       bool
	runTimeout     time.Duration
	streamLogFile  string
	runSummary     bool
)

var runCmd = &cobra.Command{
	Use:   "run [requirement]",
	Short: "Plan, compose, translate and review in one pass",
	Long: `Run the full pipeline for one requirement.

The head agent plans the task, then the search, poem, image-prompt and
translation agents run, and the head agent reviews the combined document.

The requirement can be given as arguments, piped on STDIN, or omitted to use
the built-in example requirement.`,
	Example: `  # Use the built-in requirement
  versecraft run

  # Your own requirement
  versecraft run "写一首关于黎曼猜想的七言绝句"

  # Run the image and poem stages concurrently
  versecraft run --parallel "写一首关于秋天的诗"

  # Give every stage its own planned instruction
  versecraft run --plan-routing instruction "写一首关于大海的诗"

  # Follow a long run in another terminal
  versecraft run --stream-log /tmp/run.log
  # tail -f /tmp/run.log`,
	RunE: func(cmd *cobra.Command, args []string) error {
		requirement, err := readRequirement(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("parallel") {
			cfg.Parallel = runParallel
		}
		if runPlanRouting != "" {
			cfg.PlanRouting = runPlanRouting
		}
		if cmd.Flags().Changed("timeout") {
			cfg.RequestTimeout = runTimeout
		}
		if err := cfg.Check(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		display := processor.NewProgressDisplay(!runQuiet)
		display.SetOutput(out)
		if !isTerminal(out) {
			display.SetStyler(processor.NewStyler(&processor.StyleConfig{UseColors: false, UseUnicode: true}))
		}

		stream, err := processor.NewStreamLogger(streamLogFile)
		if err != nil {
			return err
		}
		defer stream.Close()

		head, err := processor.NewHeadAgentFromConfig(cfg,
			processor.WithProgressDisplay(display),
			processor.WithStreamLog(stream),
		)
		if err != nil {
			return err
		}

		report, err := head.Run(cmd.Context(), requirement)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "\n最终结果:\n%s\n", report.Final)
		if runSummary {
			fmt.Fprint(out, "\n"+report.Summary())
		}
		return nil
	},
}

// readRequirement takes the requirement from args, then piped stdin, then
// the default
func readRequirement(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	if f, ok := stdin.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("error reading from STDIN: %w", err)
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			return text, nil
		}
	}

	config.Logger().Infow("No requirement given, using the default")
	return DefaultRequirement, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func init() {
	runCmd.Flags().BoolVar(&runParallel, "parallel", false, "run independent stages concurrently")
	runCmd.Flags().StringVar(&runPlanRouting, "plan-routing", "", "how plan entries reach the stages: discard or instruction")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "hide progress output")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "per-request timeout (0 means none)")
	runCmd.Flags().StringVar(&streamLogFile, "stream-log", "", "write a run transcript to this file for real-time monitoring")
	runCmd.Flags().BoolVar(&runSummary, "summary", false, "print per-stage timings after the result")
	rootCmd.AddCommand(runCmd)
}
