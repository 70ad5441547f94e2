package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xlingqa/spanalign/augment"
	"github.com/xlingqa/spanalign/features"
	"github.com/xlingqa/spanalign/squad"
	"github.com/xlingqa/spanalign/tokenizers/wordpiece"
)

var (
	prepareEval   bool
	prepareOutput string
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Tokenize, augment and label a dataset into model-ready features",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPrepare()
	},
}

func runPrepare() error {
	inputPath := viper.GetString("train-file")
	inputFlag := "--train-file"
	if prepareEval {
		inputPath = viper.GetString("validation-file")
		inputFlag = "--validation-file"
	}
	if inputPath == "" {
		return errors.Errorf("prepare needs %s", inputFlag)
	}

	tok, err := wordpiece.NewFromFile(viper.GetString("tokenizer-file"))
	if err != nil {
		return err
	}
	table, err := augment.LoadTable(viper.GetString("replace-table-file"))
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(int64(viper.GetInt("seed"))))
	policy, err := augment.NewPolicy(viper.GetInt("ratio"), rng)
	if err != nil {
		return err
	}
	examples, err := squad.LoadExamples(inputPath)
	if err != nil {
		return err
	}

	pipeline := &features.Pipeline{
		Tokenizer:      tok,
		Augmenter:      &augment.Augmenter{Table: table, Policy: policy},
		MaxSeqLength:   viper.GetInt("max-seq-length"),
		DocStride:      viper.GetInt("doc-stride"),
		PadToMaxLength: viper.GetBool("pad-to-max-length"),
	}

	var feats []features.Feature
	if prepareEval {
		feats, err = pipeline.PrepareEvalFeatures(examples)
	} else {
		feats, err = pipeline.PrepareTrainFeatures(examples, rng)
	}
	if err != nil {
		return err
	}
	if err := writeJSONL(prepareOutput, feats); err != nil {
		return err
	}

	fmt.Println(prepareSummary(inputPath, len(examples), feats))
	return nil
}

func writeJSONL(path string, feats []features.Feature) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create output file %q", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range feats {
		if err := enc.Encode(&feats[i]); err != nil {
			return errors.Wrapf(err, "failed to encode feature %d", i)
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "failed to write output file %q", path)
	}
	return nil
}

var (
	summaryTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	summaryLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func prepareSummary(input string, numExamples int, feats []features.Feature) string {
	byReason := map[features.Reason]int{}
	for _, f := range feats {
		byReason[f.Reason]++
	}
	s := summaryTitle.Render("prepared "+input) + "\n"
	s += fmt.Sprintf("%s %d\n", summaryLabel.Render("examples:"), numExamples)
	s += fmt.Sprintf("%s %d\n", summaryLabel.Render("features:"), len(feats))
	if !prepareEval {
		for _, r := range []features.Reason{features.ReasonResolved, features.ReasonNoAnswer, features.ReasonTruncated, features.ReasonAnswerLost} {
			if byReason[r] > 0 {
				s += fmt.Sprintf("%s %d\n", summaryLabel.Render(r.String()+":"), byReason[r])
			}
		}
	}
	return s
}

func init() {
	prepareCmd.Flags().BoolVar(&prepareEval, "eval", false, "build evaluation features (stride windows, offset maps) instead of training labels")
	prepareCmd.Flags().StringVar(&prepareOutput, "output-file", "features.jsonl", "JSONL output path")
	rootCmd.AddCommand(prepareCmd)
}
