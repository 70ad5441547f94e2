// Package cli provides the command-line interface for spanalign.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xlingqa/spanalign/squad"
)

var fatalText = color.New(color.FgRed, color.Bold).SprintFunc()

var rootCmd = &cobra.Command{
	Use:   "spanalign",
	Short: "spanalign: augmentation-aware feature preparation for extractive QA",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Flags > environment > defaults. A .env file, when present,
		// seeds the environment before viper reads it.
		_ = godotenv.Load()
		viper.SetEnvPrefix("SPANALIGN")
		viper.AutomaticEnv()
		return validateInputs()
	},
}

// validateInputs enforces the fatal configuration errors: some input
// source must be named, and every named file must carry a supported
// extension. Both are reported before any work starts.
func validateInputs() error {
	dataset := viper.GetString("dataset-name")
	files := []string{
		viper.GetString("train-file"),
		viper.GetString("validation-file"),
		viper.GetString("test-file"),
	}
	any := false
	for _, f := range files {
		if f == "" {
			continue
		}
		any = true
		if err := squad.ValidateDataFile(f); err != nil {
			return err
		}
	}
	if dataset == "" && !any {
		return errors.New("no input source: give --dataset-name or at least one of --train-file, --validation-file, --test-file")
	}
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, fatalText("spanalign:"), err)
		os.Exit(1)
	}
}

// persistentString declares a root flag and binds it to viper.
func persistentString(name, def, usage string) {
	rootCmd.PersistentFlags().String(name, def, usage)
	_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
}

func persistentInt(name string, def int, usage string) {
	rootCmd.PersistentFlags().Int(name, def, usage)
	_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
}

func persistentBool(name string, def bool, usage string) {
	rootCmd.PersistentFlags().Bool(name, def, usage)
	_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
}

func init() {
	persistentString("dataset-name", "", "name of a prepared dataset (alternative to explicit files)")
	persistentString("train-file", "", "training data file (.json, .csv or .parquet)")
	persistentString("validation-file", "", "validation data file (.json, .csv or .parquet)")
	persistentString("test-file", "", "test data file (.json, .csv or .parquet)")
	persistentString("tokenizer-file", "tokenizer.json", "tokenizer definition file")
	persistentString("replace-table-file", "", "substitution table file; missing table disables augmentation")
	persistentInt("ratio", 0, "substitution ratio in tenths, 0..10")
	persistentInt("max-seq-length", 384, "maximum model sequence length")
	persistentInt("doc-stride", 128, "token overlap between overflowing context windows")
	persistentBool("pad-to-max-length", true, "pad every feature to max-seq-length")
	persistentInt("seed", 42, "random seed for augmentation")
	persistentString("output-log-file", "", "append-only training log path")
	persistentInt("loss-interval", 50, "optimizer steps between loss log lines")
	persistentInt("eval-interval", -1, "optimizer steps between evaluations, -1 disables")
}
