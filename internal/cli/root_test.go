package cli

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetInputs(t *testing.T) {
	t.Helper()
	for _, k := range []string{"dataset-name", "train-file", "validation-file", "test-file"} {
		viper.Set(k, "")
	}
	t.Cleanup(func() {
		for _, k := range []string{"dataset-name", "train-file", "validation-file", "test-file"} {
			viper.Set(k, "")
		}
	})
}

func TestValidateInputsMissingSource(t *testing.T) {
	resetInputs(t)
	err := validateInputs()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input source")
}

func TestValidateInputsDatasetNameIsEnough(t *testing.T) {
	resetInputs(t)
	viper.Set("dataset-name", "squad")
	require.NoError(t, validateInputs())
}

func TestValidateInputsBadExtension(t *testing.T) {
	resetInputs(t)
	viper.Set("train-file", "train.txt")
	err := validateInputs()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported data file")
}

func TestValidateInputsGoodFiles(t *testing.T) {
	resetInputs(t)
	viper.Set("train-file", "train.json")
	viper.Set("validation-file", "dev.parquet")
	require.NoError(t, validateInputs())
}
