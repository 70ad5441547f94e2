package squad

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
	"k8s.io/klog/v2"
)

// ValidateDataFile checks a train/validation/test file path for a
// supported extension. Unsupported extensions are a fatal validation
// error raised before any work starts.
func ValidateDataFile(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".csv", ".parquet":
		return nil
	default:
		return errors.Errorf("unsupported data file %q: want a .json, .csv or .parquet file", path)
	}
}

// LoadExamples reads a dataset file, dispatching on its extension.
func LoadExamples(path string) ([]Example, error) {
	if err := ValidateDataFile(path); err != nil {
		return nil, err
	}
	var (
		examples []Example
		err      error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		examples, err = loadJSON(path)
	case ".csv":
		examples, err = loadCSV(path)
	case ".parquet":
		examples, err = loadParquet(path)
	}
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("loaded %d examples from %q", len(examples), path)
	return examples, nil
}

func loadJSON(path string) ([]Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read dataset %q", path)
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, errors.Wrapf(err, "failed to parse SQuAD JSON %q", path)
	}
	return ds.Examples(), nil
}

// csvColumns is the expected header of a flat CSV dataset.
var csvColumns = []string{"id", "question", "context", "answer_text", "answer_start"}

func loadCSV(path string) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open dataset %q", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read CSV header of %q", path)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range csvColumns {
		if _, ok := col[name]; !ok {
			return nil, errors.Errorf("dataset %q is missing CSV column %q", path, name)
		}
	}

	var examples []Example
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read CSV row of %q", path)
		}
		ex := Example{
			ID:       row[col["id"]],
			Question: row[col["question"]],
			Context:  row[col["context"]],
		}
		if ex.ID == "" {
			ex.ID = uuid.NewString()
		}
		if text := row[col["answer_text"]]; text != "" {
			start, err := strconv.Atoi(row[col["answer_start"]])
			if err != nil {
				return nil, errors.Wrapf(err, "bad answer_start in %q", path)
			}
			ex.Answers = []Answer{{Text: text, AnswerStart: start}}
		}
		examples = append(examples, ex)
	}
	return examples, nil
}

// Record is the flat parquet row layout used when splits are distributed
// as parquet files.
type Record struct {
	ID          string `parquet:"id,optional"`
	Question    string `parquet:"question"`
	Context     string `parquet:"context"`
	AnswerText  string `parquet:"answer_text,optional"`
	AnswerStart int32  `parquet:"answer_start,optional"`
}

func loadParquet(path string) ([]Example, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to mmap dataset %q", path)
	}
	defer r.Close()

	f, err := parquet.OpenFile(r, int64(r.Len()))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open parquet dataset %q", path)
	}
	reader := parquet.NewGenericReader[Record](f)
	defer reader.Close()

	records := make([]Record, f.NumRows())
	for read := 0; read < len(records); {
		n, err := reader.Read(records[read:])
		read += n
		if err == io.EOF {
			records = records[:read]
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read parquet rows of %q", path)
		}
	}

	examples := make([]Example, 0, len(records))
	for _, rec := range records {
		ex := Example{
			ID:       rec.ID,
			Question: rec.Question,
			Context:  rec.Context,
		}
		if ex.ID == "" {
			ex.ID = uuid.NewString()
		}
		if rec.AnswerText != "" {
			ex.Answers = []Answer{{Text: rec.AnswerText, AnswerStart: int(rec.AnswerStart)}}
		}
		examples = append(examples, ex)
	}
	return examples, nil
}
