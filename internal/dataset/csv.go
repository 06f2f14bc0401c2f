package dataset

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

// featureList is a space separated list of floats in a single CSV cell.
type featureList []float64

// MarshalCSV implements gocsv.TypeMarshaller.
func (f featureList) MarshalCSV() (string, error) {
	parts := make([]string, len(f))
	for i, v := range f {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " "), nil
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (f *featureList) UnmarshalCSV(s string) error {
	fields := strings.Fields(s)
	out := make(featureList, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return errors.Wrapf(err, "feature %d", i)
		}
		out[i] = v
	}
	*f = out
	return nil
}

type record struct {
	Label    int         `csv:"label"`
	Features featureList `csv:"features"`
}

// ReadCSV parses rows of `label,features` with space separated features and
// validates the result.
func ReadCSV(r io.Reader) ([]Example, error) {
	var rows []*record
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, errors.Wrap(err, "dataset: parse csv")
	}
	out := make([]Example, len(rows))
	for i, row := range rows {
		out[i] = Example{Features: []float64(row.Features), Label: row.Label}
	}
	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteCSV writes examples in the format read by ReadCSV.
func WriteCSV(w io.Writer, examples []Example) error {
	rows := make([]*record, len(examples))
	for i, ex := range examples {
		rows[i] = &record{Label: ex.Label, Features: featureList(ex.Features)}
	}
	return errors.Wrap(gocsv.Marshal(rows, w), "dataset: write csv")
}

// LoadCSV reads a dataset file.
func LoadCSV(path string) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "dataset: open")
	}
	defer f.Close()
	return ReadCSV(f)
}
