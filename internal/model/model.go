// Package model persists trained classifiers as versioned JSON artifacts.
package model

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"

	"qclassify/internal/circuit"
	"qclassify/internal/postprocess"
)

// FormatVersion is the artifact version written by Encode.
const FormatVersion = 1

// ErrUnsupportedVersion is returned when decoding an artifact of an unknown
// version.
var ErrUnsupportedVersion = errors.New("model: unsupported artifact version")

// Artifact is everything needed to rebuild a trained classifier.
type Artifact struct {
	Version        int                      `json:"version"`
	Params         []float64                `json:"params"`
	Qubits         []int                    `json:"qubits"`
	Encoder        circuit.EncoderOptions   `json:"encoder"`
	Processor      circuit.ProcessorOptions `json:"processor"`
	Postprocessing postprocess.Options      `json:"postprocessing"`
	Loss           float64                  `json:"loss"`
	RunID          string                   `json:"run_id,omitempty"`
	TrainedAt      time.Time                `json:"trained_at"`
}

// Validate checks the artifact shape.
func (a *Artifact) Validate() error {
	if a.Version != FormatVersion {
		return errors.Wrapf(ErrUnsupportedVersion, "got %d, want %d", a.Version, FormatVersion)
	}
	if len(a.Qubits) == 0 {
		return errors.New("model: artifact has no qubits")
	}
	if len(a.Params) == 0 {
		return errors.New("model: artifact has no params")
	}
	return nil
}

// Encode writes a as indented JSON. A zero version is stamped with
// FormatVersion.
func Encode(w io.Writer, a *Artifact) error {
	out := *a
	if out.Version == 0 {
		out.Version = FormatVersion
	}
	if err := out.Validate(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(&out), "model: encode")
}

// Decode reads and validates an artifact.
func Decode(r io.Reader) (*Artifact, error) {
	var a Artifact
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return nil, errors.Wrap(err, "model: decode")
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Save writes a to path, replacing any existing file.
func Save(path string, a *Artifact) error {
	var buf bytes.Buffer
	if err := Encode(&buf, a); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "model: write %s", tmp)
	}
	return errors.Wrapf(os.Rename(tmp, path), "model: rename %s", tmp)
}

// Load reads the artifact at path.
func Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "model: open %s", path)
	}
	defer f.Close()
	return Decode(f)
}
