package model

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qclassify/internal/circuit"
	"qclassify/internal/postprocess"
)

func artifact() *Artifact {
	return &Artifact{
		Params:         []float64{1.5707963267948966, 0.25},
		Qubits:         []int{0, 1},
		Encoder:        circuit.DefaultEncoderOptions(),
		Processor:      circuit.DefaultProcessorOptions(),
		Postprocessing: postprocess.DefaultOptions(),
		Loss:           0.0134,
		RunID:          "6f1c2a9e-5d0b-4d53-a3a4-0c8f1e2d7b11",
		TrainedAt:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEncodeStampsVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, artifact()))
	assert.Contains(t, buf.String(), `"version": 1`)
	assert.Contains(t, buf.String(), `"proc_circ": "layer_xz"`)
	assert.Contains(t, buf.String(), `"run_id": "6f1c2a9e-5d0b-4d53-a3a4-0c8f1e2d7b11"`)

	got, err := Decode(&buf)
	require.NoError(t, err)
	want := artifact()
	want.Version = FormatVersion
	assert.True(t, want.TrainedAt.Equal(got.TrainedAt))
	got.TrainedAt = want.TrainedAt
	assert.Equal(t, want, got)
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	in := `{"version":2,"params":[1,2],"qubits":[0,1]}`
	_, err := Decode(strings.NewReader(in))
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))

	a := artifact()
	a.Version = 7
	assert.True(t, errors.Is(Encode(&bytes.Buffer{}, a), ErrUnsupportedVersion))
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for name, in := range map[string]string{
		"syntax":    `{"version":1,`,
		"unknown":   `{"version":1,"params":[1],"qubits":[0],"weights":[]}`,
		"no params": `{"version":1,"qubits":[0,1]}`,
		"no qubits": `{"version":1,"params":[1,2]}`,
	} {
		_, err := Decode(strings.NewReader(in))
		assert.Error(t, err, name)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, Save(path, artifact()))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, artifact().Params, got.Params)
	assert.Equal(t, FormatVersion, got.Version)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
