package evaluate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var classes = []int{0, 90, 180, 270}

func TestConfusionMatrix(t *testing.T) {
	cm := ConfusionMatrix([]int{0, 0, 90, 180, 270, 45}, []int{0, 180, 90, 180, 90, 0}, classes)
	require.Equal(t, 1.0, cm.At(0, 0))
	require.Equal(t, 1.0, cm.At(0, 2))
	require.Equal(t, 1.0, cm.At(1, 1))
	require.Equal(t, 1.0, cm.At(2, 2))
	require.Equal(t, 1.0, cm.At(3, 1))
	require.Equal(t, 0.0, cm.At(3, 3))
}

func TestClassify(t *testing.T) {
	truth := []int{0, 0, 0, 180, 90}
	pred := []int{0, 0, 180, 180, 0}
	r, err := Classify(truth, pred, classes)
	require.NoError(t, err)
	require.InDelta(t, 0.6, r.Accuracy, 1e-12)

	zero := r.Classes["0"]
	require.Equal(t, 3, zero.Support)
	require.InDelta(t, 2.0/3, *zero.Precision, 1e-12)
	require.InDelta(t, 2.0/3, *zero.Recall, 1e-12)
	require.InDelta(t, 2.0/3, *zero.F1, 1e-12)

	// 90 is never predicted, so its precision is undefined
	ninety := r.Classes["90"]
	require.Nil(t, ninety.Precision)
	require.Equal(t, 0.0, *ninety.Recall)

	// 270 appears nowhere
	require.Nil(t, r.Classes["270"].Precision)
	require.Nil(t, r.Classes["270"].Recall)
	require.Equal(t, 0, r.Classes["270"].Support)

	encoded, err := json.Marshal(r)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	require.InDelta(t, 0.6, decoded["accuracy"], 1e-12)
	require.Contains(t, decoded, "macro avg")
	require.Contains(t, decoded, "weighted avg")
	require.Nil(t, decoded["90"].(map[string]any)["precision"])
	require.Len(t, decoded["confusion_matrix"], 4)
}

func TestClassifyErrors(t *testing.T) {
	_, err := Classify([]int{0}, []int{0, 90}, classes)
	require.Error(t, err)
	_, err = Classify(nil, nil, classes)
	require.Error(t, err)
}

func TestMeanSquaredError(t *testing.T) {
	mse, err := MeanSquaredError([]float64{0, 1.5, -2}, []float64{0, 0.5, -1})
	require.NoError(t, err)
	require.InDelta(t, 2.0/3, mse, 1e-12)

	_, err = MeanSquaredError([]float64{1}, nil)
	require.Error(t, err)
}

func TestDataset(t *testing.T) {
	d := &Dataset{}
	require.NoError(t, d.Add(Labels{Orientation: []int{0, 90}, SkewOrientation: []float64{0, 1}},
		Labels{Orientation: []int{0, 180}, SkewOrientation: []float64{0.5, 1}}))
	require.Error(t, d.Add(Labels{Orientation: []int{0}}, Labels{}))
	require.Equal(t, []int{0, 90}, d.True.Orientation)
	require.Equal(t, []int{0, 180}, d.Predicted.Orientation)
}

func TestFindLabelledPDFs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.pdf", "unlabelled.pdf", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf.json"), []byte(`{"orientation": [0, 180], "skew_orientation": [0.0, 1.5]}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.pdf.json"), []byte(`{"orientation": [90], "skew_orientation": [0.0]}`), 0644))

	files, err := FindLabelledPDFs(dir)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "a.pdf"), filepath.Join(dir, "b.pdf")}, files)

	labels, err := LoadLabels(files[0])
	require.NoError(t, err)
	require.Equal(t, []int{0, 180}, labels.Orientation)
	require.Equal(t, []float64{0, 1.5}, labels.SkewOrientation)
}
