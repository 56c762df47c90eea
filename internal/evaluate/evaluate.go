// Package evaluate scores orientation and skew predictions against labelled PDF files.
package evaluate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Labels are the true (or predicted) values for every page image of one PDF.
// A labels file for x.pdf is named x.pdf.json.
type Labels struct {
	Orientation     []int     `json:"orientation"`
	SkewOrientation []float64 `json:"skew_orientation"`
}

// LabelsPath returns the path of the labels file for a PDF
func LabelsPath(pdfPath string) string {
	return pdfPath + ".json"
}

func LoadLabels(pdfPath string) (*Labels, error) {
	data, err := os.ReadFile(LabelsPath(pdfPath))
	if err != nil {
		return nil, err
	}
	labels := &Labels{}
	if err := json.Unmarshal(data, labels); err != nil {
		return nil, fmt.Errorf("%v: %w", LabelsPath(pdfPath), err)
	}
	return labels, nil
}

// FindLabelledPDFs returns every PDF in dir that has a labels file next to it, sorted by name
func FindLabelledPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := []string{}
	for _, e := range entries {
		if e.IsDir() || strings.ToLower(filepath.Ext(e.Name())) != ".pdf" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, err := os.Stat(LabelsPath(path)); err == nil {
			files = append(files, path)
		}
	}
	slices.Sort(files)
	return files, nil
}

// Dataset accumulates true and predicted labels across many PDFs
type Dataset struct {
	True      Labels
	Predicted Labels
}

// Add appends the labels of one PDF. Both sides must describe the same number of images.
func (d *Dataset) Add(truth, predicted Labels) error {
	if len(truth.Orientation) != len(predicted.Orientation) {
		return fmt.Errorf("%v orientation labels, but %v predictions", len(truth.Orientation), len(predicted.Orientation))
	}
	if len(truth.SkewOrientation) != len(predicted.SkewOrientation) {
		return fmt.Errorf("%v skew labels, but %v predictions", len(truth.SkewOrientation), len(predicted.SkewOrientation))
	}
	d.True.Orientation = append(d.True.Orientation, truth.Orientation...)
	d.True.SkewOrientation = append(d.True.SkewOrientation, truth.SkewOrientation...)
	d.Predicted.Orientation = append(d.Predicted.Orientation, predicted.Orientation...)
	d.Predicted.SkewOrientation = append(d.Predicted.SkewOrientation, predicted.SkewOrientation...)
	return nil
}

// ConfusionMatrix counts, for every pair of classes, how often the true class (row)
// was predicted as the other (column). Labels outside of classes are ignored.
func ConfusionMatrix(truth, predicted []int, classes []int) *mat.Dense {
	cm := mat.NewDense(len(classes), len(classes), nil)
	for i := range truth {
		r := slices.Index(classes, truth[i])
		c := slices.Index(classes, predicted[i])
		if r < 0 || c < 0 {
			continue
		}
		cm.Set(r, c, cm.At(r, c)+1)
	}
	return cm
}

// ClassMetrics are the scores of one class. Undefined ratios (division by zero) are nil.
type ClassMetrics struct {
	Precision *float64 `json:"precision"`
	Recall    *float64 `json:"recall"`
	F1        *float64 `json:"f1-score"`
	Support   int      `json:"support"`
}

// Report is a classification report, keyed like scikit-learn's dictionary output
type Report struct {
	Classes  map[string]ClassMetrics
	Accuracy float64
	Macro    ClassMetrics
	Weighted ClassMetrics
	Matrix   *mat.Dense
}

func (r *Report) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	for k, v := range r.Classes {
		out[k] = v
	}
	out["accuracy"] = r.Accuracy
	out["macro avg"] = r.Macro
	out["weighted avg"] = r.Weighted
	rows, cols := r.Matrix.Dims()
	matrix := make([][]int, rows)
	for i := range rows {
		matrix[i] = make([]int, cols)
		for j := range cols {
			matrix[i][j] = int(r.Matrix.At(i, j))
		}
	}
	out["confusion_matrix"] = matrix
	return json.Marshal(out)
}

// Classify builds the classification report of predicted against truth
func Classify(truth, predicted []int, classes []int) (*Report, error) {
	if len(truth) != len(predicted) {
		return nil, errors.New("truth and predictions differ in length")
	}
	if len(truth) == 0 {
		return nil, errors.New("no labels")
	}
	cm := ConfusionMatrix(truth, predicted, classes)
	report := &Report{
		Classes: map[string]ClassMetrics{},
		Matrix:  cm,
	}

	correct := 0.0
	precisions, recalls, f1s := []float64{}, []float64{}, []float64{}
	weightsP, weightsR, weightsF := []float64{}, []float64{}, []float64{}
	for i, class := range classes {
		tp := cm.At(i, i)
		correct += tp
		support := mat.Sum(cm.RowView(i))
		predictedCount := mat.Sum(cm.ColView(i))

		m := ClassMetrics{Support: int(support)}
		if predictedCount != 0 {
			m.Precision = ptr(tp / predictedCount)
			precisions = append(precisions, *m.Precision)
			weightsP = append(weightsP, support)
		}
		if support != 0 {
			m.Recall = ptr(tp / support)
			recalls = append(recalls, *m.Recall)
			weightsR = append(weightsR, support)
		}
		if m.Precision != nil && m.Recall != nil {
			f1 := 0.0
			if *m.Precision+*m.Recall != 0 {
				f1 = 2 * *m.Precision * *m.Recall / (*m.Precision + *m.Recall)
			}
			m.F1 = ptr(f1)
			f1s = append(f1s, f1)
			weightsF = append(weightsF, support)
		}
		report.Classes[strconv.Itoa(class)] = m
	}
	report.Accuracy = correct / float64(len(truth))

	report.Macro = ClassMetrics{
		Precision: mean(precisions, nil),
		Recall:    mean(recalls, nil),
		F1:        mean(f1s, nil),
		Support:   len(truth),
	}
	report.Weighted = ClassMetrics{
		Precision: mean(precisions, weightsP),
		Recall:    mean(recalls, weightsR),
		F1:        mean(f1s, weightsF),
		Support:   len(truth),
	}
	return report, nil
}

// MeanSquaredError of predicted against truth
func MeanSquaredError(truth, predicted []float64) (float64, error) {
	if len(truth) != len(predicted) {
		return 0, errors.New("truth and predictions differ in length")
	}
	if len(truth) == 0 {
		return 0, errors.New("no labels")
	}
	sq := make([]float64, len(truth))
	for i := range truth {
		d := truth[i] - predicted[i]
		sq[i] = d * d
	}
	return stat.Mean(sq, nil), nil
}

// mean returns nil when there is nothing to average, or when all weights are zero
func mean(x, weights []float64) *float64 {
	if len(x) == 0 {
		return nil
	}
	if weights != nil && floatsSum(weights) == 0 {
		return nil
	}
	return ptr(stat.Mean(x, weights))
}

func floatsSum(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += v
	}
	return s
}

func ptr(v float64) *float64 {
	return &v
}
