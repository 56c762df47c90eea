package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmharper/pdfdeskew"
	"github.com/bmharper/pdfdeskew/internal/evaluate"
	"github.com/bmharper/pdfdeskew/orient"
	"github.com/bmharper/pdfdeskew/skew"
)

// Evaluate orientation and skew predictions on a folder of PDF files.
// Every PDF file must have a JSON file next to it, with the true labels, in the format printed by cmd/predict.
// For instance, scan.pdf is labelled by scan.pdf.json:
//
//	{"orientation": [0, 180, 0], "skew_orientation": [0.0, 0.0, 1.5]}

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func writeJSON(path string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	check(err)
	check(os.WriteFile(path, data, 0644))
}

func main() {
	engine := flag.String("engine", orient.EngineTextorient, "Orientation engine (textorient, tesseract, none)")
	language := flag.String("lang", "eng", "Tesseract language")
	axisThreshold := flag.Float64("axis", 10, "Lines further than this many degrees from horizontal do not vote on the skew")
	outputDir := flag.String("o", "evaluation", "Directory for the performance reports")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Printf("Usage: %s [options] <dataset-folder>\n", os.Args[0])
		os.Exit(1)
	}

	files, err := evaluate.FindLabelledPDFs(flag.Arg(0))
	check(err)
	if len(files) == 0 {
		fmt.Printf("No labelled PDF files in %v\n", flag.Arg(0))
		os.Exit(1)
	}

	orientation, err := orient.New(*engine, *language)
	check(err)
	defer orientation.Close()
	params := skew.NewParams()
	params.AxisThreshold = *axisThreshold
	s := pdfdeskew.NewStraightener(orientation, params)

	dataset := &evaluate.Dataset{}
	for _, file := range files {
		truth, err := evaluate.LoadLabels(file)
		check(err)
		raw, err := os.ReadFile(file)
		check(err)
		p, err := s.Predict(context.Background(), raw, true, true)
		check(err)
		predicted := evaluate.Labels{Orientation: p.Orientation, SkewOrientation: p.SkewOrientation}
		if err := dataset.Add(*truth, predicted); err != nil {
			panic(fmt.Errorf("%v: %w", filepath.Base(file), err))
		}
		fmt.Printf("%v: %v images\n", filepath.Base(file), len(p.Orientation))
	}

	check(os.MkdirAll(*outputDir, 0755))

	report, err := evaluate.Classify(dataset.True.Orientation, dataset.Predicted.Orientation, orient.Orientations)
	check(err)
	writeJSON(filepath.Join(*outputDir, "performance_orientation.json"), report)

	mse, err := evaluate.MeanSquaredError(dataset.True.SkewOrientation, dataset.Predicted.SkewOrientation)
	check(err)
	writeJSON(filepath.Join(*outputDir, "performance_skew_orientation.json"), map[string]float64{
		"mean_squared_error": mse,
	})

	abs, _ := filepath.Abs(*outputDir)
	fmt.Printf("Evaluation metrics files saved at %v\n", abs)
}
