package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/bmharper/pdfdeskew"
	"github.com/bmharper/pdfdeskew/orient"
	"github.com/bmharper/pdfdeskew/skew"
)

// Predict the orientation and skew of every page image of a single PDF file, and print them as JSON.
// For a file with 3 pages, the first upright, the second upside down, and the third skewed by 1.5 degrees:
//
//	{"orientation": [0, 180, 0], "skew_orientation": [0, 0, 1.5], "pages": [...]}

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	withOrientation := flag.Bool("orientation", true, "Predict orientation")
	withSkew := flag.Bool("skew", true, "Predict skew")
	engine := flag.String("engine", orient.EngineTextorient, "Orientation engine (textorient, tesseract, none)")
	language := flag.String("lang", "eng", "Tesseract language")
	axisThreshold := flag.Float64("axis", 10, "Lines further than this many degrees from horizontal do not vote on the skew")
	verbose := flag.Bool("v", false, "Log every page")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Printf("Usage: %s [options] <pdf-file>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	raw, err := os.ReadFile(flag.Arg(0))
	check(err)

	var orientation orient.Predictor = orient.None{}
	if *withOrientation {
		orientation, err = orient.New(*engine, *language)
		check(err)
	}
	defer orientation.Close()

	params := skew.NewParams()
	params.AxisThreshold = *axisThreshold
	s := pdfdeskew.NewStraightener(orientation, params)
	s.Verbose = *verbose

	predictions, err := s.Predict(context.Background(), raw, *withOrientation, *withSkew)
	check(err)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	check(enc.Encode(predictions))
}
