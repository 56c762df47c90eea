package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bmharper/pdfdeskew"
	"github.com/bmharper/pdfdeskew/orient"
	"github.com/bmharper/pdfdeskew/skew"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	engine := flag.String("orientation", orient.EngineTextorient, "Orientation engine (textorient, tesseract, none)")
	language := flag.String("lang", "eng", "Tesseract language")
	axisThreshold := flag.Float64("axis", 10, "Lines further than this many degrees from horizontal do not vote on the skew")
	allow90Degrees := flag.Bool("allow90", true, "Allow pages to be turned sideways")
	outputImages := flag.Bool("images", false, "Write one JPEG per page instead of a PDF")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Printf("Usage: %s [options] <filename>\n", os.Args[0])
		flag.PrintDefaults()
		return
	}
	filename := flag.Arg(0)

	raw, err := os.ReadFile(filename)
	check(err)
	if isScanned, err := pdfdeskew.IsScanned(raw); err != nil {
		fmt.Printf("Error checking if document is scanned: %v\n", err)
		return
	} else if !isScanned {
		fmt.Printf("Document is not scanned\n")
		return
	}

	orientation, err := orient.New(*engine, *language)
	check(err)
	defer orientation.Close()

	params := skew.NewParams()
	params.AxisThreshold = *axisThreshold
	s := pdfdeskew.NewStraightener(orientation, params)
	s.Verbose = true
	if !*allow90Degrees {
		// Instead of rotating 90 degrees, and thereby requiring landscape pages,
		// only allow upright and upside down.
		s.Orientation = noSideways{orientation}
	}

	ctx := context.Background()

	// Read page angles, and then decide if we need to straighten
	doc, err := s.Analyze(ctx, raw)
	check(err)
	defer doc.Close()
	if doc.IsStraight() {
		fmt.Printf("Document is already 100%% straight\n")
		return
	}
	fmt.Printf("Straightening\n")
	if !*outputImages {
		// PDF
		straight, err := s.Write(ctx, doc)
		check(err)
		check(os.WriteFile("straightened.pdf", straight, 0644))
	} else {
		// Images
		images, err := s.Images(ctx, doc)
		check(err)
		for i, img := range images {
			outputFileName := fmt.Sprintf("straightened_page_%d.jpg", i+1)
			err = os.WriteFile(outputFileName, img, 0644)
			check(err)
		}
	}
}
