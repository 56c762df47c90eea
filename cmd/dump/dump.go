package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmharper/pdfdeskew"
	"github.com/bmharper/pdfdeskew/orient"
)

// You give this program a directory, and it recursively scans for all the PDF files in that directory.
// It runs our straighten tool on every page of every PDF, and outputs them all as images into one big
// output directory.
// You can then flip through those images, and validate visually that every page is upright.

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	engine := flag.String("orientation", orient.EngineTextorient, "Orientation engine (textorient, tesseract, none)")
	workers := flag.Int("workers", 0, "Images processed at once (0 = all cores)")
	flag.Parse()
	if flag.NArg() != 2 {
		fmt.Printf("Usage: %s [options] <input dir> <output dir>\n", os.Args[0])
		return
	}
	inputDir := flag.Arg(0)
	outputDir := flag.Arg(1)

	check(os.MkdirAll(outputDir, 0755))

	pdfFiles := findAllPDFFilesInDirectory(inputDir)
	outputIdx := 1

	orientation, err := orient.New(*engine, "eng")
	check(err)
	defer orientation.Close()

	s := pdfdeskew.NewStraightener(orientation, nil)
	s.Workers = *workers
	ctx := context.Background()

	for _, pdfFile := range pdfFiles {
		raw, err := os.ReadFile(pdfFile)
		check(err)
		scanned, err := pdfdeskew.IsScanned(raw)
		check(err)
		base := filepath.Base(pdfFile)
		if !scanned {
			fmt.Printf("Skipping %v (not scanned)\n", base)
			continue
		}
		fmt.Printf("Processing %v\n", base)

		images, err := s.StraightenedImages(ctx, raw)
		check(err)
		for i, img := range images {
			outputFile := fmt.Sprintf("%v/%05d_%v_%02d.jpg", outputDir, outputIdx, base, i+1)
			outputFile = strings.ReplaceAll(outputFile, " ", "_")

			err = os.WriteFile(outputFile, img, 0644)
			check(err)

			outputIdx++
		}
	}
}

func findAllPDFFilesInDirectory(dir string) []string {
	var pdfFiles []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.ToLower(filepath.Ext(path)) == ".pdf" {
			pdfFiles = append(pdfFiles, path)
		}
		return nil
	})
	check(err)
	return pdfFiles
}
