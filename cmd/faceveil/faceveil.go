package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"

	"github.com/cyclopcam/faceveil/pkg/facedet"
	"github.com/cyclopcam/faceveil/pkg/facetrack"
	"github.com/cyclopcam/faceveil/pkg/tool"
	"github.com/cyclopcam/faceveil/pkg/verify"
	"github.com/cyclopcam/faceveil/pkg/visualize"
)

// Report is the JSON document written by a run: everything the blur stage
// and a human reviewer need.
type Report struct {
	Result  *facetrack.Result `json:"result"`
	Verdict verify.Verdict    `json:"verdict"`
}

func check(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func main() {
	parser := argparse.NewParser("faceveil", "Localize and verify faces in a video, for anonymization")
	input := parser.String("i", "input", &argparse.Options{Help: "Input video file", Required: true})
	cascade := parser.String("", "cascade", &argparse.Options{Help: "Pigo face cascade file", Required: false, Default: "models/facefinder"})
	interval := parser.Int("", "interval", &argparse.Options{Help: "Run the face detector every N frames", Required: false, Default: 0})
	configFile := parser.String("c", "config", &argparse.Options{Help: "Localizer options JSON file", Required: false, Default: ""})
	vizDir := parser.String("", "visualize", &argparse.Options{Help: "Write annotated frames into this directory", Required: false, Default: ""})
	outFile := parser.String("o", "out", &argparse.Options{Help: "Write the JSON report here", Required: false, Default: ""})
	strict := parser.Flag("", "strict", &argparse.Options{Help: "Exit with status 1 if verification fails", Required: false})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	check(err)

	opts := facetrack.DefaultOptions()
	if *configFile != "" {
		opts, err = facetrack.LoadOptions(*configFile)
		check(err)
	}
	if *interval > 0 {
		opts.DetectInterval = *interval
	}

	detector, err := facedet.NewPigoDetector(*cascade)
	check(err)
	defer detector.Close()

	detect := tool.NewDetectFacesTool(logger, detector, opts)
	if *vizDir != "" {
		overlay, err := visualize.NewOverlay(logger, *vizDir)
		check(err)
		detect.SetVisualizer(overlay)
	}

	registry := tool.NewRegistry(logger)
	check(registry.Register(tool.NameDetectFaces, detect))
	check(registry.Register(tool.NameVerifyDetections, tool.NewVerifyDetectionsTool(logger)))

	args := tool.Args{tool.KeyVideoPath: *input}
	args, err = registry.Run(tool.NameDetectFaces, args)
	check(err)
	args, err = registry.Run(tool.NameVerifyDetections, args)
	check(err)

	result := args[tool.KeyResult].(*facetrack.Result)
	verdict := args[tool.KeyVerdict].(verify.Verdict)

	if *outFile != "" {
		report := Report{Result: result, Verdict: verdict}
		f, err := os.Create(*outFile)
		check(err)
		encoder := json.NewEncoder(f)
		encoder.SetIndent("", "  ")
		check(encoder.Encode(&report))
		check(f.Close())
	}

	if !verdict.Pass {
		logger.Warnf("Verification failed: %v of %v frames missing faces", verdict.Summary.MissingFrames, verdict.Summary.TotalFrames)
		if *strict {
			os.Exit(1)
		}
	}
}
