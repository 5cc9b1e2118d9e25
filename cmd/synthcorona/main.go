// synthcorona renders an SC source file to a WAVE file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/nashhigh/synthcorona"
	"github.com/nashhigh/synthcorona/wav"
)

var (
	escape     = "\x1b["
	hideCursor = escape + "?25l"
	showCursor = escape + "?25h"
)

var (
	white   = color.New(color.FgWhite).SprintfFunc()
	cyan    = color.New(color.FgCyan).SprintfFunc()
	magenta = color.New(color.FgMagenta).SprintfFunc()
	green   = color.New(color.FgGreen).SprintfFunc()
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("synthcorona: ")

	outFlag := flag.String("o", "", "output WAVE file (default: input path with .wav extension)")
	flag.Parse()

	if len(flag.Args()) == 0 {
		log.Fatal("Missing .sc filename")
	}
	srcPath := flag.Arg(0)

	p := synthcorona.NewParser()
	if err := p.Parse(srcPath); err != nil {
		log.Fatal(err)
	}

	outPath := *outFlag
	if outPath == "" {
		ext := filepath.Ext(srcPath)
		outPath = strings.TrimSuffix(srcPath, ext) + ".wav"
	}

	outF, err := os.Create(outPath)
	if err != nil {
		log.Fatal(err)
	}
	defer outF.Close()

	channels := 1
	if p.Stereo {
		channels = 2
	}
	wavW, err := wav.NewWriter(outF, p.Rate, channels, p.Depth)
	if err != nil {
		log.Fatal(err)
	}
	defer wavW.Finish()

	renderer := synthcorona.NewRenderer(p.Song(), p.Stereo, p.Rate, p.Normalize)

	fmt.Print(hideCursor)
	defer fmt.Print(showCursor)

	if err := renderer.Render(wavW, progressPrinter(p.Name)); err != nil {
		log.Fatal(err)
	}
	fmt.Println()
	fmt.Printf("Wrote %s\n", outPath)
}

// progressPrinter returns a progress callback that prints a song-duration
// pre-announcement once, then overwrites a single colorized status line as
// the render advances - the rendering-side analogue of the original
// playback transport readout.
func progressPrinter(name string) func(synthcorona.ProgressEvent) {
	return func(ev synthcorona.ProgressEvent) {
		switch ev.Kind {
		case synthcorona.ProgressStarted:
			if name != "" {
				fmt.Println(white(name))
			}
			fmt.Printf("Song Duration: %.2fs\n", ev.SongDuration)
			fmt.Printf("Song Sample Length: %d\n", ev.SongSampleLength)
		case synthcorona.ProgressTick:
			bar := progressBar(ev.Percent, 20)
			fmt.Printf("\r%s %s %s", cyan("[%s]", bar), magenta("%5.1f%%", ev.Percent), green("%.0f sps", ev.SamplesPerSec))
		}
	}
}

func progressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat("=", filled) + strings.Repeat(" ", width-filled)
}
