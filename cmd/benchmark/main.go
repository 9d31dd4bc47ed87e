package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kerem-kaynak/sarf/internal/config"
	"github.com/kerem-kaynak/sarf/pkg/loader"
	"github.com/kerem-kaynak/sarf/pkg/morph"
)

const (
	iterations = 100000
	warmup     = 1000
	boxWidth   = 62

	// ANSI color codes
	colorReset  = "\033[0m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
)

var line = strings.Repeat("─", boxWidth)

func main() {
	cfg := config.Load()
	if len(os.Args) > 1 {
		cfg.Roots = os.Args[1]
	}
	if len(os.Args) > 2 {
		cfg.Patterns = os.Args[2]
	}

	fmt.Print("Loading roots and patterns... ")
	start := time.Now()
	engine, err := load(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	stats := engine.Stats()
	fmt.Printf("done (%d roots, %d patterns in %v)\n", stats.Roots, stats.Patterns, time.Since(start).Round(time.Millisecond))
	fmt.Printf("Iterations: %d (warmup: %d)\n", iterations, warmup)
	fmt.Println("Reference: 1 second = 1,000,000,000 ns")
	fmt.Println()

	vowelled := "وَالْمُسْتَشْفَيَاتُ"
	sentence := "كَتَبَ الكاتبُ في المكتبةِ كتاباً عن المدرسةِ والدارسين"

	printHeader("ENGINE THROUGHPUT")
	bench("Generate (cache hit)", func() {
		engine.GenerateWord("كتب", morph.PatternActiveParticiple)
	})
	bench("Generate (cache miss)", func() {
		engine.ClearCache()
		engine.GenerateWord("كتب", morph.PatternActiveParticiple)
	})
	bench("Generate irregular", func() {
		engine.GenerateIrregular("قول", morph.PatternActiveParticiple)
	})
	bench("Validate with root", func() {
		engine.ValidateWord("مكتوب", "كتب")
	})
	benchN("Validate all roots", iterations/100, func() {
		engine.ValidateWord("مكتوب", "")
	})
	benchN("Analyze sentence", iterations/100, func() {
		engine.AnalyzeText(sentence)
	})
	printFooter()
	fmt.Println()

	printHeader("COMPONENT BREAKDOWN")
	bench("Root index search", func() {
		engine.SearchRoot("كتب")
	})
	bench("Pattern store search", func() {
		engine.Patterns().Search(morph.PatternPassiveParticiple)
	})
	bench("Classify", func() {
		morph.Classify("وقي")
	})
	bench("Apply pattern", func() {
		morph.ApplyPattern("كتب", "م12و3")
	})
	bench("Find pattern match", func() {
		morph.FindPatternMatch("مَكْتُوب", "كتب", "م12و3")
	})
	bench("Possible roots", func() {
		morph.PossibleRoots("مكتوب")
	})
	printFooter()
	fmt.Println()

	printHeader("NORMALIZER STEPS BREAKDOWN")
	bench("Normalize (conservative)", func() {
		morph.Normalize(vowelled, false)
	})
	bench("Normalize (aggressive)", func() {
		morph.Normalize(vowelled, true)
	})
	bench("Expand shadda", func() {
		morph.ExpandShadda("مدّ")
	})
	bench("Fold presentation forms", func() {
		morph.FoldPresentationForms("ﻛﺗﺏ")
	})
	bench("Strip diacritics", func() {
		morph.StripDiacritics(vowelled)
	})
	bench("Fold variants", func() {
		morph.FoldVariants("إلى مكتبة")
	})
	bench("Fold hamza", func() {
		morph.FoldHamza("سؤال")
	})
	bench("Split words", func() {
		morph.SplitWords(sentence)
	})
	printFooter()
}

func load(cfg *config.Config) (*morph.Engine, error) {
	engine := morph.NewEngine(nil, morph.NewPatternStore(cfg.PatternCapacity, nil), cfg.Engine(nil))

	patterns, err := loader.ReadPatterns(cfg.Patterns)
	if err != nil {
		return nil, err
	}
	engine.LoadPatterns(patterns)

	roots, err := loader.ReadRootFiles(cfg.Roots)
	if err != nil {
		return nil, err
	}
	engine.LoadRoots(roots)
	return engine, nil
}

func bench(name string, fn func()) {
	benchN(name, iterations, fn)
}

func benchN(name string, n int, fn func()) {
	for range min(warmup, n) {
		fn()
	}

	start := time.Now()
	for range n {
		fn()
	}
	elapsed := time.Since(start)

	opsPerSec := float64(n) / elapsed.Seconds()
	nsPerOp := float64(elapsed.Nanoseconds()) / float64(n)

	// Truncate name if too long
	displayName := name
	if len(displayName) > 26 {
		displayName = displayName[:26]
	}

	// Pad the plain row, then colorize it with the same padding
	plain := fmt.Sprintf("  %-26s %10.0f ops/sec %8.0f ns", displayName, opsPerSec, nsPerOp)
	padded := padLine(plain)

	colored := fmt.Sprintf("  %-26s %s%10.0f%s ops/sec %s%8.0f%s ns",
		displayName,
		colorGreen, opsPerSec, colorReset,
		colorYellow, nsPerOp, colorReset)

	if extraPad := len(padded) - len(plain); extraPad > 0 {
		colored += strings.Repeat(" ", extraPad)
	}

	fmt.Println(colorDim + "│" + colorReset + colored + colorDim + "│" + colorReset)
}

func padLine(content string) string {
	if len(content) >= boxWidth {
		return content[:boxWidth]
	}
	return content + strings.Repeat(" ", boxWidth-len(content))
}

func printHeader(title string) {
	fmt.Println(colorDim + "┌" + line + "┐" + colorReset)
	printTitleRow("  " + title)
	fmt.Println(colorDim + "├" + line + "┤" + colorReset)
}

func printFooter() {
	fmt.Println(colorDim + "└" + line + "┘" + colorReset)
}

func printTitleRow(content string) {
	fmt.Println(colorDim + "│" + colorReset + colorCyan + padLine(content) + colorReset + colorDim + "│" + colorReset)
}
