package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kerem-kaynak/sarf/pkg/loader"
	"github.com/kerem-kaynak/sarf/pkg/morph"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "sarf",
		Short:         "Arabic root and pattern morphology",
		Long:          "sarf indexes Arabic triliteral roots and morphological patterns, derives words from them and validates words against them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.Context())
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.opts.roots, "roots", a.opts.roots, "glob of root list files")
	pf.StringVar(&a.opts.patterns, "patterns", a.opts.patterns, "pattern file (JSON or YAML)")
	pf.StringVar(&a.opts.db, "db", a.opts.db, "SQLite database for roots and derivatives")
	pf.BoolVar(&a.opts.noCache, "no-cache", a.opts.noCache, "disable the generation cache")
	pf.BoolVarP(&a.opts.verbose, "verbose", "v", a.opts.verbose, "log debug output to stderr")
	pf.BoolVar(&a.opts.json, "json", a.opts.json, "print results as JSON")

	root.AddCommand(
		newGenerateCmd(a),
		newGenerateAllCmd(a),
		newValidateCmd(a),
		newClassifyCmd(a),
		newRootsCmd(a),
		newPatternsCmd(a),
		newDerivativesCmd(a),
		newStatsCmd(a),
		newExportCmd(a),
		newAnalyzeCmd(a),
		newInteractiveCmd(a),
	)
	return root
}

func newGenerateCmd(a *app) *cobra.Command {
	var irregular bool
	cmd := &cobra.Command{
		Use:   "generate ROOT PATTERN",
		Short: "Apply a named pattern to a root",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			generate := a.engine.GenerateWord
			if irregular {
				generate = a.engine.GenerateIrregular
			}
			g, err := generate(args[0], args[1])
			if err != nil {
				return err
			}
			if g.Recorded {
				if err := a.recordDerivative(cmd.Context(), g.Root, g.Word, g.Pattern); err != nil {
					return err
				}
			}
			if a.opts.json {
				return a.printJSON(g)
			}
			a.printGeneration(g)
			return nil
		},
	}
	cmd.Flags().BoolVar(&irregular, "irregular", false, "apply the root-type rules of weak, hamzated and doubled roots")
	return cmd
}

func newGenerateAllCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generate-all ROOT",
		Short: "Apply every stored pattern to a root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gens, err := a.engine.GenerateAll(args[0])
			if err != nil {
				return err
			}
			for _, g := range gens {
				if !g.Recorded {
					continue
				}
				if err := a.recordDerivative(cmd.Context(), g.Root, g.Word, g.Pattern); err != nil {
					return err
				}
			}
			if a.opts.json {
				return a.printJSON(gens)
			}
			if len(gens) == 0 {
				a.printf("no patterns loaded\n")
				return nil
			}
			for _, g := range gens {
				a.printf("  %-10s %-12s %s\n", g.Pattern, g.Template, g.Word)
			}
			return nil
		},
	}
}

func (a *app) printGeneration(g *morph.Generation) {
	a.printf("%s + %s (%s) → %s\n", g.Root, g.Pattern, g.Template, g.Word)
	if g.Irregular {
		a.printf("  irregular form\n")
	}
	if g.Description != "" {
		a.printf("  %s\n", g.Description)
	}
	if g.Recorded {
		a.printf("  frequency: %d\n", g.Frequency)
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate WORD [ROOT]",
		Short: "Check whether a word derives from a root, or from any stored root",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := ""
			if len(args) == 2 {
				root = args[1]
			}
			res := a.engine.ValidateWord(args[0], root)
			if res.Valid && root != "" {
				m := res.Matches[0]
				if err := a.recordDerivative(cmd.Context(), m.Root, m.Word, m.Pattern); err != nil {
					return err
				}
			}
			if a.opts.json {
				return a.printJSON(res)
			}
			a.printValidation(res)
			return nil
		},
	}
}

func (a *app) printValidation(res *morph.ValidationResult) {
	verdict := "no"
	if res.Valid {
		verdict = "yes"
	}
	a.printf("%s: valid=%s\n", res.Word, verdict)
	a.printf("  %s\n", res.Message)
	for _, m := range res.Matches {
		suffix := ""
		if m.Irregular {
			suffix = " (irregular)"
		}
		a.printf("  %s + %s (%s) → %s%s\n", m.Root, m.Pattern, m.Template, m.Word, suffix)
	}
	if len(res.Suggestions) > 0 {
		a.printf("  similar stored roots: %s\n", strings.Join(res.Suggestions, " "))
	}
}

// classification is the printable form of morph.Analysis.
type classification struct {
	Root           string `json:"root"`
	Category       string `json:"category"`
	CategoryArabic string `json:"category_arabic"`
	Subtype        string `json:"subtype"`
	SubtypeArabic  string `json:"subtype_arabic"`
	WeakPositions  []int  `json:"weak_positions"`
	HamzaPositions []int  `json:"hamza_positions"`
	Doubled        bool   `json:"doubled"`
	Description    string `json:"description"`
}

func newClassification(an morph.Analysis) classification {
	return classification{
		Root:           an.Root,
		Category:       an.Category.String(),
		CategoryArabic: an.Category.Arabic(),
		Subtype:        an.Subtype.String(),
		SubtypeArabic:  an.Subtype.Arabic(),
		WeakPositions:  an.WeakPositions,
		HamzaPositions: an.HamzaPositions,
		Doubled:        an.IsDoubled,
		Description:    an.Description,
	}
}

func newClassifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classify ROOT...",
		Short: "Classify roots as sound, weak, hamzated or doubled",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := make([]classification, 0, len(args))
			for _, root := range args {
				out = append(out, newClassification(a.engine.Classify(root)))
			}
			if a.opts.json {
				return a.printJSON(out)
			}
			for _, c := range out {
				a.printf("%s: %s / %s (%s / %s)\n", c.Root, c.Category, c.Subtype, c.CategoryArabic, c.SubtypeArabic)
				if c.Description != "" {
					a.printf("  %s\n", c.Description)
				}
			}
			return nil
		},
	}
}

func newRootsCmd(a *app) *cobra.Command {
	var prefix string
	var tree bool
	cmd := &cobra.Command{
		Use:   "roots",
		Short: "List stored roots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ix := a.engine.Roots()
			if tree {
				if a.opts.json {
					return a.printJSON(ix.Structure())
				}
				a.printf("%s\n", ix.RenderASCII())
				return nil
			}

			roots := ix.InOrder()
			if prefix != "" {
				lex, err := ix.Lexicon()
				if err != nil {
					return err
				}
				defer lex.Close()
				if roots, err = lex.WithPrefix(morph.Normalize(prefix, false)); err != nil {
					return err
				}
			}
			if a.opts.json {
				return a.printJSON(roots)
			}
			for _, r := range roots {
				entry, _ := ix.Search(r)
				a.printf("%s\t%d\n", r, entry.Occurrences)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "only roots starting with this prefix")
	cmd.Flags().BoolVar(&tree, "tree", false, "draw the root index")
	cmd.AddCommand(&cobra.Command{
		Use:   "add ROOT...",
		Short: "Insert roots into the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			added := 0
			for _, r := range args {
				key, err := a.engine.Roots().Insert(r)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				added++
				entry, _ := a.engine.Roots().Search(key)
				a.printf("%s\t%d\n", key, entry.Occurrences)
			}
			if added > 0 {
				if err := a.saveRoots(cmd.Context()); err != nil {
					return err
				}
			}
			return errors.Join(errs...)
		},
	})
	return cmd
}

func newPatternsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Manage morphological patterns",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all := a.engine.Patterns().All()
			if a.opts.json {
				return a.printJSON(loader.PatternMap(all))
			}
			for _, p := range all {
				a.printf("  %-10s %-12s %s\n", p.Name, p.Template, p.Description)
			}
			return nil
		},
	})

	var add morph.Pattern
	addCmd := &cobra.Command{
		Use:   "add NAME TEMPLATE",
		Short: "Add a pattern after validating its template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := add
			p.Template = args[1]
			msg, err := a.engine.AddPattern(args[0], p)
			if err != nil {
				return err
			}
			return a.patternsChanged(msg)
		},
	}
	addCmd.Flags().StringVar(&add.Description, "description", "", "pattern description")
	addCmd.Flags().StringVar(&add.Example, "example", "", "example word")
	addCmd.Flags().StringVar(&add.Rule, "rule", "", "usage rule")
	cmd.AddCommand(addCmd)

	var edit morph.Pattern
	editCmd := &cobra.Command{
		Use:   "edit NAME",
		Short: "Change fields of an existing pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u morph.PatternUpdate
			flags := cmd.Flags()
			if flags.Changed("template") {
				u.Template = &edit.Template
			}
			if flags.Changed("description") {
				u.Description = &edit.Description
			}
			if flags.Changed("example") {
				u.Example = &edit.Example
			}
			if flags.Changed("rule") {
				u.Rule = &edit.Rule
			}
			msg, err := a.engine.EditPattern(args[0], u)
			if err != nil {
				return err
			}
			return a.patternsChanged(msg)
		},
	}
	editCmd.Flags().StringVar(&edit.Template, "template", "", "new template")
	editCmd.Flags().StringVar(&edit.Description, "description", "", "new description")
	editCmd.Flags().StringVar(&edit.Example, "example", "", "new example word")
	editCmd.Flags().StringVar(&edit.Rule, "rule", "", "new usage rule")
	cmd.AddCommand(editCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := a.engine.DeletePattern(args[0])
			if err != nil {
				return err
			}
			return a.patternsChanged(msg)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check TEMPLATE",
		Short: "Check the syntax of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, msg := morph.ValidatePatternTemplate(args[0])
			if !ok {
				return errors.New(msg)
			}
			a.printf("%s\n", msg)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Add every valid pattern from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patterns, err := loader.ReadPatterns(args[0])
			if err != nil {
				return err
			}
			n, importErr := a.engine.ImportPatterns(patterns)
			a.printf("imported %d of %d patterns\n", n, len(patterns))
			if n > 0 {
				if err := a.savePatterns(); err != nil {
					return err
				}
			}
			return importErr
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export FILE",
		Short: "Write every stored pattern to a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all := a.engine.Patterns().All()
			if err := loader.WritePatterns(args[0], loader.PatternMap(all)); err != nil {
				return err
			}
			a.printf("exported %d patterns to %s\n", len(all), args[0])
			return nil
		},
	})
	return cmd
}

// patternsChanged persists the pattern store and reports msg.
func (a *app) patternsChanged(msg string) error {
	if err := a.savePatterns(); err != nil {
		return err
	}
	a.printf("%s\n", msg)
	return nil
}

func newDerivativesCmd(a *app) *cobra.Command {
	var remove, pattern string
	var clearAll bool
	cmd := &cobra.Command{
		Use:   "derivatives ROOT",
		Short: "List, remove or clear the derivatives recorded for a root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := args[0]
			switch {
			case clearAll:
				if !a.engine.ClearDerivatives(root) {
					return fmt.Errorf("%w: %q", morph.ErrRootNotFound, root)
				}
				a.printf("derivatives of %s cleared\n", root)
				return a.saveRoots(cmd.Context())
			case remove != "":
				if !a.engine.RemoveDerivative(root, remove, pattern) {
					return fmt.Errorf("derivative %q of %q not found", remove, root)
				}
				a.printf("derivative %s removed from %s\n", remove, root)
				return a.saveRoots(cmd.Context())
			}

			derivs, err := a.engine.Derivatives(root)
			if err != nil {
				return err
			}
			if a.opts.json {
				return a.printJSON(derivs)
			}
			if len(derivs) == 0 {
				a.printf("no derivatives recorded for %s\n", root)
				return nil
			}
			for _, d := range derivs {
				a.printf("  %-15s %-10s %d\n", d.Word, d.Pattern, d.Frequency)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&remove, "remove", "", "remove the derivative with this word")
	cmd.Flags().StringVar(&pattern, "pattern", "", "restrict --remove to this pattern")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "remove every derivative of the root")
	cmd.MarkFlagsMutuallyExclusive("remove", "clear")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [ROOT]",
		Short: "Show engine statistics, or the usage of one root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return a.printRootStats(a.engine.RootStats(args[0]))
			}
			s := a.engine.Stats()
			if a.opts.json {
				return a.printJSON(s)
			}
			a.printf("Roots:                  %d\n", s.Roots)
			a.printf("Patterns:               %d\n", s.Patterns)
			a.printf("Derivatives:            %d\n", s.Derivatives)
			a.printf("Roots with derivatives: %d\n", s.RootsWithDerivatives)
			a.printf("Tree height:            %d\n", s.TreeHeight)
			a.printf("Load factor:            %.2f (%d buckets, %d used, longest chain %d)\n",
				s.LoadFactor, s.PatternTable.Capacity, s.PatternTable.BucketsUsed, s.PatternTable.MaxChainLength)
			if a.engine.CacheEnabled() {
				a.printf("Cached generations:     %d\n", s.CachedGenerations)
			}
			if a.store != nil {
				roots, derivs, err := a.store.Counts(cmd.Context())
				if err != nil {
					return err
				}
				a.printf("Stored:                 %d roots, %d derivatives\n", roots, derivs)
			}
			return nil
		},
	}
}

func (a *app) printRootStats(s morph.RootStats) error {
	if a.opts.json {
		return a.printJSON(s)
	}
	if !s.Exists {
		return fmt.Errorf("%w: %q", morph.ErrRootNotFound, s.Root)
	}
	a.printf("%s: %s / %s\n", s.Root, s.Analysis.Category, s.Analysis.Subtype)
	a.printf("  occurrences: %d\n", s.Occurrences)
	a.printf("  derivatives: %d\n", s.DerivativeCount)
	for _, d := range s.Derivatives {
		a.printf("    %-15s %-10s %d\n", d.Word, d.Pattern, d.Frequency)
	}
	return nil
}

func newExportCmd(a *app) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every recorded derivative",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := morph.ParseFormat(format)
			if err != nil {
				return err
			}
			if output == "" {
				return a.engine.Export(a.out, f)
			}
			file, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := a.engine.Export(file, f); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			a.printf("exported %d derivatives to %s\n", len(a.engine.Records()), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(morph.FormatCSV), "csv, text or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze TEXT...",
		Short: "Validate every word of a text against the stored roots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := a.engine.AnalyzeText(strings.Join(args, " "))
			if a.opts.json {
				return a.printJSON(results)
			}
			for _, r := range results {
				a.printf("[%d:%d] ", r.Token.Start, r.Token.End)
				a.printValidation(r.ValidationResult)
			}
			return nil
		},
	}
}

func newInteractiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Run commands read line by line from standard input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats := a.engine.Stats()
			a.printf("sarf (interactive mode)\n")
			a.printf("Loaded %d roots and %d patterns\n", stats.Roots, stats.Patterns)
			a.printf("Type a command such as \"generate كتب فاعل\". \"help\" lists commands, \"exit\" quits.\n\n")

			scanner := bufio.NewScanner(a.in)
			for {
				a.printf("> ")
				if !scanner.Scan() {
					break
				}
				fields := strings.Fields(scanner.Text())
				if len(fields) == 0 {
					continue
				}
				switch fields[0] {
				case "exit", "quit":
					return nil
				case "interactive":
					continue
				}

				saved := a.opts
				line := newRootCmd(a)
				line.SetArgs(fields)
				if err := line.ExecuteContext(cmd.Context()); err != nil {
					fmt.Fprintf(a.errOut, "Error: %v\n", err)
				}
				a.opts = saved
				a.printf("\n")
			}
			return scanner.Err()
		},
	}
}
