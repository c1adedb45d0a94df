// Command catalogctl checks a catalog directory and answers fee and grade
// questions offline, without a database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/ClaireAgaba/informal-system-sub000/internal/catalog"
	"github.com/ClaireAgaba/informal-system-sub000/internal/enrollment"
	"github.com/ClaireAgaba/informal-system-sub000/internal/fees"
	"github.com/ClaireAgaba/informal-system-sub000/internal/grading"
	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

const envPrefix = "CATALOGCTL"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "catalogctl: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	root := newRootCommand(out)
	if err := root.Parse(args); err != nil {
		return err
	}
	return root.Run(ctx)
}

func newRootCommand(out io.Writer) *ffcli.Command {
	rootFlags := flag.NewFlagSet("catalogctl", flag.ContinueOnError)
	rootFlags.SetOutput(out)

	return &ffcli.Command{
		Name:       "catalogctl",
		ShortUsage: "catalogctl <subcommand> [flags]",
		FlagSet:    rootFlags,
		Subcommands: []*ffcli.Command{
			validateCommand(out),
			quoteCommand(out),
			classifyCommand(out),
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}
}

// options shared by every subcommand: flags, CATALOGCTL_* env vars and an
// optional JSON config file
func parseOptions() []ff.Option {
	return []ff.Option{
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.JSONParser),
		ff.WithEnvVarPrefix(envPrefix),
	}
}

func validateCommand(out io.Writer) *ffcli.Command {
	fs := flag.NewFlagSet("catalogctl validate", flag.ContinueOnError)
	fs.SetOutput(out)
	var (
		_   = fs.String("config", "", "config file (optional), json format")
		dir = fs.String("dir", "./catalog", "catalog directory")
	)

	return &ffcli.Command{
		Name:       "validate",
		ShortUsage: "catalogctl validate [-dir <catalog>]",
		ShortHelp:  "Check every occupation of a catalog directory",
		FlagSet:    fs,
		Options:    parseOptions(),
		Exec: func(_ context.Context, _ []string) error {
			return validateDir(*dir, out)
		},
	}
}

// validateDir loads each occupation on its own so every broken one is
// reported, not only the first
func validateDir(dir string, out io.Writer) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read catalog directory: %w", err)
	}

	var failed, loaded int
	seen := make(map[string]string)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		occDir := filepath.Join(dir, entry.Name())
		if _, err := os.Stat(filepath.Join(occDir, "occupation.yaml")); err != nil {
			continue
		}

		occ, err := catalog.LoadOccupation(occDir)
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", entry.Name(), err)
			continue
		}
		if prev, dup := seen[occ.ID]; dup {
			failed++
			fmt.Fprintf(out, "FAIL %s: occupation id %s already used by %s\n", entry.Name(), occ.ID, prev)
			continue
		}
		seen[occ.ID] = entry.Name()
		loaded++
		fmt.Fprintf(out, "ok   %s %s levels=%d version=%s\n", occ.ID, occ.Code, len(occ.Levels), occ.Version)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d occupations invalid", failed, failed+loaded)
	}
	if loaded == 0 {
		return fmt.Errorf("no occupations found in %s", dir)
	}
	return nil
}

func quoteCommand(out io.Writer) *ffcli.Command {
	fs := flag.NewFlagSet("catalogctl quote", flag.ContinueOnError)
	fs.SetOutput(out)
	var (
		_          = fs.String("config", "", "config file (optional), json format")
		dir        = fs.String("dir", "./catalog", "catalog directory")
		occupation = fs.String("occupation", "", "occupation id")
		category   = fs.String("category", "", "registration category: modular, formal or workers_pas")
		level      = fs.String("level", "", "occupation level id (formal, workers_pas)")
		modules    = fs.String("modules", "", "comma separated module ids (modular)")
		papers     = fs.String("papers", "", "comma separated paper ids (workers_pas)")
		count      = fs.Int("count", 1, "number of candidates")
	)

	return &ffcli.Command{
		Name:       "quote",
		ShortUsage: "catalogctl quote -occupation <id> -category <category> [flags]",
		ShortHelp:  "Validate a composition and print its fee",
		FlagSet:    fs,
		Options:    parseOptions(),
		Exec: func(ctx context.Context, _ []string) error {
			loader := catalog.NewLoader()
			if err := loader.LoadFromDir(*dir); err != nil {
				return err
			}
			occ, err := loader.GetOccupation(ctx, *occupation)
			if err != nil {
				return err
			}
			if occ == nil {
				return fmt.Errorf("occupation %q not found", *occupation)
			}

			cat := models.RegistrationCategory(*category)
			opts, err := catalog.BuildOptions(&models.Candidate{
				ID:                   "quote",
				OccupationID:         occ.ID,
				RegistrationCategory: cat,
			}, occ, nil)
			if err != nil {
				return err
			}

			sel := models.Selection{
				LevelID:   *level,
				ModuleIDs: splitList(*modules),
				PaperIDs:  splitList(*papers),
			}
			comp, err := enrollment.Validate(cat, sel, opts)
			if err != nil {
				return err
			}
			fee, err := fees.Compute(cat, comp, opts, *count)
			if err != nil {
				return err
			}
			if cat == models.CategoryWorkersPAS && fees.WorkersPASFeeVaries(opts.Levels) {
				fmt.Fprintln(out, "warning: per-paper fee differs between levels, the first level's fee applies")
			}

			fmt.Fprintf(out, "occupation: %s (%s)\n", occ.Name, occ.Version)
			fmt.Fprintf(out, "category:   %s\n", cat)
			if comp.LevelID != "" {
				fmt.Fprintf(out, "level:      %s\n", comp.LevelID)
			}
			if len(comp.ModuleIDs) > 0 {
				fmt.Fprintf(out, "modules:    %s\n", strings.Join(comp.ModuleIDs, ","))
			}
			if len(comp.PaperIDs) > 0 {
				fmt.Fprintf(out, "papers:     %s\n", strings.Join(comp.PaperIDs, ","))
			}
			fmt.Fprintf(out, "candidates: %d\n", *count)
			fmt.Fprintf(out, "fee:        %s\n", fee.Text('f'))
			return nil
		},
	}
}

func classifyCommand(out io.Writer) *ffcli.Command {
	fs := flag.NewFlagSet("catalogctl classify", flag.ContinueOnError)
	fs.SetOutput(out)
	var (
		_    = fs.String("config", "", "config file (optional), json format")
		kind = fs.String("type", "theory", "assessment type: theory or practical")
	)

	return &ffcli.Command{
		Name:       "classify",
		ShortUsage: "catalogctl classify [-type theory|practical] <mark>...",
		ShortHelp:  "Print grade and verdict for marks",
		FlagSet:    fs,
		Options:    parseOptions(),
		Exec: func(_ context.Context, args []string) error {
			t := models.AssessmentType(*kind)
			if !t.IsValid() {
				return fmt.Errorf("unknown assessment type %q", *kind)
			}
			if len(args) == 0 {
				return errors.New("at least one mark is required")
			}

			fmt.Fprintf(out, "pass mark: %g\n", grading.PassMark(t))
			for _, raw := range args {
				c := grading.ClassifyRaw(raw, t)
				fmt.Fprintf(out, "%s\t%s\t%s\n", raw, c.Grade, c.Verdict)
			}
			return nil
		},
	}
}

func splitList(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}
