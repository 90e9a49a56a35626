package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fieldsync/ormgen/internal/gen"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	source      string
	destination string
	typeName    string
	tableName   string
	showVersion bool
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "ormgen",
		Short: "Generate type-safe query builders for database models",
		Long:  "ormgen reads the structs of a Go source file and writes query factories,\n" +
			"scanners and relation preloaders next to it (or into --destination).\n" +
			"It is usually invoked through //go:generate, which sets $GOFILE.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.showVersion {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "ormgen", version)
				return err //nolint:wrapcheck // pass through
			}
			outPath, err := generate(opts)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ormgen: wrote %s\n", outPath)
			return err //nolint:wrapcheck // pass through
		},
	}
	cmd.Flags().StringVar(&opts.source, "source", os.Getenv("GOFILE"), "Go file containing the model structs (defaults to $GOFILE)")
	cmd.Flags().StringVar(&opts.destination, "destination", "", "output directory; its base name becomes the package name (defaults to the source directory)")
	cmd.Flags().StringVar(&opts.typeName, "type", "", "generate only this struct type")
	cmd.Flags().StringVar(&opts.tableName, "table", "", "table name for --type (inferred from the type name if omitted)")
	cmd.Flags().BoolVar(&opts.showVersion, "version", false, "print version and exit")
	return cmd
}

// generate renders the requested structs of opts.source and writes the
// result, returning the path of the written file.
func generate(opts options) (string, error) {
	if opts.source == "" {
		return "", errors.New("--source is required (or run via go:generate so that $GOFILE is set)")
	}
	if opts.tableName != "" && opts.typeName == "" {
		return "", errors.New("--table requires --type")
	}

	infos, err := gen.Parse(opts.source)
	if err != nil {
		return "", fmt.Errorf("parse: %w", err)
	}
	for _, info := range infos {
		info.TableName = gen.InferTableName(info.Name)
	}

	targets := infos
	var peers []*gen.StructInfo
	if opts.typeName != "" {
		targets, peers = nil, nil
		for _, info := range infos {
			if info.Name == opts.typeName {
				if opts.tableName != "" {
					info.TableName = opts.tableName
				}
				targets = append(targets, info)
			} else {
				peers = append(peers, info)
			}
		}
		if len(targets) == 0 {
			return "", fmt.Errorf("type %s not found in %s", opts.typeName, opts.source)
		}
	}

	srcDir := filepath.Dir(opts.source)
	outDir := srcDir
	renderOpt := gen.RenderOption{PeerInfos: peers}
	if opts.destination != "" {
		outDir = opts.destination
		same, err := sameDir(srcDir, outDir)
		if err != nil {
			return "", err
		}
		if !same {
			renderOpt.DestPkg = filepath.Base(outDir)
			renderOpt.SourceImport, err = gen.ImportPath(srcDir)
			if err != nil {
				return "", fmt.Errorf("source import path: %w", err)
			}
		}
	}

	src, err := gen.RenderFile(targets, renderOpt)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", outDir, err)
	}
	outPath := filepath.Join(outDir, outputName(opts))
	if err := os.WriteFile(outPath, src, 0o644); err != nil { //nolint:gosec // generated code should be world-readable
		return "", fmt.Errorf("write %s: %w", outPath, err)
	}
	return outPath, nil
}

// outputName returns "<type>_gen.go" for a single type and
// "<source>_gen.go" otherwise.
func outputName(opts options) string {
	if opts.typeName != "" {
		return strings.ToLower(opts.typeName) + "_gen.go"
	}
	return strings.TrimSuffix(filepath.Base(opts.source), ".go") + "_gen.go"
}

func sameDir(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", a, err)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", b, err)
	}
	return absA == absB, nil
}
