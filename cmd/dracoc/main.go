// Command dracoc is the Draco compiler driver.
//
// Exit codes: 0 on success, 1 when any error-severity diagnostic was
// reported, 2 on driver failure.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lucyelle/DracoCompiler/internal/compilation"
	"github.com/lucyelle/DracoCompiler/internal/ir"
	"github.com/lucyelle/DracoCompiler/internal/project"
	"github.com/lucyelle/DracoCompiler/internal/syntax"
)

const version = "0.1.0-dev"

const (
	exitOK          = 0
	exitDiagnostics = 1
	exitDriver      = 2
)

var (
	flagVerbose  bool
	flagManifest string
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:           "dracoc",
		Short:         "Draco compiler",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug tracing")
	root.PersistentFlags().StringVar(&flagManifest, "project", "", "project manifest path")
	root.AddCommand(buildCmd(), tokensCmd(), astCmd(), irCmd())

	if err := root.Execute(); err != nil {
		if ec, ok := err.(exitError); ok {
			return int(ec)
		}
		fmt.Fprintf(os.Stderr, "dracoc: %v\n", err)
		return exitDriver
	}
	return exitOK
}

// exitError carries an exit code through cobra's error return.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit %d", int(e)) }

func newLogger() *zap.Logger {
	if !flagVerbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// loadInput reads the source file and the project manifest next to it.
func loadInput(args []string) (src, path string, manifest *project.Manifest, err error) {
	if len(args) != 1 {
		return "", "", nil, fmt.Errorf("expected exactly one input file")
	}
	path = args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", nil, err
	}
	manifestPath := flagManifest
	if manifestPath == "" {
		manifestPath = filepath.Join(filepath.Dir(path), project.DefaultManifest)
	}
	manifest, err = project.LoadIfPresent(manifestPath)
	if err != nil {
		return "", "", nil, err
	}
	return string(data), path, manifest, nil
}

func compile(args []string) (*compilation.Result, error) {
	src, _, manifest, err := loadInput(args)
	if err != nil {
		return nil, err
	}
	cfg := compilation.Config{Logger: newLogger()}
	for _, ref := range manifest.References {
		cfg.References = append(cfg.References, compilation.AssemblyRef{
			Name:           ref.Name,
			PublicKeyToken: ref.PublicKeyToken,
		})
	}
	c := compilation.New(cfg)
	return c.Compile(context.Background(), src), nil
}

// reportDiagnostics prints diagnostics and returns the matching exit
// code.
func reportDiagnostics(result *compilation.Result) error {
	for _, d := range result.Diagnostics {
		fmt.Fprintf(os.Stderr, "%s\n", d)
	}
	if result.HasErrors() {
		return exitError(exitDiagnostics)
	}
	return nil
}

func buildCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "build <file.draco>",
		Short: "Compile a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := compile(args)
			if err != nil {
				return err
			}
			if err := reportDiagnostics(result); err != nil {
				return err
			}
			if output != "" {
				return os.WriteFile(output, []byte(ir.Print(result.IR)), 0o644)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the lowered IR to a file")
	return cmd
}

func tokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <file.draco>",
		Short: "Dump the token stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, _, _, err := loadInput(args)
			if err != nil {
				return err
			}
			for _, tok := range syntax.Lex(src) {
				fmt.Printf("%-28s %q\n", tok.Kind(), tok.Text())
			}
			return nil
		},
	}
}

func astCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "ast <file.draco>",
		Short: "Dump the syntax tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, _, _, err := loadInput(args)
			if err != nil {
				return err
			}
			tree := syntax.Parse(src)
			switch format {
			case "json":
				data, err := json.MarshalIndent(tree, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			default:
				fmt.Print(syntax.Dump(tree))
			}
			for _, d := range tree.Diagnostics() {
				fmt.Fprintf(os.Stderr, "%s\n", d)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format (text or json)")
	return cmd
}

func irCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ir <file.draco>",
		Short: "Dump the lowered IR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := compile(args)
			if err != nil {
				return err
			}
			fmt.Print(ir.Print(result.IR))
			return reportDiagnostics(result)
		},
	}
}
