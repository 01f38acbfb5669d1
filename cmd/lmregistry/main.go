package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/everstacklabs/lmregistry/internal/catalog"
	"github.com/everstacklabs/lmregistry/internal/config"
	"github.com/everstacklabs/lmregistry/internal/diff"
	"github.com/everstacklabs/lmregistry/internal/registry"
	"github.com/everstacklabs/lmregistry/internal/source"
	"github.com/everstacklabs/lmregistry/internal/validate"
)

// exitChanges is the exit status of diff when the two catalogs differ.
const exitChanges = 2

var (
	errValidationFailed = errors.New("catalog has validation errors")
	errCatalogsDiffer   = errors.New("catalogs differ")
)

var (
	cfgFile string
	cfg     *config.Config

	errorLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	warnLabel  = color.New(color.FgYellow).SprintFunc()
	okLabel    = color.New(color.FgGreen).SprintFunc()
)

func main() {
	err := newRootCmd().Execute()
	if err != nil && !errors.Is(err, errCatalogsDiffer) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps a command error onto the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errCatalogsDiffer):
		return exitChanges
	default:
		return 1
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lmregistry",
		Short:         "Capability catalog for locally served language models",
		Long:          "Lists, validates, diffs and exports the catalog of local models and the request features each is declared to support.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg = loaded
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	rootCmd.AddCommand(
		listCmd(),
		showCmd(),
		validateCmd(),
		diffCmd(),
		exportCmd(),
	)
	return rootCmd
}

func openRegistry(cmd *cobra.Command, spec string) (*registry.Registry, string, error) {
	src, err := source.Resolve(spec, cfg)
	if err != nil {
		return nil, "", err
	}
	reg, _, err := source.Open(cmd.Context(), src)
	if err != nil {
		return nil, "", err
	}
	return reg, src.Name(), nil
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog models, optionally filtered by capability",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, _ := cmd.Flags().GetString("source")
			tags, _ := cmd.Flags().GetStringSlice("capability")

			required := make([]registry.Capability, 0, len(tags))
			for _, tag := range tags {
				c, err := registry.ParseCapability(tag)
				if err != nil {
					return err
				}
				required = append(required, c)
			}

			reg, _, err := openRegistry(cmd, spec)
			if err != nil {
				return err
			}

			entries := reg.Filter(required...)
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%-24s %-32s %-8s %s\n",
					e.Key, e.Descriptor.ID, e.Descriptor.Provider, formatCaps(e.Descriptor))
			}
			fmt.Fprintf(out, "\nTotal: %d models\n", len(entries))
			return nil
		},
	}

	cmd.Flags().String("source", "", "catalog source: builtin, file:<path>, git:<ref>[:<path>], github[:<ref>] (default: from config)")
	cmd.Flags().StringSlice("capability", nil, "only list models declaring all of these capabilities")

	return cmd
}

func showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [key]",
		Short: "Show one model descriptor (default: default_model from config)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, _ := cmd.Flags().GetString("source")

			key := cfg.DefaultModel
			if len(args) == 1 {
				key = args[0]
			}
			if key == "" {
				return fmt.Errorf("no key given and default_model is not configured")
			}

			reg, _, err := openRegistry(cmd, spec)
			if err != nil {
				return err
			}

			d, err := reg.Get(registry.Key(key))
			if errors.Is(err, registry.ErrUnknownKey) {
				return fmt.Errorf("%w (known keys: %s)", err, joinKeys(reg.Keys()))
			} else if err != nil {
				return err
			}

			printDescriptor(cmd.OutOrStdout(), registry.Key(key), d)
			return nil
		},
	}

	cmd.Flags().String("source", "", "catalog source (default: from config)")

	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a catalog document (CI check)",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, _ := cmd.Flags().GetString("source")
			if catalogPath, _ := cmd.Flags().GetString("catalog-path"); catalogPath != "" {
				spec = "file:" + catalogPath
			}

			src, err := source.Resolve(spec, cfg)
			if err != nil {
				return err
			}
			data, err := src.Fetch(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetching %s: %w", src.Name(), err)
			}

			doc, result := validate.Lint(data)
			if !result.HasErrors() {
				// Registry construction is the final word on what loads.
				if _, err := doc.Build(); err != nil {
					return fmt.Errorf("building %s: %w", src.Name(), err)
				}
			}

			printResult(cmd.OutOrStdout(), src.Name(), result)
			if result.HasErrors() {
				return errValidationFailed
			}
			return nil
		},
	}

	cmd.Flags().String("catalog-path", "", "path to a catalog file")
	cmd.Flags().String("source", "", "catalog source (default: from config)")

	return cmd
}

func diffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show how two catalogs differ (exit 2 when they do)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fromSpec, _ := cmd.Flags().GetString("from")
			toSpec, _ := cmd.Flags().GetString("to")

			from, fromName, err := openRegistry(cmd, fromSpec)
			if err != nil {
				return err
			}
			to, toName, err := openRegistry(cmd, toSpec)
			if err != nil {
				return err
			}

			cs := diff.Compute(from, to)
			cs.From, cs.To = fromName, toName
			fmt.Fprint(cmd.OutOrStdout(), diff.RenderSummary(cs))

			if cs.HasChanges() {
				return errCatalogsDiffer
			}
			return nil
		},
	}

	cmd.Flags().String("from", config.SourceBuiltin, "source to compare from")
	cmd.Flags().String("to", "", "source to compare to (default: from config)")

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a catalog document, merging into an existing file",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, _ := cmd.Flags().GetString("source")
			outPath, _ := cmd.Flags().GetString("out")

			reg, name, err := openRegistry(cmd, spec)
			if err != nil {
				return err
			}
			doc := catalog.FromRegistry(reg)

			if outPath == "-" {
				data, err := doc.Marshal()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			result, err := catalog.NewWriter(outPath).Write(doc)
			if err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}
			slog.Info("catalog exported",
				"source", name,
				"path", result.Path,
				"new", result.IsNew,
				"changes", len(result.Changes))
			return nil
		},
	}

	cmd.Flags().String("source", config.SourceBuiltin, "catalog source to export")
	cmd.Flags().String("out", "-", "output file, - for stdout")

	return cmd
}

func formatCaps(d registry.Descriptor) string {
	caps := d.Capabilities()
	if len(caps) == 0 {
		return "-"
	}
	tags := make([]string, len(caps))
	for i, c := range caps {
		tags[i] = c.String()
	}
	return strings.Join(tags, ",")
}

func joinKeys(keys []registry.Key) string {
	s := make([]string, len(keys))
	for i, k := range keys {
		s[i] = k.String()
	}
	return strings.Join(s, ", ")
}

func printDescriptor(w io.Writer, key registry.Key, d registry.Descriptor) {
	fmt.Fprintf(w, "key:          %s\n", key)
	fmt.Fprintf(w, "id:           %s\n", d.ID)
	fmt.Fprintf(w, "provider:     %s\n", d.Provider)
	fmt.Fprintln(w, "capabilities: (declared, not verified)")
	for _, c := range registry.AllCapabilities() {
		mark := "no"
		if d.Has(c) {
			mark = okLabel("yes")
		}
		fmt.Fprintf(w, "  %-26s %s\n", c, mark)
	}
}

func printResult(w io.Writer, name string, r *validate.Result) {
	if len(r.Issues) == 0 {
		fmt.Fprintf(w, "%s %s: %s\n", okLabel("OK"), name, validate.FormatResult(r))
		return
	}
	for _, i := range r.Issues {
		label := warnLabel("WARN ")
		if i.Severity == validate.SeverityError {
			label = errorLabel("ERROR")
		}
		fmt.Fprintf(w, "%s %s: %s: %s\n", label, i.Model, i.Field, i.Message)
	}
	fmt.Fprintf(w, "\n%s: %d errors, %d warnings\n", name, len(r.Errors()), len(r.Warnings()))
}
