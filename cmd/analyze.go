package main

import (
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/procurement-leads/internal/model"
)

var (
	analyzeTextFile string
	analyzeHTMLFile string
	analyzeCompact  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [urls...]",
	Short: "Run the pipeline once and print leads as JSON",
	Long:  "Resolves each URL (PDF links by extension), plus optional text and HTML fragment files, and writes the lead array to stdout. Use - to read a file from stdin.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		refs, err := collectReferences(cmd.InOrStdin(), args, analyzeTextFile, analyzeHTMLFile)
		if err != nil {
			return err
		}

		p, err := initPipeline(ctx)
		if err != nil {
			return err
		}

		leads, summary := p.RunWithSummary(ctx, refs)
		if summary.References > 0 && summary.Failed() == summary.References {
			zap.L().Warn("analyze: no reference could be processed", zap.String("run_id", summary.RunID))
		}

		return writeLeads(cmd.OutOrStdout(), leads, !analyzeCompact)
	},
}

// collectReferences builds the pipeline input from positional URLs and the
// optional text and HTML files.
func collectReferences(stdin io.Reader, urls []string, textFile, htmlFile string) ([]model.Reference, error) {
	if textFile == "-" && htmlFile == "-" {
		return nil, eris.New("analyze: only one of --text-file and --html-file can read stdin")
	}

	var refs []model.Reference
	for _, u := range urls {
		refs = append(refs, model.NewURLReference(u))
	}

	if textFile != "" {
		text, err := readInput(stdin, textFile)
		if err != nil {
			return nil, err
		}
		refs = append(refs, model.NewTextReference(text))
	}
	if htmlFile != "" {
		html, err := readInput(stdin, htmlFile)
		if err != nil {
			return nil, err
		}
		refs = append(refs, model.NewFragmentReference(html))
	}

	if len(refs) == 0 {
		return nil, eris.New("analyze: provide at least one URL, --text-file or --html-file")
	}
	return refs, nil
}

func readInput(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", eris.Wrapf(err, "analyze: read %s", path)
	}
	return string(data), nil
}

func writeLeads(w io.Writer, leads []model.Lead, indent bool) error {
	if leads == nil {
		leads = []model.Lead{}
	}
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(leads); err != nil {
		return eris.Wrap(err, "analyze: write leads")
	}
	return nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeTextFile, "text-file", "", "file with pre-extracted result text (- for stdin)")
	analyzeCmd.Flags().StringVar(&analyzeHTMLFile, "html-file", "", "file with captured result HTML blocks (- for stdin)")
	analyzeCmd.Flags().BoolVar(&analyzeCompact, "compact", false, "print JSON without indentation")
	rootCmd.AddCommand(analyzeCmd)
}
