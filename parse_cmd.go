package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/readaloud/internal/document"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	plainOutput bool
	mimeType    string

	parseCmd = &cobra.Command{
		Use:   "parse FILE",
		Short: "Print the paragraphs of a document",
		Long: paragraph(fmt.Sprintf("\n%s a document the way readaloud reads it, one numbered paragraph at a time. Use - to read from stdin together with --mime-type.",
			keyword("Print"))),
		Example: paragraph("readaloud parse report.pdf\ncat notes.md | readaloud parse - --mime-type text/markdown"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd.InOrStdin(), args[0], mimeType)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if plainOutput {
				return printPlain(out, doc)
			}

			style := styles.AutoStyle
			wrap := int(width) //nolint:gosec
			if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
				if w, _, err := term.GetSize(int(f.Fd())); err == nil && wrap == 0 {
					wrap = min(w, 120)
				}
			} else {
				style = styles.NoTTYStyle
			}
			if wrap == 0 {
				wrap = 80
			}
			return printRendered(out, doc, style, wrap)
		},
	}
)

// readDocument parses a file, or stdin when name is "-".
func readDocument(stdin io.Reader, name, mimeType string) (document.Document, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		if mimeType == "" {
			mimeType = document.MIMEText
		}
		data, err = io.ReadAll(stdin)
		name = "stdin"
	} else {
		name, err = expandPath(name)
		if err != nil {
			return document.Document{}, err
		}
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("unable to read %s: %w", name, err)
	}

	doc, err := document.Parse(name, data, mimeType)
	if err != nil {
		return document.Document{}, fmt.Errorf("unable to parse document: %w", err)
	}
	return doc, nil
}

func printPlain(w io.Writer, doc document.Document) error {
	_, err := io.WriteString(w, strings.Join(doc.Paragraphs, "\n\n")+"\n")
	return err //nolint:wrapcheck
}

func printRendered(w io.Writer, doc document.Document, style string, wrap int) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return fmt.Errorf("unable to create renderer: %w", err)
	}

	out, err := r.Render(documentMarkdown(doc))
	if err != nil {
		return fmt.Errorf("unable to render document: %w", err)
	}
	_, err = fmt.Fprint(w, out)
	return err //nolint:wrapcheck
}

// documentMarkdown lists the paragraphs of doc as a numbered Markdown list.
func documentMarkdown(doc document.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(filepath.Base(doc.FileName)))

	unit := "paragraphs"
	if doc.Len() == 1 {
		unit = "paragraph"
	}
	fmt.Fprintf(&b, "_%d %s_\n\n", doc.Len(), unit)

	for i, p := range doc.Paragraphs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, escapeMarkdown(p))
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`,
	"[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`, "#", `\#`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func init() {
	parseCmd.Flags().BoolVarP(&plainOutput, "plain", "p", false, "print paragraphs without formatting")
	parseCmd.Flags().StringVar(&mimeType, "mime-type", "", "document type, detected from the file name by default")
	parseCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap at width (set to 0 to fit the terminal)")
}
