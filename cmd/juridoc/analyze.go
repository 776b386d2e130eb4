package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/juridoc/juridoc/document"
	"github.com/juridoc/juridoc/sessionlog"
)

var (
	exportPDF bool
	exportTxt bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file>",
	Short: "Summarize a legal document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.extractor.Extract(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		summary, err := a.ops.Summarize(cmd.Context(), document.Set{doc})
		if err != nil {
			return err
		}
		fmt.Println(summary)

		if exportTxt {
			path, err := a.exporter.Text("summary", summary)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "exported:", path)
		}
		if exportPDF {
			path, err := a.exporter.PDF("summary", summary)
			if err != nil {
				return err
			}
			if err := a.auditLog.Append(doc.Name, sessionlog.CategoryExportedPDF, path); err != nil {
				a.logger.Warn("Failed to log PDF export")
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "exported:", path)
		}
		return nil
	},
}

var clausesCmd = &cobra.Command{
	Use:   "clauses <file>",
	Short: "Highlight and categorize the key clauses of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runGrounded(func(a *app) groundedOp { return a.ops.HighlightClauses }),
}

var breakdownCmd = &cobra.Command{
	Use:   "breakdown <file>",
	Short: "Explain a document clause by clause",
	Args:  cobra.ExactArgs(1),
	RunE:  runGrounded(func(a *app) groundedOp { return a.ops.ClauseBreakdown }),
}

var simplifyCmd = &cobra.Command{
	Use:   "simplify <file>",
	Short: "Rewrite legal jargon as plain language",
	Args:  cobra.ExactArgs(1),
	RunE:  runGrounded(func(a *app) groundedOp { return a.ops.SimplifyJargon }),
}

var entitiesCmd = &cobra.Command{
	Use:   "entities <file>",
	Short: "Extract named entities from a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runGrounded(func(a *app) groundedOp { return a.ops.ExtractEntities }),
}

var askCmd = &cobra.Command{
	Use:   "ask <file> [question]",
	Short: "Ask free-form questions about a document",
	Long: `With a question argument, answers it and exits. Without one, reads
questions interactively; all questions share one conversation, so
follow-ups can refer to earlier answers. An empty line ends the session.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.extractor.Extract(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		sess := a.sessions.GetOrCreate("")
		docs := document.Set{doc}
		answer := func(question string) (string, error) {
			return a.ops.AnswerQuery(cmd.Context(), sess, docs, question)
		}

		if len(args) == 2 {
			result, err := answer(args[1])
			if err != nil {
				return err
			}
			fmt.Println(result)
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Asking about %s (empty line to quit)\n", doc.Name)
		return askLoop(cmd.InOrStdin(), cmd.OutOrStdout(), answer)
	},
}

// askLoop reads questions line by line and prints each answer. It stops on
// EOF or an empty line. The answer closure carries the session, so every
// question in the loop sees the turns before it.
func askLoop(in io.Reader, out io.Writer, answer func(question string) (string, error)) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			break
		}
		result, err := answer(question)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, result)
	}
	return scanner.Err()
}

var compareCmd = &cobra.Command{
	Use:   "compare <fileA> <fileB>",
	Short: "Compare two legal documents",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		docA, err := a.extractor.Extract(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		docB, err := a.extractor.Extract(cmd.Context(), args[1])
		if err != nil {
			return err
		}

		result, err := a.ops.CompareDocuments(cmd.Context(), docA, docB)
		if err != nil {
			return err
		}
		fmt.Println(result)
		return nil
	},
}

type groundedOp func(ctx context.Context, docs document.Set) (string, error)

// runGrounded builds the shared extract-then-operate command body for the
// single-document grounded operations.
func runGrounded(pick func(a *app) groundedOp) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.extractor.Extract(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		result, err := pick(a)(cmd.Context(), document.Set{doc})
		if err != nil {
			return err
		}
		fmt.Println(result)
		return nil
	}
}

func init() {
	summarizeCmd.Flags().BoolVar(&exportPDF, "pdf", false, "also export the summary as a PDF under the outputs directory")
	summarizeCmd.Flags().BoolVar(&exportTxt, "txt", false, "also export the summary as a text file under the outputs directory")

	rootCmd.AddCommand(summarizeCmd, clausesCmd, breakdownCmd, simplifyCmd, entitiesCmd, askCmd, compareCmd)
}
