package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leonardcser/kvtrack/internal/docs"
)

func (a *app) docsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Query document collections",
	}
	cmd.AddCommand(
		a.docsListCmd(),
		a.docsInsertCmd(),
		a.docsUpdateTopicsCmd(),
		a.docsByTopicCmd(),
		a.docsTopStudentsCmd(),
		a.docsLogStatsCmd(),
	)
	return cmd
}

// withDocs opens the docs database for the duration of fn.
func (a *app) withDocs(fn func(db *docs.DB) error) error {
	db, err := docs.Open(a.cfg.DocsDB)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func writeDocs(w io.Writer, list []docs.Document) error {
	enc := json.NewEncoder(w)
	for _, d := range list {
		if err := enc.Encode(d); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) docsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list COLLECTION",
		Short: "Print every document in a collection, one JSON object per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDocs(func(db *docs.DB) error {
				list, err := docs.ListAll(cmd.Context(), db.Collection(args[0]))
				if err != nil {
					return err
				}
				return writeDocs(cmd.OutOrStdout(), list)
			})
		},
	}
}

// parseFields turns key=value pairs into a document. Values that are valid
// JSON (numbers, arrays, objects, booleans) are decoded, anything else is a string.
func parseFields(pairs []string) (docs.Document, error) {
	doc := docs.Document{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			doc[k] = decoded
		} else {
			doc[k] = v
		}
	}
	return doc, nil
}

func (a *app) docsInsertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert COLLECTION KEY=VALUE...",
		Short: "Insert a document and print its id",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := parseFields(args[1:])
			if err != nil {
				return err
			}
			return a.withDocs(func(db *docs.DB) error {
				id, err := docs.InsertSchool(cmd.Context(), db.Collection(args[0]), doc)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			})
		},
	}
}

func (a *app) docsUpdateTopicsCmd() *cobra.Command {
	var collection string
	cmd := &cobra.Command{
		Use:   "update-topics NAME TOPIC...",
		Short: "Replace the topics of every school called NAME",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDocs(func(db *docs.DB) error {
				topics := append([]string{}, args[1:]...)
				n, err := docs.UpdateTopics(cmd.Context(), db.Collection(collection), args[0], topics)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d updated\n", n)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "school", "Collection name")
	return cmd
}

func (a *app) docsByTopicCmd() *cobra.Command {
	var collection string
	cmd := &cobra.Command{
		Use:   "schools-by-topic TOPIC",
		Short: "List the schools teaching TOPIC",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDocs(func(db *docs.DB) error {
				list, err := docs.SchoolsByTopic(cmd.Context(), db.Collection(collection), args[0])
				if err != nil {
					return err
				}
				return writeDocs(cmd.OutOrStdout(), list)
			})
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "school", "Collection name")
	return cmd
}

func (a *app) docsTopStudentsCmd() *cobra.Command {
	var collection string
	cmd := &cobra.Command{
		Use:   "top-students",
		Short: "List students by average score, best first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDocs(func(db *docs.DB) error {
				list, err := docs.TopStudents(cmd.Context(), db.Collection(collection))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, d := range list {
					avg := strconv.FormatFloat(d[docs.AverageScoreField].(float64), 'f', -1, 64)
					if _, err := fmt.Fprintf(out, "[%v] %v => %s\n", d[docs.IDField], d["name"], avg); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "students", "Collection name")
	return cmd
}

func (a *app) docsLogStatsCmd() *cobra.Command {
	var collection string
	cmd := &cobra.Command{
		Use:   "log-stats",
		Short: "Summarize nginx request logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDocs(func(db *docs.DB) error {
				r, err := docs.NginxStats(cmd.Context(), db.Collection(collection))
				if err != nil {
					return err
				}
				return docs.WriteNginxStats(cmd.OutOrStdout(), r)
			})
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "nginx", "Collection name")
	return cmd
}
