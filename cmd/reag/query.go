package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/reag"
	"github.com/kailas-cloud/reag/internal/config"
	"github.com/kailas-cloud/reag/internal/domain/metadata"
	logpkg "github.com/kailas-cloud/reag/internal/logger"
)

type queryFlags struct {
	question string
	docsPath string
	filters  []string
	policy   string
	asJSON   bool
}

// docFile is one entry of a documents YAML (or JSON) file.
type docFile struct {
	Name     string         `yaml:"name"`
	Content  string         `yaml:"content"`
	Metadata map[string]any `yaml:"metadata"`
}

func newQueryCmd(g *globalFlags) *cobra.Command {
	f := &queryFlags{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Ask a question over a documents file",
		Example: `  reag query --question "What is Superagent?" --docs docs.yaml
  reag query -q "Which release?" --docs docs.yaml --filter version:greaterThanOrEqual:2 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logpkg.NewLogger(g.env, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			opts := append(clientOptions(cfg), reag.WithLogger(logger))
			return runQuery(cmd.Context(), cmd.OutOrStdout(), f, opts...)
		},
	}

	cmd.Flags().StringVarP(&f.question, "question", "q", "", "question to ask (required)")
	cmd.Flags().StringVar(&f.docsPath, "docs", "", "YAML or JSON file with a list of {name, content, metadata} (required)")
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "metadata filter key:operator:value (repeatable, empty operator means equals)")
	cmd.Flags().StringVar(&f.policy, "policy", "", "irrelevant documents: drop or annotate (default from config)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print results as JSON")
	_ = cmd.MarkFlagRequired("question")
	_ = cmd.MarkFlagRequired("docs")
	return cmd
}

// clientOptions maps the server configuration onto SDK options.
func clientOptions(cfg config.Config) []reag.Option {
	e := cfg.Engine
	timeout := time.Duration(e.TimeoutSec) * time.Second

	opts := []reag.Option{
		reag.WithBatchSize(e.BatchSize),
		reag.WithRateLimit(e.RequestsPerSecond),
		reag.WithIrrelevantPolicy(reag.IrrelevantPolicy(cfg.Query.IrrelevantPolicy)),
		reag.WithInstructions(cfg.Query.Instructions),
	}
	switch e.Provider {
	case "anthropic":
		opts = append(opts, reag.WithAnthropic(reag.AnthropicConfig{
			APIKey:          e.APIKey,
			BaseURL:         e.BaseURL,
			Model:           e.Model,
			FiltrationModel: e.FiltrationModel,
			System:          e.System,
			MaxTokens:       e.MaxTokens,
			MaxRetries:      e.MaxRetries,
			Timeout:         timeout,
		}))
	default:
		opts = append(opts, reag.WithOpenAI(reag.OpenAIConfig{
			APIKey:          e.APIKey,
			BaseURL:         e.BaseURL,
			Model:           e.Model,
			FiltrationModel: e.FiltrationModel,
			System:          e.System,
			MaxTokens:       e.MaxTokens,
			Temperature:     e.Temperature,
			Timeout:         timeout,
		}))
	}
	return opts
}

func runQuery(ctx context.Context, out io.Writer, f *queryFlags, opts ...reag.Option) error {
	docs, err := loadDocuments(f.docsPath)
	if err != nil {
		return err
	}

	qopts := make([]reag.QueryOption, 0, len(f.filters)+1)
	for _, raw := range f.filters {
		clause, err := parseFilter(raw)
		if err != nil {
			return err
		}
		qopts = append(qopts, reag.WithFilter(clause))
	}
	if f.policy != "" {
		qopts = append(qopts, reag.WithQueryPolicy(reag.IrrelevantPolicy(f.policy)))
	}

	return reag.With(ctx, func(c *reag.Client) error {
		results, err := c.Query(ctx, f.question, docs, qopts...)
		if err != nil {
			return err
		}
		if f.asJSON {
			return printJSON(out, results)
		}
		printText(out, results)
		return nil
	}, opts...)
}

// loadDocuments reads a list of documents. JSON is valid YAML, so both work.
func loadDocuments(path string) ([]reag.Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}

	var entries []docFile
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse documents %s: %w", path, err)
	}

	docs := make([]reag.Document, len(entries))
	for i, e := range entries {
		docs[i] = reag.Document{Name: e.Name, Content: e.Content, Metadata: e.Metadata}
	}
	return docs, nil
}

// parseFilter parses key:operator:value. The value keeps any further colons
// and is typed the way metadata.Parse types it.
func parseFilter(raw string) (reag.FilterClause, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 || parts[0] == "" {
		return reag.FilterClause{}, fmt.Errorf("invalid filter %q: want key:operator:value", raw)
	}
	return reag.FilterClause{
		Key:      parts[0],
		Operator: reag.Operator(parts[1]),
		Value:    metadata.Parse(parts[2]).Any(),
	}, nil
}

func printJSON(out io.Writer, results []reag.QueryResult) error {
	type jsonResult struct {
		Name         string         `json:"name"`
		Content      string         `json:"content"`
		Reasoning    string         `json:"reasoning"`
		IsIrrelevant bool           `json:"is_irrelevant"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}
	rows := make([]jsonResult, len(results))
	for i, r := range results {
		rows[i] = jsonResult{
			Name:         r.Document.Name,
			Content:      r.Content,
			Reasoning:    r.Reasoning,
			IsIrrelevant: r.IsIrrelevant,
			Metadata:     r.Document.Metadata,
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func printText(out io.Writer, results []reag.QueryResult) {
	if len(results) == 0 {
		fmt.Fprintln(out, "No relevant documents.")
		return
	}
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(out)
		}
		marker := ""
		if r.IsIrrelevant {
			marker = " (irrelevant)"
		}
		fmt.Fprintf(out, "[%d] %s%s\n", i+1, r.Document.Name, marker)
		if r.Content != "" {
			fmt.Fprintf(out, "    %s\n", r.Content)
		}
		fmt.Fprintf(out, "    reasoning: %s\n", r.Reasoning)
	}
}
