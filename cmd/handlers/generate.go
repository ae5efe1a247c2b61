package handlers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"longform/internal/config"
	"longform/internal/core"
	"longform/internal/enrich"
	"longform/internal/llm"
	"longform/internal/pipeline"
	"longform/internal/quality"
	"longform/internal/serp"
	"longform/internal/sources"
	"longform/internal/tui"
)

type generateFlags struct {
	topic      string
	keywords   []string
	tone       string
	length     string
	template   string
	audience   string
	siteDomain string
	maxLinks   int
	consensus  bool
	noTUI      bool
	output     string
}

// NewGenerateCmd creates the generate command.
func NewGenerateCmd() *cobra.Command {
	flags := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one article for a topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.topic, "topic", "t", "", "article topic (required)")
	cmd.Flags().StringSliceVarP(&flags.keywords, "keywords", "k", nil, "target keywords, first is primary")
	cmd.Flags().StringVar(&flags.tone, "tone", string(core.ToneProfessional), "writing tone: professional, conversational, authoritative, casual")
	cmd.Flags().StringVar(&flags.length, "length", string(core.LengthMedium), "article length: short, medium, long, in_depth")
	cmd.Flags().StringVar(&flags.template, "template", "", "article template, e.g. how_to, listicle")
	cmd.Flags().StringVar(&flags.audience, "audience", "", "target audience description")
	cmd.Flags().StringVar(&flags.siteDomain, "site-domain", "", "absolute base for internal links, overrides config")
	cmd.Flags().IntVar(&flags.maxLinks, "max-links", -1, "maximum internal links to insert, overrides config")
	cmd.Flags().BoolVar(&flags.consensus, "consensus", false, "draft multiple variants and merge them")
	cmd.Flags().BoolVar(&flags.noTUI, "no-tui", false, "print plain progress lines instead of the TUI")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write the article to this file instead of stdout")
	_ = cmd.MarkFlagRequired("topic")

	return cmd
}

func runGenerate(ctx context.Context, flags *generateFlags) error {
	cfg := config.Get()

	client, err := llm.NewClient(ctx, cfg.AI.Gemini)
	if err != nil {
		return fmt.Errorf("initializing text generation: %w", err)
	}

	generator, err := pipeline.New(buildCollaborators(cfg, client), buildOptions(cfg, flags))
	if err != nil {
		return err
	}

	req := core.Request{
		Topic:    flags.topic,
		Keywords: flags.keywords,
		Tone:     core.Tone(flags.tone),
		Length:   core.Length(flags.length),
		Template: flags.template,
		Context:  map[string]any{},
	}
	if flags.audience != "" {
		req.Context[core.CtxAudience] = flags.audience
	}

	var result *core.PipelineResult
	if flags.noTUI {
		result, err = generateWithPlainProgress(ctx, generator, req)
	} else {
		result, err = generateWithTUI(ctx, generator, req)
	}
	if err != nil {
		return err
	}

	return emitResult(result, flags.output)
}

// generateWithTUI runs the pipeline on a worker goroutine while the TUI owns
// the terminal.
func generateWithTUI(ctx context.Context, generator *pipeline.Generator, req core.Request) (*core.PipelineResult, error) {
	updates := make(chan core.ProgressUpdate, 16)
	type outcome struct {
		result *core.PipelineResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := generator.GenerateWithProgress(ctx, req, droppingSink(updates))
		close(updates)
		done <- outcome{result, err}
	}()

	if err := tui.Run(req.Topic, updates); err != nil {
		return nil, fmt.Errorf("progress display failed: %w", err)
	}
	out := <-done
	return out.result, out.err
}

// droppingSink forwards updates to ch without blocking. Once the viewer quits
// and stops draining, later updates are dropped instead of stalling the run.
func droppingSink(ch chan<- core.ProgressUpdate) pipeline.ProgressFunc {
	return func(u core.ProgressUpdate) {
		select {
		case ch <- u:
		default:
		}
	}
}

func generateWithPlainProgress(ctx context.Context, generator *pipeline.Generator, req core.Request) (*core.PipelineResult, error) {
	sink := pipeline.ProgressFunc(func(u core.ProgressUpdate) {
		fmt.Fprintf(os.Stderr, "[%d/%d] %s %s\n", u.StageNumber, u.TotalStages, u.Stage, u.Details)
	})
	return generator.GenerateWithProgress(ctx, req, sink)
}

// buildCollaborators binds optional providers according to configuration.
func buildCollaborators(cfg *config.Config, client *llm.Client) pipeline.Collaborators {
	collab := pipeline.Collaborators{TextGen: client}

	if cfg.Enrichment.SERPEnabled {
		analyzer := serp.NewAnalyzer(serp.NewDuckDuckGoProvider(), cfg.Enrichment.SERPMaxResults)
		collab.Keyword = analyzer
		collab.Competitor = analyzer
		collab.Intent = analyzer
		collab.Length = analyzer
		collab.Examples = analyzer
	}
	if cfg.Enrichment.SemanticEnabled {
		collab.Semantic = enrich.NewAISemanticIntegrator(client)
	}
	if cfg.Enrichment.EntitiesEnabled {
		collab.Entities = enrich.NewAIEntityLinker(client)
	}
	if cfg.Sources.Enabled {
		timeout, err := time.ParseDuration(cfg.Sources.Timeout)
		if err != nil {
			timeout = 15 * time.Second
		}
		collab.Sources = sources.NewFinder(timeout, cfg.Sources.UserAgent, cfg.Sources.MaxSources, nil)
	}
	if cfg.Quality.Enabled {
		collab.Quality = quality.NewScorer(cfg.Quality.PassThreshold)
	}

	return collab
}

func buildOptions(cfg *config.Config, flags *generateFlags) pipeline.Options {
	opts := pipeline.Options{
		ConsensusEnabled:     cfg.Pipeline.ConsensusEnabled || flags.consensus,
		ConsensusVariants:    cfg.Pipeline.ConsensusVariants,
		ReadabilityThreshold: cfg.Pipeline.ReadabilityThreshold,
		MaxInternalLinks:     cfg.Pipeline.MaxInternalLinks,
		ExperienceInjection:  cfg.Pipeline.ExperienceInjection,
		SiteDomain:           cfg.Pipeline.SiteDomain,
	}
	if flags.siteDomain != "" {
		opts.SiteDomain = flags.siteDomain
	}
	if flags.maxLinks >= 0 {
		opts.MaxInternalLinks = flags.maxLinks
	}
	return opts
}

// emitResult writes the article and prints the run summary.
func emitResult(result *core.PipelineResult, outputPath string) error {
	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(result.Content), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", outputPath, err)
		}
		fmt.Printf("Article written to %s\n", outputPath)
	} else {
		fmt.Println(result.Content)
	}

	fmt.Fprintf(os.Stderr, "\nTitle: %s\n", result.Title)
	fmt.Fprintf(os.Stderr, "Description: %s\n", result.MetaDescription)
	fmt.Fprintf(os.Stderr, "Words: %d | Readability: %.0f | Tokens: %d | Cost: $%.4f | Elapsed: %s\n",
		core.WordCount(result.Content), result.ReadabilityScore, result.TotalTokens, result.TotalCost, result.ElapsedTime.Round(time.Millisecond))
	if result.QualityReport != nil {
		fmt.Fprintf(os.Stderr, "Quality: %.1f (passed: %v)\n", result.QualityReport.OverallScore, result.QualityReport.PassedThreshold)
	}
	if len(result.InsertedLinks) > 0 {
		fmt.Fprintf(os.Stderr, "Internal links: %d\n", len(result.InsertedLinks))
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintf(os.Stderr, "Warnings:\n  %s\n", strings.Join(result.Warnings, "\n  "))
	}
	return nil
}
