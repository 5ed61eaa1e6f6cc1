package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/pet-companion/companion"
	"github.com/theimaginaryfoundation/pet-companion/companion/config"
	"github.com/theimaginaryfoundation/pet-companion/companion/fileutils"
	"github.com/theimaginaryfoundation/pet-companion/companion/logging"
	"github.com/theimaginaryfoundation/pet-companion/companion/provider"
	"github.com/theimaginaryfoundation/pet-companion/companion/quota"
	"github.com/theimaginaryfoundation/pet-companion/companion/store"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	metricsOut string
	cfg        *config.Config
	log        zerolog.Logger
}

// subcommands is filled by the init functions of the command files.
var subcommands []func(*app) *cobra.Command

func register(f func(*app) *cobra.Command) { subcommands = append(subcommands, f) }

func newRootCmd() *cobra.Command {
	a := &app{log: zerolog.Nop()}
	root := &cobra.Command{
		Use:           "companion",
		Short:         "Emotion, grief-stage and memory engine for pet companion conversations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["skipConfig"] == "true" {
				return nil
			}
			return a.load(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.metricsOut == "" {
				return nil
			}
			return prometheus.WriteToTextfile(a.metricsOut, prometheus.DefaultGatherer)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file (COMPANION_* env vars override it)")
	root.PersistentFlags().StringVar(&a.metricsOut, "metrics-textfile", "", "Write Prometheus metrics to this file after the command (textfile collector format)")
	for _, f := range subcommands {
		root.AddCommand(f(a))
	}
	return root
}

func (a *app) load(stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateLocal(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, stderr)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

func (a *app) keywords() (*companion.KeywordClassifier, error) {
	dicts := companion.DefaultDictionaries()
	if p := a.cfg.Keywords.Path; p != "" {
		d, err := companion.LoadDictionaries(p)
		if err != nil {
			return nil, err
		}
		dicts = d
	}
	return companion.NewKeywordClassifier(dicts), nil
}

// capability fails unless model-backed operation is fully configured.
func (a *app) capability() (*provider.OpenAI, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return provider.NewOpenAI(provider.Config{APIKey: a.cfg.OpenAI.APIKey, BaseURL: a.cfg.OpenAI.BaseURL})
}

func (a *app) analyzer(offline bool) (*companion.HybridAnalyzer, error) {
	kw, err := a.keywords()
	if err != nil {
		return nil, err
	}
	opts := []companion.AnalyzerOption{
		companion.WithConfidenceGate(a.cfg.Analyzer.ConfidenceGate),
		companion.WithAnalyzerLogger(a.log),
	}
	if offline {
		return companion.NewHybridAnalyzer(kw, nil, opts...), nil
	}
	capability, err := a.capability()
	if err != nil {
		return nil, err
	}
	header, err := promptHeader(a.cfg.Analyzer.PromptHeader, a.cfg.Analyzer.PromptHeaderFile)
	if err != nil {
		return nil, fmt.Errorf("analyzer prompt header: %w", err)
	}
	ref, err := companion.NewRefiner(capability,
		companion.WithRefinerModel(a.cfg.OpenAI.ClassifyModel),
		companion.WithRefinerTimeout(a.cfg.Analyzer.RefineTimeout),
		companion.WithRefinerPromptHeader(header),
		companion.WithRefinerLogger(a.log),
	)
	if err != nil {
		return nil, err
	}
	return companion.NewHybridAnalyzer(kw, ref, opts...), nil
}

func (a *app) extractor() (*companion.MemoryExtractor, error) {
	capability, err := a.capability()
	if err != nil {
		return nil, err
	}
	header, err := promptHeader(a.cfg.Extractor.PromptHeader, a.cfg.Extractor.PromptHeaderFile)
	if err != nil {
		return nil, fmt.Errorf("extractor prompt header: %w", err)
	}
	return companion.NewMemoryExtractor(capability,
		companion.WithExtractorModel(a.cfg.OpenAI.ExtractModel),
		companion.WithExtractorTimeout(a.cfg.Extractor.Timeout),
		companion.WithExtractorMaxTokens(a.cfg.Extractor.MaxOutputTokens),
		companion.WithExtractorPromptHeader(header),
		companion.WithExtractorLogger(a.log),
	)
}

// promptHeader prefers the header file when one is configured.
func promptHeader(inline, path string) (string, error) {
	if path == "" {
		return inline, nil
	}
	return fileutils.ReadTrimmedFile(path)
}

func (a *app) openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(a.cfg.Store.DBPath)
}

// usage returns the Redis-backed checker when configured, otherwise an in-process one.
func (a *app) usage() (companion.UsageChecker, func(), error) {
	q := a.cfg.Quota
	limits := quota.Limits{Authenticated: q.AuthenticatedLimit, Anonymous: q.AnonymousLimit, WarningRatio: q.WarningRatio}
	if q.RedisAddr == "" {
		m, err := quota.NewMemoryUsage(limits)
		return m, func() {}, err
	}
	r, err := quota.NewRedisUsage(quota.RedisConfig{Addr: q.RedisAddr, Password: q.RedisPassword, DB: q.RedisDB}, limits)
	if err != nil {
		return nil, nil, err
	}
	return r, func() { r.Close() }, nil
}

// messageArg joins positional args, or reads stdin when there are none.
func messageArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read message from stdin: %w", err)
	}
	msg := strings.TrimSpace(string(b))
	if msg == "" {
		return "", fmt.Errorf("message is required (as arguments or on stdin)")
	}
	return msg, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
