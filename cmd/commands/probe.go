package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/gisquick/countyview/internal/application"
	"github.com/gisquick/countyview/internal/domain"
	"github.com/gisquick/countyview/internal/featureservice"
	"github.com/gisquick/countyview/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Probe runs the service probe of every configured source and prints the
// attempts.
func Probe() error {
	cfg := struct {
		Countyview struct {
			Debug        bool `conf:"default:false"`
			SourcesFile  string
			ProbeTimeout time.Duration `conf:"default:8s"`
		}
		Source string `conf:"help:probe only the source with this id"`
	}{}
	ok, err := parseConfig(&cfg)
	if !ok {
		return err
	}
	logLevel := zap.WarnLevel
	if cfg.Countyview.Debug {
		logLevel = zap.DebugLevel
	}
	log, err := createLogger(logLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	sources, err := config.LoadSources(cfg.Countyview.SourcesFile)
	if err != nil {
		return fmt.Errorf("loading sources: %w", err)
	}
	client := featureservice.NewClient(log, cfg.Countyview.ProbeTimeout)
	probe := application.NewServiceProbe(log, client, nil)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()
	ctx := context.Background()
	probed := 0
	for i := range sources {
		src := &sources[i]
		if cfg.Source != "" && src.ID != cfg.Source {
			continue
		}
		probed++
		candidates := probe.ResolveItems(ctx, client, src.ItemPortal, src.Items)
		candidates = append(candidates, src.CandidateURLs()...)
		res := probe.Probe(ctx, candidates)
		printProbeResult(w, src, res)
	}
	if probed == 0 {
		return fmt.Errorf("%w: source %q", domain.ErrEmptyResult, cfg.Source)
	}
	return nil
}

func printProbeResult(w *tabwriter.Writer, src *domain.Source, res application.ProbeResult) {
	fmt.Fprintf(w, "%s\t%s\n", src.ID, src.Title)
	fmt.Fprintln(w, "OUTCOME\tURL\tERROR")
	for _, a := range res.Attempts {
		fmt.Fprintf(w, "%s\t%s\t%s\n", a.Outcome, a.URL, a.Error)
	}
	if res.Found {
		fmt.Fprintf(w, "found\t%s\t%d layers\n", res.URL, len(res.Service.Layers))
		for _, l := range res.Service.Layers {
			fmt.Fprintf(w, "\t%d %s\t%s\n", l.ID, l.Name, l.GeometryType)
		}
	} else {
		fmt.Fprintf(w, "not found\t\t%s\n", domain.Reason(res.Err()))
	}
	fmt.Fprintln(w)
}
