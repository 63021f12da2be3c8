// -- cmd/probe.go --
package cmd

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dashv0id/domprobe/internal/observability"
	"github.com/dashv0id/domprobe/pkg/inspect"
)

var (
	probeURLs        []string
	probeSelector    string
	probeStates      []string
	probeInteraction string
	probeWait        time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Probe elements on live pages through a headless browser.",
	Long: `Probe navigates a headless Chrome instance to each URL, snapshots the
rendered document, and reports actionability for the elements matching an
XPath selector. Pages are probed concurrently, one browser tab each.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().StringSliceVarP(&probeURLs, "url", "u", nil, "page URL to probe (repeatable)")
	probeCmd.Flags().StringVarP(&probeSelector, "selector", "s", "", "XPath selector of the target elements")
	probeCmd.Flags().StringSliceVar(&probeStates, "states", nil, "element states to assert (e.g. visible,inview)")
	probeCmd.Flags().StringVar(&probeInteraction, "interaction", "", "interaction to check readiness for (click, type, ...)")
	probeCmd.Flags().DurationVar(&probeWait, "wait", 0, "readiness wait budget (defaults to inspector.default_timeout)")
	_ = probeCmd.MarkFlagRequired("url")
	_ = probeCmd.MarkFlagRequired("selector")
}

type pageReport struct {
	URL      string          `json:"url"`
	Selector string          `json:"selector"`
	Matches  int             `json:"matches"`
	Elements []elementReport `json:"elements,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func runProbe(cmd *cobra.Command, args []string) error {
	log := observability.GetLogger().Named("probe-cmd")
	browserCfg := cfg.Browser()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", browserCfg.Headless),
		chromedp.Flag("disable-gpu", true),
	)
	if browserCfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(cmd.Context(), opts...)
	defer allocCancel()

	// The first tab owns the browser process; later tabs derive from it.
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()
	if err := chromedp.Run(browserCtx); err != nil {
		return fmt.Errorf("starting browser: %w", err)
	}

	var mu sync.Mutex
	reports := make([]pageReport, 0, len(probeURLs))

	g, gctx := errgroup.WithContext(browserCtx)
	for _, url := range probeURLs {
		g.Go(func() error {
			rep := probePage(gctx, browserCtx, url, log)
			mu.Lock()
			reports = append(reports, rep)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].URL < reports[j].URL })
	return writeJSON(cmd.OutOrStdout(), reports)
}

// probePage navigates a fresh tab to url and inspects the matching elements.
// Failures are reported per page rather than aborting the whole run.
func probePage(ctx context.Context, browserCtx context.Context, url string, log *zap.Logger) pageReport {
	rep := pageReport{URL: url, Selector: probeSelector}
	log = log.With(zap.String("url", url))

	tab, cancel := chromedp.NewContext(browserCtx)
	defer cancel()

	if err := chromedp.Run(tab,
		chromedp.Navigate(url),
		chromedp.Sleep(cfg.Browser().NavigationWait),
	); err != nil {
		rep.Error = fmt.Sprintf("navigation failed: %v", err)
		return rep
	}

	inspector, err := inspect.NewFromBrowser(tab, log)
	if err != nil {
		rep.Error = fmt.Sprintf("snapshot failed: %v", err)
		return rep
	}

	nodes, err := htmlquery.QueryAll(inspector.Tree().Document(), probeSelector)
	if err != nil {
		rep.Error = fmt.Sprintf("invalid selector: %v", err)
		return rep
	}
	rep.Matches = len(nodes)
	log.Debug("selector resolved", zap.Int("matches", len(nodes)))

	for _, n := range nodes {
		rep.Elements = append(rep.Elements,
			reportElement(ctx, inspector, n, probeStates, probeInteraction, probeWait))
	}
	return rep
}
