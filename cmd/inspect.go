// -- cmd/inspect.go --
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/dashv0id/domprobe/api/schemas"
	"github.com/dashv0id/domprobe/internal/dom"
	"github.com/dashv0id/domprobe/internal/observability"
	"github.com/dashv0id/domprobe/pkg/inspect"
)

var (
	inspectFile        string
	inspectSelector    string
	inspectStates      []string
	inspectInteraction string
	inspectWait        time.Duration
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect elements in a static HTML document.",
	Long: `Inspect parses an HTML document, resolves the elements matching an XPath
selector, and reports their actionability: visibility, accessibility role,
requested element states, and (optionally) readiness for an interaction.`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&inspectFile, "file", "f", "-", "HTML file to inspect ('-' for stdin)")
	inspectCmd.Flags().StringVarP(&inspectSelector, "selector", "s", "", "XPath selector of the target elements")
	inspectCmd.Flags().StringSliceVar(&inspectStates, "states", nil, "element states to assert (e.g. visible,inview)")
	inspectCmd.Flags().StringVar(&inspectInteraction, "interaction", "", "interaction to check readiness for (click, type, ...)")
	inspectCmd.Flags().DurationVar(&inspectWait, "wait", 0, "readiness wait budget (defaults to inspector.default_timeout)")
	_ = inspectCmd.MarkFlagRequired("selector")
}

// elementReport is the per-element JSON output of the inspect command.
type elementReport struct {
	Element string                `json:"element"`
	Visible bool                  `json:"visible"`
	Role    string                `json:"role,omitempty"`
	States  *schemas.StatesResult `json:"states,omitempty"`
	Point   *schemas.Point        `json:"point,omitempty"`
	Error   string                `json:"error,omitempty"`
}

type inspectReport struct {
	Selector string          `json:"selector"`
	Matches  int             `json:"matches"`
	Elements []elementReport `json:"elements"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	log := observability.GetLogger().Named("inspect-cmd")

	src, err := readInput(inspectFile)
	if err != nil {
		return err
	}

	viewport := schemas.Rect{
		Width:  cfg.Inspector().ViewportWidth,
		Height: cfg.Inspector().ViewportHeight,
	}
	inspector, oracle, err := inspect.NewFromHTML(src, viewport, log)
	if err != nil {
		return err
	}
	oracle.SetFrameInterval(cfg.Inspector().FrameInterval)

	nodes, err := htmlquery.QueryAll(inspector.Tree().Document(), inspectSelector)
	if err != nil {
		return fmt.Errorf("invalid selector %q: %w", inspectSelector, err)
	}
	log.Debug("selector resolved", zap.Int("matches", len(nodes)))

	report := inspectReport{Selector: inspectSelector, Matches: len(nodes)}
	for _, n := range nodes {
		report.Elements = append(report.Elements,
			reportElement(cmd.Context(), inspector, n, inspectStates, inspectInteraction, inspectWait))
	}
	return writeJSON(cmd.OutOrStdout(), report)
}

// reportElement evaluates one matched element for a report: visibility, role,
// any requested state assertions, and readiness for the requested interaction.
func reportElement(ctx context.Context, inspector *inspect.Inspector, n *html.Node, stateNames []string, interaction string, wait time.Duration) elementReport {
	rep := elementReport{
		Element: elementPreview(n),
		Visible: inspector.IsVisible(n),
		Role:    string(inspector.Role(n)),
	}

	if len(stateNames) > 0 {
		states := make([]schemas.ElementState, 0, len(stateNames))
		for _, s := range stateNames {
			states = append(states, schemas.ElementState(strings.TrimSpace(s)))
		}
		res, err := inspector.QueryElementStates(ctx, n, states)
		if err != nil {
			rep.Error = err.Error()
			return rep
		}
		rep.States = &res
	}

	if interaction != "" {
		if wait <= 0 {
			wait = cfg.Inspector().DefaultTimeout
		}
		pt, err := inspector.WaitForInteractionReady(ctx, n,
			schemas.InteractionType(interaction), nil, wait)
		if err != nil {
			rep.Error = err.Error()
			return rep
		}
		rep.Point = &pt
	}
	return rep
}

// elementPreview renders a short identifier for an element in reports.
func elementPreview(n *html.Node) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(strings.ToLower(dom.TagName(n)))
	if id := dom.AttrOr(n, "id", ""); id != "" {
		fmt.Fprintf(&b, " id=%q", id)
	}
	b.WriteByte('>')
	return b.String()
}

func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

var reportJSON = jsoniter.ConfigCompatibleWithStandardLibrary

func writeJSON(w io.Writer, v any) error {
	enc := reportJSON.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
