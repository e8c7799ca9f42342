package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/sortie/internal/campaign"
	"github.com/roach88/sortie/internal/compiler"
	"github.com/roach88/sortie/internal/ir"
)

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
	Dot bool // emit Graphviz instead of text
}

// GraphView is the JSON shape of a campaign graph.
type GraphView struct {
	Campaign string       `json:"campaign"`
	Entry    string       `json:"entry"`
	Finals   []string     `json:"finals"`
	Missions []ir.Mission `json:"missions"`
	Edges    []ir.Edge    `json:"edges"`
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph [campaign-dir]",
		Short: "Print the campaign mission graph",
		Long: `Print the missions and branches of a campaign.

Examples:
  sortie graph
  sortie graph ./campaigns/nightfall --format json
  sortie graph --dot | dot -Tsvg > campaign.svg`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Dot, "dot", false, "emit Graphviz dot")

	return cmd
}

func runGraph(opts *GraphOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	dir, err := opts.campaignDir(args)
	if err != nil {
		return formatter.Fail(err)
	}
	c, err := compiler.Load(dir)
	if err != nil {
		return formatter.Fail(campaignErr(err))
	}
	graph, err := campaign.FromCampaign(*c)
	if err != nil {
		return formatter.Fail(err)
	}

	if opts.Dot {
		fmt.Fprint(formatter.Writer, renderDot(c.Name, graph))
		return nil
	}

	view := GraphView{
		Campaign: c.Name,
		Entry:    graph.Entry(),
		Finals:   graph.Finals(),
		Missions: graph.Missions(),
		Edges:    graph.Edges(),
	}
	return formatter.Result(renderGraphText(view), view)
}

func renderGraphText(v GraphView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d missions, entry %s\n", v.Campaign, len(v.Missions), v.Entry)

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, m := range v.Missions {
		next := "final"
		if !m.IsFinal {
			next = "-> " + strings.Join(m.NextChoices, ", ")
		}
		fmt.Fprintf(tw, "  %s\t%s\tdifficulty %d\t%s\n", m.ID, m.Name, m.Difficulty, next)
	}
	tw.Flush()
	return b.String()
}

// renderDot renders the graph in Graphviz dot. Final missions are drawn as
// double circles.
func renderDot(name string, g *campaign.Graph) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %s {\n", strconv.Quote(name))
	b.WriteString("  rankdir=LR;\n")
	for _, m := range g.Missions() {
		attrs := "label=" + strconv.Quote(m.ID+"\n"+m.Name)
		if m.IsFinal {
			attrs += ", shape=doublecircle"
		}
		fmt.Fprintf(&b, "  %s [%s];\n", strconv.Quote(m.ID), attrs)
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(&b, "  %s -> %s;\n", strconv.Quote(e.From), strconv.Quote(e.To))
	}
	b.WriteString("}\n")
	return b.String()
}
