package stages

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Summary renders a run report the way operators read it at the end of a
// stage: one row per metric.
type Summary struct {
	Stage string
	Rows  []SummaryRow
}

type SummaryRow struct {
	Name  string
	Value any
}

func (s Summary) Render() string {
	builder := &strings.Builder{}

	t := table.NewWriter()
	t.SetOutputMirror(builder)
	t.AppendHeader(table.Row{s.Stage, ""})
	for _, row := range s.Rows {
		t.AppendRow(table.Row{row.Name, row.Value})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	return builder.String()
}

func (s ResolveStats) Summary() Summary {
	return Summary{
		Stage: "Website resolution",
		Rows: []SummaryRow{
			{"Total companies", s.Total},
			{"Websites found", s.Found},
			{"Resumed from progress", s.Skipped},
			{"Not found", s.Total - s.Found},
		},
	}
}

func (s LinkStats) Summary() Summary {
	return Summary{
		Stage: "Review link search",
		Rows: []SummaryRow{
			{"Total companies", s.Total},
			{"Review pages found", s.Found},
			{"Resumed from progress", s.Skipped},
		},
	}
}

func (s ReviewStats) Summary() Summary {
	return Summary{
		Stage: "Review scrape",
		Rows: []SummaryRow{
			{"Successful scrapes", s.Scraped},
			{"Failed scrapes", s.Failed},
			{"Skipped (already scraped)", s.Skipped},
			{"Reviews collected", s.Reviews},
		},
	}
}

func (s WebsiteStats) Summary() Summary {
	return Summary{
		Stage: "Website scrape",
		Rows: []SummaryRow{
			{"Companies scraped", s.Scraped},
			{"Companies failed", s.Failed},
			{"Companies skipped", s.Skipped},
			{"Pages collected", s.Pages},
		},
	}
}

func (s RetryStats) Summary() Summary {
	return Summary{
		Stage: "Failure retry",
		Rows: []SummaryRow{
			{"Targets attempted", s.Attempted},
			{"Targets recovered", s.Recovered},
			{"Reviews collected", s.Reviews},
		},
	}
}
