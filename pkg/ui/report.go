package ui

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
)

// WriteMarkdownStatus writes the status report as a Markdown document
func WriteMarkdownStatus(w io.Writer, r StatusReport, generated time.Time) error {
	md := markdown.NewMarkdown(w)

	md.H1("tmscraper crawl status")
	md.PlainText("")

	pct := 0.0
	if r.Queries > 0 {
		pct = float64(min(r.QueryIndex, r.Queries)) / float64(r.Queries) * 100
	}

	next := "complete"
	if !r.Done() && r.NextQuery != "" {
		next = fmt.Sprintf("`%s` page %d", r.NextQuery, r.LastCompletedPage+1)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Queries completed", fmt.Sprintf("%d / %d (%.1f%%)", r.QueryIndex, r.Queries, pct)},
			{"Next", next},
			{"Indexed images", strconv.Itoa(r.Indexed)},
			{"Image files", strconv.Itoa(r.Files)},
			{"Output", "`" + r.OutputDir + "`"},
			{"Cursor", "`" + r.StatePath + "`"},
			{"Index", "`" + r.IndexPath + "`"},
		},
	})
	md.PlainText("")

	switch {
	case r.Files != r.Indexed:
		md.Warningf("Index and image directory differ (%d indexed, %d files). Run `tmscraper reindex`.", r.Indexed, r.Files)
	case r.Done():
		md.Tip("Every query has been crawled.")
	default:
		md.Note("Run `tmscraper crawl` to resume.")
	}
	md.PlainText("")

	md.HorizontalRule()
	md.PlainTextf("*Generated %s*", generated.Format("2006-01-02 15:04:05 MST"))

	return md.Build()
}
