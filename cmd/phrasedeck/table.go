package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/chaz8081/phrasedeck/internal/models"
	"github.com/chaz8081/phrasedeck/internal/pipeline"
	"github.com/chaz8081/phrasedeck/internal/transcribe"
)

// transcriptionWidth wraps long transcriptions so the table fits a terminal.
const transcriptionWidth = 48

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	return tw
}

// phraseTable lists every phrase of a build next to its clip and timing.
// The footer carries the totals and the reference agreement.
func phraseTable(res *pipeline.Result) string {
	tw := newTable()
	tw.AppendHeader(table.Row{"#", "Clip", "Start", "Length", "Transcription"})
	for _, ph := range res.Phrases {
		said := ph.Text
		if said == "" {
			said = "(no speech)"
		}
		tw.AppendRow(table.Row{ph.Index, ph.File, formatSeconds(ph.Start), formatSeconds(ph.End - ph.Start), said})
	}
	tw.AppendFooter(table.Row{
		"",
		fmt.Sprintf("%d phrases", len(res.Phrases)),
		formatSeconds(res.Duration),
		"",
		"agreement " + formatAgreement(res.Agreement),
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, WidthMax: transcriptionWidth, WidthMaxEnforcer: text.WrapSoft},
	})
	return tw.Render()
}

type modelRow struct {
	models.Model
	Installed bool
}

// modelTable lists the downloadable models. The footer sums what is on disk.
func modelTable(rows []modelRow) string {
	tw := newTable()
	tw.AppendHeader(table.Row{"Model", "Size", "Multilingual", "Installed"})

	var installed int
	var installedSize uint64
	for _, r := range rows {
		if r.Installed {
			installed++
			installedSize += r.Size
		}
		tw.AppendRow(table.Row{r.Name, r.HumanSize(), yesNo(r.Multilingual), yesNo(r.Installed)})
	}
	tw.AppendFooter(table.Row{
		fmt.Sprintf("%d installed", installed),
		humanize.IBytes(installedSize),
		"",
		"",
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	return tw.Render()
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// formatAgreement renders how closely the transcription matched the
// reference text, or n/a when the reference had nothing to compare.
func formatAgreement(r transcribe.WERResult) string {
	if r.RefTokens == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", r.Accuracy()*100)
}
