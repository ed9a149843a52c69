package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/rewired-gh/tennisoracle/internal/models"
	"github.com/rewired-gh/tennisoracle/internal/storage"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func renderPredictions(w io.Writer, records []models.PredictionRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No predictions")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "BAND\tTOURNAMENT\tMATCH\tFAVORITE\tPROB A/B\tODDS A/B\tCONFIDENCE")
	for i := range records {
		p := &records[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f%% / %.1f%%\t%.2f / %.2f\t%.1f%%\n",
			p.Band().Label(), p.Tournament, p.MatchLabel(), p.Favorite,
			p.ProbabilityA, p.ProbabilityB, p.OddsA, p.OddsB, p.Confidence)
	}
	_ = tw.Flush()
}

func renderDashboard(w io.Writer, s *models.DashboardStats) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Matches\t%d\n", s.TotalMatches)
	fmt.Fprintf(tw, "Tournaments\t%d\n", s.TotalTournaments)
	fmt.Fprintf(tw, "High confidence\t%d\n", s.HighConfidence)
	fmt.Fprintf(tw, "Medium confidence\t%d\n", s.MediumConfidence)
	fmt.Fprintf(tw, "Low confidence\t%d\n", s.LowConfidence)
	_ = tw.Flush()

	if len(s.Tournaments) > 0 {
		names := make([]string, 0, len(s.Tournaments))
		for name := range s.Tournaments {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(w, "\nMatches per tournament")
		tw = newTable(w)
		for _, name := range names {
			fmt.Fprintf(tw, "  %s\t%d\n", name, s.Tournaments[name])
		}
		_ = tw.Flush()
	}

	if len(s.RecentPredictions) > 0 {
		fmt.Fprintln(w, "\nRecent predictions")
		renderPredictions(w, s.RecentPredictions)
	}
}

func renderMatch(w io.Writer, d *models.MatchDetail) {
	band := d.Band()
	fmt.Fprintf(w, "%s  [%s]\n", d.MatchLabel(), band.Label())
	tw := newTable(w)
	fmt.Fprintf(tw, "Tournament\t%s\n", d.Tournament)
	if d.Surface != "" {
		fmt.Fprintf(tw, "Surface\t%s\n", d.Surface)
	}
	fmt.Fprintf(tw, "Favorite\t%s\n", d.Favorite)
	fmt.Fprintf(tw, "%s\t%.1f%%  odds %.2f\n", d.PlayerA, d.ProbabilityA, d.OddsA)
	fmt.Fprintf(tw, "%s\t%.1f%%  odds %.2f\n", d.PlayerB, d.ProbabilityB, d.OddsB)
	fmt.Fprintf(tw, "Confidence\t%.1f%%\n", d.Confidence)
	_ = tw.Flush()
	if d.Analysis != "" {
		fmt.Fprintf(w, "\n%s\n", d.Analysis)
	}
}

// renderSettings prints settings and, when checks is non-nil, the recent connection history.
func renderSettings(w io.Writer, st storage.Settings, checks []storage.ConnectionCheck) {
	tw := newTable(w)
	fmt.Fprintf(tw, "api_url\t%s\n", st.APIURL)
	fmt.Fprintf(tw, "notifications\t%s\n", onOff(st.Notifications))
	fmt.Fprintf(tw, "auto_refresh\t%s\n", onOff(st.AutoRefresh))
	fmt.Fprintf(tw, "dark_mode\t%s\n", onOff(st.DarkMode))
	_ = tw.Flush()

	if checks == nil {
		return
	}
	if len(checks) == 0 {
		fmt.Fprintln(w, "\nNo connection checks yet")
		return
	}
	fmt.Fprintln(w, "\nRecent connection checks")
	tw = newTable(w)
	for _, c := range checks {
		status := "unreachable"
		if c.Connected {
			status = "connected"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", c.CheckedAt.Format("2006-01-02 15:04:05"), c.APIURL, status)
	}
	_ = tw.Flush()
}
