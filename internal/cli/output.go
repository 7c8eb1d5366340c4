package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/mcoot/dotareg/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.HealthResponse:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	case response.LoginResponse:
		fmt.Fprintf(o.w, "Logged in as %s (%s)\n", v.User.Username, v.User.Role)
		fmt.Fprintf(o.w, "Session expires: %s\n", formatTime(&v.ExpiresAt))
	case response.SessionCheckResponse:
		fmt.Fprintf(o.w, "Username: %s\n", v.User.Username)
		fmt.Fprintf(o.w, "Role: %s\n", v.User.Role)
		fmt.Fprintf(o.w, "Session expires: %s\n", formatTime(&v.ExpiresAt))
	case response.RegistrationStatus:
		o.printStatus(v)
	case response.Player:
		o.printPlayers([]response.Player{v})
	case []response.Player:
		o.printPlayers(v)
	case response.ImportResponse:
		o.printImport(v)
	case response.RegistrationSession:
		o.printSessions([]response.RegistrationSession{v})
	case []response.RegistrationSession:
		o.printSessions(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printStatus(s response.RegistrationStatus) {
	if s.SessionID == "" {
		fmt.Fprintln(o.w, "No active registration session")
		return
	}
	fmt.Fprintf(o.w, "Session: %s (%s)\n", s.Title, s.SessionID)
	fmt.Fprintf(o.w, "State: %s\n", s.State)
	fmt.Fprintf(o.w, "Players: %s\n", playerCount(s.PlayerCount, s.MaxPlayers))
	fmt.Fprintf(o.w, "Opens: %s\n", formatTime(s.StartTime))
	fmt.Fprintf(o.w, "Closes: %s\n", formatTime(s.Expiry))
	if s.CountdownTarget != nil {
		fmt.Fprintf(o.w, "Countdown: %s\n", formatTime(s.CountdownTarget))
	}
}

func (o *Output) printPlayers(ps []response.Player) {
	if len(ps) == 0 {
		fmt.Fprintln(o.w, "No players")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDOTA2ID\tMMR\tNOTES")
	for _, p := range ps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Name, p.Dota2ID, p.MMR, p.Notes)
	}
	_ = tw.Flush()
}

func (o *Output) printImport(r response.ImportResponse) {
	if !r.Success {
		fmt.Fprintf(o.w, "Import rejected, nothing was written (%d errors)\n", len(r.ValidationErrors))
		for _, e := range r.ValidationErrors {
			fmt.Fprintf(o.w, "  line %d [%s]: %s\n", e.Line, e.Rule, e.Message)
		}
		return
	}
	fmt.Fprintf(o.w, "Added: %d  Updated: %d  Skipped: %d\n", r.Added, r.Updated, r.Skipped)
}

func (o *Output) printSessions(ss []response.RegistrationSession) {
	if len(ss) == 0 {
		fmt.Fprintln(o.w, "No registration sessions")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATE\tACTIVE\tPLAYERS\tOPENS\tCLOSES")
	for _, s := range ss {
		active := ""
		if s.IsActive {
			active = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Title, s.State, active, playerCount(s.PlayerCount, s.MaxPlayers),
			formatTime(s.StartTime), formatTime(s.Expiry))
	}
	_ = tw.Flush()
}

func playerCount(n int, max *int) string {
	if max == nil {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%d/%d", n, *max)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.RFC1123)
}
