package notification

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mael-bomane/earn-bot/internal/listing"
	"github.com/mael-bomane/earn-bot/internal/storage"
)

// ErrUnknownChangeType is returned when no template exists for a change type.
var ErrUnknownChangeType = errors.New("unknown change type")

// dateLayout is used for old/new deadline lines.
const dateLayout = "Jan 2, 2006"

// messageTmpl holds one template per change type plus the shared listing
// details block. Telegram's HTML mode accepts the escaped output as is.
var messageTmpl = template.Must(template.New("messages").Parse(`
{{- define "details" -}}
{{.Glyph}} <b>{{.TypeName}}</b> by <b>{{.Sponsor}}</b>

<a href="{{.Link}}"><b>{{.Name}}</b></a>

<b>{{.Reward}} {{.Token}}</b>

Required Skills :{{range .Skills}}
 · {{.}}{{end}}

⏳ {{.Due}}

{{.RegionLine}}
{{- end -}}

{{- define "footer" -}}
👉 <a href="{{.Link}}">View on Superteam Earn</a>
{{- end -}}

{{- define "NEW_LISTING" -}}
{{template "details" .}}

{{template "footer" .}}
{{- end -}}

{{- define "REGION_UPDATED" -}}
📍 The region for a {{.TypeLower}} you might be interested in has been updated!

{{template "details" .}}

<b>Old Region:</b> {{.OldRegion}}
<b>New Region:</b> {{.NewRegion}}

{{template "footer" .}}
{{- end -}}

{{- define "DEADLINE_UPDATED" -}}
⏳ The deadline for a {{.TypeLower}} you might be interested in has been updated!

{{template "details" .}}

<b>Old Deadline:</b> {{.OldDeadline}}
<b>New Deadline:</b> {{.NewDeadline}}

{{template "footer" .}}
{{- end -}}
`))

// messageView is the flattened data the templates render.
type messageView struct {
	Glyph       string
	TypeName    string
	TypeLower   string
	Name        string
	Link        string
	Sponsor     string
	Reward      string
	Token       string
	Skills      []string
	Due         string
	RegionLine  string
	OldRegion   string
	NewRegion   string
	OldDeadline string
	NewDeadline string
}

// Renderer produces the chat message for a pending notification.
type Renderer struct {
	now func() time.Time
}

// NewRenderer returns a Renderer computing relative deadlines against now.
// A nil now uses time.Now.
func NewRenderer(now func() time.Time) *Renderer {
	if now == nil {
		now = time.Now
	}
	return &Renderer{now: now}
}

// Render builds the HTML message for change and p.
func (r *Renderer) Render(change storage.ChangeType, p Payload) (string, error) {
	if !change.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownChangeType, change)
	}

	view := r.view(p)
	var buf bytes.Buffer
	if err := messageTmpl.ExecuteTemplate(&buf, string(change), view); err != nil {
		return "", fmt.Errorf("rendering %s message: %w", change, err)
	}
	return buf.String(), nil
}

func (r *Renderer) view(p Payload) messageView {
	l := p.Listing
	v := messageView{
		Glyph:      "⚡",
		TypeName:   "Bounty",
		TypeLower:  "bounty",
		Name:       l.Name,
		Link:       l.Link,
		Sponsor:    orNA(l.SponsorName),
		Reward:     formatReward(l),
		Token:      orNA(l.Token),
		Skills:     skillNames(l.Skills),
		Due:        dueIn(l.Deadline, r.now()),
		RegionLine: regionLine(l.Region),
		NewRegion:  regionName(l.Region),
	}
	if l.Type == listing.TypeProject {
		v.Glyph, v.TypeName, v.TypeLower = "💼", "Project", "project"
	}
	v.OldRegion = "N/A"
	if p.OldRegion != nil {
		v.OldRegion = regionName(*p.OldRegion)
	}
	v.OldDeadline = formatDate(p.OldDeadline)
	v.NewDeadline = formatDate(l.Deadline)
	return v
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// formatReward renders a fixed payout as a single value and range or
// variable compensation as "min ~ max".
func formatReward(l listing.Listing) string {
	switch l.CompensationType {
	case listing.CompensationRange, listing.CompensationVariable:
		switch {
		case l.MinRewardAsk != nil && l.MaxRewardAsk != nil:
			return humanize.Commaf(*l.MinRewardAsk) + " ~ " + humanize.Commaf(*l.MaxRewardAsk)
		case l.MinRewardAsk != nil:
			return humanize.Commaf(*l.MinRewardAsk)
		case l.MaxRewardAsk != nil:
			return humanize.Commaf(*l.MaxRewardAsk)
		}
		return "Variable"
	default:
		if l.Payout == nil {
			return "N/A"
		}
		return humanize.Commaf(*l.Payout)
	}
}

func skillNames(skills []listing.Skill) []string {
	if len(skills) == 0 {
		return []string{"N/A"}
	}
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		out = append(out, titleCase(string(s)))
	}
	return out
}

// titleCase turns "NORTH_AMERICA" into "North america".
func titleCase(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, "_", " "))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// dueIn describes the time left until deadline. Under a day it counts whole
// hours rounded up, otherwise whole days rounded down.
func dueIn(deadline *time.Time, now time.Time) string {
	if deadline == nil {
		return "No deadline"
	}
	left := deadline.Sub(now)
	if left <= 0 {
		return "Expired"
	}
	if left < 24*time.Hour {
		return "Due in " + plural(int(math.Ceil(left.Hours())), "hour")
	}
	return "Due in " + plural(int(left/(24*time.Hour)), "day")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func regionLine(r listing.Region) string {
	info := listing.Describe(r)
	if r == listing.RegionGlobal {
		return "Available Worldwide " + info.Flag
	}
	return fmt.Sprintf("Regional Listing available for %s %s", info.Name, info.Flag)
}

func regionName(r listing.Region) string {
	info := listing.Describe(r)
	return info.Name + " " + info.Flag
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.UTC().Format(dateLayout)
}
