// Package present turns ResultRecords into ordered, renderable views.
package present

import (
	"github.com/Bahjat/auth-insight-tool/internal/expand"
	"github.com/Bahjat/auth-insight-tool/internal/model"
	"github.com/Bahjat/auth-insight-tool/internal/render"
)

const (
	genericError = "Unknown error"
	notAvailable = "N/A"
)

// BannerKind selects the style of a view's status banner.
type BannerKind int

const (
	BannerError BannerKind = iota
	BannerNotFound
	BannerFound
)

// Banner is the status line at the top of a result view.
type Banner struct {
	Kind    BannerKind
	Label   string
	Message string
}

// Section is one labeled content block.
type Section struct {
	Role    expand.Role
	Heading string
	// Compact marks the small single-element fields (inputs and button).
	Compact bool
	Block   *render.Block
}

// Summary is the method/action footer, with missing values shown as N/A.
type Summary struct {
	Method string
	Action string
}

// View is everything emitted for one ResultRecord, in display order:
// banner, sections, then the optional summary.
type View struct {
	URL      string
	Scope    expand.Scope
	Outcome  OutcomeKind
	Banner   Banner
	Sections []Section
	Summary  *Summary
}

var headings = map[expand.Role]string{
	expand.RoleForm:     "Form Element",
	expand.RoleHTML:     "HTML Snippet",
	expand.RoleUsername: "Username Input",
	expand.RolePassword: "Password Input",
	expand.RoleSubmit:   "Submit Button",
}

// Presenter composes views, delegating each field to a render.Renderer.
type Presenter struct {
	renderer *render.Renderer
}

// New returns a Presenter backed by renderer.
func New(renderer *render.Renderer) *Presenter {
	return &Presenter{renderer: renderer}
}

// Present builds the view of rec in scope.
func (p *Presenter) Present(rec model.ResultRecord, scope expand.Scope) View {
	o := Classify(rec)
	v := View{URL: rec.URL, Scope: scope, Outcome: o.Kind}

	switch o.Kind {
	case Failure:
		v.Banner = Banner{Kind: BannerError, Label: "Error", Message: o.Message}
		return v

	case NotFound:
		v.Banner = Banner{
			Kind:    BannerNotFound,
			Label:   "No Authentication Component Found",
			Message: "This page does not contain a login form or authentication component",
		}
		return v
	}

	v.Banner = Banner{Kind: BannerFound, Label: "Authentication Component Found"}
	for _, f := range o.Fields {
		block := p.renderer.Render(f.Content, expand.NewKey(scope, f.Role, rec.URL))
		if block == nil {
			continue
		}
		v.Sections = append(v.Sections, Section{
			Role:    f.Role,
			Heading: headings[f.Role],
			Compact: f.Role == expand.RoleUsername || f.Role == expand.RolePassword || f.Role == expand.RoleSubmit,
			Block:   block,
		})
	}

	if o.Method != "" || o.Action != "" {
		v.Summary = &Summary{Method: orNA(o.Method), Action: orNA(o.Action)}
	}
	return v
}

// PresentBatch applies Present to every record, scoping each by position so
// that entries sharing a URL keep independent toggle state. A nil or empty
// list yields no views.
func (p *Presenter) PresentBatch(recs []model.ResultRecord) []View {
	views := make([]View, 0, len(recs))
	for i, rec := range recs {
		views = append(views, p.Present(rec, expand.Batch(i)))
	}
	return views
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
