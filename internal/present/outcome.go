package present

import (
	"github.com/Bahjat/auth-insight-tool/internal/expand"
	"github.com/Bahjat/auth-insight-tool/internal/model"
)

// OutcomeKind discriminates the three disjoint result states.
type OutcomeKind int

const (
	// Failure: the detection attempt did not complete.
	Failure OutcomeKind = iota
	// NotFound: the page was analysed and has no auth component.
	NotFound
	// Found: an auth component was detected.
	Found
)

func (k OutcomeKind) String() string {
	switch k {
	case Failure:
		return "failure"
	case NotFound:
		return "not_found"
	case Found:
		return "found"
	default:
		return "unknown"
	}
}

// FieldValue is one present text field of a detected component.
type FieldValue struct {
	Role    expand.Role
	Content string
}

// Outcome is a ResultRecord reduced to exactly one of its variants. Message
// is set only for Failure; Fields, Method and Action only for Found.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	Fields  []FieldValue
	Method  string
	Action  string
}

// fieldOrder is the display order of the optional text fields.
var fieldOrder = []expand.Role{
	expand.RoleForm,
	expand.RoleHTML,
	expand.RoleUsername,
	expand.RolePassword,
	expand.RoleSubmit,
}

// Classify maps rec to its Outcome. A successful record without a component
// is treated as NotFound. When Found is false, populated sub-fields are
// ignored.
func Classify(rec model.ResultRecord) Outcome {
	if !rec.Success {
		msg := rec.Error
		if msg == "" {
			msg = genericError
		}
		return Outcome{Kind: Failure, Message: msg}
	}

	ac := rec.AuthComponent
	if ac == nil || !ac.Found {
		return Outcome{Kind: NotFound}
	}

	out := Outcome{Kind: Found, Method: ac.Method, Action: ac.Action}
	for _, role := range fieldOrder {
		if v := fieldOf(ac, role); v != "" {
			out.Fields = append(out.Fields, FieldValue{Role: role, Content: v})
		}
	}
	return out
}

func fieldOf(ac *model.AuthComponent, role expand.Role) string {
	switch role {
	case expand.RoleForm:
		return ac.FormElement
	case expand.RoleHTML:
		return ac.HTMLSnippet
	case expand.RoleUsername:
		return ac.UsernameInput
	case expand.RolePassword:
		return ac.PasswordInput
	case expand.RoleSubmit:
		return ac.SubmitButton
	}
	return ""
}
