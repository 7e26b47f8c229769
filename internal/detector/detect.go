package detector

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/Bahjat/auth-insight-tool/internal/model"
)

const (
	maxContainerDepth = 10
	maxFallbackDepth  = 5
)

var (
	// containerUserKeywords identify a username field while deciding which
	// ancestor of a password input is the login container.
	containerUserKeywords = []string{"user", "login", "email", "account", "phone"}
	containerHintKeywords = []string{"email", "phone", "user", "account"}

	// The username search inside the chosen container is a little broader.
	userNameKeywords    = []string{"user", "login", "email", "account", "phone", "mobile"}
	userHintKeywords    = []string{"email", "phone", "user", "account", "username"}
	userAriaKeywords    = []string{"email", "phone", "user", "account"}
	autocompleteHints   = []string{"username", "email", "tel"}
	authContainerHints  = []string{"login", "signin", "sign-in", "auth", "authentication", "form"}
	submitAttrKeywords  = []string{"submit", "login", "sign"}
	submitTextKeywords  = []string{"sign in", "login", "log in", "submit", "continue", "next"}
	loginTextMarkersLow = []string{"password", "login"}
)

type nodeMatcher func(*html.Node) bool

// DetectAuth parses an HTML document and locates its login form. A page
// without any password input yields Found=false.
func DetectAuth(body io.Reader, base *url.URL) (model.AuthComponent, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return model.AuthComponent{}, fmt.Errorf("parse html: %w", err)
	}

	passwords := findAll(doc, isPasswordInput)
	if len(passwords) == 0 {
		return model.AuthComponent{Found: false}, nil
	}

	container, form := locateContainer(passwords)

	comp := model.AuthComponent{
		Found:       true,
		HTMLSnippet: renderNode(container),
		FormElement: renderNode(form),
		Method:      "GET",
		Action:      base.String(),
	}

	comp.UsernameInput = renderNode(findUsername(container))
	comp.PasswordInput = renderNode(findFirst(container, isPasswordInput))
	comp.SubmitButton = renderNode(findSubmit(container))

	if form != nil {
		if m := strings.TrimSpace(attr(form, "method")); m != "" {
			comp.Method = strings.ToUpper(m)
		}
		if a := strings.TrimSpace(attr(form, "action")); a != "" {
			if ref, err := url.Parse(a); err == nil {
				comp.Action = base.ResolveReference(ref).String()
			}
		}
	}

	return comp, nil
}

// locateContainer picks the element holding the login form. container is
// always non-nil; form is nil only when the grandparent fallback was used.
func locateContainer(passwords []*html.Node) (container, form *html.Node) {
	for _, pw := range passwords {
		if f := closestAncestor(pw, func(n *html.Node) bool { return isElement(n, "form") }); f != nil {
			return f, f
		}

		depth := 0
		for p := pw.Parent; isElementNode(p) && p.Data != "body" && depth < maxContainerDepth; p = p.Parent {
			depth++

			hasPassword := findFirst(p, isPasswordInput) != nil
			if hasPassword && hasUsernameCandidate(p) {
				return p, p
			}
			if hasPassword && hasAuthHint(p) {
				return p, p
			}
		}
	}

	first := passwords[0]
	p := first.Parent
	for range maxFallbackDepth {
		if !isElementNode(p) {
			break
		}
		if len(findAll(p, func(n *html.Node) bool { return isElement(n, "input") })) >= 2 {
			return p, p
		}
		p = p.Parent
	}

	switch {
	case first.Parent != nil && isElementNode(first.Parent.Parent):
		return first.Parent.Parent, nil
	case isElementNode(first.Parent):
		return first.Parent, nil
	default:
		return first, nil
	}
}

func hasUsernameCandidate(n *html.Node) bool {
	matchers := []nodeMatcher{
		inputWithType("text"),
		inputWithType("email"),
		inputAttrContains("name", containerUserKeywords),
		inputAttrContains("id", containerUserKeywords),
		inputAttrContains("placeholder", containerHintKeywords),
		inputAttrContains("aria-label", containerHintKeywords),
	}
	for _, m := range matchers {
		if findFirst(n, m) != nil {
			return true
		}
	}
	return false
}

func hasAuthHint(n *html.Node) bool {
	class := strings.ToLower(attr(n, "class"))
	id := strings.ToLower(attr(n, "id"))
	for _, k := range authContainerHints {
		if strings.Contains(class, k) || strings.Contains(id, k) {
			return true
		}
	}
	return false
}

func findUsername(container *html.Node) *html.Node {
	matchers := []nodeMatcher{
		inputWithType("text"),
		inputWithType("email"),
		inputWithType("tel"),
		inputAttrContains("name", userNameKeywords),
		inputAttrContains("id", userNameKeywords),
		inputAttrContains("placeholder", userHintKeywords),
		inputAttrContains("aria-label", userAriaKeywords),
		inputAttrContains("autocomplete", autocompleteHints),
	}
	for _, m := range matchers {
		if n := findFirst(container, m); n != nil {
			return n
		}
	}
	return nil
}

func findSubmit(container *html.Node) *html.Node {
	typeIs := func(want string) nodeMatcher {
		return func(n *html.Node) bool { return strings.EqualFold(attr(n, "type"), want) }
	}
	attrHas := func(key string) nodeMatcher {
		return func(n *html.Node) bool {
			return typeIs("button")(n) && containsAny(strings.ToLower(attr(n, key)), submitAttrKeywords)
		}
	}

	for _, pattern := range []nodeMatcher{typeIs("submit"), attrHas("class"), attrHas("id"), attrHas("name")} {
		for _, tag := range []string{"input", "button"} {
			if n := findFirst(container, func(n *html.Node) bool { return isElement(n, tag) && pattern(n) }); n != nil {
				return n
			}
		}
	}

	for _, b := range findAll(container, func(n *html.Node) bool { return isElement(n, "button") }) {
		if containsAny(strings.ToLower(textContent(b)), submitTextKeywords) {
			return b
		}
	}
	return nil
}

// looksLikeLoginPage is a cheap check on raw HTML used after navigating to a
// guessed login path.
func looksLikeLoginPage(page string) bool {
	return containsAny(strings.ToLower(page), loginTextMarkersLow)
}

func isPasswordInput(n *html.Node) bool {
	return isElement(n, "input") && strings.EqualFold(attr(n, "type"), "password")
}

func inputWithType(t string) nodeMatcher {
	return func(n *html.Node) bool {
		return isElement(n, "input") && strings.EqualFold(attr(n, "type"), t)
	}
}

func inputAttrContains(key string, keywords []string) nodeMatcher {
	return func(n *html.Node) bool {
		if !isElement(n, "input") {
			return false
		}
		v := strings.ToLower(attr(n, key))
		return v != "" && containsAny(v, keywords)
	}
}

func isElementNode(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

func isElement(n *html.Node, tag string) bool {
	return isElementNode(n) && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func closestAncestor(n *html.Node, match nodeMatcher) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if match(p) {
			return p
		}
	}
	return nil
}

// findFirst returns the first descendant of root (document order) matching m.
func findFirst(root *html.Node, match nodeMatcher) *html.Node {
	if root == nil {
		return nil
	}
	for n := range root.Descendants() {
		if match(n) {
			return n
		}
	}
	return nil
}

func findAll(root *html.Node, match nodeMatcher) []*html.Node {
	var out []*html.Node
	for n := range root.Descendants() {
		if match(n) {
			out = append(out, n)
		}
	}
	return out
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	for d := range n.Descendants() {
		if d.Type == html.TextNode {
			sb.WriteString(d.Data)
		}
	}
	return sb.String()
}

func renderNode(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return ""
	}
	return strings.TrimSpace(sb.String())
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
