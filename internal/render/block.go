// Package render decides how a single text field is presented: in full, or
// height-constrained behind an expand/collapse toggle.
package render

import (
	"unicode/utf8"

	"github.com/Bahjat/auth-insight-tool/internal/expand"
)

// DefaultThreshold is the length, in characters, above which a block gets a
// toggle.
const DefaultThreshold = 500

const (
	expandLabel   = "▼ Expand to see full content"
	collapseLabel = "▲ Collapse"
)

// Expander reports the expand state of a block. *expand.Registry satisfies it.
type Expander interface {
	IsExpanded(key expand.Key) bool
}

// Block is the presentation of one content field.
// Content always holds the complete field text; only the visual height of a
// block is ever limited, never its data.
type Block struct {
	Key      expand.Key
	Content  string
	Long     bool // content exceeds the threshold; a toggle is offered
	Expanded bool
}

// Constrained reports whether the block must be drawn with limited height.
func (b Block) Constrained() bool {
	return b.Long && !b.Expanded
}

// HasToggle reports whether a toggle control accompanies the block.
func (b Block) HasToggle() bool {
	return b.Long
}

// ToggleLabel names the action the toggle performs, or "" when the block has
// no toggle.
func (b Block) ToggleLabel() string {
	switch {
	case !b.Long:
		return ""
	case b.Expanded:
		return collapseLabel
	default:
		return expandLabel
	}
}

// Anchor is the HTML id of the block.
func (b Block) Anchor() string {
	return b.Key.Anchor()
}

// Renderer builds Blocks, consulting an Expander for long content.
type Renderer struct {
	threshold int
	expander  Expander
}

// New returns a Renderer. A threshold below 1 selects DefaultThreshold.
func New(threshold int, expander Expander) *Renderer {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Renderer{threshold: threshold, expander: expander}
}

// Render returns the block for content under key, or nil when content is
// empty. Length is counted in characters (runes), not bytes.
func (r *Renderer) Render(content string, key expand.Key) *Block {
	if content == "" {
		return nil
	}

	b := &Block{Key: key, Content: content}
	if utf8.RuneCountInString(content) <= r.threshold {
		return b
	}

	b.Long = true
	b.Expanded = r.expander != nil && r.expander.IsExpanded(key)
	return b
}
