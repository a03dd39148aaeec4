package models

import (
	"fmt"
	"strings"
)

// LocatorKind tags how a Locator value is interpreted by the browser
type LocatorKind string

const (
	// LocateCSS is a CSS selector (querySelectorAll)
	LocateCSS LocatorKind = "css"
	// LocateXPath is an XPath expression
	LocateXPath LocatorKind = "xpath"
	// LocateText matches elements (optionally of Tag) whose text contains Value, case-insensitive
	LocateText LocatorKind = "text"
)

// Locator is one way of finding a logical UI element
type Locator struct {
	Kind  LocatorKind
	Value string
	Tag   string // only used by LocateText; empty means any element
}

// CSS builds a CSS locator
func CSS(selector string) Locator {
	return Locator{Kind: LocateCSS, Value: selector}
}

// XPath builds an XPath locator
func XPath(expr string) Locator {
	return Locator{Kind: LocateXPath, Value: expr}
}

// Text builds a text-content locator restricted to tag (empty for any element)
func Text(tag, text string) Locator {
	return Locator{Kind: LocateText, Value: text, Tag: tag}
}

func (l Locator) String() string {
	if l.Kind == LocateText && l.Tag != "" {
		return fmt.Sprintf("text(%s:%q)", l.Tag, l.Value)
	}
	if l.Kind == LocateText {
		return fmt.Sprintf("text(%q)", l.Value)
	}
	return fmt.Sprintf("%s(%s)", l.Kind, l.Value)
}

// SelectorStrategy is an ordered, prioritized list of locators for one logical element.
// Locators are evaluated in order; the first visible match wins.
type SelectorStrategy struct {
	Name     string
	Locators []Locator

	// RequireText skips matches whose text is blank, such as an empty error span
	RequireText bool
}

// NewStrategy builds a named strategy from locators in priority order
func NewStrategy(name string, locators ...Locator) SelectorStrategy {
	return SelectorStrategy{Name: name, Locators: locators}
}

// WithText returns a copy of s that only matches elements with visible text
func (s SelectorStrategy) WithText() SelectorStrategy {
	s.RequireText = true
	return s
}

func (s SelectorStrategy) String() string {
	parts := make([]string, len(s.Locators))
	for i, l := range s.Locators {
		parts[i] = l.String()
	}
	return s.Name + "[" + strings.Join(parts, ", ") + "]"
}

// ElementState is a non-blocking snapshot of one element matched by a locator
type ElementState struct {
	Index   int
	Visible bool
	Text    string
	Value   string
}

// Element is a located element: the locator that matched and the element index within it
type Element struct {
	Strategy string
	Locator  Locator
	Index    int
	Text     string
}
