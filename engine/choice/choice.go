// Package choice resolves choice options into presentation groups.
package choice

import (
	"github.com/nathoo/sceneweaver/engine/condition"
	"github.com/nathoo/sceneweaver/types"
)

// Group is a set of options rendered together.
type Group struct {
	Class   types.ChoiceClass
	Options []types.ChoiceOption
}

// Blocking reports whether the interpreter waits on this group.
func (g Group) Blocking() bool {
	return g.Class == types.ClassDefault
}

// groupOrder is the order groups are handed to the presenter.
var groupOrder = []types.ChoiceClass{
	types.ClassTab,
	types.ClassSidebar,
	types.ClassFloating,
	types.ClassPositioned,
	types.ClassDefault,
}

// ClassOf returns the effective class of an option. A Default option with
// an explicit layout is positioned.
func ClassOf(opt types.ChoiceOption) types.ChoiceClass {
	if opt.Class == types.ClassDefault && opt.Layout != nil {
		return types.ClassPositioned
	}
	return opt.Class
}

// Visible returns the options whose visibility condition holds.
func Visible(options []types.ChoiceOption, env condition.Env) []types.ChoiceOption {
	var result []types.ChoiceOption
	for _, opt := range options {
		if condition.Evaluate(opt.Visible, env) {
			result = append(result, opt)
		}
	}
	return result
}

// Resolve filters options by visibility and partitions them by class.
// Empty groups are omitted; source order is kept within each group.
func Resolve(options []types.ChoiceOption, env condition.Env) []Group {
	byClass := map[types.ChoiceClass][]types.ChoiceOption{}
	for _, opt := range Visible(options, env) {
		c := ClassOf(opt)
		byClass[c] = append(byClass[c], opt)
	}

	var groups []Group
	for _, c := range groupOrder {
		if opts := byClass[c]; len(opts) > 0 {
			groups = append(groups, Group{Class: c, Options: opts})
		}
	}
	return groups
}

// HasBlocking reports whether any group needs the player to commit.
func HasBlocking(groups []Group) bool {
	for _, g := range groups {
		if g.Blocking() {
			return true
		}
	}
	return false
}

// ClassName returns the presentation name of a class.
func ClassName(c types.ChoiceClass) string {
	switch c {
	case types.ClassTab:
		return "tab"
	case types.ClassSidebar:
		return "sidebar"
	case types.ClassFloating:
		return "floating"
	case types.ClassPositioned:
		return "positioned"
	default:
		return "default"
	}
}

// ParseClass maps a presentation name back to a class. Unknown names are
// Default.
func ParseClass(name string) types.ChoiceClass {
	switch name {
	case "tab", "TAB":
		return types.ClassTab
	case "sidebar", "menu", "MENU":
		return types.ClassSidebar
	case "floating", "FLOATING":
		return types.ClassFloating
	case "positioned":
		return types.ClassPositioned
	default:
		return types.ClassDefault
	}
}
