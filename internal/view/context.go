// Package view holds the view-state engine: a reconciler that merges
// asynchronously produced state into one committed context and emits
// consistent snapshots, and a projector that derives the UI-facing details
// from that context.
package view

import (
	"github.com/patchdeck/patchdeck/internal/patch"
	"github.com/patchdeck/patchdeck/internal/prefs"
)

// Context is the committed view state. It is owned by the Reconciler and
// never handed out by reference; consumers only ever see snapshots.
type Context struct {
	Patch       patch.Patch
	Preferences prefs.Prefs
	Visible     bool
}

// Update is a sparse overlay over Context: only set fields are merged.
// Patch identity is the staleness key, so patches are compared by pointer,
// never by value.
type Update struct {
	Patch       patch.Patch // non-nil replaces the patch
	ClearPatch  bool        // explicitly unsets the patch
	Preferences *prefs.Prefs
	Visible     *bool
}

// isEmpty reports whether the update touches nothing.
func (u Update) isEmpty() bool {
	return u.Patch == nil && !u.ClearPatch && u.Preferences == nil && u.Visible == nil
}

// changes reports whether applying u to base would alter it.
func (u Update) changes(base Context) bool {
	if u.ClearPatch && base.Patch != nil {
		return true
	}
	if u.Patch != nil && u.Patch != base.Patch {
		return true
	}
	if u.Preferences != nil && *u.Preferences != base.Preferences {
		return true
	}
	if u.Visible != nil && *u.Visible != base.Visible {
		return true
	}
	return false
}

// apply merges u into base, last writer wins per field.
func (u Update) apply(base *Context) {
	if u.ClearPatch {
		base.Patch = nil
	} else if u.Patch != nil {
		base.Patch = u.Patch
	}
	if u.Preferences != nil {
		base.Preferences = *u.Preferences
	}
	if u.Visible != nil {
		base.Visible = *u.Visible
	}
}

// merge folds next into u, field by field.
func (u *Update) merge(next Update) {
	if next.ClearPatch {
		u.Patch = nil
		u.ClearPatch = true
	} else if next.Patch != nil {
		u.Patch = next.Patch
		u.ClearPatch = false
	}
	if next.Preferences != nil {
		p := *next.Preferences
		u.Preferences = &p
	}
	if next.Visible != nil {
		v := *next.Visible
		u.Visible = &v
	}
}
