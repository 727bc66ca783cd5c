// Package index holds one searchable index per module and answers ranked
// queries across them.
package index

import (
	"time"

	zlaunch "github.com/zortax/zlaunch"
)

// ActionKind selects what executing an entry does.
type ActionKind string

const (
	ActionLaunch    ActionKind = "launch"    // start Argv detached
	ActionCommand   ActionKind = "command"   // run Command with sh -c, or Argv when set
	ActionWindow    ActionKind = "window"    // focus WindowID
	ActionClipboard ActionKind = "clipboard" // copy history item ClipboardID back
	ActionCopy      ActionKind = "copy"      // copy Text
	ActionURL       ActionKind = "url"       // open URL
	ActionTheme     ActionKind = "theme"     // switch to Theme
)

// Action is the payload executed when an entry is chosen.
type Action struct {
	Kind        ActionKind
	Argv        []string
	Terminal    bool
	Command     string
	WindowID    string
	ClipboardID uint64
	Text        string
	// URL is a template containing {query} for search entries.
	URL     string
	Trigger string
	Theme   string
}

// Entry is one searchable candidate. Entries are never modified after a
// source produced them.
type Entry struct {
	ID       string
	Title    string
	Subtitle string
	Icon     string
	Module   zlaunch.Module
	Action   Action
}

// Index is one generation of a module's entries.
type Index struct {
	Module      zlaunch.Module
	Entries     []Entry
	RefreshedAt time.Time
	// Cost is how long the refresh took.
	Cost time.Duration
	// Stale is set when the last refresh failed. Entries is then empty.
	Stale bool
	Err   error
}

// Scored is an entry ranked against a query.
type Scored struct {
	Entry
	Score     int
	Positions []int
}

// Result converts s to its wire form.
func (s Scored) Result() zlaunch.Result {
	return zlaunch.Result{
		ID:        s.ID,
		Title:     s.Title,
		Subtitle:  s.Subtitle,
		Icon:      s.Icon,
		Module:    s.Module,
		Score:     s.Score,
		Positions: s.Positions,
	}
}
