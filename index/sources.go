package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	zlaunch "github.com/zortax/zlaunch"
	"github.com/zortax/zlaunch/clipboard"
	"github.com/zortax/zlaunch/compositor"
	defaults "github.com/zortax/zlaunch/default"
)

// WindowLister enumerates compositor windows.
type WindowLister interface {
	ListWindows(ctx context.Context) ([]compositor.Window, error)
}

// WindowSource turns the compositor's window list into entries.
type WindowSource struct {
	Lister WindowLister
}

func (s WindowSource) Load(ctx context.Context) ([]Entry, error) {
	windows, err := s.Lister.ListWindows(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(windows))
	for _, w := range windows {
		subtitle := appName(w.Class)
		if w.Workspace != 0 {
			subtitle = fmt.Sprintf("%s - Workspace %d", subtitle, w.Workspace)
		}
		entries = append(entries, Entry{
			ID:       "window-" + w.ID,
			Title:    w.Title,
			Subtitle: subtitle,
			Icon:     w.Class,
			Action:   Action{Kind: ActionWindow, WindowID: w.ID},
		})
	}
	return entries, nil
}

// appName turns "org.gnome.Nautilus" into "Nautilus".
func appName(class string) string {
	if i := strings.LastIndexByte(class, '.'); i >= 0 && i < len(class)-1 {
		class = class[i+1:]
	}
	r := []rune(class)
	if len(r) > 0 {
		r[0] = unicode.ToUpper(r[0])
	}
	return string(r)
}

// ClipboardSource snapshots the clipboard history, newest first.
type ClipboardSource struct {
	History *clipboard.History
}

func (s ClipboardSource) Load(context.Context) ([]Entry, error) {
	items := s.History.Snapshot()
	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, Entry{
			ID:       "clipboard-" + it.Key(),
			Title:    it.Preview(),
			Subtitle: it.At.Format("15:04:05"),
			Action:   Action{Kind: ActionClipboard, ClipboardID: it.ID},
		})
	}
	return entries, nil
}

type emojiRecord struct {
	Emoji string `json:"emoji"`
	Name  string `json:"name"`
}

// EmojiSource serves the embedded emoji table.
type EmojiSource struct{}

func (EmojiSource) Load(context.Context) ([]Entry, error) {
	var records []emojiRecord
	if err := json.Unmarshal(defaults.EmojiJSON, &records); err != nil {
		return nil, fmt.Errorf("emoji table: %w", err)
	}
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		var id strings.Builder
		id.WriteString("emoji")
		for _, c := range r.Emoji {
			fmt.Fprintf(&id, "-%x", c)
		}
		entries = append(entries, Entry{
			ID:     id.String(),
			Title:  r.Name,
			Icon:   r.Emoji,
			Action: Action{Kind: ActionCopy, Text: r.Emoji},
		})
	}
	return entries, nil
}

type builtinAction struct {
	id, name, icon string
	argv           []string
}

var builtinActions = []builtinAction{
	{"shutdown", "Shut Down", "system-shutdown", []string{"systemctl", "poweroff"}},
	{"reboot", "Reboot", "system-reboot", []string{"systemctl", "reboot"}},
	{"suspend", "Suspend", "system-suspend", []string{"systemctl", "suspend"}},
	{"lock", "Lock Screen", "system-lock-screen", []string{"loginctl", "lock-session"}},
	{"logout", "Log Out", "system-log-out", []string{"loginctl", "terminate-session", "self"}},
}

// ActionSource lists the built-in system actions followed by the
// configured ones.
type ActionSource struct {
	Custom []zlaunch.ActionConfig
}

func (s ActionSource) Load(context.Context) ([]Entry, error) {
	entries := make([]Entry, 0, len(builtinActions)+len(s.Custom))
	for _, a := range builtinActions {
		entries = append(entries, Entry{
			ID:     "action-" + a.id,
			Title:  a.name,
			Icon:   a.icon,
			Action: Action{Kind: ActionCommand, Argv: a.argv},
		})
	}
	for i, a := range s.Custom {
		if strings.TrimSpace(a.Command) == "" {
			continue
		}
		entries = append(entries, Entry{
			ID:       fmt.Sprintf("action-custom-%d", i),
			Title:    a.Name,
			Subtitle: a.Command,
			Icon:     a.Icon,
			Action:   Action{Kind: ActionCommand, Command: a.Command},
		})
	}
	return entries, nil
}

// ThemeSource lists the available themes.
type ThemeSource struct {
	List func() ([]zlaunch.ThemeInfo, error)
}

func (s ThemeSource) Load(context.Context) ([]Entry, error) {
	themes, err := s.List()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(themes))
	for _, t := range themes {
		subtitle := "custom"
		if t.Bundled {
			subtitle = "bundled"
		}
		if t.Active {
			subtitle += ", active"
		}
		entries = append(entries, Entry{
			ID:       "theme-" + t.Name,
			Title:    t.Name,
			Subtitle: subtitle,
			Action:   Action{Kind: ActionTheme, Theme: t.Name},
		})
	}
	return entries, nil
}
