// Package zlaunch defines the control protocol types for the zlaunch daemon.
// Messages are JSON-encoded and sent over a Unix domain socket, one request
// and one response per connection, each terminated by a newline.
package zlaunch

// Command names accepted by the control endpoint.
const (
	CommandShow     = "show"
	CommandHide     = "hide"
	CommandToggle   = "toggle"
	CommandQuit     = "quit"
	CommandReload   = "reload"
	CommandTheme    = "theme"
	CommandStatus   = "status"
	CommandQuery    = "query"
	CommandRefresh  = "refresh"
	CommandNextMode = "next-mode"
	CommandPrevMode = "prev-mode"
	CommandSetQuery = "set-query"
	CommandActivate = "activate"
	CommandAsk      = "ask"
)

// Theme actions carried in Request.Action for the theme command.
const (
	ThemeActionGet  = ""
	ThemeActionList = "list"
	ThemeActionSet  = "set"
)

// Request is sent from a client to the daemon.
type Request struct {
	// Command is one of the Command* constants.
	Command string `json:"command"`
	// Modes optionally restricts show/toggle/query to the named modes.
	Modes []string `json:"modes,omitempty"`
	// Action is the sub-operation for commands that have one (theme).
	Action string `json:"action,omitempty"`
	// Name is the argument of the action (theme name for "set").
	Name string `json:"name,omitempty"`
	// Query is the search text for query, set-query and ask.
	Query string `json:"query,omitempty"`
	// Module names a single module for refresh. Empty means all modules.
	Module string `json:"module,omitempty"`
	// ID is the entry identifier for activate.
	ID string `json:"id,omitempty"`
	// Limit caps the number of results. Zero means no limit.
	Limit int `json:"limit,omitempty"`
}

// State is a snapshot of the daemon's session.
type State struct {
	// Visible reports whether the picker is shown.
	Visible bool `json:"visible"`
	// Mode is the active mode.
	Mode Mode `json:"mode"`
	// Modes is the ordered mode-cycle list. Never empty.
	Modes []Mode `json:"modes"`
	// Query is the current query text.
	Query string `json:"query"`
	// Selection is the selection cursor within the current results.
	Selection int `json:"selection"`
	// Generation increases on every transition that invalidates in-flight results.
	Generation uint64 `json:"generation"`
}

// Result is one ranked entry.
type Result struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Icon     string `json:"icon,omitempty"`
	Module   Module `json:"module"`
	Score    int    `json:"score"`
	// Positions are rune offsets into Title matched by the query.
	Positions []int `json:"positions,omitempty"`
}

// ThemeInfo describes one available theme.
type ThemeInfo struct {
	Name    string `json:"name"`
	Bundled bool   `json:"bundled"`
	Active  bool   `json:"active"`
}

// Response is sent from the daemon back to the client.
type Response struct {
	// OK is true when the command succeeded.
	OK bool `json:"ok"`
	// State is the session after the command, for session commands.
	State *State `json:"state,omitempty"`
	// Theme is the active theme name (theme get and set).
	Theme string `json:"theme,omitempty"`
	// Themes lists available themes (theme list).
	Themes []ThemeInfo `json:"themes,omitempty"`
	// Results holds ranked entries (query, set-query).
	Results []Result `json:"results,omitempty"`
	// Text holds free-form output (ask).
	Text string `json:"text,omitempty"`
	// Warnings contains configuration warnings (reload).
	Warnings []string `json:"warnings,omitempty"`
	// Error is set when the daemon cannot fulfill the request.
	Error *Error `json:"error,omitempty"`
}

// OKResponse returns a successful empty response.
func OKResponse() *Response {
	return &Response{OK: true}
}

// ErrorResponse converts err into a failed response.
func ErrorResponse(err error) *Response {
	return &Response{Error: AsError(err)}
}
