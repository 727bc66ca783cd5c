package index

import (
	"slices"
	"testing"
)

func TestParseExec(t *testing.T) {
	ec := ExecContext{Name: "Files", Icon: "org.gnome.Nautilus", Path: "/usr/share/applications/nautilus.desktop"}
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"plain", "firefox", []string{"firefox"}},
		{"url code dropped", "firefox %u", []string{"firefox"}},
		{"file list dropped", "code --new-window %F", []string{"code", "--new-window"}},
		{"deprecated codes dropped", "app %d %D %n %N %v %m", []string{"app"}},
		{"icon expands to flag", "nautilus %i", []string{"nautilus", "--icon", "org.gnome.Nautilus"}},
		{"name and path", "app --class=%c --desktop=%k", []string{"app", "--class=Files", "--desktop=/usr/share/applications/nautilus.desktop"}},
		{"embedded code removed", "app --file=%f", []string{"app", "--file="}},
		{"literal percent", "printf 100%%", []string{"printf", "100%"}},
		{"double quotes", `sh -c "echo hello world"`, []string{"sh", "-c", "echo hello world"}},
		{"single quotes", `env 'A=b c' app`, []string{"env", "A=b c", "app"}},
		{"variables kept", `sh -c "echo $HOME"`, []string{"sh", "-c", "echo $HOME"}},
		{"unbalanced quote falls back", `app "broken`, []string{"app", `"broken`}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseExec(tt.input, ec)
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParseExec(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseExecIconWithoutIcon(t *testing.T) {
	got := ParseExec("app %i", ExecContext{})
	if !slices.Equal(got, []string{"app"}) {
		t.Errorf("got %q, want [app]", got)
	}
}

func TestTerminalArgv(t *testing.T) {
	t.Setenv("TERMINAL", "kitty --single-instance")
	got := TerminalArgv([]string{"htop"})
	want := []string{"kitty", "--single-instance", "-e", "htop"}
	if !slices.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}

	t.Setenv("TERMINAL", "")
	got = TerminalArgv([]string{"htop"})
	if !slices.Equal(got, []string{"xterm", "-e", "htop"}) {
		t.Errorf("got %q", got)
	}
}
