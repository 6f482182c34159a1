package widgets

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"go-fragseq/fragment"
	"go-fragseq/render"
	"go-fragseq/theme"
)

func positioned(t *testing.T, name string, start, dur time.Duration) *fragment.Fragment {
	t.Helper()
	f, err := fragment.NewPositioned(name, dur, start, nil)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestTimelineLanes(t *testing.T) {
	a := positioned(t, "alpha", 0, 500*time.Millisecond)
	b := positioned(t, "beta", 250*time.Millisecond, 500*time.Millisecond)
	fr, err := render.Lanes([]*fragment.Fragment{a, b}, 0, time.Second, render.Options{})
	if err != nil {
		t.Fatal(err)
	}

	tl := NewTimeline(theme.New(nil), 40)
	tl.SetFrame(fr)
	if tl.Rows() != 2 {
		t.Fatalf("rows = %d, want 2", tl.Rows())
	}

	tests := []struct {
		x, y int
		want *fragment.Fragment
	}{
		{5, 0, a},
		{19, 0, a},
		{20, 0, nil},
		{10, 1, b},
		{29, 1, b},
		{35, 1, nil},
		{-1, 0, nil},
		{0, 2, nil},
	}
	for _, tt := range tests {
		v, ok := tl.HitTest(tt.x, tt.y)
		if tt.want == nil {
			if ok {
				t.Errorf("HitTest(%d, %d) = %s, want none", tt.x, tt.y, v.Name)
			}
			continue
		}
		if !ok || v.Fragment != tt.want {
			t.Errorf("HitTest(%d, %d) missed %s", tt.x, tt.y, tt.want.Name())
		}
	}

	lines := strings.Split(ansi.Strip(tl.View()), "\n")
	if len(lines) != 2 {
		t.Fatalf("view has %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "alpha") {
		t.Errorf("lane 0 = %q", lines[0])
	}
	for i, l := range lines {
		if w := ansi.StringWidth(l); w != 40 {
			t.Errorf("line %d width = %d", i, w)
		}
	}
}

func TestTimelineQueueLabels(t *testing.T) {
	long, _ := fragment.New("abcdefghij", 100*time.Millisecond, nil)
	rest, _ := fragment.New("b", 900*time.Millisecond, nil)
	fr, err := render.Queue([]*fragment.Fragment{long, rest}, 0, time.Second, render.Options{})
	if err != nil {
		t.Fatal(err)
	}

	th := theme.New(nil)
	tl := NewTimeline(th, 40)
	tl.SetFrame(fr)

	want := "abc…b" + strings.Repeat(string(th.Symbols.Inactive), 35)
	if got := ansi.Strip(tl.View()); got != want {
		t.Errorf("view = %q, want %q", got, want)
	}
}

func TestTimelineWideLabel(t *testing.T) {
	f, _ := fragment.New("日本語", time.Second, nil)
	fr, err := render.Queue([]*fragment.Fragment{f}, 0, time.Second, render.Options{})
	if err != nil {
		t.Fatal(err)
	}

	tl := NewTimeline(theme.New(nil), 5)
	tl.SetFrame(fr)
	got := ansi.Strip(tl.View())
	if !strings.HasPrefix(got, "日本…") || ansi.StringWidth(got) != 5 {
		t.Errorf("view = %q", got)
	}
	if v, ok := tl.HitTest(1, 0); !ok || v.Fragment != f {
		t.Error("right half of a wide rune is not hit")
	}
}

func TestRenderKeyLine(t *testing.T) {
	got := RenderKeyLine([]KeyBinding{{"p", "play"}, {"q", "quit"}})
	if got != "p:play  q:quit" {
		t.Errorf("RenderKeyLine = %q", got)
	}
}
