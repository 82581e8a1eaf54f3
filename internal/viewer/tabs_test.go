package viewer

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"github.com/smileynet/caseview/internal/casedata"
	"github.com/smileynet/caseview/internal/selection"
)

func TestRenderTabs(t *testing.T) {
	entries := []casedata.Entry{{ID: "a", Name: "Alpha"}, {ID: "b"}, {ID: "c", Name: "Gamma"}}
	status := func(id string) selection.LoadStatus {
		if id == "c" {
			return selection.StatusFailed
		}
		return selection.StatusLoaded
	}

	got := stripANSI(renderTabs(entries, "a", status, 0))

	for _, want := range []string{"1 Alpha", "2 b", "3 Gamma" + FailedMarker} {
		if !strings.Contains(got, want) {
			t.Errorf("tabs %q missing %q", got, want)
		}
	}
}

func TestRenderTabs_NumbersOnlyFirstNine(t *testing.T) {
	var entries []casedata.Entry
	for _, id := range strings.Split("a b c d e f g h i j", " ") {
		entries = append(entries, casedata.Entry{ID: id, Name: id})
	}

	got := stripANSI(renderTabs(entries, "a", nil, 0))

	if !strings.Contains(got, "9 i") {
		t.Errorf("ninth tab should be numbered: %q", got)
	}
	if strings.Contains(got, "10 j") {
		t.Errorf("tenth tab should not be numbered: %q", got)
	}
}

func TestRenderTabs_Truncates(t *testing.T) {
	entries := []casedata.Entry{
		{ID: "a", Name: strings.Repeat("long name ", 5)},
		{ID: "b", Name: strings.Repeat("other ", 5)},
	}

	got := renderTabs(entries, "b", nil, 30)

	if w := ansi.StringWidth(got); w > 30 {
		t.Errorf("width = %d, want <= 30", w)
	}
	if !strings.HasSuffix(stripANSI(got), "…") {
		t.Errorf("truncated tabs should end with an ellipsis: %q", stripANSI(got))
	}
}

func TestRenderSelector(t *testing.T) {
	tc := &casedata.TestCase{ID: "tc1", Results: []casedata.Result{
		{ID: "r1", Name: "First"},
		{ID: "r2"},
	}}
	ctrl := selection.New([]casedata.Entry{{ID: "tc1"}, {ID: "tc2"}}, selection.WithLoaded(tc, &casedata.TestCase{ID: "tc2"}))
	ctrl.Start()

	if got := stripANSI(renderSelector(ctrl, "*", 0)); got != "◀ First (1/2) ▶" {
		t.Errorf("selector = %q", got)
	}

	ctrl.StepNext()
	if got := stripANSI(renderSelector(ctrl, "*", 0)); got != "◀ r2 (2/2) ▶" {
		t.Errorf("selector = %q, want result id as fallback name", got)
	}

	if _, err := ctrl.SelectTestCase("tc2"); err != nil {
		t.Fatal(err)
	}
	if got := stripANSI(renderSelector(ctrl, "*", 0)); got != "No results" {
		t.Errorf("selector = %q, want No results", got)
	}
}

func TestRenderSelector_Pending(t *testing.T) {
	ctrl := selection.New([]casedata.Entry{{ID: "tc1"}})
	ctrl.Start()

	got := stripANSI(renderSelector(ctrl, "*", 0))

	if got != "* Loading test case data..." {
		t.Errorf("selector = %q", got)
	}
}

func TestColumnWidths(t *testing.T) {
	tests := []struct {
		total, left, right int
	}{
		{0, 0, 0},
		{-5, 0, 0},
		{40, 20, 20},
		{80, 32, 48},
		{120, 48, 72},
		{200, 80, 120},
	}
	for _, tt := range tests {
		left, right := ColumnWidths(tt.total)
		if left != tt.left || right != tt.right {
			t.Errorf("ColumnWidths(%d) = %d, %d; want %d, %d", tt.total, left, right, tt.left, tt.right)
		}
	}
}
