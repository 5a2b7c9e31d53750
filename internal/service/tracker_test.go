package service

import (
	"context"
	"testing"
)

func TestTextChange(t *testing.T) {
	tests := []struct {
		name      string
		change    TextChange
		net       int
		threshold int
	}{
		{"typing on a line", TextChange{StartLine: 3, StartCharacter: 4, EndLine: 3, Text: "x"}, 0, 3},
		{"newline at column 0", TextChange{StartLine: 5, EndLine: 5, Text: "\n\n"}, 2, 5},
		{"newline mid-line", TextChange{StartLine: 5, StartCharacter: 2, EndLine: 5, Text: "\n"}, 1, 6},
		{"delete two lines", TextChange{StartLine: 5, StartCharacter: 2, EndLine: 7}, -2, 5},
		{"replace with fewer", TextChange{StartLine: 1, EndLine: 4, Text: "a\nb"}, -2, 1},
		{"crlf", TextChange{StartLine: 0, EndLine: 0, Text: "a\r\nb\r\n"}, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.change.NetLines(); got != tt.net {
				t.Errorf("NetLines = %d, want %d", got, tt.net)
			}
			if got := tt.change.Threshold(); got != tt.threshold {
				t.Errorf("Threshold = %d, want %d", got, tt.threshold)
			}
		})
	}
}

func TestApplyEditScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.group(t, "g")
	b := f.mark(t, "x.ts", 20, g.ID, "t")

	// Two lines inserted at the start of line 5.
	if _, err := f.Tracker.ApplyEdit(ctx, "x.ts", []TextChange{{StartLine: 5, EndLine: 5, Text: "a\nb\n"}}); err != nil {
		t.Fatal(err)
	}
	if got, _ := f.Bookmarks.GetBookmark(b.ID); got.Line != 22 {
		t.Fatalf("after first edit line = %d, want 22", got.Line)
	}

	// Enter pressed in the middle of line 20: threshold 21, bookmark at 22 moves.
	if _, err := f.Tracker.ApplyEdit(ctx, "x.ts", []TextChange{{StartLine: 20, StartCharacter: 4, EndLine: 20, Text: "\n"}}); err != nil {
		t.Fatal(err)
	}
	if got, _ := f.Bookmarks.GetBookmark(b.ID); got.Line != 23 {
		t.Fatalf("after second edit line = %d, want 23", got.Line)
	}
}

func TestApplyEditMidLineKeepsCurrentLine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.group(t, "g")
	b := f.mark(t, "x.ts", 21, g.ID, "t")

	if _, err := f.Tracker.ApplyEdit(ctx, "x.ts", []TextChange{{StartLine: 20, StartCharacter: 4, EndLine: 20, Text: "\n"}}); err != nil {
		t.Fatal(err)
	}
	if got, _ := f.Bookmarks.GetBookmark(b.ID); got.Line != 21 {
		t.Errorf("line = %d, want 21", got.Line)
	}
}

func TestApplyEditSkipsUnmarkedFilesAndNoops(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.group(t, "g")
	f.mark(t, "x.ts", 20, g.ID, "t")

	notified := 0
	f.idx.SubscribeBookmarks(func() { notified++ })

	n, err := f.Tracker.ApplyEdit(ctx, "other.ts", []TextChange{{StartLine: 0, EndLine: 0, Text: "\n"}})
	if err != nil || n != 0 {
		t.Fatalf("unmarked file = %d, %v", n, err)
	}
	n, err = f.Tracker.ApplyEdit(ctx, "x.ts", []TextChange{{StartLine: 0, EndLine: 0, Text: "abc"}})
	if err != nil || n != 0 {
		t.Fatalf("same-line edit = %d, %v", n, err)
	}
	n, err = f.Tracker.ApplyEdit(ctx, "x.ts", []TextChange{{StartLine: 30, EndLine: 30, Text: "\n"}})
	if err != nil || n != 0 {
		t.Fatalf("edit below bookmark = %d, %v", n, err)
	}
	if notified != 0 {
		t.Errorf("bookmarks notified %d times", notified)
	}
}

func TestApplyEditMultipleChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	g := f.group(t, "g")
	b := f.mark(t, "x.ts", 50, g.ID, "t")

	// Changes arrive bottom-up.
	changes := []TextChange{
		{StartLine: 40, EndLine: 40, Text: "\n\n\n"},
		{StartLine: 10, EndLine: 12},
	}
	n, err := f.Tracker.ApplyEdit(ctx, "x.ts", changes)
	if err != nil || n != 2 {
		t.Fatalf("ApplyEdit = %d, %v", n, err)
	}
	if got, _ := f.Bookmarks.GetBookmark(b.ID); got.Line != 51 {
		t.Errorf("line = %d, want 51", got.Line)
	}
}
