package service

import (
	"context"
	"strings"

	"github.com/MrSnakeDoc/groupmark/internal/logger"
)

// TextChange is one replaced range of a document edit. Lines are 0-based
// as the editor reports them.
type TextChange struct {
	StartLine      int    `json:"startLine" validate:"gte=0"`
	StartCharacter int    `json:"startCharacter" validate:"gte=0"`
	EndLine        int    `json:"endLine" validate:"gtefield=StartLine"`
	Text           string `json:"text"`
}

// NetLines is the number of lines the change adds (negative when it
// removes lines).
func (c TextChange) NetLines() int {
	return strings.Count(c.Text, "\n") - (c.EndLine - c.StartLine)
}

// Threshold is the last bookmark line, 1-based, that the change leaves in
// place. An insertion that starts mid-line keeps the bookmark on that line.
func (c TextChange) Threshold() int {
	threshold := c.StartLine
	if c.StartCharacter > 0 && c.NetLines() > 0 {
		threshold++
	}
	return threshold
}

// Tracker keeps bookmarks on their lines while documents are edited.
type Tracker struct {
	bookmarks *BookmarkService
	logger    logger.Logger
}

// ApplyEdit shifts the bookmarks of fileURI for each change, in the order
// given. It returns how many bookmark moves were made in total.
func (t *Tracker) ApplyEdit(ctx context.Context, fileURI string, changes []TextChange) (int, error) {
	if len(changes) == 0 || !t.bookmarks.idx.HasBookmarksInFile(fileURI) {
		return 0, nil
	}
	moved := 0
	for _, c := range changes {
		net := c.NetLines()
		if net == 0 {
			continue
		}
		n, err := t.bookmarks.ShiftBookmarks(ctx, fileURI, c.Threshold(), net)
		if err != nil {
			return moved, err
		}
		moved += n
	}
	if moved > 0 {
		t.logger.Debug("bookmarks shifted",
			logger.String("file", fileURI),
			logger.Int("count", moved))
	}
	return moved, nil
}
