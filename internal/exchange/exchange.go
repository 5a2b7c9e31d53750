package exchange

import (
	"context"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
	"github.com/MrSnakeDoc/groupmark/internal/index"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
	"github.com/MrSnakeDoc/groupmark/internal/migration"
	"github.com/MrSnakeDoc/groupmark/internal/service"
)

// Mode controls how an import meets the existing data.
type Mode string

const (
	// ModeReplace backs up the current data and swaps it out entirely.
	ModeReplace Mode = "replace"
	// ModeMerge appends the imported records, minting new ids on collision.
	ModeMerge Mode = "merge"
)

// ParseMode validates an import mode; empty means merge.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeMerge:
		return ModeMerge, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", fmt.Errorf("import mode %q: %w", s, domain.ErrValidation)
	}
}

// Backuper takes an immediate snapshot of the stored documents.
type Backuper interface {
	Backup() (string, error)
}

// Options labels exports.
type Options struct {
	Platform  string
	Workspace string
}

// Result describes a finished import.
type Result struct {
	Mode      Mode   `json:"mode"`
	Bookmarks int    `json:"bookmarks"`
	Groups    int    `json:"groups"`
	Relations int    `json:"relations"`
	Remapped  int    `json:"remapped"`
	Backup    string `json:"backup,omitempty"`
}

// Service exports and imports the data held by an index.
type Service struct {
	idx     *index.MemoryIndex
	actor   *service.Actor
	backups Backuper
	opts    Options
	logger  logger.Logger
	now     func() time.Time
}

func New(idx *index.MemoryIndex, actor *service.Actor, b Backuper, opts Options, log logger.Logger) *Service {
	if opts.Platform == "" {
		opts.Platform = "vscode"
	}
	return &Service{idx: idx, actor: actor, backups: b, opts: opts, logger: log, now: time.Now}
}

// Export snapshots the current data.
func (s *Service) Export() Document {
	release := s.actor.Hold()
	defer release()
	return Document{
		Version:    migration.CurrentVersion,
		Platform:   s.opts.Platform,
		Workspace:  s.opts.Workspace,
		ExportedAt: s.now().UTC().Format(time.RFC3339),
		Bookmarks:  s.idx.AllBookmarks(),
		Groups:     s.idx.AllGroups(),
		Relations:  s.idx.AllRelations(),
	}
}

// Import validates doc and applies it. Replace mode refuses to run when the
// safety backup fails.
func (s *Service) Import(_ context.Context, doc Document, mode Mode) (Result, error) {
	if err := doc.Validate(); err != nil {
		return Result{}, err
	}
	if !migration.Valid(doc.Version) || migration.Compare(doc.Version, migration.CurrentVersion) != 0 {
		return Result{}, fmt.Errorf("import document version %s, want %s: %w",
			doc.Version, migration.CurrentVersion, domain.ErrValidation)
	}

	var (
		res Result
		err error
	)
	switch mode {
	case ModeReplace:
		err = s.actor.Do(func() error {
			res, err = s.replace(doc)
			return err
		})
	case ModeMerge:
		err = s.actor.Do(func() error {
			res, err = s.merge(doc)
			return err
		})
	default:
		return Result{}, fmt.Errorf("import mode %q: %w", mode, domain.ErrValidation)
	}
	if err != nil {
		return Result{}, err
	}
	s.logger.Info("import finished",
		logger.String("mode", string(res.Mode)),
		logger.Int("bookmarks", res.Bookmarks),
		logger.Int("groups", res.Groups),
		logger.Int("relations", res.Relations),
		logger.Int("remapped", res.Remapped))
	return res, nil
}

func (s *Service) replace(doc Document) (Result, error) {
	name, err := s.backups.Backup()
	if err != nil {
		return Result{}, fmt.Errorf("backup before replace: %w", err)
	}
	if err := s.idx.ReplaceAll(doc.Bookmarks, doc.Groups, doc.Relations); err != nil {
		return Result{}, err
	}
	return Result{
		Mode:      ModeReplace,
		Bookmarks: len(doc.Bookmarks),
		Groups:    len(doc.Groups),
		Relations: len(doc.Relations),
		Backup:    name,
	}, nil
}

func (s *Service) merge(doc Document) (Result, error) {
	bookmarks := s.idx.AllBookmarks()
	groups := s.idx.AllGroups()
	relations := s.idx.AllRelations()

	takenBookmarks := mapset.NewThreadUnsafeSet[string]()
	for _, b := range bookmarks {
		takenBookmarks.Add(b.ID)
	}
	takenGroups := mapset.NewThreadUnsafeSet[string]()
	for _, g := range groups {
		takenGroups.Add(g.ID)
	}

	bookmarkIDs := make(map[string]string)
	for _, b := range doc.Bookmarks {
		if takenBookmarks.Contains(b.ID) {
			fresh := uuid.NewString()
			bookmarkIDs[b.ID] = fresh
			b.ID = fresh
		}
		bookmarks = append(bookmarks, b)
	}
	groupIDs := make(map[string]string)
	for _, g := range doc.Groups {
		if takenGroups.Contains(g.ID) {
			fresh := uuid.NewString()
			groupIDs[g.ID] = fresh
			g.ID = fresh
		}
		groups = append(groups, g)
	}
	for _, r := range doc.Relations {
		bid, gid := r.BookmarkID, r.GroupID
		if id, ok := bookmarkIDs[bid]; ok {
			bid = id
		}
		if id, ok := groupIDs[gid]; ok {
			gid = id
		}
		r.Rekey(bid, gid)
		relations = append(relations, r)
	}

	if err := s.idx.ReplaceAll(bookmarks, groups, relations); err != nil {
		return Result{}, err
	}
	return Result{
		Mode:      ModeMerge,
		Bookmarks: len(doc.Bookmarks),
		Groups:    len(doc.Groups),
		Relations: len(doc.Relations),
		Remapped:  len(bookmarkIDs) + len(groupIDs),
	}, nil
}
