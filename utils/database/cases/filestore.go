package cases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"modlog-bot/model"
)

const (
	casePrefix = "case_"
	caseSuffix = ".json"
)

// FileStore keeps one indented JSON file per case under
// <root>/<guildID>/case_<id>.json.
type FileStore struct {
	root string
}

// OpenFileStore returns a store rooted at dir, creating it if needed.
func OpenFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating case directory %s: %w", dir, err)
	}
	return &FileStore{root: dir}, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) guildDir(guildID string) string {
	return filepath.Join(s.root, guildID)
}

func (s *FileStore) casePath(guildID string, caseID int) string {
	return filepath.Join(s.guildDir(guildID), fmt.Sprintf("%s%d%s", casePrefix, caseID, caseSuffix))
}

// caseIDFromName returns the id encoded in a case file name.
func caseIDFromName(name string) (int, bool) {
	if !strings.HasPrefix(name, casePrefix) || !strings.HasSuffix(name, caseSuffix) {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, casePrefix), caseSuffix))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *FileStore) caseFiles(guildID string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(s.guildDir(guildID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	files := entries[:0]
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasPrefix(e.Name(), casePrefix) && strings.HasSuffix(e.Name(), caseSuffix) {
			files = append(files, e)
		}
	}
	return files, nil
}

func (s *FileStore) NextID(ctx context.Context, guildID string) (int, error) {
	files, err := s.caseFiles(guildID)
	if err != nil {
		return 0, storageErr("count", guildID, 0, err)
	}
	return len(files) + 1, nil
}

// CaseIDs returns the ids named by the guild's case files, readable or not.
func (s *FileStore) CaseIDs(ctx context.Context, guildID string) ([]int, error) {
	files, err := s.caseFiles(guildID)
	if err != nil {
		return nil, storageErr("list ids", guildID, 0, err)
	}
	ids := make([]int, 0, len(files))
	for _, f := range files {
		if id, ok := caseIDFromName(f.Name()); ok {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (s *FileStore) Create(ctx context.Context, c model.Case) error {
	if err := s.write(c); err != nil {
		return storageErr("create", c.GuildID, c.CaseID, err)
	}
	return nil
}

// write replaces the case file through a temp file and rename so readers
// never see a half-written record.
func (s *FileStore) write(c model.Case) error {
	dir := s.guildDir(c.GuildID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if c.EndTime != nil {
		t := c.EndTime.UTC()
		c.EndTime = &t
	}
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".case-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.casePath(c.GuildID, c.CaseID))
}

func (s *FileStore) Read(ctx context.Context, guildID string, caseID int) (model.Case, error) {
	data, err := os.ReadFile(s.casePath(guildID, caseID))
	if errors.Is(err, fs.ErrNotExist) {
		return model.Case{}, notFound(guildID, caseID)
	}
	if err != nil {
		return model.Case{}, storageErr("read", guildID, caseID, err)
	}
	var c model.Case
	if err := json.Unmarshal(data, &c); err != nil {
		return model.Case{}, storageErr("read", guildID, caseID, fmt.Errorf("error unmarshalling case: %w", err))
	}
	normalize(&c, guildID, caseID)
	return c, nil
}

func (s *FileStore) Update(ctx context.Context, guildID string, caseID int, mutate Mutator) (model.Case, error) {
	c, err := s.Read(ctx, guildID, caseID)
	if err != nil {
		return model.Case{}, err
	}
	if err := mutate(&c); err != nil {
		return model.Case{}, err
	}
	normalize(&c, guildID, caseID)
	if err := s.write(c); err != nil {
		return model.Case{}, storageErr("update", guildID, caseID, err)
	}
	return c, nil
}

func (s *FileStore) Delete(ctx context.Context, guildID string, caseID int) error {
	err := os.Remove(s.casePath(guildID, caseID))
	if errors.Is(err, fs.ErrNotExist) {
		return notFound(guildID, caseID)
	}
	if err != nil {
		return storageErr("delete", guildID, caseID, err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context, guildID string) ([]model.Case, error) {
	files, err := s.caseFiles(guildID)
	if err != nil {
		return nil, storageErr("list", guildID, 0, err)
	}

	records := make([]model.Case, 0, len(files))
	var errs []error
	for _, f := range files {
		id, ok := caseIDFromName(f.Name())
		if !ok {
			continue
		}
		c, err := s.Read(ctx, guildID, id)
		if err != nil {
			// Deleted between ReadDir and Read.
			if errors.Is(err, ErrNotFound) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		records = append(records, c)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CaseID < records[j].CaseID })
	return records, errors.Join(errs...)
}

func (s *FileStore) ListGuilds(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, storageErr("list guilds", "*", 0, err)
	}
	var guilds []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			guilds = append(guilds, e.Name())
		}
	}
	return guilds, nil
}
