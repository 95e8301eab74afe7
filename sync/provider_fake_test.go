package sync

import (
	"context"
	"sort"

	"github.com/adbsync/adbsync/fs"
	"github.com/adbsync/adbsync/internal/ignore"
)

// fakeProvider is an in-memory tree used by the engine tests. Mutations apply
// to the in-memory state so that a second run over the same pair observes the
// outcome of the first.
type fakeProvider struct {
	root     string
	location fs.Location

	entries map[string]*fs.Entry
	digests map[string]string

	// peer receives files on TransferInto
	peer *fakeProvider

	ops         []string
	renames     [][2]string
	failRenames bool
}

func newFakeProvider(root string, loc fs.Location) *fakeProvider {
	return &fakeProvider{
		root:     root,
		location: loc,
		entries:  map[string]*fs.Entry{},
		digests:  map[string]string{},
	}
}

func (p *fakeProvider) addFile(name string, size, mtime int64, digest string) {
	p.entries[name] = &fs.Entry{Name: name, Kind: fs.KindFile, Size: size, ModTime: fs.TruncateModTime(mtime)}
	p.digests[name] = digest
}

func (p *fakeProvider) addDir(name string, mtime int64) {
	p.entries[name] = &fs.Entry{Name: name, Kind: fs.KindDirectory, ModTime: fs.TruncateModTime(mtime)}
}

func (p *fakeProvider) addSymlink(name string, mtime int64) {
	p.entries[name] = &fs.Entry{Name: name, Kind: fs.KindSymlink, ModTime: fs.TruncateModTime(mtime)}
}

func (p *fakeProvider) listing() fs.Entries {
	names := make([]string, 0, len(p.entries))
	for n := range p.entries {
		names = append(names, n)
	}

	sort.Strings(names)

	result := make(fs.Entries, 0, len(names))
	for _, n := range names {
		e := *p.entries[n]
		result = append(result, &e)
	}

	return result
}

func (p *fakeProvider) Root() string          { return p.root }
func (p *fakeProvider) Location() fs.Location { return p.location }

func (p *fakeProvider) EnsureRoot(ctx context.Context, isDestination bool) (bool, error) {
	return true, nil
}

type fakeListJob struct{ p *fakeProvider }

func (j fakeListJob) Wait(ctx context.Context) (fs.Entries, error) {
	return j.p.listing(), nil
}

func (p *fakeProvider) BeginList(ctx context.Context, followSymlinks bool, excl *ignore.Matcher) (fs.ListJob, error) {
	return fakeListJob{p}, nil
}

type fakeDigestJob struct {
	p       *fakeProvider
	entries fs.Entries
}

func (j fakeDigestJob) Wait(ctx context.Context) ([]string, error) {
	result := make([]string, 0, len(j.entries))
	for _, e := range j.entries {
		result = append(result, j.p.digests[e.Name])
	}

	return result, nil
}

func (p *fakeProvider) BeginDigest(ctx context.Context, entries fs.Entries, progress fs.DigestProgress) (fs.DigestJob, error) {
	var total int64
	for _, e := range entries {
		total += e.Size
	}

	progress.EstimatedDigestBytes(total)
	progress.DigestedBytes(total)

	return fakeDigestJob{p: p, entries: entries}, nil
}

func (p *fakeProvider) TransferInto(ctx context.Context, e *fs.Entry, otherRoot string) error {
	p.ops = append(p.ops, "transfer "+e.Name)

	cp := *e
	p.peer.entries[e.Name] = &cp
	p.peer.digests[e.Name] = p.digests[e.Name]

	return nil
}

func (p *fakeProvider) Remove(ctx context.Context, name string) error {
	p.ops = append(p.ops, "rm "+name)
	delete(p.entries, name)
	delete(p.digests, name)

	return nil
}

func (p *fakeProvider) RemoveDir(ctx context.Context, name string) error {
	p.ops = append(p.ops, "rmdir "+name)
	delete(p.entries, name)

	return nil
}

func (p *fakeProvider) MakeDir(ctx context.Context, name string) error {
	p.ops = append(p.ops, "mkdir "+name)
	p.entries[name] = &fs.Entry{Name: name, Kind: fs.KindDirectory}

	return nil
}

func (p *fakeProvider) Rename(ctx context.Context, oldName, newName string) bool {
	if p.failRenames {
		return false
	}

	p.renames = append(p.renames, [2]string{oldName, newName})

	if e, ok := p.entries[oldName]; ok {
		delete(p.entries, oldName)
		e.Name = newName
		p.entries[newName] = e
		p.digests[newName] = p.digests[oldName]
		delete(p.digests, oldName)
	}

	return true
}

func (p *fakeProvider) SetModTime(ctx context.Context, name string, mtime int64) error {
	p.ops = append(p.ops, "touch "+name)

	if e, ok := p.entries[name]; ok {
		e.ModTime = fs.TruncateModTime(mtime)
	}

	return nil
}

var _ fs.Provider = (*fakeProvider)(nil)
