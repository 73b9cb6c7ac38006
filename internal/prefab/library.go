package prefab

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"mirgo/internal/asset"
	"mirgo/internal/engine"
)

// Saved is passed to Library.OnSaved listeners after a successful save.
type Saved struct {
	AssetID  string
	Revision asset.Revision
	Previous asset.Revision
}

// Library is the shared cache of prefab documents in front of a Store. It
// is safe for concurrent use.
//
// Documents returned by Load are immutable snapshots shared by every
// caller; clone them before making changes. A save swaps in a new snapshot,
// so readers never observe a half written document. Saves of one asset are
// serialized by Update.
type Library struct {
	store asset.Store
	log   logrus.FieldLogger

	mu     sync.Mutex
	assets map[string]*libraryEntry

	// OnSaved fires on the saving goroutine. Add listeners before the
	// library is shared.
	OnSaved engine.EventWithArg[Saved]
}

// maxHistory is how many revisions of one asset a Library keeps. Instances
// built from an older revision reconcile from their recorded modifications.
const maxHistory = 16

type libraryEntry struct {
	write sync.Mutex

	// guarded by Library.mu
	doc     *asset.Document
	rev     asset.Revision
	history map[asset.Revision]*asset.Document
	order   []asset.Revision
}

// remember adds a revision to the history, evicting the oldest ones past
// maxHistory.
func (e *libraryEntry) remember(rev asset.Revision, doc *asset.Document) {
	if _, ok := e.history[rev]; !ok {
		e.order = append(e.order, rev)
	}
	e.history[rev] = doc
	for len(e.order) > maxHistory {
		delete(e.history, e.order[0])
		e.order = e.order[1:]
	}
}

func NewLibrary(store asset.Store, log logrus.FieldLogger) *Library {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Library{
		store:  store,
		log:    log,
		assets: make(map[string]*libraryEntry),
	}
}

func (l *Library) Store() asset.Store { return l.store }

func (l *Library) entry(id string) *libraryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.assets[id]
	if !ok {
		e = &libraryEntry{history: make(map[asset.Revision]*asset.Document)}
		l.assets[id] = e
	}
	return e
}

// Load returns the current snapshot of an asset, reading it from the store
// on first use.
func (l *Library) Load(id string) (*asset.Document, asset.Revision, error) {
	e := l.entry(id)

	l.mu.Lock()
	doc, rev := e.doc, e.rev
	l.mu.Unlock()
	if doc != nil {
		return doc, rev, nil
	}
	return l.read(id, e)
}

func (l *Library) read(id string, e *libraryEntry) (*asset.Document, asset.Revision, error) {
	doc, rev, err := l.store.Load(id)
	if err != nil {
		return nil, "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e.doc != nil && e.rev == rev {
		return e.doc, e.rev, nil
	}
	e.doc, e.rev = doc, rev
	e.remember(rev, doc)
	l.log.WithFields(logrus.Fields{"asset": id, "revision": rev.Short()}).Debug("prefab loaded")
	return doc, rev, nil
}

// Revision returns a snapshot of an earlier revision, if this library has
// seen it.
func (l *Library) Revision(id string, rev asset.Revision) (*asset.Document, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.assets[id]
	if !ok {
		return nil, false
	}
	doc, ok := e.history[rev]
	return doc, ok
}

// Update runs fn with the current snapshot of an asset (nil if it does not
// exist yet) and saves the document fn returns. fn must not modify cur.
// Other writers of the same asset wait until the save completes; a failed
// save leaves the cached snapshot unchanged.
func (l *Library) Update(id string, fn func(cur *asset.Document, rev asset.Revision) (*asset.Document, error)) (asset.Revision, error) {
	e := l.entry(id)
	e.write.Lock()
	defer e.write.Unlock()

	cur, rev, err := l.Load(id)
	if err != nil && !errors.Is(err, asset.ErrNotFound) {
		return "", err
	}

	next, err := fn(cur, rev)
	if err != nil {
		return "", err
	}

	newRev, err := l.store.Save(id, next)
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	e.doc, e.rev = next, newRev
	e.remember(newRev, next)
	l.mu.Unlock()

	l.log.WithFields(logrus.Fields{
		"asset":    id,
		"revision": newRev.Short(),
		"previous": rev.Short(),
	}).Info("prefab saved")
	l.OnSaved.Invoke(Saved{AssetID: id, Revision: newRev, Previous: rev})
	return newRev, nil
}

// Create saves a new asset. It fails if id already exists.
func (l *Library) Create(id string, doc *asset.Document) (asset.Revision, error) {
	return l.Update(id, func(cur *asset.Document, _ asset.Revision) (*asset.Document, error) {
		if cur != nil {
			return nil, fmt.Errorf("create %s: %w", id, ErrAssetExists)
		}
		return doc, nil
	})
}

// Refresh rereads an asset from the store, picking up changes made by
// another process. It reports whether the revision changed.
func (l *Library) Refresh(id string) (bool, error) {
	e := l.entry(id)
	e.write.Lock()
	defer e.write.Unlock()

	l.mu.Lock()
	before := e.rev
	l.mu.Unlock()

	_, rev, err := l.read(id, e)
	if err != nil {
		return false, err
	}
	return rev != before, nil
}
