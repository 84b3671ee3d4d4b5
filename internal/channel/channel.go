// Package channel resolves the distribution channel of an installed application.
//
// The channel is read once from the assets/channel_info entry of the
// application's package archive and then served from the application's
// preference store. Every failure collapses to DefaultChannel.
package channel

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/promeg/multichannel/internal/apk"
	"github.com/promeg/multichannel/internal/bus"
	"github.com/promeg/multichannel/internal/status"
	"go.uber.org/zap"
)

const (
	// CacheKey is the preference key holding the resolved channel.
	CacheKey = "com.github.promeg.multichannel.channel_info"
	// EntryName is the archive entry carrying the channel on its first line.
	EntryName = "assets/channel_info"
	// DefaultChannel is returned when no channel can be determined.
	DefaultChannel = "empty-channel"

	// EventResolved is published with the Record of every resolution.
	EventResolved = "channel.resolved"
)

// KeyValueStore is the preference store the channel is cached in.
type KeyValueStore interface {
	Get(key string) (value string, ok bool, err error)
	Put(key, value string) error
}

// Source says where a resolved value came from.
type Source string

const (
	SourceCached  Source = "cached"
	SourceArchive Source = "archive"
	SourceDefault Source = "default"
)

// Record is the outcome of one resolution.
type Record struct {
	Value   string
	Source  Source
	Outcome status.State
	// Err is the diagnostic behind a SourceDefault outcome, or a failed
	// cache write on the archive path. It is never returned to callers of Resolve.
	Err error
}

// Options tune line handling.
type Options struct {
	// KeepCarriageReturn keeps a trailing '\r' on the channel line.
	KeepCarriageReturn bool
}

// Resolver resolves channels with a cache-first, archive-fallback strategy.
type Resolver struct {
	opener apk.Opener
	logger *zap.Logger
	bus    *bus.Bus
	opts   Options
}

// NewResolver creates a resolver. A nil opener means apk.ZipOpener, a nil
// logger discards diagnostics, and b may be nil.
func NewResolver(opener apk.Opener, logger *zap.Logger, b *bus.Bus, opts Options) *Resolver {
	if opener == nil {
		opener = apk.ZipOpener{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		opener: opener,
		logger: logger,
		bus:    b,
		opts:   opts,
	}
}

var defaultResolver = NewResolver(nil, nil, nil, Options{})

// Resolve returns the channel for the archive at archivePath, consulting cache first.
func Resolve(cache KeyValueStore, archivePath string) string {
	return defaultResolver.Resolve(cache, archivePath).Value
}

// Resolve runs one resolution. It never fails: the returned record always
// carries a non-empty Value.
func (r *Resolver) Resolve(cache KeyValueStore, archivePath string) Record {
	m := status.NewMachine(r.bus)
	rec := r.resolve(m, cache, archivePath)
	rec.Outcome = m.Current()
	r.bus.Publish(bus.NewEvent(EventResolved, rec))
	return rec
}

func (r *Resolver) resolve(m *status.Machine, cache KeyValueStore, archivePath string) Record {
	cached, ok, err := cache.Get(CacheKey)
	if err != nil {
		r.logger.Warn("channel cache read failed", zap.Error(err))
	}
	if err == nil && ok && cached != "" {
		r.step(m, status.CacheHit)
		return Record{Value: cached, Source: SourceCached}
	}
	r.step(m, status.CacheMiss)
	r.step(m, status.ArchiveScan)

	line, err := r.scan(m, archivePath)
	if err != nil {
		var archErr *ArchiveError
		if errors.As(err, &archErr) {
			r.logger.Warn("channel archive unreadable", zap.String("archive", archivePath), zap.Error(err))
		} else {
			r.logger.Debug("no channel in archive", zap.String("archive", archivePath), zap.Error(err))
		}
		return Record{Value: DefaultChannel, Source: SourceDefault, Err: err}
	}

	rec := Record{Value: line, Source: SourceArchive}
	if err := cache.Put(CacheKey, line); err != nil {
		r.logger.Warn("channel cache write failed", zap.String("channel", line), zap.Error(err))
		rec.Err = err
	}
	return rec
}

// scan opens the archive, finds the channel entry and reads its first line.
// The archive is closed before scan returns.
func (r *Resolver) scan(m *status.Machine, archivePath string) (line string, err error) {
	a, err := r.opener.Open(archivePath)
	if err != nil {
		r.step(m, status.ArchiveError)
		return "", &ArchiveError{Op: "open", Path: archivePath, Err: err}
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			r.logger.Warn("closing channel archive", zap.String("archive", archivePath), zap.Error(cerr))
		}
	}()

	found := false
	for _, name := range a.Entries() {
		if name == EntryName {
			found = true
			break
		}
	}
	if !found {
		r.step(m, status.EntryNotFound)
		return "", ErrEntryNotFound
	}
	r.step(m, status.EntryFound)

	rc, err := a.OpenEntry(EntryName)
	if err != nil {
		r.step(m, status.ArchiveError)
		return "", &ArchiveError{Op: "read", Path: archivePath, Err: err}
	}
	defer func() { _ = rc.Close() }()

	line, err = firstLine(rc, r.opts.KeepCarriageReturn)
	if err != nil {
		r.step(m, status.ArchiveError)
		return "", &ArchiveError{Op: "read", Path: archivePath, Err: err}
	}
	r.step(m, status.LineRead)
	if line == "" {
		r.step(m, status.Empty)
		return "", ErrEmptyEntry
	}
	r.step(m, status.NonEmpty)
	return line, nil
}

func (r *Resolver) step(m *status.Machine, to status.State) {
	if err := m.Transition(to); err != nil {
		r.logger.Error("channel resolution state", zap.Error(err))
	}
}

// MaxLineBytes bounds the channel line. Longer lines are rejected rather
// than decompressed into memory.
const MaxLineBytes = 4 << 10

// firstLine reads up to the first '\n'. Content without a newline is one line.
// Only '\n' ends a line; a lone '\r' and Unicode line separators stay in the value.
func firstLine(rd io.Reader, keepCR bool) (string, error) {
	line, err := bufio.NewReader(io.LimitReader(rd, MaxLineBytes+1)).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	if err == io.EOF && len(line) > MaxLineBytes {
		return "", ErrLineTooLong
	}
	line = strings.TrimSuffix(line, "\n")
	if !keepCR {
		line = strings.TrimSuffix(line, "\r")
	}
	return line, nil
}
