package store

import (
	"path/filepath"
	"testing"

	"github.com/promeg/multichannel/internal/channel"
)

var _ channel.KeyValueStore = (*Preferences)(nil)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.db")
	db, _, err := OpenMigrated(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
	if result.Dirty {
		t.Error("schema is dirty after migration")
	}
}

func TestFreshMigrateReportsChange(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if !result.Changed {
		t.Error("first Migrate() should report Changed=true")
	}
}

func TestGetMissing(t *testing.T) {
	p := testDB(t).Preferences(DefaultFile("main"))

	v, ok, err := p.Get(channel.CacheKey)
	if err != nil {
		t.Fatal(err)
	}
	if ok || v != "" {
		t.Errorf("Get() = %q, %v; want absent", v, ok)
	}
}

func TestPutLastWriteWins(t *testing.T) {
	p := testDB(t).Preferences(DefaultFile("main"))

	for _, v := range []string{"play", "huawei"} {
		if err := p.Put(channel.CacheKey, v); err != nil {
			t.Fatalf("Put(%q) error = %v", v, err)
		}
	}

	v, ok, err := p.Get(channel.CacheKey)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || v != "huawei" {
		t.Errorf("Get() = %q, %v; want huawei", v, ok)
	}

	all, err := p.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("All() has %d keys, want 1", len(all))
	}
}

func TestFilesAreIsolated(t *testing.T) {
	db := testDB(t)
	a := db.Preferences(DefaultFile("a"))
	b := db.Preferences(DefaultFile("b"))

	if err := a.Put(channel.CacheKey, "play"); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := b.Get(channel.CacheKey); err != nil || ok {
		t.Errorf("file b sees key written to file a (ok=%v, err=%v)", ok, err)
	}
}

func TestRemove(t *testing.T) {
	p := testDB(t).Preferences("prefs")

	if err := p.Put("k", "v"); err != nil {
		t.Fatal(err)
	}
	if err := p.Remove("k"); err != nil {
		t.Fatal(err)
	}
	if err := p.Remove("k"); err != nil {
		t.Errorf("second Remove() error = %v", err)
	}
	if _, ok, _ := p.Get("k"); ok {
		t.Error("key still present after Remove()")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")

	db, _, err := OpenMigrated(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Preferences("main_preferences").Put(channel.CacheKey, "play"); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, _, err = OpenMigrated(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	v, ok, err := db.Preferences("main_preferences").Get(channel.CacheKey)
	if err != nil || !ok || v != "play" {
		t.Errorf("Get() after reopen = %q, %v, %v; want play", v, ok, err)
	}
}

func TestResolverWritesThroughStore(t *testing.T) {
	p := testDB(t).Preferences(DefaultFile("main"))
	missing := filepath.Join(t.TempDir(), "missing.apk")

	if got := channel.Resolve(p, missing); got != channel.DefaultChannel {
		t.Errorf("Resolve() = %q, want %q", got, channel.DefaultChannel)
	}
	if all, _ := p.All(); len(all) != 0 {
		t.Errorf("store = %v after default outcome, want empty", all)
	}

	if err := p.Put(channel.CacheKey, "play"); err != nil {
		t.Fatal(err)
	}
	if got := channel.Resolve(p, missing); got != "play" {
		t.Errorf("Resolve() = %q, want cached play", got)
	}
}
