package daemon

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/promeg/multichannel/internal/api"
	"github.com/promeg/multichannel/internal/bus"
	"github.com/promeg/multichannel/internal/channel"
	"github.com/promeg/multichannel/internal/client"
	"github.com/promeg/multichannel/internal/lock"
	"github.com/promeg/multichannel/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func writeAPK(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "base.apk")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create(channel.EntryName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDaemonServesChannel(t *testing.T) {
	// Use a short path to avoid macOS 104-char Unix socket limit.
	tmpDir, err := os.MkdirTemp("/tmp", "mc-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	profileDir := filepath.Join(tmpDir, "main")
	socketPath := filepath.Join(tmpDir, "d.sock")

	lk, err := lock.Acquire(profileDir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lk.Release() }()

	db, _, err := store.OpenMigrated(filepath.Join(profileDir, "prefs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	prefs := db.Preferences(store.DefaultFile("main"))

	archive := writeAPK(t, tmpDir, "play\r\nsecond line")
	resolver := channel.NewResolver(nil, zap.NewNop(), bus.New(), channel.Options{})
	svc := api.NewChannelService(resolver, prefs, archive)

	srv, err := NewServer(Params{Profile: "main", SocketPath: socketPath}, zap.NewNop(), svc)
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Start() }()
	defer srv.Stop(context.Background())

	time.Sleep(50 * time.Millisecond)

	c, err := client.New(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	desc, err := c.DescribeChannel(ctx)
	if err != nil {
		t.Fatalf("DescribeChannel error = %v", err)
	}
	if desc.Value != "play" || desc.Source != string(channel.SourceArchive) {
		t.Errorf("first describe = %+v, want play from archive", desc)
	}
	if desc.Archive != archive {
		t.Errorf("archive = %q, want %q", desc.Archive, archive)
	}

	got, err := c.GetChannel(ctx)
	if err != nil {
		t.Fatalf("GetChannel error = %v", err)
	}
	if got != "play" {
		t.Errorf("GetChannel = %q, want play", got)
	}

	desc, err = c.DescribeChannel(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if desc.Source != string(channel.SourceCached) {
		t.Errorf("source = %q after first call, want cached", desc.Source)
	}

	cached, ok, err := prefs.Get(channel.CacheKey)
	if err != nil || !ok || cached != "play" {
		t.Errorf("store holds %q (ok=%v, err=%v), want play", cached, ok, err)
	}
}

func TestDaemonReportsDefault(t *testing.T) {
	tmpDir, err := os.MkdirTemp("/tmp", "mc-default-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	socketPath := filepath.Join(tmpDir, "d.sock")
	db, _, err := store.OpenMigrated(filepath.Join(tmpDir, "prefs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	prefs := db.Preferences(store.DefaultFile("main"))

	svc := api.NewChannelService(channel.NewResolver(nil, zap.NewNop(), nil, channel.Options{}), prefs, filepath.Join(tmpDir, "missing.apk"))
	srv, err := NewServer(Params{Profile: "main", SocketPath: socketPath}, zap.NewNop(), svc)
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Start() }()
	defer srv.Stop(context.Background())
	time.Sleep(50 * time.Millisecond)

	c, err := client.New(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	desc, err := c.DescribeChannel(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if desc.Value != channel.DefaultChannel || desc.Outcome != "ARCHIVE_ERROR" {
		t.Errorf("describe = %+v, want default with ARCHIVE_ERROR", desc)
	}
	if desc.Diagnostic == "" {
		t.Error("diagnostic is empty for an unreadable archive")
	}
	if all, _ := prefs.All(); len(all) != 0 {
		t.Errorf("store = %v, want empty after default outcome", all)
	}
}

// TestFxModuleWiring verifies the fx dependency graph resolves without
// running any constructor.
func TestFxModuleWiring(t *testing.T) {
	p := Params{Profile: "fxtest", Archive: "/tmp/none.apk", SocketPath: "/tmp/none.sock"}
	if err := fx.ValidateApp(Module(p), fx.NopLogger); err != nil {
		t.Fatalf("fx.ValidateApp() error = %v", err)
	}
}

func TestNewServerReplacesStaleSocket(t *testing.T) {
	tmpDir, err := os.MkdirTemp("/tmp", "mc-stale-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	socketPath := filepath.Join(tmpDir, "d.sock")
	if err := os.WriteFile(socketPath, []byte("stale"), 0600); err != nil {
		t.Fatal(err)
	}

	svc := api.NewChannelService(channel.NewResolver(nil, nil, nil, channel.Options{}), nil, "")
	srv, err := NewServer(Params{Profile: "stale", SocketPath: socketPath}, zap.NewNop(), svc)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	defer srv.Stop(context.Background())

	info, err := os.Stat(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSocket == 0 {
		t.Errorf("%s is not a socket", socketPath)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("socket permission = %o, want 0600", perm)
	}
}
