package credentials

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

func TestUIDNameRoundTrip(t *testing.T) {
	uid := os.Getuid()
	name, err := UIDToName(uid)
	if err != nil {
		t.Fatal(err)
	}
	got, err := NameToUID(name)
	if err != nil {
		t.Fatal(err)
	}
	if got != uid {
		t.Fatalf("NameToUID(UIDToName(%d)) = %d, want %d", uid, got, uid)
	}
}

func TestGIDNameRoundTrip(t *testing.T) {
	gid := os.Getgid()
	name, err := GIDToName(gid)
	if err != nil {
		t.Fatal(err)
	}
	got, err := NameToGID(name)
	if err != nil {
		t.Fatal(err)
	}
	if got != gid {
		t.Fatalf("NameToGID(GIDToName(%d)) = %d, want %d", gid, got, gid)
	}
}

func TestNameToUIDUnknown(t *testing.T) {
	_, err := NameToUID("no-such-user-should-exist-xyz")
	if err == nil {
		t.Fatal("expected LookupError for unknown user")
	}
	if _, ok := err.(*LookupError); !ok {
		t.Fatalf("err = %T, want *LookupError", err)
	}
}

func TestNameToGIDUnknown(t *testing.T) {
	_, err := NameToGID("no-such-group-should-exist-xyz")
	if err == nil {
		t.Fatal("expected LookupError for unknown group")
	}
}

func TestCreateDirectoryCreatesNew(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub")
	uid, gid := os.Getuid(), os.Getgid()

	if err := CreateDirectory(path, uid, gid); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Fatal("expected directory")
	}
	if info.Mode().Perm() != 0755 {
		t.Fatalf("mode = %v, want 0755", info.Mode().Perm())
	}
}

func TestCreateDirectoryIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub")
	uid, gid := os.Getuid(), os.Getgid()

	if err := CreateDirectory(path, uid, gid); err != nil {
		t.Fatal(err)
	}
	if err := CreateDirectory(path, uid, gid); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	sys := info.Sys().(*syscall.Stat_t)
	if int(sys.Uid) != uid || int(sys.Gid) != gid {
		t.Fatalf("owner = %d:%d, want %d:%d", sys.Uid, sys.Gid, uid, gid)
	}
}

func TestCreateDirectoryRejectsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "afile")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	err := CreateDirectory(path, os.Getuid(), os.Getgid())
	if err == nil {
		t.Fatal("expected error when path exists and is not a directory")
	}
}

func TestWorkingDirectory(t *testing.T) {
	wd, err := WorkingDirectory()
	if err != nil {
		t.Fatal(err)
	}
	if wd == "" {
		t.Fatal("expected non-empty working directory")
	}
}
