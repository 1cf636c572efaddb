package vfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/andrejsk/clouddrive/internal/common"
	"github.com/andrejsk/clouddrive/internal/logging"
	"github.com/andrejsk/clouddrive/internal/server/models"
	"github.com/andrejsk/clouddrive/internal/server/objstore"
)

const owner = "u-1"

func newTestService(t *testing.T) (*Service, *objstore.Memory) {
	t.Helper()
	mem := objstore.NewMemory()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewService(objstore.StaticScope{Store: mem}, logger), mem
}

func putFile(t *testing.T, mem *objstore.Memory, key, content string) {
	t.Helper()
	if err := mem.Put(context.Background(), key, strings.NewReader(content), int64(len(content))); err != nil {
		t.Fatalf("put %q: %v", key, err)
	}
}

func putMarker(t *testing.T, mem *objstore.Memory, key string) {
	t.Helper()
	if err := mem.Put(context.Background(), key, nil, 0); err != nil {
		t.Fatalf("put marker %q: %v", key, err)
	}
}

// --- listing ---

func TestList_FoldersFirstCaseInsensitive(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	// Insertion order deliberately scrambled.
	putFile(t, mem, "private/u-1/zeta.txt", "z")
	putFile(t, mem, "private/u-1/Alpha.txt", "a")
	putMarker(t, mem, "private/u-1/beta/")
	putMarker(t, mem, "private/u-1/Work/")
	putFile(t, mem, "private/u-1/Work/inner.txt", "i")

	items, err := svc.List(ctx, owner, nil)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}

	var got []string
	for _, it := range items {
		got = append(got, string(it.Type)+":"+it.Name)
	}
	want := []string{"folder:beta", "folder:Work", "file:Alpha.txt", "file:zeta.txt"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestList_SkipsOwnMarkerAndFillsFileMetadata(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	putMarker(t, mem, "private/u-1/docs/")
	putFile(t, mem, "private/u-1/docs/a.txt", "hello")

	items, err := svc.List(ctx, owner, []string{"docs"})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d: %+v", len(items), items)
	}
	it := items[0]
	if it.Name != "a.txt" || it.Type != models.ItemTypeFile || it.Size != 5 || it.ContentTag == "" {
		t.Fatalf("unexpected item: %+v", it)
	}
}

func TestList_InvalidLocationRejectedBeforeIO(t *testing.T) {
	svc, mem := newTestService(t)

	_, err := svc.List(context.Background(), owner, []string{".."})
	if !errors.Is(err, common.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if mem.ListCalls != 0 {
		t.Fatalf("expected no store calls, got %d", mem.ListCalls)
	}
}

// --- path validation ---

func TestValidatePath_File(t *testing.T) {
	svc, mem := newTestService(t)
	putFile(t, mem, "private/u-1/docs/a.txt", "x")

	info, err := svc.ValidatePath(context.Background(), owner, []string{"docs", "a.txt"})
	if err != nil {
		t.Fatalf("ValidatePath error: %v", err)
	}
	if !info.Valid || info.Type != models.ItemTypeFile {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestValidatePath_MarkerOnlyFolder(t *testing.T) {
	svc, mem := newTestService(t)
	putMarker(t, mem, "private/u-1/empty/")

	info, err := svc.ValidatePath(context.Background(), owner, []string{"empty"})
	if err != nil {
		t.Fatalf("ValidatePath error: %v", err)
	}
	if !info.Valid || info.Type != models.ItemTypeFolder {
		t.Fatalf("expected valid folder, got %+v", info)
	}
}

func TestValidatePath_FolderWithoutMarker(t *testing.T) {
	svc, mem := newTestService(t)
	putFile(t, mem, "private/u-1/implied/child.txt", "x")

	info, err := svc.ValidatePath(context.Background(), owner, []string{"implied"})
	if err != nil {
		t.Fatalf("ValidatePath error: %v", err)
	}
	if !info.Valid || info.Type != models.ItemTypeFolder {
		t.Fatalf("expected valid folder, got %+v", info)
	}
}

func TestValidatePath_Absent(t *testing.T) {
	svc, _ := newTestService(t)

	info, err := svc.ValidatePath(context.Background(), owner, []string{"nothing"})
	if err != nil {
		t.Fatalf("ValidatePath error: %v", err)
	}
	if info.Valid || info.Type != "" {
		t.Fatalf("expected invalid path, got %+v", info)
	}
}

func TestValidatePath_Root(t *testing.T) {
	svc, _ := newTestService(t)

	info, err := svc.ValidatePath(context.Background(), owner, nil)
	if err != nil {
		t.Fatalf("ValidatePath error: %v", err)
	}
	if !info.Valid || info.Type != models.ItemTypeFolder {
		t.Fatalf("expected root to validate as folder, got %+v", info)
	}
}

// --- folder create ---

func TestCreateFolder_WritesMarker(t *testing.T) {
	svc, mem := newTestService(t)

	if err := svc.CreateFolder(context.Background(), owner, []string{"docs"}, "new"); err != nil {
		t.Fatalf("CreateFolder error: %v", err)
	}
	if !mem.Exists("private/u-1/docs/new/") {
		t.Fatalf("marker not written: %v", mem.Keys())
	}
}

func TestCreateFolder_ExistingIsConflict(t *testing.T) {
	svc, mem := newTestService(t)
	putMarker(t, mem, "private/u-1/docs/")

	err := svc.CreateFolder(context.Background(), owner, nil, "docs")
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestFolderExists(t *testing.T) {
	svc, mem := newTestService(t)
	putMarker(t, mem, "private/u-1/docs/")

	ok, err := svc.FolderExists(context.Background(), owner, nil, "docs")
	if err != nil || !ok {
		t.Fatalf("expected folder to exist, got ok=%v err=%v", ok, err)
	}

	ok, err = svc.FolderExists(context.Background(), owner, nil, "other")
	if err != nil || ok {
		t.Fatalf("expected folder to be absent, got ok=%v err=%v", ok, err)
	}
}

// --- rename / move ---

func TestRename_File(t *testing.T) {
	svc, mem := newTestService(t)
	putFile(t, mem, "private/u-1/a.txt", "x")

	res, err := svc.Rename(context.Background(), owner, models.ItemTypeFile, "a.txt", "b.txt", nil)
	if err != nil {
		t.Fatalf("Rename error: %v", err)
	}
	if !res.AllOK() || res.Succeeded != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if mem.Exists("private/u-1/a.txt") || !mem.Exists("private/u-1/b.txt") {
		t.Fatalf("unexpected keys: %v", mem.Keys())
	}
}

func TestRename_FolderRewritesAllDescendants(t *testing.T) {
	svc, mem := newTestService(t)
	putMarker(t, mem, "private/u-1/old/")
	putFile(t, mem, "private/u-1/old/a.txt", "a")
	putFile(t, mem, "private/u-1/old/sub/b.txt", "b")

	res, err := svc.Rename(context.Background(), owner, models.ItemTypeFolder, "old", "new", nil)
	if err != nil {
		t.Fatalf("Rename error: %v", err)
	}
	if !res.AllOK() || res.Total != 3 || res.Succeeded != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}

	for _, key := range []string{"private/u-1/new/", "private/u-1/new/a.txt", "private/u-1/new/sub/b.txt"} {
		if !mem.Exists(key) {
			t.Fatalf("missing destination key %q: %v", key, mem.Keys())
		}
	}
	for _, key := range mem.Keys() {
		if strings.HasPrefix(key, "private/u-1/old/") {
			t.Fatalf("source key %q survived rename", key)
		}
	}
}

func TestRename_PartialCopyFailureKeepsSources(t *testing.T) {
	svc, mem := newTestService(t)

	// Five descendant keys in lexicographic order.
	keys := []string{
		"private/u-1/dir/f1.txt",
		"private/u-1/dir/f2.txt",
		"private/u-1/dir/f3.txt",
		"private/u-1/dir/f4.txt",
		"private/u-1/dir/f5.txt",
	}
	for _, k := range keys {
		putFile(t, mem, k, "data")
	}

	copies := 0
	mem.CopyHook = func(src, dst string) error {
		copies++
		if copies == 3 {
			return fmt.Errorf("simulated copy failure for %s", src)
		}
		return nil
	}

	res, err := svc.Rename(context.Background(), owner, models.ItemTypeFolder, "dir", "moved", nil)
	if err != nil {
		t.Fatalf("Rename error: %v", err)
	}

	if res.Succeeded != 2 {
		t.Fatalf("expected 2 confirmed copies, got %+v", res)
	}
	if len(res.FailedKeys) != 3 {
		t.Fatalf("expected exactly 3 failed keys, got %v", res.FailedKeys)
	}
	for i, want := range keys[2:] {
		if res.FailedKeys[i] != want {
			t.Fatalf("failed keys mismatch: got %v", res.FailedKeys)
		}
	}

	// No source was deleted and the first two destinations exist.
	for _, k := range keys {
		if !mem.Exists(k) {
			t.Fatalf("source %q was deleted despite partial failure", k)
		}
	}
	if !mem.Exists("private/u-1/moved/f1.txt") || !mem.Exists("private/u-1/moved/f2.txt") {
		t.Fatalf("expected first two destination keys to exist: %v", mem.Keys())
	}
	if mem.Exists("private/u-1/moved/f3.txt") {
		t.Fatalf("third destination should not exist")
	}
}

func TestMove_FileAcrossFolders(t *testing.T) {
	svc, mem := newTestService(t)
	putFile(t, mem, "private/u-1/src/a.txt", "x")

	res, err := svc.Move(context.Background(), owner, MoveRequest{
		SourceLocation:      []string{"src"},
		DestinationLocation: []string{"dst", "deep"},
		ItemName:            "a.txt",
		ItemType:            models.ItemTypeFile,
	})
	if err != nil {
		t.Fatalf("Move error: %v", err)
	}
	if !res.AllOK() {
		t.Fatalf("unexpected result: %+v", res)
	}
	if mem.Exists("private/u-1/src/a.txt") || !mem.Exists("private/u-1/dst/deep/a.txt") {
		t.Fatalf("unexpected keys: %v", mem.Keys())
	}
}

func TestMove_FolderIntoItselfRejected(t *testing.T) {
	svc, mem := newTestService(t)
	putMarker(t, mem, "private/u-1/dir/")

	_, err := svc.Move(context.Background(), owner, MoveRequest{
		SourceLocation:      nil,
		DestinationLocation: []string{"dir"},
		ItemName:            "dir",
		ItemType:            models.ItemTypeFolder,
	})
	if !errors.Is(err, common.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRename_MissingFolderIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Rename(context.Background(), owner, models.ItemTypeFolder, "ghost", "new", nil)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// --- delete ---

func TestDelete_File(t *testing.T) {
	svc, mem := newTestService(t)
	putFile(t, mem, "private/u-1/a.txt", "x")

	res, err := svc.Delete(context.Background(), owner, models.ItemTypeFile, "a.txt", nil)
	if err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if !res.AllOK() || mem.Exists("private/u-1/a.txt") {
		t.Fatalf("file not deleted: %+v %v", res, mem.Keys())
	}
}

func TestDelete_AbsentFileReportsNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Delete(context.Background(), owner, models.ItemTypeFile, "ghost.txt", nil)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_FolderPaginatesBatches(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	// 2500 descendant keys force exactly 3 delete-many calls.
	for i := 0; i < 2500; i++ {
		putFile(t, mem, fmt.Sprintf("private/u-1/big/f%05d", i), "x")
	}

	res, err := svc.Delete(ctx, owner, models.ItemTypeFolder, "big", nil)
	if err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if !res.AllOK() || res.Total != 2500 || res.Succeeded != 2500 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if mem.DeleteManyCalls != 3 {
		t.Fatalf("expected 3 delete-many calls, got %d", mem.DeleteManyCalls)
	}
	for _, key := range mem.Keys() {
		if strings.HasPrefix(key, "private/u-1/big/") {
			t.Fatalf("key %q survived folder delete", key)
		}
	}
}

func TestDelete_EmptyFolderRemovesMarkerOnly(t *testing.T) {
	svc, mem := newTestService(t)

	// The marker lists under its own prefix, so the batch path covers it.
	putMarker(t, mem, "private/u-1/empty/")

	res, err := svc.Delete(context.Background(), owner, models.ItemTypeFolder, "empty", nil)
	if err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if !res.AllOK() || mem.Exists("private/u-1/empty/") {
		t.Fatalf("marker not removed: %+v %v", res, mem.Keys())
	}
}
