package store

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := New(zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(st.Close)
	return st
}

func TestStore_PutAndResolve(t *testing.T) {
	st := newTestStore(t)
	id := uuid.New().String()
	payload := []byte("docx bytes")

	storedName, err := st.Put(id, "scan.docx", payload)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if storedName != id+"_scan.docx" {
		t.Errorf("Unexpected stored name %q", storedName)
	}

	name, data, err := st.Resolve(id)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if name != storedName {
		t.Errorf("Expected name %q, got %q", storedName, name)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("Artifact bytes mismatch: %q", data)
	}

	// Repeated reads return the same bytes.
	_, again, err := st.Resolve(id)
	if err != nil {
		t.Fatalf("Second Resolve failed: %v", err)
	}
	if !bytes.Equal(again, payload) {
		t.Error("Second read returned different bytes")
	}
}

func TestStore_ResolveByFullStoredName(t *testing.T) {
	st := newTestStore(t)
	id := uuid.New().String()

	storedName, err := st.Put(id, "out.docx", []byte("x"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	name, _, err := st.Resolve(storedName)
	if err != nil {
		t.Fatalf("Resolve by full name failed: %v", err)
	}
	if name != storedName {
		t.Errorf("Expected %q, got %q", storedName, name)
	}
}

func TestStore_ResolveNotFound(t *testing.T) {
	st := newTestStore(t)
	st.Put(uuid.New().String(), "other.docx", []byte("x"))

	if _, _, err := st.Resolve(uuid.New().String()); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("Expected ErrArtifactNotFound, got %v", err)
	}
	if _, _, err := st.Resolve(""); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("Expected ErrArtifactNotFound for empty prefix, got %v", err)
	}
}

func TestStore_SaveAndRemoveUpload(t *testing.T) {
	st := newTestStore(t)
	id := uuid.New().String()

	path, err := st.SaveUpload(id, "in.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("SaveUpload failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Staged upload unreadable: %v", err)
	}
	if string(data) != "%PDF" {
		t.Errorf("Staged bytes mismatch: %q", data)
	}

	st.RemoveUpload(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected staged upload to be removed")
	}
}

func TestStore_Sweep(t *testing.T) {
	st := newTestStore(t)
	id := uuid.New().String()

	storedName, err := st.Put(id, "old.docx", []byte("x"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Age the artifact past the cutoff.
	path, _ := st.artifactPath(id, "old.docx")
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	fresh, err := st.Put(uuid.New().String(), "fresh.docx", []byte("y"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if removed := st.Sweep(time.Hour); removed != 1 {
		t.Fatalf("Expected 1 removed, got %d", removed)
	}

	if _, _, err := st.Resolve(storedName); !errors.Is(err, ErrArtifactNotFound) {
		t.Error("Expected swept artifact to be gone")
	}
	if _, _, err := st.Resolve(fresh); err != nil {
		t.Errorf("Fresh artifact should survive sweep: %v", err)
	}
}

func TestStore_CloseRemovesDirectories(t *testing.T) {
	st, err := New(zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	uploadDir := st.uploadDir
	artifactDir := st.artifactDir
	st.Close()

	if _, err := os.Stat(uploadDir); !os.IsNotExist(err) {
		t.Error("Upload dir should be removed on Close")
	}
	if _, err := os.Stat(artifactDir); !os.IsNotExist(err) {
		t.Error("Artifact dir should be removed on Close")
	}
}
