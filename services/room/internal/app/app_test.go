package app

import (
	"bytes"
	"context"
	"testing"

	"pagepair/pkg/room"
	"pagepair/pkg/store"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(Config{
		Store:         store.NewMemoryStore(),
		PublicBaseURL: "https://pagepair.test/",
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func TestCreateRoomRoundTripsDocument(t *testing.T) {
	a := newTestApp(t)
	host := room.Identity{ID: "host-1", Name: "Alma"}

	payload := bytes.Repeat([]byte("turn the page "), 4096)
	created, err := a.CreateRoom(context.Background(), host, "evening-reading.pdf", payload, nil)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if created.Title != "evening-reading" {
		t.Fatalf("title = %q, want filename-derived", created.Title)
	}
	if created.ChunkCount < 1 {
		t.Fatalf("chunkCount = %d", created.ChunkCount)
	}

	got, _, err := a.DownloadDocument(context.Background(), created.ID, nil)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: got %d bytes want %d", len(got), len(payload))
	}
}

func TestCreateRoomRejectsEmptyPayload(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.CreateRoom(context.Background(), room.Identity{ID: "host-1", Name: "Alma"}, "empty.pdf", nil, nil); err == nil {
		t.Fatal("expected empty payload to fail")
	}
}

func TestJoinURL(t *testing.T) {
	a := newTestApp(t)
	if got := a.JoinURL("R4ND0M"); got != "https://pagepair.test/join/R4ND0M" {
		t.Fatalf("join url = %q", got)
	}
}

func TestRegisterUserRequiresName(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.RegisterUser(context.Background(), "   ", "#fff"); err == nil {
		t.Fatal("expected blank name to fail")
	}
}

func TestDocumentInfoFallsBackOnNonPDF(t *testing.T) {
	title, pages := documentInfo([]byte("plain text, not a pdf"), "notes/summer reading.pdf")
	if title != "summer reading" {
		t.Fatalf("title = %q", title)
	}
	if pages != 0 {
		t.Fatalf("pages = %d, want 0", pages)
	}
}

func TestDocumentInfoUntitledFallback(t *testing.T) {
	title, _ := documentInfo(nil, "")
	if title != "Untitled" {
		t.Fatalf("title = %q, want Untitled", title)
	}
}
