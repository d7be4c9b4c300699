package store

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/zulandar/polyglot/internal/db"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.ConnectSQLite(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// Every pooled connection to :memory: would otherwise see its own database.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return gdb
}

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLStore(openTestDB(t))
	if err != nil {
		t.Fatalf("NewSQLStore: %v", err)
	}
	return s
}

func sampleRecord() LinkRecord {
	return LinkRecord{
		AuthorID:        "u1",
		OriginChannelID: "c-en",
		OriginMessageID: "m1",
		Copies: []Copy{
			{ChannelID: "c-ja", MessageID: "m2"},
			{ChannelID: "c-fr", MessageID: "m3"},
		},
	}
}

func TestNewSQLStore_NilDB(t *testing.T) {
	_, err := NewSQLStore(nil)
	if err == nil {
		t.Fatal("expected error for nil db")
	}
	if !strings.Contains(err.Error(), "db is required") {
		t.Errorf("error = %q", err)
	}
}

func TestCreate_FindByOriginID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := sampleRecord()
	if err := s.Create(ctx, want); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.FindByOriginID(ctx, "m1")
	if err != nil {
		t.Fatalf("FindByOriginID: %v", err)
	}
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("record = %+v, want %+v", *got, want)
	}
}

func TestFindByOriginID_Absent(t *testing.T) {
	s := newTestStore(t)
	got, err := s.FindByOriginID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("FindByOriginID: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil record, got %+v", got)
	}
}

func TestFindByCopyOrOrigin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Create(ctx, sampleRecord()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	// An unrelated record must never be returned.
	other := LinkRecord{AuthorID: "u2", OriginChannelID: "c-ja", OriginMessageID: "m9",
		Copies: []Copy{{ChannelID: "c-en", MessageID: "m10"}}}
	if err := s.Create(ctx, other); err != nil {
		t.Fatalf("Create other: %v", err)
	}

	tests := []struct {
		name      string
		messageID string
		channelID string
		wantID    string
	}{
		{name: "origin", messageID: "m1", channelID: "c-en", wantID: "m1"},
		{name: "first copy", messageID: "m2", channelID: "c-ja", wantID: "m1"},
		{name: "second copy", messageID: "m3", channelID: "c-fr", wantID: "m1"},
		{name: "copy of other", messageID: "m10", channelID: "c-en", wantID: "m9"},
		{name: "channel mismatch", messageID: "m2", channelID: "c-fr"},
		{name: "origin channel mismatch", messageID: "m1", channelID: "c-ja"},
		{name: "unknown", messageID: "nope", channelID: "c-en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindByCopyOrOrigin(ctx, tt.messageID, tt.channelID)
			if err != nil {
				t.Fatalf("FindByCopyOrOrigin: %v", err)
			}
			if tt.wantID == "" {
				if got != nil {
					t.Errorf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected record, got nil")
			}
			if got.OriginMessageID != tt.wantID {
				t.Errorf("OriginMessageID = %q, want %q", got.OriginMessageID, tt.wantID)
			}
		})
	}
}

func TestCreate_DuplicateOrigin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Create(ctx, sampleRecord()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, sampleRecord()); err == nil {
		t.Fatal("expected error for second record with the same origin")
	}
}

func TestCreate_EmptyCopies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rec := LinkRecord{AuthorID: "u1", OriginChannelID: "c1", OriginMessageID: "m1"}
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.FindByOriginID(ctx, "m1")
	if err != nil || got == nil {
		t.Fatalf("FindByOriginID = %v, %v", got, err)
	}
	if len(got.Copies) != 0 {
		t.Errorf("Copies = %v, want empty", got.Copies)
	}
}

func TestLinkRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rec     LinkRecord
		wantErr string
	}{
		{name: "valid", rec: sampleRecord()},
		{name: "missing origin message", rec: LinkRecord{OriginChannelID: "c"}, wantErr: "origin message ID"},
		{name: "missing origin channel", rec: LinkRecord{OriginMessageID: "m"}, wantErr: "origin channel ID"},
		{
			name: "duplicate channel",
			rec: LinkRecord{OriginChannelID: "c", OriginMessageID: "m",
				Copies: []Copy{{ChannelID: "x", MessageID: "1"}, {ChannelID: "x", MessageID: "2"}}},
			wantErr: "duplicate copy",
		},
		{
			name: "copy in origin channel",
			rec: LinkRecord{OriginChannelID: "c", OriginMessageID: "m",
				Copies: []Copy{{ChannelID: "c", MessageID: "1"}}},
			wantErr: "duplicate copy",
		},
		{
			name: "empty copy message",
			rec: LinkRecord{OriginChannelID: "c", OriginMessageID: "m",
				Copies: []Copy{{ChannelID: "x"}}},
			wantErr: "empty channel or message",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLinkRecord_CopyIn(t *testing.T) {
	rec := sampleRecord()
	if c, ok := rec.CopyIn("c-fr"); !ok || c.MessageID != "m3" {
		t.Errorf("CopyIn(c-fr) = %+v, %v", c, ok)
	}
	if c, ok := rec.CopyIn("c-en"); !ok || c.MessageID != "m1" {
		t.Errorf("CopyIn(origin) = %+v, %v", c, ok)
	}
	if _, ok := rec.CopyIn("c-de"); ok {
		t.Error("CopyIn(c-de) should be absent")
	}
}

func TestLanguage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.Language(ctx, "c1"); err != nil || ok {
		t.Fatalf("Language before set = %v, %v", ok, err)
	}
	if err := s.SetLanguage(ctx, "g1", "c1", "en"); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	if err := s.SetLanguage(ctx, "g1", "c1", "ja"); err != nil {
		t.Fatalf("SetLanguage replace: %v", err)
	}
	lang, ok, err := s.Language(ctx, "c1")
	if err != nil || !ok || lang != "ja" {
		t.Errorf("Language = %q, %v, %v; want ja", lang, ok, err)
	}
	if err := s.UnsetLanguage(ctx, "c1"); err != nil {
		t.Fatalf("UnsetLanguage: %v", err)
	}
	if _, ok, _ := s.Language(ctx, "c1"); ok {
		t.Error("Language should be absent after unset")
	}
}

func TestSetLanguage_Validation(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetLanguage(context.Background(), "g", "", "en"); err == nil {
		t.Error("expected error for empty channel")
	}
}

func TestLinkAndUnlink(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Link(ctx, "a", "b"); err != nil {
		t.Fatalf("Link a-b: %v", err)
	}
	if err := s.Link(ctx, "a", "c"); err != nil {
		t.Fatalf("Link a-c: %v", err)
	}
	// Re-linking is a no-op.
	if err := s.Link(ctx, "b", "a"); err != nil {
		t.Fatalf("Link b-a: %v", err)
	}

	ids, ok, err := s.LinkedChannels(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("LinkedChannels(a) = %v, %v", ok, err)
	}
	if !reflect.DeepEqual(ids, []string{"b", "c"}) {
		t.Errorf("LinkedChannels(a) = %v, want [b c]", ids)
	}
	ids, _, _ = s.LinkedChannels(ctx, "c")
	if !reflect.DeepEqual(ids, []string{"a"}) {
		t.Errorf("LinkedChannels(c) = %v, want [a]", ids)
	}

	edges, err := s.Edges(ctx, "")
	if err != nil {
		t.Fatalf("Edges: %v", err)
	}
	if len(edges) != 4 {
		t.Errorf("Edges = %d, want 4", len(edges))
	}

	if err := s.Unlink(ctx, "c", "a"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if _, ok, _ := s.LinkedChannels(ctx, "c"); ok {
		t.Error("c should have no links after unlink")
	}
	if err := s.Unlink(ctx, "c", "a"); err == nil {
		t.Error("expected error unlinking a missing link")
	}
}

func TestLink_Self(t *testing.T) {
	s := newTestStore(t)
	err := s.Link(context.Background(), "a", "a")
	if err == nil || !strings.Contains(err.Error(), "itself") {
		t.Errorf("error = %v, want self-link error", err)
	}
}
