package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestChannelLanguage_Fields(t *testing.T) {
	typ := reflect.TypeOf(ChannelLanguage{})

	assertGormTag(t, typ, "ChannelID", "primaryKey")
	assertGormTag(t, typ, "ChannelID", "size:32")
	assertGormTag(t, typ, "GuildID", "index")
	assertGormTag(t, typ, "Language", "not null")
	assertGormTag(t, typ, "Language", "size:35")

	assertFieldType(t, typ, "UpdatedAt", "time.Time")
}

func TestChannelLink_Fields(t *testing.T) {
	typ := reflect.TypeOf(ChannelLink{})

	// Composite primary key: one row per directed edge.
	assertGormTag(t, typ, "ChannelID", "primaryKey")
	assertGormTag(t, typ, "LinkedChannelID", "primaryKey")
	assertGormTag(t, typ, "LinkedChannelID", "index")

	assertFieldType(t, typ, "CreatedAt", "time.Time")
}

func TestMessageLink_Fields(t *testing.T) {
	typ := reflect.TypeOf(MessageLink{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "autoIncrement")
	assertGormTag(t, typ, "AuthorID", "not null")
	assertGormTag(t, typ, "OriginChannelID", "index:idx_origin_pair")
	assertGormTag(t, typ, "OriginMessageID", "uniqueIndex")
	assertGormTag(t, typ, "OriginMessageID", "index:idx_origin_pair")
	assertGormTag(t, typ, "Copies", "foreignKey:LinkID")

	assertFieldType(t, typ, "ID", "uint")
	assertFieldType(t, typ, "Copies", "[]models.MessageCopy")
	assertFieldType(t, typ, "CreatedAt", "time.Time")
}

func TestMessageCopy_Fields(t *testing.T) {
	typ := reflect.TypeOf(MessageCopy{})

	assertGormTag(t, typ, "ID", "primaryKey")
	// At most one copy per channel per link.
	assertGormTag(t, typ, "LinkID", "uniqueIndex:idx_link_channel")
	assertGormTag(t, typ, "ChannelID", "uniqueIndex:idx_link_channel")
	assertGormTag(t, typ, "ChannelID", "index:idx_copy_pair")
	assertGormTag(t, typ, "MessageID", "index:idx_copy_pair")
	assertGormTag(t, typ, "Position", "not null")

	assertFieldType(t, typ, "LinkID", "uint")
	assertFieldType(t, typ, "Position", "int")
}
