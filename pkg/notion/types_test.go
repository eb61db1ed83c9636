package notion

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParent_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Parent
	}{
		{
			"workspace sentinel",
			`{"type":"workspace","workspace":true}`,
			Parent{Type: ParentTypeWorkspace},
		},
		{
			"page parent",
			`{"type":"page_id","page_id":"p-1"}`,
			Parent{Type: ParentTypePage, PageID: "p-1"},
		},
		{
			"database parent",
			`{"type":"database_id","database_id":"d-1"}`,
			Parent{Type: ParentTypeDatabase, DatabaseID: "d-1"},
		},
		{
			"block parent",
			`{"type":"block_id","block_id":"b-1"}`,
			Parent{Type: ParentTypeBlock, BlockID: "b-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Parent
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParent_UnmarshalJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"unknown discriminator", `{"type":"folder_id","folder_id":"x"}`},
		{"missing variant value", `{"type":"page_id"}`},
		{"empty", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Parent
			assert.Error(t, json.Unmarshal([]byte(tt.in), &got))
		})
	}
}

func TestParent_ExactlyOneVariant(t *testing.T) {
	// The discriminator wins even when the wire carries stray variant
	// keys next to it.
	var got Parent
	require.NoError(t, json.Unmarshal(
		[]byte(`{"type":"page_id","page_id":"p-1","database_id":"d-1"}`), &got))

	assert.Equal(t, Parent{Type: ParentTypePage, PageID: "p-1"}, got)
	assert.Equal(t, "p-1", got.ID())
	assert.False(t, got.IsWorkspace())
}

func TestParent_MarshalRoundTrip(t *testing.T) {
	in := Parent{Type: ParentTypeDatabase, DatabaseID: "d-1"}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var got Parent
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, in, got)
}

func TestBlock_UnmarshalAndPlainText(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantType BlockType
		wantText string
	}{
		{
			"paragraph rich text",
			`{"object":"block","id":"b1","type":"paragraph","has_children":false,
			  "parent":{"type":"page_id","page_id":"p1"},
			  "paragraph":{"rich_text":[
			    {"type":"text","plain_text":"Hello, "},
			    {"type":"text","plain_text":"world"}]}}`,
			BlockTypeParagraph,
			"Hello, world",
		},
		{
			"heading",
			`{"object":"block","id":"b2","type":"heading_1","has_children":false,
			  "parent":{"type":"page_id","page_id":"p1"},
			  "heading_1":{"rich_text":[{"type":"text","plain_text":"Title"}]}}`,
			BlockTypeHeading1,
			"Title",
		},
		{
			"child page title",
			`{"object":"block","id":"b3","type":"child_page","has_children":true,
			  "parent":{"type":"page_id","page_id":"p1"},
			  "child_page":{"title":"Sub page"}}`,
			BlockTypeChildPage,
			"Sub page",
		},
		{
			"child database title",
			`{"object":"block","id":"b4","type":"child_database","has_children":true,
			  "parent":{"type":"page_id","page_id":"p1"},
			  "child_database":{"title":"Tasks"}}`,
			BlockTypeChildDatabase,
			"Tasks",
		},
		{
			"bookmark url",
			`{"object":"block","id":"b5","type":"bookmark","has_children":false,
			  "parent":{"type":"page_id","page_id":"p1"},
			  "bookmark":{"url":"https://example.com"}}`,
			BlockTypeBookmark,
			"https://example.com",
		},
		{
			"divider has no text",
			`{"object":"block","id":"b6","type":"divider","has_children":false,
			  "parent":{"type":"page_id","page_id":"p1"},"divider":{}}`,
			BlockTypeDivider,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Block
			require.NoError(t, json.Unmarshal([]byte(tt.in), &b))
			assert.Equal(t, tt.wantType, b.Type)

			text, err := b.PlainText()
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, text)
		})
	}
}

func TestBlock_MarshalPreservesPayload(t *testing.T) {
	in := `{"object":"block","id":"b1","type":"paragraph","has_children":false,
	        "parent":{"type":"page_id","page_id":"p1"},
	        "paragraph":{"rich_text":[{"type":"text","plain_text":"x"}]}}`

	var b Block
	require.NoError(t, json.Unmarshal([]byte(in), &b))

	data, err := json.Marshal(b)
	require.NoError(t, err)

	var round map[string]any
	require.NoError(t, json.Unmarshal(data, &round))
	assert.Contains(t, round, "paragraph", "type-keyed payload survives re-encoding")
}

func TestEntity_UnmarshalPageTitle(t *testing.T) {
	in := `{
		"object": "page",
		"id": "00000000-0000-4000-8000-000000000001",
		"parent": {"type":"workspace","workspace":true},
		"url": "https://www.notion.so/Roadmap",
		"properties": {
			"Status": {"type":"select","select":{"name":"Active"}},
			"Name": {"type":"title","title":[
				{"type":"text","plain_text":"Road"},
				{"type":"text","plain_text":"map"}]}
		}
	}`

	var e Entity
	require.NoError(t, json.Unmarshal([]byte(in), &e))

	assert.Equal(t, "page", e.Object)
	assert.Equal(t, "Roadmap", e.Title)
	assert.True(t, e.Parent.IsWorkspace())
}

func TestEntity_UnmarshalDatabaseTitle(t *testing.T) {
	in := `{
		"object": "database",
		"id": "00000000-0000-4000-8000-000000000002",
		"parent": {"type":"page_id","page_id":"00000000-0000-4000-8000-000000000001"},
		"title": [{"type":"text","plain_text":"Tasks"}]
	}`

	var e Entity
	require.NoError(t, json.Unmarshal([]byte(in), &e))

	assert.Equal(t, "database", e.Object)
	assert.Equal(t, "Tasks", e.Title)
	assert.Equal(t, ParentTypePage, e.Parent.Type)
}

func TestNormalizeID(t *testing.T) {
	canonical := "0e5f1b6a-37ff-4f06-8f2c-1f35d4f5e001"

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"already canonical", canonical, canonical, false},
		{"dashless", "0e5f1b6a37ff4f068f2c1f35d4f5e001", canonical, false},
		{"uppercase", "0E5F1B6A-37FF-4F06-8F2C-1F35D4F5E001", canonical, false},
		{"surrounding whitespace", "  " + canonical + " ", canonical, false},
		{"not a uuid", "page-42", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeID(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
