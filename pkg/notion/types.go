package notion

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// BlockType identifies the content variant of a block. The set is closed:
// unrecognized values from the API decode as BlockTypeUnsupported rather
// than failing, so new server-side block types degrade gracefully.
type BlockType string

const (
	BlockTypeParagraph        BlockType = "paragraph"
	BlockTypeHeading1         BlockType = "heading_1"
	BlockTypeHeading2         BlockType = "heading_2"
	BlockTypeHeading3         BlockType = "heading_3"
	BlockTypeBulletedListItem BlockType = "bulleted_list_item"
	BlockTypeNumberedListItem BlockType = "numbered_list_item"
	BlockTypeToDo             BlockType = "to_do"
	BlockTypeToggle           BlockType = "toggle"
	BlockTypeQuote            BlockType = "quote"
	BlockTypeCallout          BlockType = "callout"
	BlockTypeCode             BlockType = "code"
	BlockTypeDivider          BlockType = "divider"
	BlockTypeBookmark         BlockType = "bookmark"
	BlockTypeImage            BlockType = "image"
	BlockTypeChildPage        BlockType = "child_page"
	BlockTypeChildDatabase    BlockType = "child_database"
	BlockTypeUnsupported      BlockType = "unsupported"
)

// ParentType discriminates the Parent union.
type ParentType string

const (
	ParentTypeWorkspace ParentType = "workspace"
	ParentTypePage      ParentType = "page_id"
	ParentTypeDatabase  ParentType = "database_id"
	ParentTypeBlock     ParentType = "block_id"
)

// Parent identifies where a page, database, or block hangs in the
// hierarchy. Exactly one variant is populated; the workspace variant
// carries no ID and marks a true top-level object.
type Parent struct {
	Type       ParentType
	PageID     string
	DatabaseID string
	BlockID    string
}

// IsWorkspace reports whether this parent is the workspace sentinel.
func (p Parent) IsWorkspace() bool {
	return p.Type == ParentTypeWorkspace
}

// ID returns the identifier of the parent object, empty for the
// workspace sentinel.
func (p Parent) ID() string {
	switch p.Type {
	case ParentTypePage:
		return p.PageID
	case ParentTypeDatabase:
		return p.DatabaseID
	case ParentTypeBlock:
		return p.BlockID
	default:
		return ""
	}
}

// MarshalJSON encodes the union in the API's wire shape, e.g.
// {"type":"page_id","page_id":"..."} or {"type":"workspace","workspace":true}.
func (p Parent) MarshalJSON() ([]byte, error) {
	out := map[string]any{"type": string(p.Type)}
	switch p.Type {
	case ParentTypeWorkspace:
		out["workspace"] = true
	case ParentTypePage:
		out["page_id"] = p.PageID
	case ParentTypeDatabase:
		out["database_id"] = p.DatabaseID
	case ParentTypeBlock:
		out["block_id"] = p.BlockID
	default:
		return nil, fmt.Errorf("cannot marshal parent with unknown type %q", p.Type)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the discriminated union, enforcing that the
// variant named by "type" is the one populated.
func (p *Parent) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type       ParentType `json:"type"`
		PageID     string     `json:"page_id"`
		DatabaseID string     `json:"database_id"`
		BlockID    string     `json:"block_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode parent: %w", err)
	}

	switch raw.Type {
	case ParentTypeWorkspace:
		*p = Parent{Type: ParentTypeWorkspace}
	case ParentTypePage:
		if raw.PageID == "" {
			return fmt.Errorf("parent type %q missing page_id", raw.Type)
		}
		*p = Parent{Type: ParentTypePage, PageID: raw.PageID}
	case ParentTypeDatabase:
		if raw.DatabaseID == "" {
			return fmt.Errorf("parent type %q missing database_id", raw.Type)
		}
		*p = Parent{Type: ParentTypeDatabase, DatabaseID: raw.DatabaseID}
	case ParentTypeBlock:
		if raw.BlockID == "" {
			return fmt.Errorf("parent type %q missing block_id", raw.Type)
		}
		*p = Parent{Type: ParentTypeBlock, BlockID: raw.BlockID}
	default:
		return fmt.Errorf("unknown parent type %q", raw.Type)
	}
	return nil
}

// Block is one unit of page content. The per-type payload (rich text,
// code language, child page title, ...) is kept as the raw decoded map
// and interpreted lazily by PlainText, which is the single place that
// switches over the kind.
type Block struct {
	ID             string
	Type           BlockType
	HasChildren    bool
	Parent         Parent
	CreatedTime    time.Time
	LastEditedTime time.Time
	Archived       bool

	// payload is the type-keyed object from the wire, e.g. the value of
	// the "paragraph" key for a paragraph block.
	payload map[string]any
}

// UnmarshalJSON decodes the envelope fields and captures the per-type
// payload stored under the key matching the block's type.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID             string    `json:"id"`
		Type           BlockType `json:"type"`
		HasChildren    bool      `json:"has_children"`
		Parent         Parent    `json:"parent"`
		CreatedTime    time.Time `json:"created_time"`
		LastEditedTime time.Time `json:"last_edited_time"`
		Archived       bool      `json:"archived"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode block: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("failed to decode block fields: %w", err)
	}

	b.ID = raw.ID
	b.Type = raw.Type
	b.HasChildren = raw.HasChildren
	b.Parent = raw.Parent
	b.CreatedTime = raw.CreatedTime
	b.LastEditedTime = raw.LastEditedTime
	b.Archived = raw.Archived
	b.payload, _ = fields[string(raw.Type)].(map[string]any)
	return nil
}

// MarshalJSON re-encodes the block in its wire shape, including the
// type-keyed payload. Used by the raw output mode of the CLI.
func (b Block) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"object":           "block",
		"id":               b.ID,
		"type":             string(b.Type),
		"has_children":     b.HasChildren,
		"parent":           b.Parent,
		"created_time":     b.CreatedTime,
		"last_edited_time": b.LastEditedTime,
		"archived":         b.Archived,
	}
	if b.payload != nil {
		out[string(b.Type)] = b.payload
	}
	return json.Marshal(out)
}

// richText is the subset of a rich text object the engine cares about.
type richText struct {
	PlainText string `mapstructure:"plain_text"`
}

// textPayload matches every block payload that carries a rich_text array.
type textPayload struct {
	RichText []richText `mapstructure:"rich_text"`
}

// titlePayload matches child_page and child_database payloads.
type titlePayload struct {
	Title string `mapstructure:"title"`
}

func joinPlainText(parts []richText) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.PlainText)
	}
	return sb.String()
}

// PlainText extracts the human-readable text of the block. This is the
// one boundary with per-kind behavior; every kind in the closed set is
// handled here.
func (b Block) PlainText() (string, error) {
	switch b.Type {
	case BlockTypeParagraph, BlockTypeHeading1, BlockTypeHeading2, BlockTypeHeading3,
		BlockTypeBulletedListItem, BlockTypeNumberedListItem, BlockTypeToDo,
		BlockTypeToggle, BlockTypeQuote, BlockTypeCallout, BlockTypeCode:
		var tp textPayload
		if err := mapstructure.Decode(b.payload, &tp); err != nil {
			return "", fmt.Errorf("failed to decode %s payload: %w", b.Type, err)
		}
		return joinPlainText(tp.RichText), nil

	case BlockTypeChildPage, BlockTypeChildDatabase:
		var tp titlePayload
		if err := mapstructure.Decode(b.payload, &tp); err != nil {
			return "", fmt.Errorf("failed to decode %s payload: %w", b.Type, err)
		}
		return tp.Title, nil

	case BlockTypeBookmark:
		var bp struct {
			URL string `mapstructure:"url"`
		}
		if err := mapstructure.Decode(b.payload, &bp); err != nil {
			return "", fmt.Errorf("failed to decode bookmark payload: %w", err)
		}
		return bp.URL, nil

	case BlockTypeDivider, BlockTypeImage, BlockTypeUnsupported:
		return "", nil

	default:
		// Unknown kinds decode as unsupported upstream, so this is only
		// reachable for a zero-valued Block.
		return "", nil
	}
}

// Entity is one result of the flat search listing: a page or a database
// the integration can see, reduced to the metadata root inference and
// the CLI need.
type Entity struct {
	Object         string // "page" or "database"
	ID             string
	Parent         Parent
	Title          string
	URL            string
	Archived       bool
	CreatedTime    time.Time
	LastEditedTime time.Time
}

// UnmarshalJSON decodes a search result. Pages and databases store their
// title differently: databases carry a top-level rich text array, pages
// bury it in the property map under the one property of type "title".
func (e *Entity) UnmarshalJSON(data []byte) error {
	var raw struct {
		Object         string    `json:"object"`
		ID             string    `json:"id"`
		Parent         Parent    `json:"parent"`
		URL            string    `json:"url"`
		Archived       bool      `json:"archived"`
		CreatedTime    time.Time `json:"created_time"`
		LastEditedTime time.Time `json:"last_edited_time"`

		Title      []map[string]any          `json:"title"`
		Properties map[string]map[string]any `json:"properties"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode search result: %w", err)
	}

	e.Object = raw.Object
	e.ID = raw.ID
	e.Parent = raw.Parent
	e.URL = raw.URL
	e.Archived = raw.Archived
	e.CreatedTime = raw.CreatedTime
	e.LastEditedTime = raw.LastEditedTime

	switch raw.Object {
	case "database":
		e.Title = decodeRichTextTitle(raw.Title)
	case "page":
		for _, prop := range raw.Properties {
			if prop["type"] != "title" {
				continue
			}
			if parts, ok := prop["title"].([]any); ok {
				e.Title = decodeAnyTitle(parts)
			}
			break
		}
	}
	return nil
}

func decodeRichTextTitle(parts []map[string]any) string {
	var rts []richText
	if err := mapstructure.Decode(parts, &rts); err != nil {
		return ""
	}
	return joinPlainText(rts)
}

func decodeAnyTitle(parts []any) string {
	var rts []richText
	if err := mapstructure.Decode(parts, &rts); err != nil {
		return ""
	}
	return joinPlainText(rts)
}

// List is one page of results from any paginated endpoint. NextCursor is
// non-nil exactly when HasMore is true, and is only valid for the query
// that produced it.
type List[T any] struct {
	Object     string  `json:"object"`
	Results    []T     `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// NormalizeID canonicalizes a page/block/database ID. The API accepts
// UUIDs with or without dashes and in any case; everything in this
// module compares IDs in the canonical dashed lowercase form.
func NormalizeID(id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("invalid object ID %q: %w", id, err)
	}
	return u.String(), nil
}
