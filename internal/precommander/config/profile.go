package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile describes how the legacy console is addressed and how its replies
// are recognised. Every path is relative to the session prefix.
//
// Markers and labels are matched against server-rendered Czech text. If the
// console wording changes, confirmations silently stop matching; that is a
// profile update, not an engine bug.
type Profile struct {
	Endpoints Endpoints `yaml:"endpoints"`
	Markers   Markers   `yaml:"markers"`
	Labels    Labels    `yaml:"labels"`
	Selectors Selectors `yaml:"selectors"`
	Blacklist Blacklist `yaml:"blacklist"`
}

// Endpoints lists the console pages the engine talks to.
type Endpoints struct {
	NoteEdit       string `yaml:"note_edit"`
	NoteList       string `yaml:"note_list"`
	UserLookup     string `yaml:"user_lookup"`
	BlockIndex     string `yaml:"block_index"`
	BlacklistIndex string `yaml:"blacklist_index"`
	BlacklistEdit  string `yaml:"blacklist_edit"`
	ClearText      string `yaml:"clear_text"`
}

// Markers are the success phrases the console echoes after a write.
type Markers struct {
	NoteSaved  string   `yaml:"note_saved"`
	BanCreated string   `yaml:"ban_created"`
	TextClear  []string `yaml:"text_cleared"`
}

// Labels are key/value captions on semi-structured admin pages.
type Labels struct {
	UserID string `yaml:"user_id"`
	IP     string `yaml:"ip"`
	Domain string `yaml:"domain"`
}

// Selectors name the structural hooks of the notes listing.
type Selectors struct {
	// ListingID is the id of the container holding listing rows and pagination.
	ListingID string `yaml:"listing_id"`
	// NoteRowClass is the class of one notes row.
	NoteRowClass string `yaml:"note_row_class"`
	// NoteDeleteMarker is a substring of the delete link href.
	NoteDeleteMarker string `yaml:"note_delete_marker"`
	// BlockDeleteMarker is a substring of the blacklist delete link href.
	BlockDeleteMarker string `yaml:"block_delete_marker"`
}

// Blacklist controls block records.
type Blacklist struct {
	PageSize   int    `yaml:"page_size"`
	Years      int    `yaml:"years"`
	DateLayout string `yaml:"date_layout"`
}

// DefaultProfile returns the profile matching the production console.
func DefaultProfile() *Profile {
	return &Profile{
		Endpoints: Endpoints{
			NoteEdit:       "notes/edit.php",
			NoteList:       "notes/",
			UserLookup:     "admin/user/index.phtml",
			BlockIndex:     "admin/user/block-index.phtml",
			BlacklistIndex: "admin/blacklist/black-index.phtml",
			BlacklistEdit:  "admin/blacklist/edit.phtml",
			ClearText:      "admin/blacklist/cleartext.php",
		},
		Markers: Markers{
			NoteSaved:  "Poznámka vložena.",
			BanCreated: "Záznam byl uložen.",
			TextClear:  []string{"Text byl smazán.", "Historie uživatele byla vymazána."},
		},
		Labels: Labels{
			UserID: "UID:",
			IP:     "IP:",
			Domain: "Doména:",
		},
		Selectors: Selectors{
			ListingID:         "mn",
			NoteRowClass:      "notesl",
			NoteDeleteMarker:  "del=",
			BlockDeleteMarker: "delete.phtml",
		},
		Blacklist: Blacklist{
			PageSize:   20,
			Years:      1,
			DateLayout: "02.01.2006",
		},
	}
}

// ParseProfile decodes YAML on top of DefaultProfile and validates the result.
// Fields absent from the document keep their defaults.
func ParseProfile(data []byte) (*Profile, error) {
	p := DefaultProfile()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("profile parse: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate returns the first structural problem in p, or nil.
func (p *Profile) Validate() error {
	endpoints := map[string]string{
		"note_edit":       p.Endpoints.NoteEdit,
		"note_list":       p.Endpoints.NoteList,
		"user_lookup":     p.Endpoints.UserLookup,
		"block_index":     p.Endpoints.BlockIndex,
		"blacklist_index": p.Endpoints.BlacklistIndex,
		"blacklist_edit":  p.Endpoints.BlacklistEdit,
		"clear_text":      p.Endpoints.ClearText,
	}
	for name, path := range endpoints {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("endpoints.%s must not be empty", name)
		}
		if strings.HasPrefix(path, "/") || strings.Contains(path, "://") {
			return fmt.Errorf("endpoints.%s must be relative to the session prefix, got %q", name, path)
		}
	}

	if strings.TrimSpace(p.Markers.NoteSaved) == "" {
		return fmt.Errorf("markers.note_saved must not be empty")
	}
	if strings.TrimSpace(p.Markers.BanCreated) == "" {
		return fmt.Errorf("markers.ban_created must not be empty")
	}
	if len(p.Markers.TextClear) == 0 {
		return fmt.Errorf("markers.text_cleared must list at least one phrase")
	}
	for i, m := range p.Markers.TextClear {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("markers.text_cleared[%d] must not be empty", i)
		}
	}

	if p.Labels.UserID == "" || p.Labels.IP == "" || p.Labels.Domain == "" {
		return fmt.Errorf("labels: user_id, ip and domain are required")
	}
	if p.Selectors.ListingID == "" || p.Selectors.NoteRowClass == "" ||
		p.Selectors.NoteDeleteMarker == "" || p.Selectors.BlockDeleteMarker == "" {
		return fmt.Errorf("selectors: all fields are required")
	}

	if p.Blacklist.PageSize <= 0 {
		return fmt.Errorf("blacklist.page_size must be positive, got %d", p.Blacklist.PageSize)
	}
	if p.Blacklist.Years <= 0 {
		return fmt.Errorf("blacklist.years must be positive, got %d", p.Blacklist.Years)
	}
	if p.Blacklist.DateLayout == "" {
		return fmt.Errorf("blacklist.date_layout must not be empty")
	}
	return nil
}
