package models

// Mention categories accepted by the webhook sink
const (
	MentionRoles = "roles"
	MentionUsers = "users"
)

// EmbedAuthor is the author line of a visual block
type EmbedAuthor struct {
	Name    string `json:"name"`
	IconURL string `json:"icon_url,omitempty"`
	URL     string `json:"url,omitempty"`
}

// EmbedFooter is the footer line of a visual block
type EmbedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

// EmbedImage references an image shown inside a visual block
type EmbedImage struct {
	URL string `json:"url"`
}

// EmbedField is a name/value pair shown inside a visual block
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Embed is a visual block of a chat message
type Embed struct {
	Title       string       `json:"title,omitempty"`
	URL         string       `json:"url,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Author      *EmbedAuthor `json:"author,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Image       *EmbedImage  `json:"image,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

// Attachment is a remote file uploaded alongside a message
type Attachment struct {
	URL      string
	Filename string
}

// NotificationMessage is the formatted form of one commit
type NotificationMessage struct {
	Lead        string
	Primary     Embed
	Secondary   []Embed
	Attachments []Attachment
}

// Embeds returns the primary block followed by the secondary blocks
func (m NotificationMessage) Embeds() []Embed {
	embeds := make([]Embed, 0, 1+len(m.Secondary))
	embeds = append(embeds, m.Primary)
	return append(embeds, m.Secondary...)
}

// AllowedMentions restricts which mention categories may ping
type AllowedMentions struct {
	Parse []string `json:"parse"`
}

// WebhookMessage is a single structured send call to the webhook sink
type WebhookMessage struct {
	Content         string           `json:"content,omitempty"`
	Username        string           `json:"username,omitempty"`
	AvatarURL       string           `json:"avatar_url,omitempty"`
	Embeds          []Embed          `json:"embeds,omitempty"`
	AllowedMentions *AllowedMentions `json:"allowed_mentions,omitempty"`
	Attachments     []Attachment     `json:"-"`
}
