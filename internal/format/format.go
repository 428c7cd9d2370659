package format

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/nahidhasan98/commit-notifier/internal/models"
)

const (
	// MaxTitleLength is the longest title a visual block accepts
	MaxTitleLength = 256
	// MaxDescriptionLength is the longest body a visual block accepts
	MaxDescriptionLength = 4096
	// MaxImages is the number of images carried by one message
	MaxImages = 4
	// MaxLeadSummaryLength keeps the lead text under the 2000 character
	// message content limit
	MaxLeadSummaryLength = 1800

	truncationMarker     = "..."
	additionalImageTitle = "Additional Image"
	detailsFieldName     = "Commit Details"
)

var videoExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
	".mkv": true,
}

// Options configures the links and assets of formatted messages
type Options struct {
	FeedBaseURL      string
	FilesBaseURL     string
	Repository       string
	RoleID           string
	BrandingIconURL  string
	DefaultAvatarURL string
}

// Formatter turns commits into notification messages
type Formatter struct {
	opts         Options
	mediaPattern *regexp.Regexp
}

// New creates a formatter
func New(opts Options) *Formatter {
	opts.FeedBaseURL = strings.TrimRight(opts.FeedBaseURL, "/")
	opts.FilesBaseURL = strings.TrimRight(opts.FilesBaseURL, "/")

	return &Formatter{
		opts:         opts,
		mediaPattern: regexp.MustCompile(regexp.QuoteMeta(opts.FilesBaseURL+"/") + `\S+`),
	}
}

// Format builds the notification for one commit. It is a pure function of
// the commit and the formatter options.
func (f *Formatter) Format(c models.Commit) models.NotificationMessage {
	summary := c.Summary()
	color := Color(c.User.Name)
	branchURL := f.branchURL(c)

	primary := models.Embed{
		Title: Title(summary),
		URL:   branchURL,
		Color: color,
		Author: &models.EmbedAuthor{
			Name:    c.User.Name,
			IconURL: f.AvatarURL(c),
			URL:     f.profileURL(c.User.Name),
		},
		Footer: &models.EmbedFooter{
			Text:    fmt.Sprintf("Changeset %s", c.Changeset.String()),
			IconURL: f.opts.BrandingIconURL,
		},
		Fields: []models.EmbedField{{
			Name:   detailsFieldName,
			Value:  fmt.Sprintf("Commit ID: [%s](%s)\nBranch: [%s](%s)", c.ID.String(), f.commitURL(c), c.Branch, branchURL),
			Inline: false,
		}},
	}

	if created, ok := c.CreatedAt(); ok {
		primary.Timestamp = created.UTC().Format(time.RFC3339)
	}

	if body := c.Body(); body != "" {
		primary.Description = truncate(body, MaxDescriptionLength)
	}

	msg := models.NotificationMessage{
		Lead:        f.Lead(c),
		Attachments: make([]models.Attachment, 0),
		Secondary:   make([]models.Embed, 0),
	}

	images, videos := f.ExtractMedia(c.Message)
	for i, img := range images {
		if i == 0 {
			primary.Image = &models.EmbedImage{URL: img}
			continue
		}
		msg.Secondary = append(msg.Secondary, models.Embed{
			Title: additionalImageTitle,
			URL:   branchURL,
			Color: color,
			Image: &models.EmbedImage{URL: img},
		})
	}
	for _, v := range videos {
		msg.Attachments = append(msg.Attachments, models.Attachment{URL: v, Filename: fileName(v)})
	}

	msg.Primary = primary
	return msg
}

// Lead returns the text sent alongside the visual blocks. Changesets that are
// not integers belong to obfuscated commits and never ping the role.
func (f *Formatter) Lead(c models.Commit) string {
	if _, ok := c.Changeset.Int(); !ok {
		return fmt.Sprintf("New obfuscated commit by %s", c.User.Name)
	}
	summary := truncate(c.Summary(), MaxLeadSummaryLength)
	if f.opts.RoleID == "" {
		return fmt.Sprintf("New commit by %s, %s", c.User.Name, summary)
	}
	return fmt.Sprintf("New <@&%s> by %s, %s", f.opts.RoleID, c.User.Name, summary)
}

// ExtractMedia finds file-host URLs in message. Videos are returned in
// order of appearance; images are capped at MaxImages and the rest dropped.
func (f *Formatter) ExtractMedia(message string) (images, videos []string) {
	images = make([]string, 0, MaxImages)
	videos = make([]string, 0)

	for _, u := range f.mediaPattern.FindAllString(message, -1) {
		if IsVideo(u) {
			videos = append(videos, u)
			continue
		}
		if len(images) < MaxImages {
			images = append(images, u)
		}
	}
	return images, videos
}

// AvatarURL returns the author's avatar or the default avatar
func (f *Formatter) AvatarURL(c models.Commit) string {
	if c.User.Avatar != "" {
		return c.User.Avatar
	}
	return f.opts.DefaultAvatarURL
}

func (f *Formatter) branchURL(c models.Commit) string {
	return fmt.Sprintf("%s/r/%s/%s", f.opts.FeedBaseURL, c.Repo, url.PathEscape(c.Branch))
}

func (f *Formatter) commitURL(c models.Commit) string {
	return fmt.Sprintf("%s/%s", f.opts.FeedBaseURL, c.ID.String())
}

func (f *Formatter) profileURL(name string) string {
	return fmt.Sprintf("%s/%s/%s", f.opts.FeedBaseURL, strings.Join(strings.Fields(name), ""), f.opts.Repository)
}

// Title truncates line to MaxTitleLength characters including the marker
func Title(line string) string {
	return truncate(line, MaxTitleLength)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-len(truncationMarker)]) + truncationMarker
}

// Color derives a stable 24-bit color from an author name
func Color(name string) int {
	var h uint32
	for _, r := range name {
		h = h*31 + uint32(r)
	}
	return int(h & 0xFFFFFF)
}

// ColorHex renders Color as six hex digits
func ColorHex(name string) string {
	return fmt.Sprintf("%06x", Color(name))
}

// IsVideo reports whether u points at a video file
func IsVideo(u string) bool {
	p := u
	if parsed, err := url.Parse(u); err == nil {
		p = parsed.Path
	}
	return videoExtensions[strings.ToLower(path.Ext(p))]
}

func fileName(u string) string {
	if parsed, err := url.Parse(u); err == nil && parsed.Path != "" {
		return path.Base(parsed.Path)
	}
	return path.Base(u)
}
