package format

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahidhasan98/commit-notifier/internal/models"
)

func testFormatter() *Formatter {
	return New(Options{
		FeedBaseURL:      "https://commits.facepunch.com/",
		FilesBaseURL:     "https://files.facepunch.com",
		Repository:       "rust_reboot",
		RoleID:           "555",
		BrandingIconURL:  "https://example.com/logo.png",
		DefaultAvatarURL: "https://example.com/default.png",
	})
}

func testCommit(message string) models.Commit {
	return models.Commit{
		ID:        models.NumericID(523118),
		Repo:      "rust_reboot",
		Branch:    "feature/new ui",
		User:      models.CommitUser{Name: "Alistair McFarlane", Avatar: "https://files.facepunch.com/s/a.png"},
		Message:   message,
		Changeset: models.NewFlexID("104567"),
		Created:   "2026-10-19T08:10:11",
	}
}

func image(n int) string {
	return fmt.Sprintf("https://files.facepunch.com/alistair/shot%d.png", n)
}

func TestTitleTruncation(t *testing.T) {
	long := strings.Repeat("a", 300)
	title := Title(long)
	assert.Equal(t, MaxTitleLength, utf8.RuneCountInString(title))
	assert.True(t, strings.HasSuffix(title, "..."))

	medium := strings.Repeat("b", 200)
	assert.Equal(t, medium, Title(medium))

	exact := strings.Repeat("c", 256)
	assert.Equal(t, exact, Title(exact))
}

func TestTitleTruncationCountsCharacters(t *testing.T) {
	title := Title(strings.Repeat("ü", 300))

	assert.Equal(t, MaxTitleLength, utf8.RuneCountInString(title))
	assert.True(t, utf8.ValidString(title))
}

func TestFormatPrimaryBlock(t *testing.T) {
	msg := testFormatter().Format(testCommit("Fixed furnace\n\n  Smelting works again.  \n"))

	p := msg.Primary
	assert.Equal(t, "Fixed furnace", p.Title)
	assert.Equal(t, "Smelting works again.", p.Description)
	assert.Equal(t, "https://commits.facepunch.com/r/rust_reboot/feature%2Fnew%20ui", p.URL)
	assert.Equal(t, Color("Alistair McFarlane"), p.Color)
	assert.Equal(t, "2026-10-19T08:10:11Z", p.Timestamp)

	require.NotNil(t, p.Author)
	assert.Equal(t, "Alistair McFarlane", p.Author.Name)
	assert.Equal(t, "https://files.facepunch.com/s/a.png", p.Author.IconURL)
	assert.Equal(t, "https://commits.facepunch.com/AlistairMcFarlane/rust_reboot", p.Author.URL)

	require.NotNil(t, p.Footer)
	assert.Equal(t, "Changeset 104567", p.Footer.Text)
	assert.Equal(t, "https://example.com/logo.png", p.Footer.IconURL)

	require.Len(t, p.Fields, 1)
	assert.Equal(t, "Commit Details", p.Fields[0].Name)
	assert.Equal(t, "Commit ID: [523118](https://commits.facepunch.com/523118)\nBranch: [feature/new ui](https://commits.facepunch.com/r/rust_reboot/feature%2Fnew%20ui)", p.Fields[0].Value)

	assert.Nil(t, p.Image)
	assert.Empty(t, msg.Secondary)
	assert.Empty(t, msg.Attachments)
}

func TestFormatOmitsBlankBody(t *testing.T) {
	msg := testFormatter().Format(testCommit("Single line"))
	assert.Empty(t, msg.Primary.Description)

	msg = testFormatter().Format(testCommit("Title\n   \n\t\n"))
	assert.Empty(t, msg.Primary.Description)
}

func TestFormatDefaultAvatar(t *testing.T) {
	c := testCommit("x")
	c.User.Avatar = ""

	msg := testFormatter().Format(c)

	assert.Equal(t, "https://example.com/default.png", msg.Primary.Author.IconURL)
}

func TestImageCap(t *testing.T) {
	lines := []string{"Lots of screenshots"}
	for i := 1; i <= 6; i++ {
		lines = append(lines, image(i))
	}

	msg := testFormatter().Format(testCommit(strings.Join(lines, "\n")))

	require.NotNil(t, msg.Primary.Image)
	assert.Equal(t, image(1), msg.Primary.Image.URL)
	require.Len(t, msg.Secondary, 3)
	for i, e := range msg.Secondary {
		assert.Equal(t, "Additional Image", e.Title)
		assert.Equal(t, image(i+2), e.Image.URL)
		assert.Equal(t, msg.Primary.Color, e.Color)
		assert.Equal(t, msg.Primary.URL, e.URL)
	}
	assert.Len(t, msg.Embeds(), 4)
	assert.Empty(t, msg.Attachments)
}

func TestVideoClassification(t *testing.T) {
	message := strings.Join([]string{
		"Video and image",
		"https://files.facepunch.com/a/clip.mp4",
		image(1),
		"https://files.facepunch.com/a/Other.MOV and https://files.facepunch.com/a/x.mkv",
	}, "\n")

	msg := testFormatter().Format(testCommit(message))

	require.Len(t, msg.Attachments, 3)
	assert.Equal(t, models.Attachment{URL: "https://files.facepunch.com/a/clip.mp4", Filename: "clip.mp4"}, msg.Attachments[0])
	assert.Equal(t, "Other.MOV", msg.Attachments[1].Filename)
	assert.Equal(t, "x.mkv", msg.Attachments[2].Filename)

	for _, e := range msg.Embeds() {
		if e.Image != nil {
			assert.False(t, IsVideo(e.Image.URL), "video %s must not be an image block", e.Image.URL)
		}
	}
	assert.Equal(t, image(1), msg.Primary.Image.URL)
	assert.Empty(t, msg.Secondary)
}

func TestVideosDoNotCountTowardsImageCap(t *testing.T) {
	lines := []string{"Mixed"}
	for i := 1; i <= 3; i++ {
		lines = append(lines, fmt.Sprintf("https://files.facepunch.com/v/%d.mp4", i))
	}
	for i := 1; i <= 5; i++ {
		lines = append(lines, image(i))
	}

	images, videos := testFormatter().ExtractMedia(strings.Join(lines, "\n"))

	assert.Len(t, videos, 3)
	assert.Equal(t, []string{image(1), image(2), image(3), image(4)}, images)
}

func TestOnlyFileHostURLsAreMedia(t *testing.T) {
	images, videos := testFormatter().ExtractMedia("see https://imgur.com/a.png and https://files.facepunch.com.evil.io/b.png")

	assert.Empty(t, images)
	assert.Empty(t, videos)
}

func TestLeadText(t *testing.T) {
	f := testFormatter()

	numeric := testCommit("Fixed furnace\nbody")
	assert.Equal(t, "New <@&555> by Alistair McFarlane, Fixed furnace", f.Lead(numeric))

	numeric.Changeset = models.NumericID(104565)
	assert.Equal(t, "New <@&555> by Alistair McFarlane, Fixed furnace", f.Lead(numeric))

	obfuscated := testCommit("Hidden")
	obfuscated.Changeset = models.NewFlexID("e3f1b2")
	assert.Equal(t, "New obfuscated commit by Alistair McFarlane", f.Lead(obfuscated))

	noRole := New(Options{FeedBaseURL: "https://c", FilesBaseURL: "https://f"})
	assert.Equal(t, "New commit by Alistair McFarlane, Fixed furnace", noRole.Lead(testCommit("Fixed furnace")))
}

func TestLeadTextFitsMessageLimit(t *testing.T) {
	f := testFormatter()

	lead := f.Lead(testCommit(strings.Repeat("é", 5000) + "\nbody"))

	assert.LessOrEqual(t, utf8.RuneCountInString(lead), 2000)
	assert.True(t, strings.HasPrefix(lead, "New <@&555> by Alistair McFarlane, "))
	assert.True(t, strings.HasSuffix(lead, "..."))

	short := f.Lead(testCommit(strings.Repeat("x", MaxLeadSummaryLength)))
	assert.True(t, strings.HasSuffix(short, strings.Repeat("x", 10)))
}

func TestFormatSerialisesZeroColor(t *testing.T) {
	c := testCommit("Anonymous fix")
	c.User.Name = ""
	require.Equal(t, 0, Color(""))

	out, err := json.Marshal(testFormatter().Format(c).Primary)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"color":0`)
}

func TestColorIsDeterministicSixHexDigits(t *testing.T) {
	hexColor := regexp.MustCompile(`^[0-9a-f]{6}$`)

	for _, name := range []string{"", "a", "Garry Newman", "Alistair McFarlane", strings.Repeat("z", 500), "Jörg"} {
		assert.Equal(t, Color(name), Color(name))
		assert.Regexp(t, hexColor, ColorHex(name))
		assert.LessOrEqual(t, Color(name), 0xFFFFFF)
		assert.GreaterOrEqual(t, Color(name), 0)
	}
	assert.NotEqual(t, Color("Garry Newman"), Color("Alistair McFarlane"))
	assert.Equal(t, "000061", ColorHex("a"))
}

func TestFormatIsPure(t *testing.T) {
	f := testFormatter()
	c := testCommit("Same\n" + image(1))

	assert.Equal(t, f.Format(c), f.Format(c))
}
