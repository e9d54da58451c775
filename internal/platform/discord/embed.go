package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/embedforge/embedforge/internal/embed"
)

// attachmentURL is how Discord addresses a file uploaded with the same
// message from inside the embed body.
func attachmentURL(ref embed.IconRef) string {
	return "attachment://" + ref.Filename
}

func draftToMessageEmbed(d embed.Draft) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       d.Title,
		Description: d.Description,
		URL:         d.URL,
	}
	if d.Color != nil {
		out.Color = *d.Color
	}
	if d.Timestamp != nil {
		out.Timestamp = d.Timestamp.Format(time.RFC3339)
	}
	if d.Author != nil {
		out.Author = &discordgo.MessageEmbedAuthor{
			Name: d.Author.Name,
			URL:  d.Author.URL,
		}
		if d.Author.Icon.IsFile() {
			out.Author.IconURL = attachmentURL(d.Author.Icon)
		}
	}
	if d.Footer != nil {
		out.Footer = &discordgo.MessageEmbedFooter{
			Text: d.Footer.Text,
		}
		if d.Footer.Icon.IsFile() {
			out.Footer.IconURL = attachmentURL(d.Footer.Icon)
		}
	}
	if d.Image.IsFile() {
		out.Image = &discordgo.MessageEmbedImage{URL: attachmentURL(d.Image)}
	}
	if d.Thumbnail.IsFile() {
		out.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: attachmentURL(d.Thumbnail)}
	}
	for _, f := range d.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return out
}
