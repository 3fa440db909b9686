package application

import "slices"

// DefaultEmoji is used when a plan is created without a category.
const DefaultEmoji = "🎉"

// DefaultEmojiCatalog lists the selectable plan categories.
var DefaultEmojiCatalog = []string{"🎉", "🍻", "🎬", "🎮", "🏖️", "🏃‍♂️", "🍕", "☕", "🎵", "📸", "🛶", "🏔️"}

// EmojiCatalog is the ordered set of allowed plan categories.
type EmojiCatalog struct {
	emojis []string
}

// NewEmojiCatalog builds a catalog, falling back to DefaultEmojiCatalog when
// emojis is empty. The default emoji is always included.
func NewEmojiCatalog(emojis []string) EmojiCatalog {
	if len(emojis) == 0 {
		emojis = DefaultEmojiCatalog
	}
	out := make([]string, 0, len(emojis)+1)
	for _, e := range emojis {
		if e != "" && !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	if !slices.Contains(out, DefaultEmoji) {
		out = append([]string{DefaultEmoji}, out...)
	}
	return EmojiCatalog{emojis: out}
}

// Contains reports whether emoji is a catalog entry.
func (c EmojiCatalog) Contains(emoji string) bool {
	return slices.Contains(c.emojis, emoji)
}

// List returns a copy of the catalog entries in display order.
func (c EmojiCatalog) List() []string {
	return slices.Clone(c.emojis)
}
