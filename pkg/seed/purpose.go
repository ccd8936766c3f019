package seed

import "fmt"

// Purpose identifies which artifact a derived seed feeds.
type Purpose int

const (
	PurposeSong Purpose = iota
	PurposeLikes
	PurposeReview
	PurposeLyrics
	PurposeCover
	PurposeAudio
)

var purposeNames = [...]string{
	PurposeSong:   "song",
	PurposeLikes:  "likes",
	PurposeReview: "review",
	PurposeLyrics: "lyrics",
	PurposeCover:  "cover",
	PurposeAudio:  "audio",
}

func (p Purpose) String() string {
	if p < 0 || int(p) >= len(purposeNames) {
		return fmt.Sprintf("purpose(%d)", int(p))
	}
	return purposeNames[p]
}

// Tag returns the stable purpose string hashed into the seed, e.g.
// "audio|en-US".
func (p Purpose) Tag(locale string) string {
	return p.String() + "|" + locale
}
