package types

// ImageSource points at the image to analyze. Exactly one field is expected
// to be set; URL wins over Path, Path wins over Data.
type ImageSource struct {
	URL  string
	Path string
	Data []byte
}

// String returns a short human readable description of the source
func (s ImageSource) String() string {
	switch {
	case s.URL != "":
		return s.URL
	case s.Path != "":
		return s.Path
	default:
		return "<in-memory image>"
	}
}

// Analysis is the normalized output of a single vision call.
// All strings are lower-cased by the classifier before matching.
type Analysis struct {
	Tags     []string `json:"tags"`
	Objects  []string `json:"objects"`
	Captions []string `json:"captions"`
}

// ModelResponse is the JSON document LLM-backed vision clients are asked to return
type ModelResponse struct {
	Tags        []string      `json:"tags"`
	Objects     []ModelObject `json:"objects"`
	Description string        `json:"description"`
}

// ModelObject is a detected object label reported by an LLM backend
type ModelObject struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Match locations reported in ClassifyResult.MatchedIn
const (
	MatchedInTags     = "tags"
	MatchedInObjects  = "objects"
	MatchedInCaptions = "captions"
)

// ClassifyResult is the outcome of testing one image for one keyword
type ClassifyResult struct {
	Keyword   string   `json:"keyword"`
	Matched   bool     `json:"matched"`
	MatchedIn string   `json:"matched_in,omitempty"`
	Tags      []string `json:"tags"`
}

// BlobDescriptor describes a remote object. Folder membership is derived
// from the name prefix only.
type BlobDescriptor struct {
	Name string
	Size int64
}

// PrepareOptions controls how images are re-encoded before being sent to a model
type PrepareOptions struct {
	Format  string // jpg|png|webp
	MaxSize int    // max long side in px, 0=original
	Quality int    // 1-100, jpg/webp only
}
