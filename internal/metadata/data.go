package metadata

// Attribute is a structured key/value pair attached to recorded
// events. Values are plain strings: URLs, hashes, paths, identifiers.
type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrURL       AttributeKey = "url"
	AttrHost      AttributeKey = "host"
	AttrArchive   AttributeKey = "archive"
	AttrSourceID  AttributeKey = "source_id"
	AttrWritePath AttributeKey = "write_path"
	AttrHash      AttributeKey = "hash"
	AttrMessage   AttributeKey = "message"
)

// ArtifactKind names the outputs the pipeline produces.
type ArtifactKind string

const (
	ArtifactRecord ArtifactKind = "record"
	ArtifactImage  ArtifactKind = "image"
)
