package archivable

// Codec provides content-type aware marshaling.
//
// An Archiver uses one Codec for the object payload and, optionally, another
// for the configuration snapshot.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/msgpack").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}
