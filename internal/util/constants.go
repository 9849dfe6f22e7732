package util

const (
	// MaxChunkBytes is the largest payload sent in a single streamed message.
	// 16-64kb is the ideal stream chunk size according to https://jbrandhorst.com/post/grpc-binary-blob-stream/
	MaxChunkBytes = 63 * 1024 // leave room for 1kb of other things
)

// Chunk splits buf into consecutive slices of at most MaxChunkBytes, calling fn on each
func Chunk(buf []byte, fn func(chunk []byte) error) error {
	for i := 0; i < len(buf); i += MaxChunkBytes {
		end := i + MaxChunkBytes
		if end > len(buf) {
			end = len(buf)
		}
		if err := fn(buf[i:end]); err != nil {
			return err
		}
	}
	return nil
}
