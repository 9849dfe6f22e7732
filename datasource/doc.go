// Package datasource contains the helpers shared by source file decoders:
// byte-range alignment of line-oriented records, and schema inference. The
// decoders themselves live in the sor, dsv and jsonl subpackages.
//
// A record belongs to the byte range containing its first byte. A range which
// starts in the middle of a record skips ahead to the next one, and a record
// which starts inside a range is read to its end even if that lies past the
// end of the range, so adjacent ranges partition a file exactly.
package datasource

import "github.com/go-sif/liquid/dataframe"

// Decoder turns byte ranges of a source file into typed columns
type Decoder = dataframe.Decoder
