// Package limits provides centralized size constants and validation functions
// for filedrop. The chunker, the transcoder, the session manager and the
// configuration layer all validate against the same numbers.
//
// # Limits
//
//   - MinChunkSize (16 KiB) and MaxChunkSize (10 MiB): the default accepted
//     range for split sizes. Both can be overridden through configuration.
//
//   - MaxEncodeSize (256 MiB): the default cap on files handed to the base64
//     transcoder, which holds the file and its encoding in memory.
//
//   - MinPort and MaxPort: the bindable TCP port range.
//
// # Validation Functions
//
//	if err := limits.ValidateChunkSize(size, 0, 0); err != nil {
//	    // errors.Is(err, limits.ErrOutOfRange)
//	}
//
// ValidateSize treats a non-positive cap as "no cap".
package limits
