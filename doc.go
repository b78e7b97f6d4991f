// Package mf bridges the Media Foundation transform contract (IMFTransform)
// between Go and native code.
//
// Two directions are supported:
//
//   - Go implementations of Transform are exposed to native callers through a
//     shadow object whose vtable matches IMFTransform slot for slot
//     (WrapTransform, TransformPointer).
//   - Any IMFTransform pointer, native or shadow, can be driven from Go through
//     TransformClient, which turns the sentinel-heavy raw protocol into
//     booleans, optional results and slices.
//
// # Architecture
//
//	native caller -> vtable slot -> thunk -> Transform (Go)
//	Go caller -> TransformClient -> vtable slot -> native MFT or shadow
//
// Media objects (samples, buffers, media types, attributes, events) are
// handled as COM references. NewMemoryBuffer, NewMemorySample and NewMediaType give
// Go-backed versions of them so transforms can run where mfplat is not
// available.
//
// RTPDepacketizerTransform and RTPPacketizerTransform are complete transforms
// built on pion/rtp: one turns RTP packets into codec frames, the other splits
// frames into MTU-sized RTP packets.
//
// # Platforms
//
// Vtables are minted with purego. Native calls need darwin, freebsd, netbsd,
// windows or linux on amd64/arm64; elsewhere only in-process calls work.
package mf
