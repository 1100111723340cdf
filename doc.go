// Package pnglib decodes and encodes PNG 1.2 / ISO 15948 images.
//
// Reader and Writer expose the streaming, chunk-at-a-time API over an
// io.Reader / io.Writer; Decode and Encode are a one-call facade for
// callers who just want a pixel buffer in one of a fixed set of
// layouts. Internal packages implement the chunk wire protocol,
// scanline filters, Adam7 interlacing, the pixel-transform pipeline,
// and the DEFLATE adapter; this package wires them together and owns
// the public error taxonomy.
package pnglib
