package index

import (
	"encoding/binary"
	"math"
)

// buildHashFields flattens text, vector, and metadata into a hash field map.
func buildHashFields(text string, vector []float32, meta map[string]string) map[string]string {
	m := make(map[string]string, 2+len(meta))
	m["__content"] = text
	m["__vector"] = vectorToBytes(vector)
	for k, v := range meta {
		m[k] = v
	}
	return m
}

// parseHashFields splits a hash field map back into text and metadata.
func parseHashFields(fields map[string]string) (string, map[string]string) {
	var text string
	meta := make(map[string]string, len(fields))
	for k, v := range fields {
		switch k {
		case "__content":
			text = v
		case "__vector":
			// not exposed to callers
		default:
			meta[k] = v
		}
	}
	return text, meta
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
