// Package metadata extracts embedded textual key/value metadata from image
// containers. Generated PNGs carry the generation prompt and workflow as
// JSON text stored in tEXt/zTXt/iTXt chunks.
package metadata
