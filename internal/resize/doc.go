// Package resize implements the image resize and transcode pipeline.
// A request names a resize mode (scale, longest, exact, or none), an
// output format, and a quality, and the pipeline decodes the uploaded
// bytes, resizes, converts, and writes the result into a dedicated
// subfolder of the sandbox root. WebP encoding goes through libvips;
// the other formats use pure-Go encoders.
package resize
