// Package converter drives the external image conversion tools.
//
// bioformats2raw writes OME-NGFF (Zarr) from any Bio-Formats readable input and
// raw2ometiff packages an NGFF tree into a pyramidal OME-TIFF. Both are opaque
// to this module: a conversion is an exit code plus an optional stream of
// progress events delivered to a ProgressListener. Tracker turns those events
// into a coarse completion fraction.
package converter
