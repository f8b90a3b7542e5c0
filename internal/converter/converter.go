package converter

import "context"

// Converter runs one external conversion synchronously. The returned code is
// the tool's exit status; zero together with a nil error means success.
type Converter interface {
	Convert(ctx context.Context, input, output string, params []string, listener ProgressListener) (int, error)
}

// NGFF writes an OME-NGFF tree from a microscopy input file.
type NGFF interface {
	Converter
}

// TIFF packages an OME-NGFF tree into a pyramidal OME-TIFF.
type TIFF interface {
	Converter
}

// ProgressListener receives progress callbacks from a running conversion.
// Implementations are called from the goroutine running Convert.
type ProgressListener interface {
	Start(seriesCount int, chunkCount int64)
	SeriesStart(series int)
	SeriesEnd(series int)
	ChunkStart(chunk int64)
	ChunkEnd(chunk int64)
}

// NopListener discards all progress events.
type NopListener struct{}

func (NopListener) Start(int, int64) {}
func (NopListener) SeriesStart(int)  {}
func (NopListener) SeriesEnd(int)    {}
func (NopListener) ChunkStart(int64) {}
func (NopListener) ChunkEnd(int64)   {}

// Func adapts a plain function to the Converter interface.
type Func func(ctx context.Context, input, output string, params []string, listener ProgressListener) (int, error)

// Convert calls f.
func (f Func) Convert(ctx context.Context, input, output string, params []string, listener ProgressListener) (int, error) {
	return f(ctx, input, output, params, listener)
}
