package workflow

import "testing"

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"OME-NGFF": FormatNGFF,
		"ome-ngff": FormatNGFF,
		" zarr ":   FormatNGFF,
		"OME-TIFF": FormatTIFF,
		"tif":      FormatTIFF,
	}
	for input, want := range cases {
		got, err := ParseFormat(input)
		if err != nil {
			t.Fatalf("ParseFormat(%q) error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseFormat(%q) = %q want %q", input, got, want)
		}
	}
	if _, err := ParseFormat("PNG"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestStatusLabels(t *testing.T) {
	if StatusCompleted.Label() != "Completed" {
		t.Fatalf("unexpected label %q", StatusCompleted.Label())
	}
	if TaskError.Label() != "Error" {
		t.Fatalf("unexpected label %q", TaskError.Label())
	}
	if !TaskFailed.Terminal() || TaskRunning.Terminal() {
		t.Fatal("unexpected terminal classification")
	}
}

func TestKindNames(t *testing.T) {
	want := map[Kind]string{
		KindConvertNGFF: "Convert to NGFF",
		KindConvertTIFF: "Convert to TIFF",
		KindFinalize:    "Save output",
	}
	for kind, name := range want {
		if kind.String() != name {
			t.Fatalf("Kind %d name = %q want %q", int(kind), kind.String(), name)
		}
	}
}
