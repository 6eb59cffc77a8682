package domain

import (
	"encoding/json"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseTransform(t *testing.T) {
	tests := []struct {
		raw    string
		want   TransformSpec
		wantOK bool
	}{
		{raw: "dedup", want: TransformSpec{Kind: "dedup"}, wantOK: true},
		{raw: "  resample  --tolerance 0.001 ", want: TransformSpec{Kind: "resample", Args: []string{"--tolerance", "0.001"}}, wantOK: true},
		{raw: "   ", wantOK: false},
		{raw: "", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := ParseTransform(tt.raw)
		if ok != tt.wantOK {
			t.Fatalf("ParseTransform(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("ParseTransform(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}
}

func TestTransformSpecValidate(t *testing.T) {
	valid := []TransformSpec{
		{Kind: "dedup"},
		{Kind: "texture-compress", Args: []string{"--slots", "baseColor"}},
	}
	for _, spec := range valid {
		if err := spec.Validate(); err != nil {
			t.Fatalf("Validate(%s) error = %v", spec, err)
		}
	}

	invalid := []TransformSpec{
		{Kind: ""},
		{Kind: "--dedup"},
		{Kind: "Dedup"},
		{Kind: "prune", Args: []string{" "}},
	}
	for _, spec := range invalid {
		if err := spec.Validate(); err == nil {
			t.Fatalf("Validate(%+v) expected error", spec)
		}
	}
}

func TestTransformSpecUnmarshalJSONAcceptsStringsAndObjects(t *testing.T) {
	var job JobDescriptor
	payload := `{"id":"a","files":["x.glb"],"outputDir":"/out","transforms":["dedup","  ",{"kind":"weld","args":["--tolerance","0.0001"]}]}`
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := []TransformSpec{
		{Kind: "dedup"},
		{},
		{Kind: "weld", Args: []string{"--tolerance", "0.0001"}},
	}
	if !reflect.DeepEqual(job.Transforms, want) {
		t.Fatalf("transforms = %+v, want %+v", job.Transforms, want)
	}
}

func TestTransformSpecUnmarshalYAML(t *testing.T) {
	doc := `
id: walk
files: [base.glb, walk.glb]
outputDir: /out
transforms:
  - prune --keep-leaves
  - kind: dedup
`
	var job JobDescriptor
	if err := yaml.Unmarshal([]byte(doc), &job); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := []TransformSpec{
		{Kind: "prune", Args: []string{"--keep-leaves"}},
		{Kind: "dedup"},
	}
	if !reflect.DeepEqual(job.Transforms, want) {
		t.Fatalf("transforms = %+v, want %+v", job.Transforms, want)
	}
}
