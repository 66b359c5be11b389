package utils

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestEncodeDecode(t *testing.T) {
	in := sample{Name: "token", Count: 3}

	blob, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if blob == "" {
		t.Fatal("Encode returned an empty blob")
	}

	out, err := Decode[sample](blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("roundtrip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := Decode[sample]("not base64!!!"); err == nil {
		t.Error("Decode accepted invalid base64")
	}
}
