package drive

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Match
		wantErr bool
	}{
		{
			name:  "folders link",
			input: "https://drive.google.com/drive/folders/ABC123/?usp=sharing",
			want:  Match{Kind: MatchFolderLink, ID: "ABC123"},
		},
		{
			name:  "folders link with fragment",
			input: "https://drive.google.com/drive/folders/1aB-c_9#top",
			want:  Match{Kind: MatchFolderLink, ID: "1aB-c_9"},
		},
		{
			name:  "open id link",
			input: "https://drive.google.com/open?id=XYZ789",
			want:  Match{Kind: MatchOpenIDLink, ID: "XYZ789"},
		},
		{
			name:  "view link",
			input: "https://drive.google.com/file/d/FILE42/view",
			want:  Match{Kind: MatchViewLink, ID: "FILE42"},
		},
		{
			name:  "folderview link",
			input: "https://drive.google.com/folderview?id=FV100&usp=sharing",
			want:  Match{Kind: MatchFolderViewLink, ID: "FV100"},
		},
		{
			name:  "raw id with digits",
			input: "1y6kroiK1kAaNTq8pT4PXvhyWkBldBXgt",
			want:  Match{Kind: MatchRawID, ID: "1y6kroiK1kAaNTq8pT4PXvhyWkBldBXgt"},
		},
		{
			name:  "raw id with underscore only",
			input: "abc_def",
			want:  Match{Kind: MatchRawID, ID: "abc_def"},
		},
		{
			name:  "folders wins over open id",
			input: "https://drive.google.com/drive/folders/FIRST?open?id=SECOND",
			want:  Match{Kind: MatchFolderLink, ID: "FIRST"},
		},
		{
			// uc?id= names a file download, never a folder
			name:    "uc link rejected",
			input:   "https://drive.google.com/uc?id=XYZ",
			wantErr: true,
		},
		{
			name:    "unrelated URL rejected",
			input:   "https://example.com/whatever",
			wantErr: true,
		},
		{
			name:    "plain word rejected",
			input:   "hello",
			wantErr: true,
		},
		{
			name:    "empty rejected",
			input:   "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidIdentifier) {
					t.Fatalf("Resolve(%q) error = %v, want ErrInvalidIdentifier", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", tt.input, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestResolveFile(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Match
	}{
		{
			// accepted here even though Resolve rejects it
			name:  "uc link",
			input: "https://drive.google.com/uc?id=XYZ&export=download",
			want:  Match{Kind: MatchUCLink, ID: "XYZ"},
		},
		{
			name:  "view link with drivesdk suffix",
			input: "https://drive.google.com/file/d/FILE42/view?usp=drivesdk",
			want:  Match{Kind: MatchViewLink, ID: "FILE42"},
		},
		{
			name:  "open id link",
			input: "https://drive.google.com/open?id=OPEN77",
			want:  Match{Kind: MatchOpenIDLink, ID: "OPEN77"},
		},
		{
			name:  "export download link",
			input: "https://drive.google.com/uc?export=download&confirm=no_antivirus&id=EXP1",
			want:  Match{Kind: MatchExportLink, ID: "EXP1"},
		},
		{
			// last resort: the input itself is assumed to be an id
			name:  "raw fallback",
			input: "someid_123",
			want:  Match{Kind: MatchRawID, ID: "someid_123"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveFile(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ResolveFile(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestFindLinks(t *testing.T) {
	text := "grab https://drive.google.com/file/d/A1/view and " +
		"https://drive.google.com/open?id=B2 but not https://example.com/c"
	want := []string{
		"https://drive.google.com/file/d/A1/view",
		"https://drive.google.com/open?id=B2",
	}
	if diff := cmp.Diff(want, FindLinks(text)); diff != "" {
		t.Errorf("FindLinks mismatch (-want +got):\n%s", diff)
	}
}
