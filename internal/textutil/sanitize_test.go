package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"20200203_112244":  "20200203_112244",
		"2020-02-03 11:22": "2020-02-03 11-22",
		" a?b*c ":          "ab-c",
		"..":               "",
		"x/y":              "x-y",
	}
	for in, want := range cases {
		if got := SanitizeFileName(in); got != want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeRelativePath(t *testing.T) {
	cases := map[string]string{
		"2020/2020_02":     "2020/2020_02",
		"/2020//02/":       "2020/02",
		"2020/../etc":      "2020/etc",
		"Mon 11:22/photos": "Mon 11-22/photos",
		"":                 "",
	}
	for in, want := range cases {
		if got := SanitizeRelativePath(in); got != want {
			t.Fatalf("SanitizeRelativePath(%q) = %q, want %q", in, got, want)
		}
	}
}
