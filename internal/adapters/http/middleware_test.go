package httpadapter

import "testing"

func TestDocumentIDFromPath(t *testing.T) {
	cases := map[string]string{
		"/v1/documents":                     "",
		"/v1/documents/":                    "",
		"/v1/documents/a.csv-9f2c":          "a.csv-9f2c",
		"/v1/documents/a.csv-9f2c/password": "a.csv-9f2c",
		"/v1/documents/unlock":              "",
		"/v1/documents/bundle":              "",
		"/v1/ledger":                        "",
	}
	for path, want := range cases {
		if got := documentIDFromPath(path); got != want {
			t.Fatalf("documentIDFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}
