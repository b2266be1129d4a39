package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLocalName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"export1.csv", "export1.csv"},
		{"export1", "export1.csv"},
		{"export1.CSV", "export1.CSV.csv"},
		{"export1.txt", "export1.txt.csv"},
	}
	for _, c := range cases {
		if got := LocalName(c.in); got != c.want {
			t.Errorf("LocalName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDir_ListsOnlyCSVFiles(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.csv", "b.CSV", "notes.txt", ".hidden.csv"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(root, "sub.csv"), 0o755); err != nil {
		t.Fatal(err)
	}

	names, err := NewDir(root).List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"a.csv", "b.CSV"}; !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestDir_Fetch(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.csv"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	rc, err := NewDir(root).Fetch(context.Background(), "a.csv")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %q", data)
	}
}
