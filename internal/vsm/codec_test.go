package vsm

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/bookrec/internal/models"
)

func encodeScenario(t *testing.T) (*Model, []byte) {
	t.Helper()
	books := scenarioBooks()
	books[0].Price = models.Float(29.99)
	books[0].ReviewScore = models.Float(4.5)
	books[2].ReviewSummary = models.String("clear and practical")
	m, err := Build(books)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return m, buf.Bytes()
}

func TestCodec_RoundTrip(t *testing.T) {
	m, data := encodeScenario(t)
	got, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Size() != m.Size() || got.VocabularySize() != m.VocabularySize() {
		t.Fatalf("shape = %d/%d, want %d/%d", got.Size(), got.VocabularySize(), m.Size(), m.VocabularySize())
	}
	for _, q := range []string{
		"computer science machine learning python",
		"cooking",
		"",
		"deep deep learning",
	} {
		want := m.Similarities(m.Transform(q))
		have := got.Similarities(got.Transform(q))
		for i := range want {
			if want[i] != have[i] {
				t.Errorf("query %q item %d: score %v after round trip, want %v", q, i, have[i], want[i])
			}
		}
	}
	b, ok := got.Lookup("b1")
	if !ok || b.Price == nil || *b.Price != 29.99 || *b.ReviewScore != 4.5 {
		t.Errorf("b1 metadata lost: %+v", b)
	}
	if b3 := got.Item(2); b3.ReviewSummary == nil || *b3.ReviewSummary != "clear and practical" || b3.Price != nil {
		t.Errorf("b3 metadata = %+v", b3)
	}
}

func TestDecode_Corrupt(t *testing.T) {
	_, data := encodeScenario(t)

	flipped := bytes.Clone(data)
	flipped[len(flipped)/2] ^= 0xff

	badMagic := bytes.Clone(data)
	copy(badMagic, "XXXX")

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", badMagic},
		{"truncated", data[:len(data)-10]},
		{"missing checksum", data[:len(data)-4]},
		{"flipped byte", flipped},
		{"trailing data", append(bytes.Clone(data), 0)},
		{"not an artifact", []byte("book_title,book_price\nGo,10\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode(bytes.NewReader(tt.data))
			if !errors.Is(err, ErrLoadFailure) {
				t.Fatalf("Decode error = %v, want ErrLoadFailure", err)
			}
			if m != nil {
				t.Error("no model should be returned on failure")
			}
		})
	}
}

// textOfLen returns tokenizable text exactly n bytes long.
func textOfLen(n int) string {
	return strings.Repeat("go ", n/3) + strings.Repeat("x", n%3)
}

func TestCodec_StringLimit(t *testing.T) {
	tests := []struct {
		name    string
		textLen int
		wantErr bool
	}{
		{"at limit", maxStringLen, false},
		{"over limit", maxStringLen + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books := scenarioBooks()
			books[1].Text = textOfLen(tt.textLen)
			m, err := Build(books)
			if err != nil {
				t.Fatal(err)
			}
			var buf bytes.Buffer
			err = m.Encode(&buf)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Encode should reject a string Decode cannot read")
				}
				return
			}
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := Decode(&buf)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(got.Item(1).Text) != tt.textLen {
				t.Errorf("text length = %d, want %d", len(got.Item(1).Text), tt.textLen)
			}
		})
	}
}

func TestSave_OversizeKeepsExisting(t *testing.T) {
	m, _ := encodeScenario(t)
	path := filepath.Join(t.TempDir(), "model.bvsm")
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}
	books := scenarioBooks()
	books[0].ReviewSummary = models.String(textOfLen(maxStringLen + 1))
	big, err := Build(books)
	if err != nil {
		t.Fatal(err)
	}
	if err := big.Save(path); err == nil {
		t.Fatal("Save should fail for an oversize review summary")
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("previous artifact should still load: %v", err)
	}
	if b, _ := got.Lookup("b1"); b.ReviewSummary != nil {
		t.Error("artifact was replaced by the failed save")
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the artifact in directory, got %d entries", len(entries))
	}
}

func TestSaveLoad(t *testing.T) {
	m, _ := encodeScenario(t)
	path := filepath.Join(t.TempDir(), "nested", "model.bvsm")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Size() != 3 {
		t.Errorf("Size = %d, want 3", got.Size())
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the artifact in directory, got %d entries", len(entries))
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.bvsm"))
	if !errors.Is(err, ErrLoadFailure) {
		t.Errorf("Load error = %v, want ErrLoadFailure", err)
	}
}
