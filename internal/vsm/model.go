package vsm

import (
	"fmt"
	"math"
	"sort"

	"github.com/hyperjump/bookrec/internal/models"
)

// Model is a trained TF-IDF vector space over a book corpus. Row i of the matrix belongs
// to item i. A Model is immutable once constructed and safe for concurrent readers.
type Model struct {
	vocabulary map[string]int
	terms      []string
	idf        []float64
	items      []models.Book
	rows       []Vector
	norms      []float64
	byID       map[string]int
}

// Build trains a model from books in order. Each book's Text is tokenized; books with
// empty text contribute no terms and get a zero row.
// IDF uses the smoothed form ln((1+N)/(1+df)) + 1; rows are L2-normalized TF-IDF.
func Build(books []models.Book) (*Model, error) {
	if len(books) == 0 {
		return nil, ErrCorpusEmpty
	}
	tokenized := make([][]string, len(books))
	docFreq := make(map[string]int)
	for i, b := range books {
		tokens := Tokenize(b.Text)
		tokenized[i] = tokens
		seen := make(map[string]bool, len(tokens))
		for _, tok := range tokens {
			if !seen[tok] {
				seen[tok] = true
				docFreq[tok]++
			}
		}
	}

	terms := make([]string, 0, len(docFreq))
	for term := range docFreq {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(books))
	vocabulary := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		vocabulary[term] = i
		idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	rows := make([]Vector, len(books))
	for i, tokens := range tokenized {
		rows[i] = weigh(tokens, vocabulary, idf)
	}
	return newModel(terms, idf, books, rows)
}

// newModel assembles a model from its persisted parts and derives lookup state.
func newModel(terms []string, idf []float64, items []models.Book, rows []Vector) (*Model, error) {
	if len(items) == 0 {
		return nil, ErrCorpusEmpty
	}
	if len(rows) != len(items) {
		return nil, fmt.Errorf("matrix has %d rows for %d items", len(rows), len(items))
	}
	if len(idf) != len(terms) {
		return nil, fmt.Errorf("idf has %d weights for %d terms", len(idf), len(terms))
	}
	m := &Model{
		vocabulary: make(map[string]int, len(terms)),
		terms:      terms,
		idf:        idf,
		items:      make([]models.Book, len(items)),
		rows:       rows,
		norms:      make([]float64, len(rows)),
		byID:       make(map[string]int, len(items)),
	}
	for i, term := range terms {
		if _, dup := m.vocabulary[term]; dup {
			return nil, fmt.Errorf("duplicate vocabulary term %q", term)
		}
		m.vocabulary[term] = i
	}
	for i, b := range items {
		if _, dup := m.byID[b.ID]; dup {
			return nil, fmt.Errorf("duplicate book id %q", b.ID)
		}
		m.byID[b.ID] = i
		m.items[i] = cloneBook(b)
		m.norms[i] = rows[i].Norm()
	}
	return m, nil
}

// weigh builds the normalized TF-IDF vector of tokens. Tokens outside the vocabulary are dropped.
func weigh(tokens []string, vocabulary map[string]int, idf []float64) Vector {
	counts := make(map[int]int)
	for _, tok := range tokens {
		if idx, ok := vocabulary[tok]; ok {
			counts[idx]++
		}
	}
	v := Vector{
		Indices: make([]int, 0, len(counts)),
		Weights: make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		v.Indices = append(v.Indices, idx)
	}
	sort.Ints(v.Indices)
	for _, idx := range v.Indices {
		v.Weights = append(v.Weights, float64(counts[idx])*idf[idx])
	}
	v.normalize()
	return v
}

// Transform projects text into the model's vector space. Unknown terms contribute nothing;
// empty input yields the zero vector.
func (m *Model) Transform(text string) Vector {
	return weigh(Tokenize(text), m.vocabulary, m.idf)
}

// Similarities returns the cosine similarity of q against every row, in corpus order.
func (m *Model) Similarities(q Vector) []float64 {
	scores := make([]float64, len(m.rows))
	qNorm := q.Norm()
	for i, row := range m.rows {
		scores[i] = cosine(q, row, qNorm, m.norms[i])
	}
	return scores
}

// Size returns the number of corpus items.
func (m *Model) Size() int {
	return len(m.items)
}

// VocabularySize returns the number of vocabulary terms (the vector dimensionality).
func (m *Model) VocabularySize() int {
	return len(m.terms)
}

// Item returns the i-th corpus item.
func (m *Model) Item(i int) models.Book {
	return cloneBook(m.items[i])
}

// Lookup returns the item with the given id.
func (m *Model) Lookup(id string) (models.Book, bool) {
	i, ok := m.byID[id]
	if !ok {
		return models.Book{}, false
	}
	return cloneBook(m.items[i]), true
}

// IDF returns the inverse document frequency of term, if it is in the vocabulary.
func (m *Model) IDF(term string) (float64, bool) {
	idx, ok := m.vocabulary[term]
	if !ok {
		return 0, false
	}
	return m.idf[idx], true
}

// Dimension returns the vector index of term, if it is in the vocabulary.
func (m *Model) Dimension(term string) (int, bool) {
	idx, ok := m.vocabulary[term]
	return idx, ok
}

func cloneBook(b models.Book) models.Book {
	out := b
	if b.Price != nil {
		out.Price = models.Float(*b.Price)
	}
	if b.ReviewScore != nil {
		out.ReviewScore = models.Float(*b.ReviewScore)
	}
	if b.ReviewSummary != nil {
		out.ReviewSummary = models.String(*b.ReviewSummary)
	}
	return out
}
