// Package e2e provides end-to-end tests that train on a book catalog and query over HTTP.
package e2e

import (
	"fmt"
	"strings"

	"github.com/hyperjump/bookrec/internal/models"
)

// CatalogBook is a book entry in the E2E catalog.
type CatalogBook struct {
	ID          string
	Title       string
	Summary     string
	Price       float64
	ReviewScore float64
}

// QueryTestCase is a recommendation query and the book ID(s) that must appear in its results.
type QueryTestCase struct {
	Domain      string
	Modules     []string
	ExpectedIDs []string
	Description string
}

// Corpus holds the catalog and query test cases for E2E tests.
type Corpus struct {
	Books        []CatalogBook
	TestCases    []QueryTestCase
	TotalBooks   int
	TotalQueries int
}

// queryDomain does not occur in any catalog text, so only module terms drive ranking.
const queryDomain = "Curriculum"

// BuildCorpus returns a catalog where every book carries a signature phrase, plus one query
// per signature phrase.
func BuildCorpus() *Corpus {
	books := buildBooks()
	cases := buildQueryTestCases(books)
	return &Corpus{
		Books:        books,
		TestCases:    cases,
		TotalBooks:   len(books),
		TotalQueries: len(cases),
	}
}

var topics = []struct {
	title  string
	phrase string
	blurb  string
}{
	{"Python Crash Course", "python programming", "A fast paced introduction. Python programming for beginners with projects."},
	{"Kubernetes Up and Running", "kubernetes orchestration", "Deploy containers at scale. Kubernetes orchestration explained for operators."},
	{"Learning React", "react hooks", "Modern user interfaces. React hooks and components from first principles."},
	{"The Go Programming Language", "golang concurrency", "Goroutines and channels. Golang concurrency patterns for services."},
	{"PostgreSQL Internals", "postgresql relational", "How the planner works. PostgreSQL relational storage and vacuum."},
	{"Hands-On Machine Learning", "machine learning algorithms", "Practical models with scikit. Machine learning algorithms for tabular data."},
	{"Neural Networks from Scratch", "neural network backpropagation", "Build every layer yourself. Neural network backpropagation step by step."},
	{"RESTful Web APIs", "rest endpoints", "Resource oriented design. REST endpoints and hypermedia controls."},
	{"Production GraphQL", "graphql schema", "Serving typed queries. GraphQL schema design and resolvers."},
	{"Effective TypeScript", "typescript generics", "Sixty two ways to improve. TypeScript generics and type narrowing."},
	{"Redis in Action", "redis caching", "In memory data structures. Redis caching and pubsub recipes."},
	{"Terraform Up and Running", "terraform modules", "Infrastructure described in files. Terraform modules and remote state."},
	{"Prometheus Monitoring", "prometheus alerting", "Metrics for cloud systems. Prometheus alerting rules and exporters."},
	{"Introduction to Statistics", "statistics inference", "Sampling and distributions. Statistics inference with confidence intervals."},
	{"Linear Algebra Done Right", "linear algebra eigenvalues", "Vector spaces without determinants. Linear algebra eigenvalues and operators."},
	{"Calculus Made Easy", "calculus derivatives", "An approachable classic. Calculus derivatives and integrals for everyone."},
	{"Designing Data-Intensive Applications", "distributed replication", "Reliable scalable systems. Distributed replication and partitioning tradeoffs."},
	{"The Pragmatic Programmer", "pragmatic craftsmanship", "Journey to mastery. Pragmatic craftsmanship habits for developers."},
	{"Clean Architecture", "architecture boundaries", "Structure and design. Architecture boundaries and dependency rules."},
	{"Site Reliability Engineering", "reliability budgets", "Running production at scale. Reliability budgets and toil reduction."},
	{"Cryptography Engineering", "cryptography ciphers", "Design principles and applications. Cryptography ciphers and key exchange."},
	{"Natural Language Processing with Transformers", "transformers attention", "Building language applications. Transformers attention and tokenization."},
	{"Deep Reinforcement Learning", "reinforcement rewards", "Agents that learn by trial. Reinforcement rewards and policy gradients."},
	{"Computer Vision Basics", "vision convolution", "Seeing with pixels. Vision convolution filters and detection."},
	{"Database Indexing Strategies", "btree indexing", "Making queries fast. Btree indexing and covering indexes."},
	{"Kafka the Definitive Guide", "kafka streaming", "Real time data pipelines. Kafka streaming and consumer groups."},
	{"Web Security Testing", "penetration testing", "Finding vulnerabilities. Penetration testing of web applications."},
	{"Agile Estimating and Planning", "scrum sprints", "Delivering iteratively. Scrum sprints and story points."},
	{"Italian Home Cooking", "pasta sauces", "Family recipes. Pasta sauces from the regions of Italy."},
	{"Bread Baking Science", "sourdough fermentation", "Flour water salt. Sourdough fermentation and crumb structure."},
}

func buildBooks() []CatalogBook {
	out := make([]CatalogBook, 0, len(topics))
	for i, t := range topics {
		out = append(out, CatalogBook{
			ID:          fmt.Sprintf("book-%03d", i+1),
			Title:       t.title,
			Summary:     t.blurb,
			Price:       9.99 + float64(i),
			ReviewScore: float64(1 + i%5),
		})
	}
	return out
}

func buildQueryTestCases(books []CatalogBook) []QueryTestCase {
	cases := make([]QueryTestCase, 0, len(books))
	for i, b := range books {
		phrase := topics[i].phrase
		if !containsPhrase(b, phrase) {
			continue
		}
		cases = append(cases, QueryTestCase{
			Domain:      queryDomain,
			Modules:     strings.Fields(phrase),
			ExpectedIDs: []string{b.ID},
			Description: fmt.Sprintf("modules %q should recommend %s", phrase, b.ID),
		})
	}
	return cases
}

func containsPhrase(b CatalogBook, phrase string) bool {
	phrase = strings.ToLower(phrase)
	return strings.Contains(strings.ToLower(b.Title), phrase) || strings.Contains(strings.ToLower(b.Summary), phrase)
}

// ToBooks converts the catalog to models.Book with the text blob the ingest layer would build.
func (c *Corpus) ToBooks() []models.Book {
	out := make([]models.Book, len(c.Books))
	for i, b := range c.Books {
		out[i] = models.Book{
			ID:            b.ID,
			Title:         b.Title,
			Price:         models.Float(b.Price),
			ReviewScore:   models.Float(b.ReviewScore),
			ReviewSummary: models.String(b.Summary),
			Text:          b.Title + " " + b.Summary,
		}
	}
	return out
}
