package control

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/genricoloni/versecast/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Reference is a parsed "book chapter[:verse]" query
type Reference struct {
	Book    string
	Chapter int
	Verse   int
}

// Book and chapter are separated by whitespace, chapter and verse by ':' or whitespace.
var referencePattern = regexp.MustCompile(`(.+?)\s+(\d+)(?:[:\s](\d+))?`)

var hasDigit = regexp.MustCompile(`\d`)

// ParseReference parses operator input such as "Rut 1:5", "rut 1 5" or
// "1 Juan 3". The verse defaults to 1.
func ParseReference(input string) (Reference, error) {
	m := referencePattern.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return Reference{}, fmt.Errorf("%q: %w", input, domain.ErrBadQuery)
	}
	book := strings.TrimSpace(m[1])
	chapter, err := strconv.Atoi(m[2])
	if err != nil || book == "" {
		return Reference{}, fmt.Errorf("%q: %w", input, domain.ErrBadQuery)
	}
	ref := Reference{Book: book, Chapter: chapter, Verse: 1}
	if m[3] != "" {
		if ref.Verse, err = strconv.Atoi(m[3]); err != nil {
			return Reference{}, fmt.Errorf("%q: %w", input, domain.ErrBadQuery)
		}
	}
	return ref, nil
}

// Fold lowercases s and strips diacritics so "Génesis" matches "genesis"
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// ResolveBook finds the book named by query: an exact folded match first,
// then the first book whose folded name starts with the query.
func ResolveBook(books []domain.Book, query string) (domain.Book, bool) {
	q := Fold(strings.TrimSpace(query))
	if q == "" {
		return domain.Book{}, false
	}
	for _, b := range books {
		if Fold(b.Name) == q {
			return b, true
		}
	}
	for _, b := range books {
		if strings.HasPrefix(Fold(b.Name), q) {
			return b, true
		}
	}
	return domain.Book{}, false
}

func (t *Tracker) booksOf(ctx context.Context, version string) ([]domain.Book, error) {
	t.mu.Lock()
	cached, ok := t.books[version]
	t.mu.Unlock()
	if ok {
		return cached, nil
	}

	v, err, _ := t.group.Do("books:"+version, func() (any, error) {
		books, err := t.lib.Books(ctx, version)
		if err != nil {
			return nil, fmt.Errorf("list books of %s: %w", version, err)
		}
		t.mu.Lock()
		t.books[version] = books
		t.mu.Unlock()
		return books, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Book), nil
}

// Books lists the books of the active version
func (t *Tracker) Books(ctx context.Context) ([]domain.Book, error) {
	return t.booksOf(ctx, t.Version())
}

// Search parses input, fetches the single verse it names in the active
// version and projects it. Input that does not parse or names no known
// book fails with ErrBadQuery and changes nothing.
func (t *Tracker) Search(ctx context.Context, input string) (domain.ContentItem, error) {
	ref, err := ParseReference(input)
	if err != nil {
		return domain.ContentItem{}, err
	}

	version := t.Version()
	books, err := t.booksOf(ctx, version)
	if err != nil {
		t.logger.Error("Failed to list books", zap.String("version", version), zap.Error(err))
		return domain.ContentItem{}, err
	}
	book, ok := ResolveBook(books, ref.Book)
	if !ok {
		return domain.ContentItem{}, fmt.Errorf("unknown book %q: %w", ref.Book, domain.ErrBadQuery)
	}

	v, err := t.lib.Verse(ctx, version, book.Name, ref.Chapter, ref.Verse)
	if err != nil {
		t.logger.Warn("Search found no verse",
			zap.String("book", book.Name),
			zap.Int("chapter", ref.Chapter),
			zap.Int("verse", ref.Verse),
			zap.Error(err))
		return domain.ContentItem{}, err
	}

	item := domain.NewVerse(version, book.Name, ref.Chapter, v.Number, v.Text)
	if err := t.Project(ctx, item); err != nil {
		return domain.ContentItem{}, err
	}
	return item, nil
}

// Suggest completes a partially typed book name. Input containing digits,
// or already naming a book exactly, gets no suggestion.
func (t *Tracker) Suggest(ctx context.Context, input string) string {
	if input == "" || hasDigit.MatchString(input) {
		return ""
	}
	books, err := t.booksOf(ctx, t.Version())
	if err != nil {
		return ""
	}
	q := Fold(input)
	for _, b := range books {
		name := Fold(b.Name)
		if strings.HasPrefix(name, q) {
			if name == q {
				return ""
			}
			return b.Name
		}
	}
	return ""
}
