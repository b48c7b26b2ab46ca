// Package dialect provides SQL dialect configuration for the lexer, parser
// and generator. Concrete dialect definitions live in pkg/dialects/* and
// register themselves with this package's registry.
package dialect

import "strings"

// NormalizationStrategy defines how unquoted identifiers are normalized.
type NormalizationStrategy int

const (
	// NormLowercase normalizes unquoted identifiers to lowercase (default SQL behavior).
	NormLowercase NormalizationStrategy = iota
	// NormUppercase normalizes unquoted identifiers to uppercase (Snowflake).
	NormUppercase
	// NormCaseSensitive preserves identifier case exactly (StarRocks, MySQL).
	NormCaseSensitive
)

// IdentifierConfig defines how identifiers are quoted and normalized.
type IdentifierConfig struct {
	Quote         string                // Opening quote character: ", `, [
	QuoteEnd      string                // Closing quote character (] for [, else same as Quote)
	Escape        string                // Escape sequence for an embedded closing quote: "", ``, ]]
	Normalization NormalizationStrategy // How to normalize unquoted identifiers
}

// CommandPattern recognizes a statement by its leading keyword sequence and
// routes it to a CommandStmt with the given head. The remaining raw token
// stream becomes the command payload.
type CommandPattern struct {
	Head  string
	Words []string
}

// Dialect represents a SQL dialect configuration.
type Dialect struct {
	Name        string
	Identifiers IdentifierConfig

	// AltIdentQuotes are additional identifier quote pairs accepted on input
	// (e.g. [brackets] in T-SQL flavored dialects).
	AltIdentQuotes []IdentifierConfig

	parent   *Dialect
	demoted  map[string]struct{} // keywords lexed as plain identifiers
	commands []CommandPattern
}

// NormalizeName normalizes an identifier according to dialect rules.
func (d *Dialect) NormalizeName(name string) string {
	switch d.Identifiers.Normalization {
	case NormUppercase:
		return strings.ToUpper(name)
	case NormLowercase:
		return strings.ToLower(name)
	default:
		return name
	}
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// IsDemoted reports whether a keyword is demoted to a plain identifier in
// this dialect. The lookup walks the parent chain.
func (d *Dialect) IsDemoted(word string) bool {
	lower := strings.ToLower(word)
	if _, ok := d.demoted[lower]; ok {
		return true
	}
	if d.parent != nil {
		return d.parent.IsDemoted(word)
	}
	return false
}

// Commands returns the command patterns recognized by this dialect,
// longest keyword sequence first, including inherited patterns.
func (d *Dialect) Commands() []CommandPattern {
	var out []CommandPattern
	for cur := d; cur != nil; cur = cur.parent {
		out = append(out, cur.commands...)
	}
	// Longest match wins: order CREATE MASKING RULESET before CREATE TAG.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && len(out[j].Words) > len(out[j-1].Words); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Parent returns the parent dialect, if any.
func (d *Dialect) Parent() *Dialect {
	return d.parent
}

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// New creates a new dialect builder with the given name. The default
// identifier configuration is ANSI double quotes with lowercase
// normalization.
func New(name string) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name: name,
			Identifiers: IdentifierConfig{
				Quote:         `"`,
				QuoteEnd:      `"`,
				Escape:        `""`,
				Normalization: NormLowercase,
			},
			demoted: make(map[string]struct{}),
		},
	}
}

// Extends inherits demotions and command patterns from a parent dialect.
func (b *Builder) Extends(parent *Dialect) *Builder {
	b.dialect.parent = parent
	b.dialect.Identifiers = parent.Identifiers
	b.dialect.AltIdentQuotes = append([]IdentifierConfig(nil), parent.AltIdentQuotes...)
	return b
}

// Identifiers configures identifier quoting and normalization.
func (b *Builder) Identifiers(quote, quoteEnd, escape string, norm NormalizationStrategy) *Builder {
	b.dialect.Identifiers = IdentifierConfig{
		Quote:         quote,
		QuoteEnd:      quoteEnd,
		Escape:        escape,
		Normalization: norm,
	}
	return b
}

// AltIdentifiers adds an identifier quote pair accepted on input only.
func (b *Builder) AltIdentifiers(quote, quoteEnd, escape string) *Builder {
	b.dialect.AltIdentQuotes = append(b.dialect.AltIdentQuotes, IdentifierConfig{
		Quote:    quote,
		QuoteEnd: quoteEnd,
		Escape:   escape,
	})
	return b
}

// DemoteKeywords lexes the given keywords as plain identifiers.
func (b *Builder) DemoteKeywords(words ...string) *Builder {
	for _, w := range words {
		b.dialect.demoted[strings.ToLower(w)] = struct{}{}
	}
	return b
}

// CommandPrefix recognizes statements whose leading keywords match the given
// sequence, routing them to a CommandStmt with the given head.
func (b *Builder) CommandPrefix(head string, words ...string) *Builder {
	b.dialect.commands = append(b.dialect.commands, CommandPattern{Head: head, Words: words})
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	return b.dialect
}
