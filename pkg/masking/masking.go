// Package masking provides the built-in library of column masking
// transforms. Each transform maps a column reference and a property bag to
// a replacement expression tree; the library is closed and unknown names
// leave the column untouched.
package masking

import (
	"github.com/unilakehq/queryguard/pkg/parser"
	"github.com/unilakehq/queryguard/pkg/token"
)

// Names reserved for future transforms. They classify as known rules but
// currently leave the column unchanged.
var reserved = map[string]struct{}{
	"mail_hash_pres":  {},
	"mail_mask_pres":  {},
	"cc_hash_pres":    {},
	"cc_mask_pres":    {},
	"cc_last_four":    {},
	"ip_hash_pres":    {},
	"semi_structured": {},
	"custom":          {},
}

// Apply returns the replacement expression for a masking rule applied to a
// column reference. Unknown and reserved-but-unimplemented rule names
// return the column unchanged. The input column is never aliased into the
// result; callers keep their own copies where needed.
func Apply(name string, props map[string]string, col *parser.ColumnRef) parser.Expr {
	prop := func(key string) string { return props[key] }
	column := func() parser.Expr { return parser.CloneExpr(col) }

	switch name {
	case "xxhash3":
		return parser.Func("XX_HASH3_128", column())

	case "replace_null":
		return parser.Null()

	case "replace_char":
		// REPEAT(replacement, LENGTH(col))
		return parser.Func("REPEAT",
			parser.String(prop("replacement")),
			parser.Func("LENGTH", column()),
		)

	case "replace_string":
		return parser.String(prop("replacement"))

	case "mask_except_last":
		// CONCAT(REPEAT(value, LENGTH(col) - len), RIGHT(col, len))
		return parser.Func("CONCAT",
			parser.Func("REPEAT",
				parser.String(prop("value")),
				sub(parser.Func("LENGTH", column()), parser.Number(prop("len"))),
			),
			parser.Func("RIGHT", column(), parser.Number(prop("len"))),
		)

	case "mask_except_first":
		// CONCAT(LEFT(col, len), REPEAT(value, LENGTH(col) - len))
		return parser.Func("CONCAT",
			parser.Func("LEFT", column(), parser.Number(prop("len"))),
			parser.Func("REPEAT",
				parser.String(prop("value")),
				sub(parser.Func("LENGTH", column()), parser.Number(prop("len"))),
			),
		)

	case "rounding":
		return parser.Func("ROUND", column(), parser.Number(prop("value")))

	case "random_number":
		// FLOOR((max - min + 1) * RAND() + min)
		span := add(sub(parser.Number(prop("max")), parser.Number(prop("min"))), parser.Number("1"))
		return parser.Func("FLOOR",
			add(mul(span, parser.Func("RAND")), parser.Number(prop("min"))),
		)

	case "random_multiplication":
		// RAND() * max
		return mul(parser.Func("RAND"), parser.Number(prop("max")))

	case "left":
		return parser.Func("LEFT", column(), parser.Number(prop("len")))

	case "right":
		return parser.Func("RIGHT", column(), parser.Number(prop("len")))

	case "mail_mask_username":
		// CONCAT_WS('@', REPEAT('x', LOCATE('@', col) - 1), SPLIT_PART(col, '@', 2))
		return parser.Func("CONCAT_WS",
			parser.String("@"),
			parser.Func("REPEAT",
				parser.String("x"),
				sub(parser.Func("LOCATE", parser.String("@"), column()), parser.Number("1")),
			),
			parser.Func("SPLIT_PART", column(), parser.String("@"), parser.Number("2")),
		)

	case "mail_mask_domain":
		// CONCAT_WS('@', SPLIT_PART(col, '@', 1),
		//   CONCAT(REPEAT('x', CHAR_LENGTH(domain) - CHAR_LENGTH(tld) - 1), '.', tld))
		// where domain = SPLIT_PART(col, '@', 2) and tld = SPLIT_PART(domain, '.', -1).
		domain := func() parser.Expr {
			return parser.Func("SPLIT_PART", column(), parser.String("@"), parser.Number("2"))
		}
		tld := func() parser.Expr {
			return parser.Func("SPLIT_PART", domain(), parser.String("."), parser.Neg(parser.Number("1")))
		}
		times := sub(
			sub(parser.Func("CHAR_LENGTH", domain()), parser.Func("CHAR_LENGTH", tld())),
			parser.Number("1"),
		)
		return parser.Func("CONCAT_WS",
			parser.String("@"),
			parser.Func("SPLIT_PART", column(), parser.String("@"), parser.Number("1")),
			parser.Func("CONCAT",
				parser.Func("REPEAT", parser.String("x"), times),
				parser.String("."),
				tld(),
			),
		)

	case "date_year_only":
		return parser.Func("DATE_TRUNC", parser.String("YEAR"), column())

	case "date_month_only":
		return parser.Func("DATE_TRUNC", parser.String("MONTH"), column())

	case "ip_anonymize":
		// CONCAT_WS('.', SPLIT_PART(col, '.', 1), SPLIT_PART(col, '.', 2), '0', '0')
		return parser.Func("CONCAT_WS",
			parser.String("."),
			parser.Func("SPLIT_PART", column(), parser.String("."), parser.Number("1")),
			parser.Func("SPLIT_PART", column(), parser.String("."), parser.Number("2")),
			parser.String("0"),
			parser.String("0"),
		)

	case "ip_mask_pres":
		// Every octet becomes a run of * of its own length.
		args := []parser.Expr{parser.String(".")}
		for _, octet := range []string{"1", "2", "3", "4"} {
			args = append(args, parser.Func("REPEAT",
				parser.String("*"),
				parser.Func("CHAR_LENGTH",
					parser.Func("SPLIT_PART", column(), parser.String("."), parser.Number(octet)),
				),
			))
		}
		return parser.Func("CONCAT_WS", args...)
	}

	if _, ok := reserved[name]; ok {
		return column()
	}
	return column()
}

// Known reports whether a rule name belongs to the library, including
// reserved names.
func Known(name string) bool {
	if _, ok := reserved[name]; ok {
		return true
	}
	switch name {
	case "xxhash3", "replace_null", "replace_char", "replace_string",
		"mask_except_last", "mask_except_first", "rounding",
		"random_number", "random_multiplication", "left", "right",
		"mail_mask_username", "mail_mask_domain",
		"date_year_only", "date_month_only",
		"ip_anonymize", "ip_mask_pres":
		return true
	}
	return false
}

func sub(left, right parser.Expr) parser.Expr {
	return &parser.BinaryExpr{Left: left, Op: token.MINUS, Right: right}
}

func add(left, right parser.Expr) parser.Expr {
	return &parser.BinaryExpr{Left: left, Op: token.PLUS, Right: right}
}

func mul(left, right parser.Expr) parser.Expr {
	return &parser.BinaryExpr{Left: left, Op: token.STAR, Right: right}
}
