// Package unilake provides the Unilake proxy dialect. It extends ANSI with
// bracket identifiers and recognizes the proxy's own statements (TRANSPILE,
// SCAN TAGS, CREATE TAG, CREATE MASKING RULESET) as commands. The governance
// vocabulary is demoted to plain identifiers so that ordinary queries can
// use those words as column or table names.
//
// Command statements are classified and carried verbatim; their semantics
// are handled upstream by the proxy control plane.
package unilake

import (
	"github.com/unilakehq/queryguard/pkg/dialect"
	"github.com/unilakehq/queryguard/pkg/dialects/ansi"
)

func init() {
	dialect.Register(Unilake)
}

// Unilake is the Unilake proxy dialect.
var Unilake = dialect.New("unilake").
	Extends(ansi.ANSI).
	AltIdentifiers("[", "]", "]]").
	AltIdentifiers("`", "`", "``").
	DemoteKeywords(
		"MASKING", "RULESET", "POLICY", "CONDITION", "SECURITY",
		"DATASET", "ACCESS", "USAGE", "TRANSPILE", "SCAN",
	).
	CommandPrefix("TRANSPILE", "TRANSPILE").
	CommandPrefix("SCAN TAGS", "SCAN", "TAGS").
	CommandPrefix("CREATE TAG", "CREATE", "TAG").
	CommandPrefix("CREATE MASKING RULESET", "CREATE", "MASKING", "RULESET").
	Build()
