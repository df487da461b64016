// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"lexredact/internal/detector"
	"lexredact/internal/policy"
	"lexredact/internal/redactors/placeholder"
)

// TypeInfo describes one entity type for the help output
type TypeInfo struct {
	ShortDescription string
	Recognizers      []string
	Examples         []string
}

var typeInfo = map[detector.EntityType]TypeInfo{
	detector.TypePerson: {
		ShortDescription: "Names of natural persons",
		Recognizers:      []string{"statistical (titles, given-name lexicon, capitalization)", "transformer"},
		Examples:         []string{"il sig. Mario Rossi", "Avv. Giulia De' Medici"},
	},
	detector.TypeOrganization: {
		ShortDescription: "Companies, firms and public bodies",
		Recognizers:      []string{"statistical (legal-form suffixes such as S.r.l., S.p.A.)", "transformer"},
		Examples:         []string{"Alfa Costruzioni S.r.l."},
	},
	detector.TypeLocation: {
		ShortDescription: "Cities, provinces and places",
		Recognizers:      []string{"statistical (place prepositions)", "transformer"},
		Examples:         []string{"nato a Bologna"},
	},
	detector.TypeDate: {
		ShortDescription: "Calendar dates, numeric or written out",
		Recognizers:      []string{"statistical (numeric and written-out dates)", "transformer"},
		Examples:         []string{"01/02/1980", "3 marzo 2021"},
	},
	detector.TypeEmail: {
		ShortDescription: "E-mail and PEC addresses",
		Recognizers:      []string{"pattern"},
		Examples:         []string{"mario.rossi@pec.it"},
	},
	detector.TypePhone: {
		ShortDescription: "Italian landline and mobile numbers",
		Recognizers:      []string{"pattern"},
		Examples:         []string{"+39 333 1234567", "06 1234567"},
	},
	detector.TypeFiscalCode: {
		ShortDescription: "Italian codice fiscale, with check-character validation",
		Recognizers:      []string{"pattern"},
		Examples:         []string{"RSSMRA80A01H501U"},
	},
	detector.TypeVATNumber: {
		ShortDescription: "Italian partita IVA, with control-digit validation",
		Recognizers:      []string{"pattern"},
		Examples:         []string{"P.IVA 01234567897"},
	},
	detector.TypeIBAN: {
		ShortDescription: "International bank account numbers, mod-97 checked",
		Recognizers:      []string{"pattern"},
		Examples:         []string{"IT60 X054 2811 1010 0000 0123 456"},
	},
	detector.TypeCreditCard: {
		ShortDescription: "Payment card numbers, Luhn checked",
		Recognizers:      []string{"pattern"},
		Examples:         []string{"4111 1111 1111 1111"},
	},
	detector.TypeAddress: {
		ShortDescription: "Street addresses",
		Recognizers:      []string{"pattern (via, piazza, corso ... with house number)"},
		Examples:         []string{"Via Roma 12"},
	},
	detector.TypeCustom: {
		ShortDescription: "Configured keywords, always redacted",
		Recognizers:      []string{"keyword"},
		Examples:         []string{"detection.keywords: [\"Progetto Orione\"]"},
	},
}

// System manages help content for the application
type System struct {
	out     io.Writer
	noColor bool
	colors  map[string]*color.Color
}

// NewSystem creates a help system writing to out
func NewSystem(out io.Writer, noColor bool) *System {
	return &System{
		out:     out,
		noColor: noColor,
		colors: map[string]*color.Color{
			"title":    color.New(color.FgWhite, color.Bold),
			"header":   color.New(color.FgBlue, color.Bold),
			"item":     color.New(color.FgCyan),
			"emphasis": color.New(color.FgWhite, color.Bold),
			"negative": color.New(color.FgRed),
			"example":  color.New(color.FgMagenta),
		},
	}
}

// paint returns s in the named color unless colors are off
func (h *System) paint(name, s string) string {
	if h.noColor {
		return s
	}
	return h.colors[name].Sprint(s)
}

func (h *System) println(name, s string) {
	fmt.Fprintln(h.out, h.paint(name, s))
}

// ShowGeneralHelp displays usage, the flag table and examples
func (h *System) ShowGeneralHelp(flagUsages string) {
	h.println("title", "lexredact - PII redaction for legal documents")
	fmt.Fprintln(h.out, "==============================================")
	fmt.Fprintln(h.out)
	h.println("header", "USAGE:")
	fmt.Fprintln(h.out, "  lexredact --file <document> [options]")
	fmt.Fprintln(h.out, "  lexredact-learn --action <list|confirm|deny|remove|rules|allow|block|unrule|cleanup> [options]")
	fmt.Fprintln(h.out)

	h.println("header", "OPTIONS:")
	fmt.Fprint(h.out, flagUsages)
	fmt.Fprintln(h.out)

	h.println("header", "EXAMPLES:")
	h.println("example", "  lexredact --file sentenza.pdf")
	h.println("example", "  lexredact --file sentenza.pdf --profile thorough --output-dir ./redacted")
	h.println("example", "  lexredact --file atto.txt --review --store ~/.config/lexredact/learned.db")
	h.println("example", "  lexredact --file atto.json --dry-run --format json")
	h.println("example", "  lexredact --explain FISCAL_CODE")
	fmt.Fprintln(h.out)

	h.println("header", "OUTPUTS:")
	fmt.Fprintln(h.out, "  <name>.redacted.json    redacted page document")
	fmt.Fprintln(h.out, "  <name>.redacted.txt     page texts with placeholders")
	fmt.Fprintln(h.out, "  <name>.audit.json       audit log with the mapping table")
	fmt.Fprintln(h.out, "  <name>.mapping.<ext>    mapping table in --mapping-format")
	fmt.Fprintln(h.out)

	h.println("header", "CONFIGURATION:")
	fmt.Fprintln(h.out, "  Project config: lexredact.yaml or .lexredact.yaml (in current directory)")
	fmt.Fprintln(h.out, "  User config:    $XDG_CONFIG_HOME/lexredact/config.yaml")
	fmt.Fprintln(h.out, "  Environment:    LEXREDACT_CONFIG_DIR overrides the config directory")
}

// ShowTypesHelp lists every entity type
func (h *System) ShowTypesHelp() {
	h.println("title", "Entity types")
	fmt.Fprintln(h.out)

	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, h.paint("header", "  TYPE\tCODE\tTHRESHOLD\tDESCRIPTION"))
	for _, t := range detector.AllTypes {
		fmt.Fprintf(w, "  %s\t%s\t%.2f\t%s\n",
			h.paint("emphasis", string(t)), placeholder.Code(t), policy.BaseThreshold(t), typeInfo[t].ShortDescription)
	}
	w.Flush()

	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, "For the thresholds of one type by depth and document genre, use:")
	h.println("example", "  lexredact --explain <type>")
}

var genres = []policy.DocumentType{
	policy.DocumentGeneral, policy.DocumentLegal, policy.DocumentMedical, policy.DocumentAdministrative,
}

var depths = []detector.Depth{
	detector.DepthFast, detector.DepthBalanced, detector.DepthThorough, detector.DepthMaximum,
}

// ShowTypeHelp displays detailed help for one entity type
func (h *System) ShowTypeHelp(name string) bool {
	t, err := detector.ParseEntityType(name)
	if err != nil {
		fmt.Fprintln(h.out, h.paint("negative", fmt.Sprintf("Error: entity type '%s' not found.", name)))
		fmt.Fprintln(h.out, "Use 'lexredact --explain types' to see a list of entity types.")
		return false
	}
	info := typeInfo[t]

	title := fmt.Sprintf("%s (%s)", t, info.ShortDescription)
	h.println("title", title)
	fmt.Fprintln(h.out, strings.Repeat("=", len(title)))
	fmt.Fprintln(h.out)

	stem := placeholder.Stem(t, 1)
	example, _ := placeholder.Fit(stem, 1, len(stem)+4)
	fmt.Fprintf(h.out, "Placeholder: %s, padded to the original length, e.g. %s\n", stem, example)
	if t.Structured() {
		fmt.Fprintln(h.out, "Structured identifier: format and checksum drive the score.")
	}
	fmt.Fprintln(h.out)

	if len(info.Recognizers) > 0 {
		h.println("header", "RECOGNIZERS:")
		for _, r := range info.Recognizers {
			fmt.Fprintf(h.out, "  - %s\n", h.paint("item", r))
		}
		fmt.Fprintln(h.out)
	}

	h.println("header", "THRESHOLDS:")
	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	header := "  GENRE"
	for _, d := range depths {
		header += "\t" + strings.ToUpper(d.String())
	}
	fmt.Fprintln(w, header)
	for _, g := range genres {
		fmt.Fprintf(w, "  %s", g)
		for _, d := range depths {
			fmt.Fprintf(w, "\t%.2f", policy.Threshold(t, g, d))
		}
		fmt.Fprintln(w)
	}
	w.Flush()
	fmt.Fprintln(h.out)

	if len(info.Examples) > 0 {
		h.println("header", "EXAMPLES:")
		for _, e := range info.Examples {
			fmt.Fprintf(h.out, "  %s\n", h.paint("example", e))
		}
	}
	return true
}
