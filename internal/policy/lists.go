// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package policy

// DefaultAllow holds texts that are never redacted: public institutions,
// procedural roles and section labels that recognizers routinely tag as
// persons or organizations.
var DefaultAllow = []string{
	// institutions
	"Tribunale", "Tribunale di Roma", "Tribunale di Milano", "Corte di Cassazione",
	"Corte Suprema di Cassazione", "Corte d'Appello", "Corte Costituzionale",
	"Consiglio di Stato", "TAR", "Procura della Repubblica", "Repubblica Italiana",
	"Ministero della Giustizia", "Agenzia delle Entrate", "INPS", "INAIL",
	"Unione Europea", "Corte di Giustizia", "Garante per la protezione dei dati personali",
	"Supreme Court", "High Court", "European Union",
	// roles
	"Attore", "Attrice", "Parte Attrice", "Convenuto", "Convenuta", "Ricorrente",
	"Resistente", "Appellante", "Appellato", "Giudice", "Giudice Istruttore",
	"Pubblico Ministero", "Cancelliere", "Avvocato", "Difensore", "Consulente Tecnico",
	"Plaintiff", "Defendant", "Appellant", "Respondent", "Court", "Judge", "Counsel",
	// section labels
	"Premesso", "Fatto", "Diritto", "Motivi", "Motivi della Decisione", "Conclusioni",
	"P.Q.M.", "Svolgimento del Processo", "Considerato", "Ritenuto", "Oggetto",
	"Allegato", "Allegati", "Indice", "Sommario",
}

// DefaultDenyPatterns match texts that look like entities but are citations
// or procedural references.
var DefaultDenyPatterns = []string{
	// law number and year, e.g. 196/2003
	`^\d{1,4}/\d{4}$`,
	// article and paragraph references
	`(?i)^(art|artt|comma|lett|par)\.?\s*\d`,
	// code abbreviations
	`(?i)^(c\.c\.|c\.p\.|c\.p\.c\.|c\.p\.p\.)$`,
	// docket numbers
	`(?i)^(r\.g\.|n\.r\.g\.)`,
	// bare numbers
	`^\d{1,4}$`,
}
