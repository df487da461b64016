// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pattern

import (
	"regexp"
	"strconv"

	"lexredact/internal/detector"
)

// binRange is a range of issuer identification numbers for one vendor
type binRange struct {
	Start  int
	End    int
	Vendor string
}

type creditCardRecognizer struct {
	regex            *regexp.Regexp
	binRanges        []binRange
	testPatterns     []*regexp.Regexp
	positiveKeywords []string
	negativeKeywords []string
}

func newCreditCardRecognizer() *creditCardRecognizer {
	return &creditCardRecognizer{
		// grouped by four with space or dash, or a bare 13-19 digit run
		regex: regexp.MustCompile(`\b(?:\d{4}[ -]\d{4}[ -]\d{4}[ -]\d{1,7}|\d{4}[ -]\d{6}[ -]\d{4,5}|\d{13,19})\b`),
		binRanges: []binRange{
			{400000, 499999, "Visa"},
			{510000, 559999, "MasterCard"},
			{222100, 272099, "MasterCard"},
			{340000, 349999, "American Express"},
			{370000, 379999, "American Express"},
			{601100, 601199, "Discover"},
			{644000, 659999, "Discover"},
			{350000, 359999, "JCB"},
			{300000, 309999, "Diners Club"},
			{360000, 369999, "Diners Club"},
			{380000, 389999, "Diners Club"},
			{620000, 629999, "UnionPay"},
			{500000, 509999, "Maestro"},
			{560000, 589999, "Maestro"},
		},
		testPatterns: []*regexp.Regexp{
			regexp.MustCompile(`^1234567890123456$`),
			regexp.MustCompile(`^1111222233334444$`),
			regexp.MustCompile(`^4111111111111111$`),
			regexp.MustCompile(`^5555555555554444$`),
			regexp.MustCompile(`^4000000000000002$`),
			regexp.MustCompile(`^5100000000000008$`),
			regexp.MustCompile(`^340000000000009$`),
		},
		positiveKeywords: []string{
			"carta di credito", "carta", "credit", "card", "visa", "mastercard", "amex",
			"american express", "pagamento", "payment", "titolare", "cardholder", "scadenza", "cvv",
		},
		negativeKeywords: []string{
			"r.g.", "rg n", "n. r.g", "protocollo", "prot.", "pratica", "ruolo", "repertorio",
			"iban", "sentenza n", "ordine", "fattura", "invoice",
		},
	}
}

func (r *creditCardRecognizer) entityType() detector.EntityType { return detector.TypeCreditCard }

func (r *creditCardRecognizer) find(text string, ce *detector.ContextExtractor) []detector.Candidate {
	var out []detector.Candidate
	for _, loc := range r.regex.FindAllStringIndex(text, -1) {
		digits := onlyDigits(text[loc[0]:loc[1]])
		if len(digits) < 13 || len(digits) > 19 || !luhnCheck(digits) {
			continue
		}
		if allSameDigit(digits) {
			continue
		}

		info := ce.Extract(text, detector.Span{Start: loc[0], End: loc[1]})
		vendor := r.vendor(digits)
		checks := map[string]bool{
			"luhn":     true,
			"vendor":   vendor != "",
			"not_test": !r.isTestPattern(digits),
			"context":  info.HasKeyword(r.positiveKeywords),
		}

		score := 0.80
		if checks["vendor"] {
			score = 0.93
		}
		if checks["context"] {
			score += 0.05
		}
		if info.HasKeyword(r.negativeKeywords) {
			score -= 0.30
		}
		if !checks["not_test"] {
			score = 0.15
		}
		c := newCandidate(detector.TypeCreditCard, text, loc[0], loc[1], score, checks)
		if vendor != "" {
			c.Metadata["vendor"] = vendor
		}
		out = append(out, c)
	}
	return out
}

func (r *creditCardRecognizer) vendor(digits string) string {
	if len(digits) < 6 {
		return ""
	}
	bin, err := strconv.Atoi(digits[:6])
	if err != nil {
		return ""
	}
	for _, br := range r.binRanges {
		if bin >= br.Start && bin <= br.End {
			return br.Vendor
		}
	}
	return ""
}

func (r *creditCardRecognizer) isTestPattern(digits string) bool {
	for _, re := range r.testPatterns {
		if re.MatchString(digits) {
			return true
		}
	}
	return false
}

// luhnCheck implements the Luhn algorithm
func luhnCheck(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
