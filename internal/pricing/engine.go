// Package pricing converts the heterogeneous pack/case/unit conventions of
// vendor invoice rows into canonical unit counts and per-unit costs.
//
// The rule set exists in two historically observed variants that disagree on
// one branch; both are preserved behind a configuration switch because
// produced amounts differ and the divergence could not be reconciled from
// the data alone.
package pricing

import (
	"strconv"
	"strings"

	"github.com/moderoemello/korona-ftp-csv-sync/internal/config"
)

// Engine derives canonical quantities and unit costs from raw row fields.
// All methods are pure.
type Engine struct {
	variant config.EngineVariant
}

func NewEngine(variant config.EngineVariant) *Engine {
	if variant == "" {
		variant = config.VariantStrict
	}
	return &Engine{variant: variant}
}

// inputs are the normalized numeric fields a rule evaluation runs on.
type inputs struct {
	quantity      int
	packsPerCase  int
	unitsPerPack  int
	unitOfMeasure string
	glCode        string
}

// normalize parses the raw fields and applies the pack-field fallback:
// a missing or non-positive unitsPerPack takes packsPerCase's value and
// vice versa; when both are missing, both default to 1. A non-numeric
// quantity counts as zero and therefore contributes nothing.
func normalize(quantity, packsPerCase, unitsPerPack, unitOfMeasure, glCode string) inputs {
	qty, ok := parseIntField(quantity)
	if !ok {
		qty = 0
	}
	upp, uppOK := parseIntField(unitsPerPack)
	ppc, ppcOK := parseIntField(packsPerCase)

	if !uppOK || upp <= 0 {
		if !ppcOK || ppc <= 0 {
			upp = 1
		} else {
			upp = ppc
		}
	}
	if !ppcOK || ppc <= 0 {
		// upp is already normalized to >= 1 at this point.
		ppc = upp
	}

	return inputs{
		quantity:      qty,
		packsPerCase:  ppc,
		unitsPerPack:  upp,
		unitOfMeasure: strings.ToUpper(strings.TrimSpace(unitOfMeasure)),
		glCode:        strings.ToUpper(strings.TrimSpace(glCode)),
	}
}

// CanonicalUnits converts a raw quantity into the unit-of-measure-normalized
// count used for both inventory amounts and unit-cost division.
func (e *Engine) CanonicalUnits(quantity, packsPerCase, unitsPerPack, unitOfMeasure, glCode string) int {
	return e.canonicalUnits(normalize(quantity, packsPerCase, unitsPerPack, unitOfMeasure, glCode))
}

// canonicalUnits evaluates the rules in order; the first match wins. The
// ordering is contractual and must not be rearranged.
func (e *Engine) canonicalUnits(in inputs) int {
	// 1. Non-positive quantities contribute nothing.
	if in.quantity <= 0 {
		return 0
	}
	// 2. Each/bottle units are never multiplied.
	if in.unitOfMeasure == "EA" || in.unitOfMeasure == "BO" {
		return in.quantity
	}
	// 3. The variant-divergent branch.
	if e.rule3(in) {
		return in.quantity * in.unitsPerPack
	}
	// 4. Four-pack beer cases count per pack unit.
	if in.packsPerCase == 4 && in.glCode == "BEER" {
		return in.quantity * in.unitsPerPack
	}
	// 5. No per-pack count but a case count: multiply by the case.
	if in.unitsPerPack == 0 && in.packsPerCase >= 1 {
		return in.quantity * in.packsPerCase
	}
	// 6. Default.
	return in.quantity * in.packsPerCase
}

var caseUnitCounts = map[int]bool{4: true, 6: true, 9: true, 12: true, 15: true, 16: true, 18: true, 24: true, 48: true}

func (e *Engine) rule3(in inputs) bool {
	if e.variant == config.VariantLegacy {
		// Drifted historical branch, preserved verbatim including its
		// operator precedence and the extra 20-unit condition.
		return in.packsPerCase == 1 ||
			in.packsPerCase == 2 ||
			(in.packsPerCase == 6 &&
				(caseUnitCounts[in.unitsPerPack] ||
					(in.unitsPerPack == 20 && in.unitOfMeasure == "CA")))
	}
	return (in.packsPerCase == 1 && in.unitOfMeasure == "CA") ||
		(in.unitOfMeasure == "CA" && caseUnitCounts[in.unitsPerPack])
}

// UnitCost derives the canonical per-unit cost for a row. The discount
// adjustment is spread across the canonical units; a missing discount field
// counts as zero. A missing or zero raw cost defaults to 1 before division.
func (e *Engine) UnitCost(rawCost, packsPerCase, unitsPerPack, unitOfMeasure, discountAdjustmentTotal, quantity, glCode string) float64 {
	in := normalize(quantity, packsPerCase, unitsPerPack, unitOfMeasure, glCode)
	if in.quantity <= 0 {
		return 0
	}

	cost, ok := parseFloatField(rawCost)
	if !ok || cost == 0 {
		cost = 1
	}
	discount, ok := parseFloatField(discountAdjustmentTotal)
	if !ok {
		discount = 0
	}

	totalUnits := e.canonicalUnits(in)
	// quantity > 0 and normalized pack fields are >= 1, so totalUnits > 0
	// here; the division below cannot produce a NaN.
	discountPerUnit := discount / float64(totalUnits)

	if in.unitOfMeasure == "EA" || in.unitOfMeasure == "BO" {
		return (float64(in.quantity)*cost + discount) / float64(in.quantity)
	}
	if in.packsPerCase == 12 || in.packsPerCase == 15 || in.packsPerCase == 16 {
		return cost/float64(in.packsPerCase) + discountPerUnit
	}
	return cost/float64(in.unitsPerPack) + discountPerUnit
}

func parseIntField(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Vendor files occasionally carry integral values as "12.0".
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, false
		}
		return int(f), true
	}
	return n, true
}

func parseFloatField(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
