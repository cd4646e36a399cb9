// Package extract maps acquired page text into typed records with per-field
// confidence, using layered pattern matching: structural table rows first,
// then lexical rules over the residual text.
package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/propdoc-io/propdoc/internal/config"
	"github.com/propdoc-io/propdoc/internal/document"
)

// Extractor turns pages into structured unit, lease and tenant records.
type Extractor struct {
	threshold float64
}

// New creates an Extractor with the configured confidence threshold.
func New(cfg config.ExtractionConfig) *Extractor {
	return &Extractor{threshold: cfg.FieldThreshold}
}

// candidate is one observed value for a (unit, field) pair before resolution.
type candidate struct {
	value string
	conf  float64
	page  int
	order int // global occurrence index, breaks remaining ties
}

// group accumulates candidates for a single unit instance.
type group struct {
	unit  string
	cands map[string][]candidate
}

// Records runs both extraction layers over the pages and assembles
// StructuredRecords. Pages must be complete: entity clustering needs the
// whole document.
func (e *Extractor) Records(docID string, version int, pages []document.Page) []*document.StructuredRecord {
	groups := make(map[string]*group)
	var groupOrder []string
	order := 0

	add := func(unit, name, value string, conf float64, page int) {
		g, ok := groups[unit]
		if !ok {
			g = &group{unit: unit, cands: make(map[string][]candidate)}
			groups[unit] = g
			groupOrder = append(groupOrder, unit)
		}
		g.cands[name] = append(g.cands[name], candidate{value: value, conf: conf, page: page, order: order})
		order++
	}

	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		lines := strings.Split(page.Text, "\n")
		claimed := make([]bool, len(lines))

		// Layer 1: structural table rows. A row is claimed so the lexical
		// layer cannot re-extract (and contradict) it.
		for i, line := range lines {
			if !isTableRow(line) {
				continue
			}
			claimed[i] = true
			e.scanLine(line, page, weightStructural, add)
		}

		// Layer 2: lexical rules over the residual. Fields only attach to a
		// unit identifier on the same line; free-floating values have no
		// entity to belong to.
		for i, line := range lines {
			if claimed[i] {
				continue
			}
			if !reUnitNumber.MatchString(line) {
				continue
			}
			e.scanLine(line, page, 0, add)
		}
	}

	var records []*document.StructuredRecord
	for _, unit := range groupOrder {
		records = append(records, e.assemble(docID, version, groups[unit])...)
	}
	return records
}

// scanLine extracts every field the line offers. structuralWeight overrides
// the per-rule weight when non-zero (table rows are more reliable than loose
// lexical hits).
func (e *Extractor) scanLine(line string, page document.Page, structuralWeight float64, add func(unit, name, value string, conf float64, pageNum int)) {
	unit := reUnitNumber.FindString(line)
	if unit == "" {
		return
	}

	w := func(lexical float64) float64 {
		if structuralWeight > 0 {
			return structuralWeight
		}
		return lexical
	}
	conf := func(weight float64) float64 { return page.Confidence * weight }

	add(unit, "unit_number", unit, conf(w(weightUnitNumber)), page.Number)

	if m := reUnitType.FindString(line); m != "" {
		add(unit, "unit_type", m, conf(w(weightUnitType)), page.Number)
	}
	if v, ok := parseMoney(line); ok {
		add(unit, "rent_amount", v, conf(w(weightMoney)), page.Number)
	}
	if v, ok := parseArea(line); ok {
		add(unit, "area_sqft", v, conf(w(weightSquareFeet)), page.Number)
	} else if structuralWeight > 0 {
		// Bare column areas are only trusted inside table rows.
		if v, ok := parseBareArea(line); ok {
			add(unit, "area_sqft", v, conf(weightBareArea), page.Number)
		}
	}
	if reVacant.MatchString(line) {
		add(unit, "status", "vacant", conf(w(weightStatus)), page.Number)
	} else if reOccupied.MatchString(line) {
		add(unit, "status", "occupied", conf(w(weightStatus)), page.Number)
	}
	if m := reTenantName.FindStringSubmatch(line); m != nil {
		if name, ok := cleanTenantName(m[1]); ok {
			add(unit, "tenant_name", name, conf(weightTenantName), page.Number)
		}
	}
	dates := reDate.FindAllString(line, -1)
	var parsed []string
	for _, d := range dates {
		if iso, ok := parseDate(d); ok {
			parsed = append(parsed, iso)
		}
	}
	if len(parsed) >= 1 {
		add(unit, "lease_start", parsed[0], conf(w(weightDate)), page.Number)
	}
	if len(parsed) >= 2 {
		add(unit, "lease_end", parsed[1], conf(w(weightDate)), page.Number)
	}
}

// resolve picks the winning candidate for a field: highest confidence, ties
// broken by earliest page, then first occurrence. Reproducible across runs.
func resolve(cands []candidate) candidate {
	best := cands[0]
	for _, c := range cands[1:] {
		switch {
		case c.conf > best.conf:
			best = c
		case c.conf == best.conf && c.page < best.page:
			best = c
		case c.conf == best.conf && c.page == best.page && c.order < best.order:
			best = c
		}
	}
	return best
}

// assemble builds the unit record for a group, plus lease and tenant records
// when a tenant was found alongside the unit.
func (e *Extractor) assemble(docID string, version int, g *group) []*document.StructuredRecord {
	resolved := make(map[string]candidate, len(g.cands))
	for name, cands := range g.cands {
		resolved[name] = resolve(cands)
	}

	// Multi-candidate fields were resolved deterministically, but conflicting
	// values are still worth surfacing for review.
	for name, cands := range g.cands {
		if conflicting(cands) {
			slog.Debug("extract.ambiguous", "unit", g.unit, "field", name,
				"candidates", len(cands), "chosen", resolved[name].value)
		}
	}

	e.inferDefaults(resolved)

	field := func(name string) (document.ExtractedField, bool) {
		c, ok := resolved[name]
		if !ok {
			return document.ExtractedField{}, false
		}
		return document.ExtractedField{
			Name:       name,
			Value:      c.value,
			Confidence: c.conf,
			PageNumber: c.page,
		}, true
	}

	collect := func(entity document.Entity, names ...string) []document.ExtractedField {
		var fs []document.ExtractedField
		for _, n := range names {
			if f, ok := field(n); ok {
				f.Entity = entity
				fs = append(fs, f)
			}
		}
		return fs
	}

	var records []*document.StructuredRecord

	unitFields := collect(document.EntityUnit, "unit_number", "unit_type", "area_sqft", "rent_amount", "status")
	if rec, err := document.NewStructuredRecord(docID, version, document.EntityUnit, g.unit, unitFields, e.threshold); err == nil {
		rec.ID = recordID(docID, version, rec.Entity, rec.Key)
		records = append(records, rec)
	} else {
		slog.Warn("extract.record_rejected", "unit", g.unit, "error", err)
	}

	tenant, hasTenant := resolved["tenant_name"]
	if hasTenant {
		leaseFields := collect(document.EntityLease, "unit_number", "tenant_name", "lease_start", "lease_end")
		if rec, err := document.NewStructuredRecord(docID, version, document.EntityLease, g.unit, leaseFields, e.threshold); err == nil {
			rec.ID = recordID(docID, version, rec.Entity, rec.Key)
			records = append(records, rec)
		}

		tenantFields := collect(document.EntityTenant, "tenant_name", "unit_number")
		if rec, err := document.NewStructuredRecord(docID, version, document.EntityTenant, tenant.value, tenantFields, e.threshold); err == nil {
			rec.ID = recordID(docID, version, rec.Entity, rec.Key)
			records = append(records, rec)
		}
	}

	return records
}

// inferDefaults fills unit_type and status when the page never states them.
// Inferred values carry reduced confidence so they always read as weaker
// than observed ones.
func (e *Extractor) inferDefaults(resolved map[string]candidate) {
	if _, ok := resolved["unit_type"]; !ok {
		if t, src, ok := inferUnitType(resolved); ok {
			resolved["unit_type"] = candidate{value: t, conf: src.conf * weightInferred, page: src.page, order: src.order}
		}
	} else if t, ok := normalizeUnitType(resolved["unit_type"].value); ok {
		c := resolved["unit_type"]
		c.value = t
		resolved["unit_type"] = c
	}

	if _, ok := resolved["status"]; !ok {
		if t, hasTenant := resolved["tenant_name"]; hasTenant {
			resolved["status"] = candidate{value: "occupied", conf: t.conf * 0.8, page: t.page, order: t.order}
		} else if u, ok := resolved["unit_number"]; ok {
			resolved["status"] = candidate{value: "vacant", conf: u.conf * 0.5, page: u.page, order: u.order}
		}
	}
}

func conflicting(cands []candidate) bool {
	for _, c := range cands[1:] {
		if c.value != cands[0].value {
			return true
		}
	}
	return false
}

// recordID gives records a stable identity so re-ingesting identical bytes
// produces identical rows.
func recordID(docID string, version int, entity document.Entity, key string) string {
	return fmt.Sprintf("%s:v%d:%s:%s", docID[:12], version, entity, key)
}
