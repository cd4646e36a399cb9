package document

import "fmt"

// Entity classifies an extracted record or field.
type Entity string

const (
	EntityUnit     Entity = "unit"
	EntityLease    Entity = "lease"
	EntityTenant   Entity = "tenant"
	EntityProperty Entity = "property"
)

// ValidEntity reports whether e is a known entity type.
func ValidEntity(e Entity) bool {
	switch e {
	case EntityUnit, EntityLease, EntityTenant, EntityProperty:
		return true
	}
	return false
}

// ExtractedField is a single (entity, field, value) extraction with its
// provenance and confidence.
type ExtractedField struct {
	Entity      Entity
	Name        string
	Value       string
	Confidence  float64
	PageNumber  int
	NeedsReview bool
}

// requiredFields defines the required-field set per entity type. A record is
// complete only when every required field is present above threshold.
var requiredFields = map[Entity][]string{
	EntityUnit:     {"unit_number", "rent_amount"},
	EntityLease:    {"unit_number", "tenant_name"},
	EntityTenant:   {"tenant_name"},
	EntityProperty: {"property_name"},
}

// RequiredFields returns the required field names for an entity type.
func RequiredFields(e Entity) []string {
	return requiredFields[e]
}

// StructuredRecord groups extracted fields describing one entity instance.
type StructuredRecord struct {
	ID          string
	DocumentID  string
	Version     int
	Entity      Entity
	Key         string // Identifying value, e.g. the unit number.
	Fields      []ExtractedField
	PageStart   int
	PageEnd     int
	Complete    bool
	NeedsReview bool
}

// NewStructuredRecord validates entity type and field set at construction,
// deriving the Complete and NeedsReview flags against the given threshold.
func NewStructuredRecord(docID string, version int, entity Entity, key string, fields []ExtractedField, threshold float64) (*StructuredRecord, error) {
	if !ValidEntity(entity) {
		return nil, fmt.Errorf("unknown entity type %q", entity)
	}
	if key == "" {
		return nil, fmt.Errorf("record key is required")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("record must have at least one field")
	}

	rec := &StructuredRecord{
		DocumentID: docID,
		Version:    version,
		Entity:     entity,
		Key:        key,
		Fields:     fields,
		PageStart:  fields[0].PageNumber,
		PageEnd:    fields[0].PageNumber,
	}

	byName := make(map[string]*ExtractedField, len(fields))
	for i := range rec.Fields {
		f := &rec.Fields[i]
		if f.PageNumber < rec.PageStart {
			rec.PageStart = f.PageNumber
		}
		if f.PageNumber > rec.PageEnd {
			rec.PageEnd = f.PageNumber
		}
		f.NeedsReview = f.Confidence < threshold
		if f.NeedsReview {
			rec.NeedsReview = true
		}
		if prev, ok := byName[f.Name]; !ok || f.Confidence > prev.Confidence {
			byName[f.Name] = f
		}
	}

	rec.Complete = true
	for _, name := range RequiredFields(entity) {
		f, ok := byName[name]
		if !ok || f.Confidence < threshold {
			rec.Complete = false
			break
		}
	}

	return rec, nil
}

// Field returns the named field, or nil if absent.
func (r *StructuredRecord) Field(name string) *ExtractedField {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			return &r.Fields[i]
		}
	}
	return nil
}
